package worker

import (
	"context"
	"log"

	"portmarket/internal/archive"
	"portmarket/internal/broker"
	"portmarket/internal/models"
)

// ArchiveWorker consumes listing lifecycle events and copies delivered
// records into the Postgres archive. Replays are filtered out via the
// processed-events table, so the consumer is idempotent.
type ArchiveWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	archive      *archive.Archive
}

// NewArchiveWorker creates a new archive worker
func NewArchiveWorker(consumer *broker.Consumer, arc *archive.Archive) *ArchiveWorker {
	w := &ArchiveWorker{
		consumer: consumer,
		archive:  arc,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnListingReleased(w.handleListingReleased)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *ArchiveWorker) Start(ctx context.Context) error {
	log.Println("Starting archive worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ArchiveWorker) Stop() error {
	log.Println("Stopping archive worker...")
	return w.consumer.Close()
}

func (w *ArchiveWorker) handleListingReleased(ctx context.Context, event *models.ListingReleasedEvent) error {
	processed, err := w.archive.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		log.Printf("Event already processed: %s", event.EventID)
		return nil
	}

	if err := w.archive.SaveRecord(ctx, event.Record); err != nil {
		return err
	}

	if err := w.archive.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		log.Printf("Failed to mark event processed: %v", err)
	}

	log.Printf("Archived delivered record: listing=%s", event.Record.ID)
	return nil
}
