package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"portmarket/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing listing lifecycle events. A nil publisher
// is valid and drops all events, so the core works without Kafka configured.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishListingCreated publishes ListingCreated event
func (ep *EventPublisher) PublishListingCreated(ctx context.Context, event *models.ListingCreatedEvent) error {
	if ep == nil {
		return nil
	}
	return ep.producer.PublishEvent(ctx, listingKey(event.ListingID), event)
}

// PublishListingReserved publishes ListingReserved event
func (ep *EventPublisher) PublishListingReserved(ctx context.Context, event *models.ListingReservedEvent) error {
	if ep == nil {
		return nil
	}
	return ep.producer.PublishEvent(ctx, listingKey(event.ListingID), event)
}

// PublishListingReleased publishes ListingReleased event
func (ep *EventPublisher) PublishListingReleased(ctx context.Context, event *models.ListingReleasedEvent) error {
	if ep == nil {
		return nil
	}
	return ep.producer.PublishEvent(ctx, listingKey(event.Record.ID), event)
}

// PublishReservationExpired publishes ReservationExpired event
func (ep *EventPublisher) PublishReservationExpired(ctx context.Context, event *models.ReservationExpiredEvent) error {
	if ep == nil {
		return nil
	}
	return ep.producer.PublishEvent(ctx, listingKey(event.ListingID), event)
}

func listingKey(id string) string {
	return fmt.Sprintf("listing-%s", id)
}

// EventHandler routes incoming lifecycle events to registered callbacks
type EventHandler struct {
	onListingReleased func(context.Context, *models.ListingReleasedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnListingReleased registers a handler for ListingReleased events
func (eh *EventHandler) OnListingReleased(handler func(context.Context, *models.ListingReleasedEvent) error) {
	eh.onListingReleased = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeListingReleased:
		if eh.onListingReleased != nil {
			var event models.ListingReleasedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ListingReleased event: %w", err)
			}
			return eh.onListingReleased(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
