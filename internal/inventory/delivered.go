package inventory

import (
	"sync"

	"portmarket/internal/models"
)

// DeliveredLog is the append-only list of records released to buyers.
// Records are never mutated after Append.
type DeliveredLog struct {
	mu      sync.RWMutex
	records []models.DeliveredRecord
}

// NewDeliveredLog creates an empty delivered-record log
func NewDeliveredLog() *DeliveredLog {
	return &DeliveredLog{}
}

// Append adds a released record to the log.
func (d *DeliveredLog) Append(rec models.DeliveredRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records = append(d.records, rec)
}

// List returns copies of all delivered records in release order.
func (d *DeliveredLog) List() []models.DeliveredRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.DeliveredRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Restore replaces the log contents with previously persisted records.
func (d *DeliveredLog) Restore(records []models.DeliveredRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records = make([]models.DeliveredRecord, len(records))
	copy(d.records, records)
}
