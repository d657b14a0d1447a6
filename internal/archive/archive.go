package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"portmarket/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Archive is an optional durable copy of delivered records in Postgres,
// populated from the lifecycle event feed. The in-memory core never reads
// from it; it exists for operator reporting and reconciliation.
type Archive struct {
	db *sqlx.DB
}

// NewArchive connects to Postgres
func NewArchive(databaseURL string) (*Archive, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Archive{db: db}, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	return a.db.Close()
}

type deliveredRow struct {
	ID            string    `db:"id"`
	PhoneNumber   string    `db:"phone_number"`
	AccountNumber string    `db:"account_number"`
	PIN           string    `db:"pin"`
	Price         float64   `db:"price"`
	PurchasedBy   string    `db:"purchased_by"`
	PurchasedAt   time.Time `db:"purchased_at"`
	ReleasedAt    time.Time `db:"released_at"`
}

// SaveRecord inserts a delivered record. Re-inserting the same listing id is
// a no-op so the event consumer can replay safely.
func (a *Archive) SaveRecord(ctx context.Context, rec models.DeliveredRecord) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO delivered_records (id, phone_number, account_number, pin, price, purchased_by, purchased_at, released_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.PhoneNumber, rec.AccountNumber, rec.PIN, rec.Price,
		rec.PurchasedBy, rec.PurchasedAt, rec.ReleasedAt)
	return err
}

// GetRecord retrieves an archived record by listing id
func (a *Archive) GetRecord(ctx context.Context, id string) (*models.DeliveredRecord, error) {
	var row deliveredRow
	err := a.db.GetContext(ctx, &row, "SELECT * FROM delivered_records WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	rec := row.toModel()
	return &rec, nil
}

// ListRecords retrieves archived records, newest release first
func (a *Archive) ListRecords(ctx context.Context) ([]models.DeliveredRecord, error) {
	var rows []deliveredRow
	err := a.db.SelectContext(ctx, &rows,
		"SELECT * FROM delivered_records ORDER BY released_at DESC")
	if err != nil {
		return nil, err
	}

	records := make([]models.DeliveredRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toModel())
	}
	return records, nil
}

func (r deliveredRow) toModel() models.DeliveredRecord {
	return models.DeliveredRecord{
		ID:            r.ID,
		PhoneNumber:   r.PhoneNumber,
		AccountNumber: r.AccountNumber,
		PIN:           r.PIN,
		Price:         r.Price,
		PurchasedBy:   r.PurchasedBy,
		PurchasedAt:   r.PurchasedAt,
		ReleasedAt:    r.ReleasedAt,
	}
}

// IsEventProcessed checks if an event has been processed
func (a *Archive) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := a.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, err
}

// MarkEventProcessed marks an event as processed
func (a *Archive) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return err
}
