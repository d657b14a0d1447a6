package persist

import (
	"context"

	"portmarket/internal/models"
)

// Storage keys. The three collections are independently addressable so a
// corrupt blob for one never blocks loading the others.
const (
	KeyAvailableNumbers = "availableNumbers"
	KeyCart             = "cart"
	KeyPurchasedNumbers = "purchasedNumbers"
)

// State is the full persisted snapshot of the marketplace.
type State struct {
	Listings  []models.Listing         `json:"availableNumbers"`
	Cart      []models.CartEntry       `json:"cart"`
	Delivered []models.DeliveredRecord `json:"purchasedNumbers"`
}

// Persister is the durability gateway. Save is invoked after every mutation;
// it owns durability but not semantics, so callers treat failures as
// non-fatal.
type Persister interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
}

// Noop discards saves and loads empty state. Used when no blob store is
// configured; the service keeps working on in-memory state alone.
type Noop struct{}

func (Noop) Load(ctx context.Context) (State, error) {
	return State{}, nil
}

func (Noop) Save(ctx context.Context, state State) error {
	return nil
}
