package inventory

import (
	"fmt"
	"strings"
	"sync"

	"portmarket/internal/models"

	"github.com/google/uuid"
)

// Store owns the set of listings. It is the single mutator of listing
// records; all status transitions go through Mutate so readers never observe
// a partial write. Insertion order is preserved, newest appended last.
type Store struct {
	mu       sync.RWMutex
	listings []models.Listing
	index    map[string]int
}

// NewStore creates an empty listing store
func NewStore() *Store {
	return &Store{index: make(map[string]int)}
}

// List returns copies of all listings in insertion order. When status is
// non-empty only listings with that status are returned.
func (s *Store) List(status string) []models.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Listing, 0, len(s.listings))
	for _, l := range s.listings {
		if status != "" && l.Status != status {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Get returns a copy of the listing with the given id.
func (s *Store) Get(id string) (models.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		return models.Listing{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}
	return s.listings[i], nil
}

// ValidateInput checks operator input without touching the store, so callers
// can vet a whole batch before creating anything.
func ValidateInput(in models.NewListingInput) error {
	if strings.TrimSpace(in.PhoneNumber) == "" {
		return fmt.Errorf("%w: phone number is required", models.ErrValidation)
	}
	if strings.TrimSpace(in.AccountNumber) == "" {
		return fmt.Errorf("%w: account number is required", models.ErrValidation)
	}
	if strings.TrimSpace(in.PIN) == "" {
		return fmt.Errorf("%w: pin is required", models.ErrValidation)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", models.ErrValidation)
	}
	return nil
}

// Create validates the operator input, assigns a fresh id and appends a new
// available listing.
func (s *Store) Create(in models.NewListingInput) (models.Listing, error) {
	if err := ValidateInput(in); err != nil {
		return models.Listing{}, err
	}

	listing := models.Listing{
		ID:            uuid.New().String(),
		PhoneNumber:   in.PhoneNumber,
		AccountNumber: in.AccountNumber,
		PIN:           in.PIN,
		Price:         in.Price,
		Status:        models.StatusAvailable,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.index[listing.ID] = len(s.listings)
	s.listings = append(s.listings, listing)
	return listing, nil
}

// Mutate applies fn to the listing with the given id under the store lock.
// If fn returns an error the listing is left unchanged. The updated copy is
// returned on success.
func (s *Store) Mutate(id string, fn func(*models.Listing) error) (models.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return models.Listing{}, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	}

	updated := s.listings[i]
	if err := fn(&updated); err != nil {
		return models.Listing{}, err
	}

	s.listings[i] = updated
	return updated, nil
}

// Snapshot returns a copy of every listing, for persistence.
func (s *Store) Snapshot() []models.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Listing, len(s.listings))
	copy(out, s.listings)
	return out
}

// Restore replaces the store contents with previously persisted listings.
func (s *Store) Restore(listings []models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listings = make([]models.Listing, len(listings))
	copy(s.listings, listings)
	s.index = make(map[string]int, len(listings))
	for i, l := range s.listings {
		s.index[l.ID] = i
	}
}
