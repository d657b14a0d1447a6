package models

import "time"

// Listing statuses
const (
	StatusAvailable = "available"
	StatusReserved  = "reserved"
	StatusSold      = "sold"
)

// Listing is a phone number offered for sale. AccountNumber and PIN are the
// credentials handed over on release; they must never reach a buyer-facing
// read path while the listing is unsold.
type Listing struct {
	ID            string     `json:"id"`
	PhoneNumber   string     `json:"phoneNumber"`
	AccountNumber string     `json:"accountNumber"`
	PIN           string     `json:"pin"`
	Price         float64    `json:"price"`
	Status        string     `json:"status"`
	ReservedBy    string     `json:"reservedBy,omitempty"`
	ReservedAt    *time.Time `json:"reservedAt,omitempty"`
	PurchasedBy   string     `json:"purchasedBy,omitempty"`
}

// ListingView is the buyer-facing projection of a Listing with credentials
// stripped.
type ListingView struct {
	ID          string     `json:"id"`
	PhoneNumber string     `json:"phoneNumber"`
	Price       float64    `json:"price"`
	Status      string     `json:"status"`
	ReservedAt  *time.Time `json:"reservedAt,omitempty"`
}

// View returns the redacted projection of l.
func (l Listing) View() ListingView {
	return ListingView{
		ID:          l.ID,
		PhoneNumber: l.PhoneNumber,
		Price:       l.Price,
		Status:      l.Status,
		ReservedAt:  l.ReservedAt,
	}
}

// CartEntry references a single listing selected for purchase. A listing
// appears in the cart at most once.
type CartEntry struct {
	ListingID string    `json:"listingId"`
	AddedAt   time.Time `json:"addedAt"`
}

// DeliveredRecord is the immutable snapshot produced when the operator
// releases a reserved listing to the buyer's inbox. PurchasedAt carries the
// original reservation time. Unlike Listing there is no status gate: holders
// of a record may see the credentials.
type DeliveredRecord struct {
	ID            string    `json:"id"`
	PhoneNumber   string    `json:"phoneNumber"`
	AccountNumber string    `json:"accountNumber"`
	PIN           string    `json:"pin"`
	Price         float64   `json:"price"`
	PurchasedBy   string    `json:"purchasedBy,omitempty"`
	PurchasedAt   time.Time `json:"purchasedAt"`
	ReleasedAt    time.Time `json:"releasedAt"`
}

// NewListingInput carries the operator-supplied fields for a listing.
type NewListingInput struct {
	PhoneNumber   string  `json:"phone_number"`
	AccountNumber string  `json:"account_number"`
	PIN           string  `json:"pin"`
	Price         float64 `json:"price"`
}
