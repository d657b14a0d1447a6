package models

import "time"

// Event types
const (
	EventTypeListingCreated     = "LISTING_CREATED"
	EventTypeListingReserved    = "LISTING_RESERVED"
	EventTypeListingReleased    = "LISTING_RELEASED"
	EventTypeReservationExpired = "RESERVATION_EXPIRED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ListingCreatedEvent published when the operator adds a listing
type ListingCreatedEvent struct {
	BaseEvent
	ListingID   string  `json:"listing_id"`
	PhoneNumber string  `json:"phone_number"`
	Price       float64 `json:"price"`
}

// ListingReservedEvent published when checkout reserves a listing
type ListingReservedEvent struct {
	BaseEvent
	ListingID  string    `json:"listing_id"`
	Price      float64   `json:"price"`
	ReservedAt time.Time `json:"reserved_at"`
}

// ListingReleasedEvent published when the operator releases credentials.
// Carries the full delivered record so downstream consumers can archive it
// without another read.
type ListingReleasedEvent struct {
	BaseEvent
	Record DeliveredRecord `json:"record"`
}

// ReservationExpiredEvent published when the sweep reverts a stale reservation
type ReservationExpiredEvent struct {
	BaseEvent
	ListingID  string    `json:"listing_id"`
	ReservedAt time.Time `json:"reserved_at"`
}
