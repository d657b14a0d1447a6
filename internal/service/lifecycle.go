package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"portmarket/internal/broker"
	"portmarket/internal/cart"
	"portmarket/internal/clock"
	"portmarket/internal/inventory"
	"portmarket/internal/models"
	"portmarket/internal/persist"
	"portmarket/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultReservationWindow is how long a reserved listing is held for a
// buyer pending the operator's manual payment confirmation.
const DefaultReservationWindow = 30 * time.Minute

// Lifecycle owns all status transitions for listings. It is the only
// component permitted to change Status and ReservedAt; the store enforces
// atomicity per listing, this service enforces the state machine:
//
//	available -> reserved  (checkout)
//	reserved  -> sold      (operator release, emits a DeliveredRecord)
//	reserved  -> available (sweep after the reservation window elapses)
//
// sold is terminal.
type Lifecycle struct {
	store     *inventory.Store
	cart      *cart.Cart
	delivered *inventory.DeliveredLog
	persister persist.Persister
	publisher *broker.EventPublisher
	clock     clock.Clock
	window    time.Duration
	logger    *zap.Logger

	// saveMu spans snapshot and save together, so a completed save never
	// reflects older state than one completed before it.
	saveMu sync.Mutex
}

// Option configures a Lifecycle
type Option func(*Lifecycle)

// WithReservationWindow overrides the default reservation window.
func WithReservationWindow(d time.Duration) Option {
	return func(l *Lifecycle) {
		if d > 0 {
			l.window = d
		}
	}
}

// WithPublisher attaches a lifecycle event publisher.
func WithPublisher(p *broker.EventPublisher) Option {
	return func(l *Lifecycle) {
		l.publisher = p
	}
}

// NewLifecycle creates the reservation lifecycle service
func NewLifecycle(
	store *inventory.Store,
	crt *cart.Cart,
	delivered *inventory.DeliveredLog,
	persister persist.Persister,
	clk clock.Clock,
	opts ...Option,
) *Lifecycle {
	l := &Lifecycle{
		store:     store,
		cart:      crt,
		delivered: delivered,
		persister: persister,
		clock:     clk,
		window:    DefaultReservationWindow,
		logger:    util.GetLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadState restores all three collections from the persistence gateway.
// Called once at startup; per-collection load failures already defaulted to
// empty inside the gateway.
func (l *Lifecycle) LoadState(ctx context.Context) {
	state, err := l.persister.Load(ctx)
	if err != nil {
		l.logger.Warn("Failed to load persisted state, starting empty", zap.Error(err))
		return
	}

	l.store.Restore(state.Listings)
	l.cart.Restore(state.Cart)
	l.delivered.Restore(state.Delivered)

	l.logger.Info("State loaded",
		zap.Int("listings", len(state.Listings)),
		zap.Int("cart_entries", len(state.Cart)),
		zap.Int("delivered_records", len(state.Delivered)))
}

// persistState saves a snapshot of all three collections. Durability is a
// trailing side effect: failures are logged and never surfaced, the in-memory
// mutation that triggered the save stands. Snapshotting happens under saveMu:
// if it happened outside, two overlapping handlers could acquire the write
// path in the opposite order of their snapshots and the durable state would
// regress to the older one.
func (l *Lifecycle) persistState(ctx context.Context) {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	state := persist.State{
		Listings:  l.store.Snapshot(),
		Cart:      l.cart.Entries(),
		Delivered: l.delivered.List(),
	}

	if err := l.persister.Save(ctx, state); err != nil {
		l.logger.Error("Failed to persist state", zap.Error(err))
	}
}

// CreateListings adds a batch of one or more listings for the operator.
// The whole batch is validated before any listing is created.
func (l *Lifecycle) CreateListings(ctx context.Context, inputs []models.NewListingInput) ([]models.Listing, error) {
	ctx, span := util.StartSpan(ctx, "Lifecycle.CreateListings")
	defer span.End()

	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one listing is required", models.ErrValidation)
	}
	for _, in := range inputs {
		if err := inventory.ValidateInput(in); err != nil {
			return nil, err
		}
	}

	created := make([]models.Listing, 0, len(inputs))
	for _, in := range inputs {
		listing, err := l.store.Create(in)
		if err != nil {
			return nil, err
		}
		created = append(created, listing)

		util.ListingsCreatedTotal.Inc()
		l.logger.Info("Listing created",
			zap.String("listing_id", listing.ID),
			zap.String("phone_number", listing.PhoneNumber))

		event := &models.ListingCreatedEvent{
			BaseEvent:   l.newBaseEvent(models.EventTypeListingCreated),
			ListingID:   listing.ID,
			PhoneNumber: listing.PhoneNumber,
			Price:       listing.Price,
		}
		if err := l.publisher.PublishListingCreated(ctx, event); err != nil {
			l.logger.Error("Failed to publish ListingCreated event", zap.Error(err))
		}
	}

	l.persistState(ctx)
	return created, nil
}

// AddToCart puts the listing in the buyer's cart. Adding a listing already
// in the cart is a no-op. Listing status is not checked here; checkout skips
// anything that is no longer available.
func (l *Lifecycle) AddToCart(ctx context.Context, listingID string) error {
	if _, err := l.store.Get(listingID); err != nil {
		return err
	}

	l.cart.Add(listingID, l.clock.Now())
	l.persistState(ctx)
	return nil
}

// RemoveFromCart drops the listing from the cart; no-op if absent.
func (l *Lifecycle) RemoveFromCart(ctx context.Context, listingID string) {
	l.cart.Remove(listingID)
	l.persistState(ctx)
}

// ClearCart empties the cart.
func (l *Lifecycle) ClearCart(ctx context.Context) {
	l.cart.Clear()
	l.persistState(ctx)
}

// CartContents returns cart entries paired with the redacted listing view.
// Entries whose listing is no longer available are filtered out of the read,
// so a stale cart never shows a listing another flow already reserved.
func (l *Lifecycle) CartContents(ctx context.Context) []CartItem {
	entries := l.cart.Entries()
	items := make([]CartItem, 0, len(entries))

	for _, e := range entries {
		listing, err := l.store.Get(e.ListingID)
		if err != nil || listing.Status != models.StatusAvailable {
			continue
		}
		items = append(items, CartItem{
			Listing: listing.View(),
			AddedAt: e.AddedAt,
		})
	}
	return items
}

// CartItem pairs a cart entry with its listing for display.
type CartItem struct {
	Listing models.ListingView `json:"listing"`
	AddedAt time.Time          `json:"added_at"`
}

// CartTotal sums the prices of listings in the cart. Empty cart totals 0.
func (l *Lifecycle) CartTotal(ctx context.Context) float64 {
	return l.cart.Total(func(id string) (float64, bool) {
		listing, err := l.store.Get(id)
		if err != nil {
			return 0, false
		}
		return listing.Price, true
	})
}

// Checkout reserves the given listings after the buyer attests payment was
// sent. The batch is best-effort per item, never atomic across the whole
// set: any id not currently available is skipped so a sold-out race degrades
// gracefully instead of failing the rest. Each reserved listing is removed
// from the cart in the same step as its status change. Returns the ids
// actually reserved.
func (l *Lifecycle) Checkout(ctx context.Context, listingIDs []string) ([]string, error) {
	ctx, span := util.StartSpan(ctx, "Lifecycle.Checkout")
	defer span.End()

	if len(listingIDs) == 0 {
		return nil, fmt.Errorf("%w: checkout requires at least one listing id", models.ErrValidation)
	}

	now := l.clock.Now()
	reserved := make([]string, 0, len(listingIDs))

	for _, id := range listingIDs {
		listing, err := l.store.Mutate(id, func(lst *models.Listing) error {
			if lst.Status != models.StatusAvailable {
				return fmt.Errorf("%w: listing %s is %s", models.ErrInvalidState, lst.ID, lst.Status)
			}
			reservedAt := now
			lst.Status = models.StatusReserved
			lst.ReservedAt = &reservedAt
			return nil
		})
		if err != nil {
			util.CheckoutSkippedTotal.Inc()
			l.logger.Warn("Skipping unavailable listing at checkout",
				zap.String("listing_id", id),
				zap.Error(err))
			continue
		}

		l.cart.Remove(id)
		reserved = append(reserved, id)
		util.ListingsReservedTotal.Inc()

		l.logger.Info("Listing reserved",
			zap.String("listing_id", id),
			zap.Time("reserved_at", now))

		event := &models.ListingReservedEvent{
			BaseEvent:  l.newBaseEvent(models.EventTypeListingReserved),
			ListingID:  id,
			Price:      listing.Price,
			ReservedAt: now,
		}
		if err := l.publisher.PublishListingReserved(ctx, event); err != nil {
			l.logger.Error("Failed to publish ListingReserved event", zap.Error(err))
		}
	}

	l.persistState(ctx)
	return reserved, nil
}

// Release is the operator action confirming payment was received. The
// listing must be reserved; on success exactly one DeliveredRecord is
// emitted with the credentials and the listing becomes sold, which is
// terminal. This is the single point where AccountNumber and PIN become
// visible to the buyer-facing inbox.
func (l *Lifecycle) Release(ctx context.Context, listingID string) (models.DeliveredRecord, error) {
	ctx, span := util.StartSpan(ctx, "Lifecycle.Release")
	defer span.End()

	now := l.clock.Now()
	var record models.DeliveredRecord

	_, err := l.store.Mutate(listingID, func(lst *models.Listing) error {
		if lst.Status != models.StatusReserved || lst.ReservedAt == nil {
			return fmt.Errorf("%w: listing %s is %s, release requires reserved", models.ErrInvalidState, lst.ID, lst.Status)
		}

		record = models.DeliveredRecord{
			ID:            lst.ID,
			PhoneNumber:   lst.PhoneNumber,
			AccountNumber: lst.AccountNumber,
			PIN:           lst.PIN,
			Price:         lst.Price,
			PurchasedBy:   lst.ReservedBy,
			PurchasedAt:   *lst.ReservedAt,
			ReleasedAt:    now,
		}

		lst.Status = models.StatusSold
		lst.PurchasedBy = lst.ReservedBy
		lst.ReservedAt = nil
		lst.ReservedBy = ""
		return nil
	})
	if err != nil {
		return models.DeliveredRecord{}, err
	}

	l.delivered.Append(record)
	util.ListingsReleasedTotal.Inc()

	l.logger.Info("Listing released to inbox",
		zap.String("listing_id", listingID),
		zap.Time("purchased_at", record.PurchasedAt))

	event := &models.ListingReleasedEvent{
		BaseEvent: l.newBaseEvent(models.EventTypeListingReleased),
		Record:    record,
	}
	if err := l.publisher.PublishListingReleased(ctx, event); err != nil {
		l.logger.Error("Failed to publish ListingReleased event", zap.Error(err))
	}

	l.persistState(ctx)
	return record, nil
}

// SweepExpired reverts every reserved listing whose reservation window has
// elapsed back to available. Idempotent: a second run with the same now sees
// no reserved listings past the window and changes nothing. Returns the ids
// reverted.
func (l *Lifecycle) SweepExpired(ctx context.Context, now time.Time) []string {
	ctx, span := util.StartSpan(ctx, "Lifecycle.SweepExpired")
	defer span.End()

	util.SweepRunsTotal.Inc()
	start := time.Now()
	defer func() {
		util.SweepLatency.Observe(time.Since(start).Seconds())
	}()

	var reverted []string

	for _, listing := range l.store.List(models.StatusReserved) {
		if listing.ReservedAt == nil || now.Sub(*listing.ReservedAt) <= l.window {
			continue
		}

		reservedAt := *listing.ReservedAt
		_, err := l.store.Mutate(listing.ID, func(lst *models.Listing) error {
			// Re-check under the lock; a concurrent release or an
			// overlapping sweep may have transitioned it already.
			if lst.Status != models.StatusReserved || lst.ReservedAt == nil {
				return fmt.Errorf("%w: listing %s no longer reserved", models.ErrInvalidState, lst.ID)
			}
			if now.Sub(*lst.ReservedAt) <= l.window {
				return fmt.Errorf("%w: reservation for %s still within window", models.ErrInvalidState, lst.ID)
			}
			lst.Status = models.StatusAvailable
			lst.ReservedAt = nil
			lst.ReservedBy = ""
			return nil
		})
		if err != nil {
			continue
		}

		reverted = append(reverted, listing.ID)
		util.ReservationsExpiredTotal.Inc()

		l.logger.Info("Reservation expired, listing back to available",
			zap.String("listing_id", listing.ID),
			zap.String("phone_number", listing.PhoneNumber))

		event := &models.ReservationExpiredEvent{
			BaseEvent:  l.newBaseEvent(models.EventTypeReservationExpired),
			ListingID:  listing.ID,
			ReservedAt: reservedAt,
		}
		if err := l.publisher.PublishReservationExpired(ctx, event); err != nil {
			l.logger.Error("Failed to publish ReservationExpired event", zap.Error(err))
		}
	}

	if len(reverted) > 0 {
		l.persistState(ctx)
	}
	return reverted
}

// Listings returns redacted listing views, optionally filtered by status.
// Credentials never leave this path; they are only disclosed through
// DeliveredRecords.
func (l *Lifecycle) Listings(status string) []models.ListingView {
	listings := l.store.List(status)
	views := make([]models.ListingView, 0, len(listings))
	for _, lst := range listings {
		views = append(views, lst.View())
	}
	return views
}

// Delivered returns all released records, oldest first.
func (l *Lifecycle) Delivered() []models.DeliveredRecord {
	return l.delivered.List()
}

// ReservationWindow reports the configured window.
func (l *Lifecycle) ReservationWindow() time.Duration {
	return l.window
}

func (l *Lifecycle) newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: l.clock.Now(),
	}
}
