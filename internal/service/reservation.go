package service

import (
	"context"
	"log"
	"time"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/repository"
)

// ProductStore is the product access the services need.
type ProductStore interface {
	BySlug(ctx context.Context, slug string) (*model.Product, error)
	ByID(ctx context.Context, id string) (*model.Product, error)
}

// HoldStore is the reservation storage.  Implementations must make
// Reserve all-or-nothing and linearized per ticket; Reserve returns
// any expired holds it displaced from the requested tickets so their
// sessions can be reset.
type HoldStore interface {
	Reserve(ctx context.Context, productID string, ticketIDs []string, sessionID string, expiresAt time.Time) ([]repository.ReleasedHold, error)
	ReleaseSession(ctx context.Context, sessionID string) ([]repository.ReleasedHold, error)
	ReleaseProduct(ctx context.Context, productID string) ([]repository.ReleasedHold, error)
	Expire(ctx context.Context, now time.Time) ([]repository.ReleasedHold, error)
	HeldTicketIDs(ctx context.Context, productID, sessionID string) ([]string, error)
	AttachClient(ctx context.Context, productID, sessionID, clientID string, ticketIDs []string) error
}

// Notifier fans ticket-state changes out to viewers.  Calls are
// fire-and-forget; a dropped signal only delays a refresh.
type Notifier interface {
	BroadcastTicketsChanged(productSlug string)
	NotifySessionReset(sessionID string)
}

// ReservationManager enforces at-most-one-reservation-per-ticket,
// all-or-nothing batch reservation and hold expiry.  It is the only
// component that mutates reservation state.
type ReservationManager struct {
	products ProductStore
	holds    HoldStore
	notifier Notifier
	ttl      time.Duration
}

// NewReservationManager builds a manager with the given hold TTL.
func NewReservationManager(products ProductStore, holds HoldStore, notifier Notifier, ttl time.Duration) *ReservationManager {
	return &ReservationManager{products: products, holds: holds, notifier: notifier, ttl: ttl}
}

// Reserve places holds for the session on every ticket in ticketIDs,
// replacing the session's previous selection on the product and
// refreshing the expiry window.  Returns the effective (deduplicated)
// ticket set and the new expiry on success.  Conflicts reject the
// whole batch and name the contested numbers.
func (m *ReservationManager) Reserve(ctx context.Context, productSlug string, ticketIDs []string, sessionID string) ([]string, time.Time, error) {
	if sessionID == "" {
		return nil, time.Time{}, &ValidationError{Message: "sessão inválida, recarregue a página"}
	}
	ticketIDs = dedupe(ticketIDs)
	if len(ticketIDs) == 0 {
		return nil, time.Time{}, &ValidationError{Message: "Selecione ao menos um número..."}
	}
	product, err := m.products.BySlug(ctx, productSlug)
	if err != nil {
		return nil, time.Time{}, err
	}
	if !product.IsActivate {
		return nil, time.Time{}, ErrProductInactive
	}
	expiresAt := time.Now().UTC().Add(m.ttl)
	displaced, err := m.holds.Reserve(ctx, product.ID, ticketIDs, sessionID, expiresAt)
	if err != nil {
		return nil, time.Time{}, err
	}
	// Displaced holds had expired but were removed before the sweep
	// could see them, so their sessions are reset here.
	seen := map[string]struct{}{}
	for _, d := range displaced {
		if d.SessionID == sessionID {
			continue
		}
		if _, ok := seen[d.SessionID]; ok {
			continue
		}
		seen[d.SessionID] = struct{}{}
		m.notifier.NotifySessionReset(d.SessionID)
	}
	m.notifier.BroadcastTicketsChanged(productSlug)
	return ticketIDs, expiresAt, nil
}

// Release frees everything the session holds, on explicit cancel or
// navigation away.  The session asked for it, so no reset signal is
// sent; affected rooms are refreshed.
func (m *ReservationManager) Release(ctx context.Context, sessionID string) error {
	released, err := m.holds.ReleaseSession(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, slug := range slugs(released) {
		m.notifier.BroadcastTicketsChanged(slug)
	}
	return nil
}

// ReleaseProduct frees every hold on a product, used when sales are
// disabled mid-flight.  Every affected session is reset.
func (m *ReservationManager) ReleaseProduct(ctx context.Context, productID string) error {
	released, err := m.holds.ReleaseProduct(ctx, productID)
	if err != nil {
		return err
	}
	m.signalReleased(released)
	return nil
}

// RunSweeper scans for expired holds at a fixed interval until the
// context is cancelled.  Individual sweep failures are logged and the
// loop continues; a missed cycle self-corrects on the next one.
func (m *ReservationManager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	log.Printf("sweeper: running every %s (hold ttl %s)", interval, m.ttl)
	for {
		select {
		case <-ctx.Done():
			log.Printf("sweeper: stopped")
			return
		case <-ticker.C:
			if err := m.Sweep(ctx); err != nil {
				log.Printf("sweeper: sweep failed: %v", err)
			}
		}
	}
}

// Sweep releases every hold past its expiry, resets each affected
// session exactly once and refreshes each affected room once.
func (m *ReservationManager) Sweep(ctx context.Context) error {
	released, err := m.holds.Expire(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(released) > 0 {
		log.Printf("sweeper: released %d expired hold group(s)", len(released))
	}
	m.signalReleased(released)
	return nil
}

// signalReleased resets each session once and refreshes each room once.
func (m *ReservationManager) signalReleased(released []repository.ReleasedHold) {
	seenSessions := map[string]struct{}{}
	for _, r := range released {
		if _, ok := seenSessions[r.SessionID]; !ok {
			seenSessions[r.SessionID] = struct{}{}
			m.notifier.NotifySessionReset(r.SessionID)
		}
	}
	for _, slug := range slugs(released) {
		m.notifier.BroadcastTicketsChanged(slug)
	}
}

func slugs(released []repository.ReleasedHold) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(released))
	for _, r := range released {
		if _, ok := seen[r.ProductSlug]; !ok {
			seen[r.ProductSlug] = struct{}{}
			out = append(out, r.ProductSlug)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
