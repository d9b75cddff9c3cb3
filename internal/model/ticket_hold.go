package model

import "time"

// TicketHold is a temporary, expiring reservation of one ticket by one
// realtime session.  At most one active hold exists per ticket.  The
// ClientID is filled in once the buyer submits contact data, so the
// storefront can show who is holding a number while payment is pending.
type TicketHold struct {
	ID        uint64
	ProductID string
	TicketID  string
	SessionID string
	ClientID  *string
	ExpiresAt time.Time
	CreatedAt time.Time
}
