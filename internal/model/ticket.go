package model

import "time"

// TicketStatus is the single tagged state a ticket can be in.  A paid
// ticket never leaves StatusPaid; a reserved ticket either gets paid or
// falls back to available when its hold expires.
type TicketStatus string

const (
	StatusAvailable TicketStatus = "available"
	StatusReserved  TicketStatus = "reserved"
	StatusPaid      TicketStatus = "paid"
)

// Ticket is one purchasable number inside a raffle.  Number is unique
// within its product and immutable.  The Client slice carries the buyer
// once the ticket is paid, or the reserving buyer while a hold with
// submitted contact data is active; the storefront reads it to decide
// how to render the number.
type Ticket struct {
	ID        string       `json:"id"`
	Number    uint32       `json:"number"`
	IsPaid    bool         `json:"isPaid"`
	ProductID string       `json:"productId"`
	Status    TicketStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
	Client    []Client     `json:"client"`
}
