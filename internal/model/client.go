package model

import "time"

// Client is a buyer created per purchase attempt.  It becomes permanent
// once linked to a paid ticket; otherwise the expiry sweep removes it
// together with its holds.  SocketID is the realtime session that owns
// the reservation the purchase was made from.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"numberPhone"`
	Instagram string    `json:"instagram,omitempty"`
	SocketID  string    `json:"socketId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
