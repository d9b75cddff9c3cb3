// Package queue defines the payment.confirmed queue: the event payload,
// a publisher used by the purchase flow and the background consumer
// that writes the sales ledger.
package queue

// PaymentConfirmedEvent is published when a PIX charge settles and the
// tickets flip to paid.  It carries enough for downstream consumers to
// log or notify without querying the database.
type PaymentConfirmedEvent struct {
	PaymentID   string   `json:"payment_id"`
	TxID        string   `json:"txid"`
	ProductID   string   `json:"product_id"`
	ProductName string   `json:"product_name"`
	ProductSlug string   `json:"product_slug"`
	ClientName  string   `json:"client_name"`
	ClientPhone string   `json:"client_phone"`
	Instagram   string   `json:"instagram,omitempty"`
	Numbers     []uint32 `json:"numbers"`
	Amount      string   `json:"amount"`
	ConfirmedAt string   `json:"confirmed_at"`
}
