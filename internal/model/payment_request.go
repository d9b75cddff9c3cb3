package model

import "time"

// Payment settlement states.  A request starts pending, is confirmed by
// the provider webhook, and is marked expired when the reservation that
// spawned it lapses before settlement.
const (
	PaymentPending   = "pending"
	PaymentConfirmed = "confirmed"
	PaymentExpired   = "expired"
	PaymentFailed    = "failed"
)

// PaymentRequest is a PIX charge issued for one purchase attempt.
// TxID is the provider transaction id; QRCodeImage and QRCode are the
// scannable image and the copy-paste code shown to the buyer.
type PaymentRequest struct {
	ID          string    `json:"id"`
	TxID        string    `json:"txid"`
	ClientID    string    `json:"clientId"`
	ProductID   string    `json:"productId"`
	Amount      string    `json:"amount"`
	QRCode      string    `json:"qrcode"`
	QRCodeImage string    `json:"imagemQrcode"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
