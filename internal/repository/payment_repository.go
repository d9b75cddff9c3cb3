package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/duckluckie/rifa-api/internal/model"
)

// PaymentRepo provides access to payment_requests and owns the
// settlement transaction that flips tickets to paid.
type PaymentRepo struct {
	db *sql.DB
}

// NewPaymentRepo returns a PaymentRepo bound to the provided database.
func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

// Create inserts a pending payment request.  The generated id is
// written back into pr.
func (r *PaymentRepo) Create(ctx context.Context, pr *model.PaymentRequest) error {
	pr.ID = uuid.NewString()
	pr.Status = model.PaymentPending
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payment_requests (id, txid, client_id, product_id, amount, qrcode, qrcode_image, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pr.ID, pr.TxID, pr.ClientID, pr.ProductID, pr.Amount, pr.QRCode, pr.QRCodeImage, pr.Status)
	return err
}

// SettledPayment describes a confirmed settlement: everything the
// caller needs to publish the sale event and refresh the room.
type SettledPayment struct {
	PaymentID     string
	TxID          string
	ProductID     string
	ProductSlug   string
	ProductName   string
	Amount        string
	Client        model.Client
	TicketNumbers []uint32
	// AlreadyConfirmed is set when the webhook was delivered more than
	// once; nothing was written and no event should be published.
	AlreadyConfirmed bool
}

// Confirm settles the payment request identified by txid in a single
// transaction: the buyer's held tickets are marked paid and bound to
// the client, the holds are removed and the request is confirmed.  The
// whole batch is rejected with ErrConflict if any held ticket was paid
// in the meantime, or if the holds have already expired.  Delivering
// the same txid twice is harmless: the second call reports
// AlreadyConfirmed.
func (r *PaymentRepo) Confirm(ctx context.Context, txid string) (*SettledPayment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var sp SettledPayment
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT pr.id, pr.txid, pr.status, pr.amount, pr.product_id, p.slug, p.name,
		        c.id, c.name, c.number_phone, COALESCE(c.instagram, ''), c.socket_id, c.created_at, c.updated_at
		 FROM payment_requests pr
		 JOIN products p ON p.id = pr.product_id
		 JOIN clients c ON c.id = pr.client_id
		 WHERE pr.txid = ? FOR UPDATE`, txid).Scan(
		&sp.PaymentID, &sp.TxID, &status, &sp.Amount, &sp.ProductID, &sp.ProductSlug, &sp.ProductName,
		&sp.Client.ID, &sp.Client.Name, &sp.Client.Phone, &sp.Client.Instagram, &sp.Client.SocketID,
		&sp.Client.CreatedAt, &sp.Client.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if status == model.PaymentConfirmed {
		sp.AlreadyConfirmed = true
		return &sp, nil
	}
	if status != model.PaymentPending {
		// expired or failed: the reservation is gone, tickets went
		// back to the pool.
		return nil, &ConflictError{}
	}

	// Lock the buyer's held tickets.  Expiry is not re-checked here:
	// as long as the hold rows still exist the reservation window is
	// honored, the sweep is what removes them.
	rows, err := tx.QueryContext(ctx,
		`SELECT t.id, t.number, t.is_paid
		 FROM tickets t JOIN ticket_holds h ON h.ticket_id = t.id
		 WHERE h.client_id = ? AND h.product_id = ? FOR UPDATE`,
		sp.Client.ID, sp.ProductID)
	if err != nil {
		return nil, err
	}
	var ticketIDs []interface{}
	for rows.Next() {
		var id string
		var number uint32
		var isPaid bool
		if err := rows.Scan(&id, &number, &isPaid); err != nil {
			rows.Close()
			return nil, err
		}
		if isPaid {
			rows.Close()
			return nil, &ConflictError{Numbers: []uint32{number}, Paid: true}
		}
		ticketIDs = append(ticketIDs, id)
		sp.TicketNumbers = append(sp.TicketNumbers, number)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if len(ticketIDs) == 0 {
		return nil, &ConflictError{}
	}

	ph := placeholders(len(ticketIDs))
	res, err := tx.ExecContext(ctx,
		`UPDATE tickets SET is_paid = 1, client_id = ? WHERE id IN (`+ph+`) AND is_paid = 0`,
		append([]interface{}{sp.Client.ID}, ticketIDs...)...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return nil, err
	} else if int(n) != len(ticketIDs) {
		return nil, &ConflictError{}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ticket_holds WHERE ticket_id IN (`+ph+`)`, ticketIDs...); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_requests SET status = ? WHERE id = ?`,
		model.PaymentConfirmed, sp.PaymentID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &sp, nil
}
