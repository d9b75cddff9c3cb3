package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/duckluckie/rifa-api/internal/model"
)

// HoldRepo owns the ticket_holds table and every transition between
// the available, reserved and paid ticket states that involves a hold.
// Each public method is a complete transaction: ticket rows are locked
// with SELECT ... FOR UPDATE before holds are checked or written, so
// two sessions racing for the same ticket serialize on the row lock
// and the loser sees the winner's hold.
type HoldRepo struct {
	db *sql.DB
}

// NewHoldRepo returns a HoldRepo bound to the provided database.
func NewHoldRepo(db *sql.DB) *HoldRepo { return &HoldRepo{db: db} }

// ReleasedHold describes one freed hold, grouped per session and
// product so callers can notify the right room and session.
type ReleasedHold struct {
	SessionID   string
	ClientID    *string
	ProductSlug string
}

// holdRow is the joined hold row shared by every path that frees holds.
type holdRow struct {
	id       uint64
	session  string
	clientID sql.NullString
	slug     string
}

// Reserve atomically places holds for sessionID on every ticket in
// ticketIDs.  Any holds the session already has on this product are
// replaced, which both implements re-selection-replaces semantics and
// refreshes the expiry window.  When any requested ticket is paid or
// actively held by a different session, nothing is written and a
// *ConflictError naming the contested numbers is returned.
//
// Expired holds sitting on the requested tickets are displaced and
// returned: the sweep will never see those rows, so the caller is
// responsible for resetting their sessions.
func (r *HoldRepo) Reserve(ctx context.Context, productID string, ticketIDs []string, sessionID string, expiresAt time.Time) ([]ReleasedHold, error) {
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

	// Lock the requested ticket rows.  This is the serialization
	// point: a concurrent Reserve for an overlapping set blocks here
	// until we commit or roll back.
	q := `SELECT id, number, is_paid FROM tickets WHERE product_id = ? AND id IN (` +
		placeholders(len(ticketIDs)) + `) FOR UPDATE`
	args := make([]interface{}, 0, len(ticketIDs)+1)
	args = append(args, productID)
	for _, id := range ticketIDs {
		args = append(args, id)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	found := 0
	var paidNumbers []uint32
	for rows.Next() {
		var id string
		var number uint32
		var isPaid bool
		if err := rows.Scan(&id, &number, &isPaid); err != nil {
			rows.Close()
			return nil, err
		}
		found++
		if isPaid {
			paidNumbers = append(paidNumbers, number)
		}
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if found != len(ticketIDs) {
		return nil, ErrTicketNotFound
	}
	if len(paidNumbers) > 0 {
		return nil, &ConflictError{Numbers: paidNumbers, Paid: true}
	}

	// Displace expired holds on the requested tickets; they would
	// collide with the insert below.  Expired holds on other tickets
	// are left for the sweep so their sessions still get their reset.
	idArgs := make([]interface{}, len(ticketIDs))
	for i, id := range ticketIDs {
		idArgs[i] = id
	}
	displaced, err := r.lockHolds(ctx, tx,
		`h.ticket_id IN (`+placeholders(len(ticketIDs))+`) AND h.expires_at <= UTC_TIMESTAMP()`,
		idArgs...)
	if err != nil {
		return nil, err
	}
	if len(displaced) > 0 {
		if err := r.dropHolds(ctx, tx, displaced); err != nil {
			return nil, err
		}
	}

	// Reject when another session actively holds any of the tickets.
	hq := `SELECT t.number FROM ticket_holds h
	       JOIN tickets t ON t.id = h.ticket_id
	       WHERE h.ticket_id IN (` + placeholders(len(ticketIDs)) + `)
	         AND h.session_id <> ? AND h.expires_at > UTC_TIMESTAMP()`
	hargs := make([]interface{}, 0, len(ticketIDs)+1)
	hargs = append(hargs, idArgs...)
	hargs = append(hargs, sessionID)
	hrows, err := tx.QueryContext(ctx, hq, hargs...)
	if err != nil {
		return nil, err
	}
	var heldNumbers []uint32
	for hrows.Next() {
		var n uint32
		if err := hrows.Scan(&n); err != nil {
			hrows.Close()
			return nil, err
		}
		heldNumbers = append(heldNumbers, n)
	}
	if err := hrows.Close(); err != nil {
		return nil, err
	}
	if len(heldNumbers) > 0 {
		return nil, &ConflictError{Numbers: heldNumbers}
	}

	// Replace the session's previous selection on this product.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ticket_holds WHERE session_id = ? AND product_id = ?`,
		sessionID, productID); err != nil {
		return nil, err
	}

	iq := `INSERT INTO ticket_holds (product_id, ticket_id, session_id, expires_at) VALUES `
	iargs := make([]interface{}, 0, len(ticketIDs)*4)
	for i, id := range ticketIDs {
		if i > 0 {
			iq += ","
		}
		iq += "(?, ?, ?, ?)"
		iargs = append(iargs, productID, id, sessionID, expiresAt.UTC().Format("2006-01-02 15:04:05"))
	}
	if _, err := tx.ExecContext(ctx, iq, iargs...); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return groupReleased(displaced), nil
}

// ReleaseSession frees every hold owned by the session and returns one
// entry per affected product so the caller can broadcast refreshes.
// Pending payment requests of the session's clients are expired and
// clients that never paid are removed.
func (r *HoldRepo) ReleaseSession(ctx context.Context, sessionID string) ([]ReleasedHold, error) {
	return r.releaseWhere(ctx, `h.session_id = ?`, sessionID)
}

// ReleaseProduct frees every hold on the given product, used when an
// admin disables sales mid-flight.
func (r *HoldRepo) ReleaseProduct(ctx context.Context, productID string) ([]ReleasedHold, error) {
	return r.releaseWhere(ctx, `h.product_id = ?`, productID)
}

// Expire removes every hold past its expiry and returns the grouped
// (session, product) pairs that were affected.
func (r *HoldRepo) Expire(ctx context.Context, now time.Time) ([]ReleasedHold, error) {
	return r.releaseWhere(ctx, `h.expires_at <= ?`, now.UTC().Format("2006-01-02 15:04:05"))
}

// releaseWhere deletes holds matching the condition inside one
// transaction, expires their pending payment requests, and cleans up
// buyer records that never reached a paid ticket.
func (r *HoldRepo) releaseWhere(ctx context.Context, cond string, arg interface{}) ([]ReleasedHold, error) {
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

	held, err := r.lockHolds(ctx, tx, cond, arg)
	if err != nil {
		return nil, err
	}
	if len(held) == 0 {
		_ = tx.Rollback()
		return nil, nil
	}
	if err := r.dropHolds(ctx, tx, held); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return groupReleased(held), nil
}

// lockHolds selects and row-locks the holds matching cond, joined with
// their product slug.
func (r *HoldRepo) lockHolds(ctx context.Context, tx *sql.Tx, cond string, args ...interface{}) ([]holdRow, error) {
	q := `SELECT h.id, h.session_id, h.client_id, p.slug
	      FROM ticket_holds h JOIN products p ON p.id = h.product_id
	      WHERE ` + cond + ` FOR UPDATE`
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var held []holdRow
	for rows.Next() {
		var h holdRow
		if err := rows.Scan(&h.id, &h.session, &h.clientID, &h.slug); err != nil {
			rows.Close()
			return nil, err
		}
		held = append(held, h)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return held, nil
}

// dropHolds deletes the given hold rows, expires pending charges of
// their buyers and removes buyer records with no paid ticket.
func (r *HoldRepo) dropHolds(ctx context.Context, tx *sql.Tx, held []holdRow) error {
	ids := make([]interface{}, len(held))
	for i, h := range held {
		ids[i] = h.id
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM ticket_holds WHERE id IN (`+placeholders(len(ids))+`)`, ids...); err != nil {
		return err
	}

	clientIDs := make([]interface{}, 0, len(held))
	seen := map[string]struct{}{}
	for _, h := range held {
		if h.clientID.Valid {
			if _, ok := seen[h.clientID.String]; !ok {
				seen[h.clientID.String] = struct{}{}
				clientIDs = append(clientIDs, h.clientID.String)
			}
		}
	}
	if len(clientIDs) == 0 {
		return nil
	}
	ph := placeholders(len(clientIDs))
	if _, err := tx.ExecContext(ctx,
		`UPDATE payment_requests SET status = ? WHERE status = ? AND client_id IN (`+ph+`)`,
		append([]interface{}{model.PaymentExpired, model.PaymentPending}, clientIDs...)...); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM clients WHERE id IN (`+ph+`)
		   AND NOT EXISTS (SELECT 1 FROM tickets t WHERE t.client_id = clients.id)
		   AND NOT EXISTS (SELECT 1 FROM payment_requests pr WHERE pr.client_id = clients.id AND pr.status = 'confirmed')`,
		clientIDs...); err != nil {
		return err
	}
	return nil
}

// groupReleased collapses hold rows to one entry per (session, product)
// so every session is reset once and every room refreshed once.
func groupReleased(held []holdRow) []ReleasedHold {
	out := make([]ReleasedHold, 0, len(held))
	seen := map[string]struct{}{}
	for _, h := range held {
		key := h.session + "|" + h.slug
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		rel := ReleasedHold{SessionID: h.session, ProductSlug: h.slug}
		if h.clientID.Valid {
			cid := h.clientID.String
			rel.ClientID = &cid
		}
		out = append(out, rel)
	}
	return out
}

// HeldTicketIDs returns the ids of tickets the session currently holds
// on the given product, expired holds excluded.
func (r *HoldRepo) HeldTicketIDs(ctx context.Context, productID, sessionID string) ([]string, error) {
	const q = `SELECT ticket_id FROM ticket_holds
	           WHERE product_id = ? AND session_id = ? AND expires_at > UTC_TIMESTAMP()`
	rows, err := r.db.QueryContext(ctx, q, productID, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AttachClient stamps the buyer onto the session's holds for exactly
// the tickets being purchased, clearing any stamp a previous attempt
// left on the rest of the selection.  Settlement keys on the stamp, so
// only stamped tickets can flip to paid.  Fails with a *ConflictError
// when any purchased ticket is no longer actively held by the session.
func (r *HoldRepo) AttachClient(ctx context.Context, productID, sessionID, clientID string, ticketIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx,
		`UPDATE ticket_holds SET client_id = NULL WHERE product_id = ? AND session_id = ?`,
		productID, sessionID); err != nil {
		return err
	}

	q := `UPDATE ticket_holds SET client_id = ?
	      WHERE product_id = ? AND session_id = ? AND expires_at > UTC_TIMESTAMP()
	        AND ticket_id IN (` + placeholders(len(ticketIDs)) + `)`
	args := make([]interface{}, 0, len(ticketIDs)+3)
	args = append(args, clientID, productID, sessionID)
	for _, id := range ticketIDs {
		args = append(args, id)
	}
	res, err := tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if int(n) != len(ticketIDs) {
		return &ConflictError{}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// placeholders builds "?, ?, ?" for n parameters.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
