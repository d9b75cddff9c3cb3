package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/duckluckie/rifa-api/internal/model"
)

// ClientRepo provides access to the clients table.
type ClientRepo struct {
	db *sql.DB
}

// NewClientRepo returns a ClientRepo bound to the provided database.
func NewClientRepo(db *sql.DB) *ClientRepo { return &ClientRepo{db: db} }

// Save persists a buyer record.  A session retrying a purchase reuses
// its previous unpaid buyer row with the submitted contact data, so
// failed attempts do not accumulate orphan clients; buyers with a paid
// ticket or a confirmed payment are never reused.  The resulting id is
// written back into c.
func (r *ClientRepo) Save(ctx context.Context, c *model.Client) error {
	var id string
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM clients WHERE socket_id = ?
		   AND NOT EXISTS (SELECT 1 FROM tickets t WHERE t.client_id = clients.id)
		   AND NOT EXISTS (SELECT 1 FROM payment_requests pr WHERE pr.client_id = clients.id AND pr.status = 'confirmed')
		 ORDER BY created_at DESC LIMIT 1`, c.SocketID).Scan(&id)
	if err == sql.ErrNoRows {
		return r.create(ctx, c)
	}
	if err != nil {
		return err
	}
	c.ID = id
	c.UpdatedAt = time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`UPDATE clients SET name = ?, number_phone = ?, instagram = ? WHERE id = ?`,
		c.Name, c.Phone, instaArg(c.Instagram), id)
	return err
}

// create inserts a fresh buyer record.  The generated id and
// timestamps are written back into c.
func (r *ClientRepo) create(ctx context.Context, c *model.Client) error {
	c.ID = uuid.NewString()
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO clients (id, name, number_phone, instagram, socket_id) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Phone, instaArg(c.Instagram), c.SocketID)
	return err
}

// instaArg stores the handle as NULL when empty so the buyers listing
// can distinguish "no handle".
func instaArg(insta string) interface{} {
	if insta == "" {
		return nil
	}
	return insta
}
