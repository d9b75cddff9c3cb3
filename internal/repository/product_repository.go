package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/duckluckie/rifa-api/internal/model"
)

// ProductRepo provides access to the products and tickets tables.
type ProductRepo struct {
	db *sql.DB
}

// NewProductRepo returns a ProductRepo bound to the provided database.
func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// ActiveSummaries returns listing data for every active product,
// newest first.
func (r *ProductRepo) ActiveSummaries(ctx context.Context) ([]model.ProductSummary, error) {
	const q = `SELECT id, name, slug, img_src, luck_day, price
	           FROM products WHERE is_activate = 1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ProductSummary{}
	for rows.Next() {
		var p model.ProductSummary
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.ImgSrc, &p.LuckDay, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// BySlug loads a product and its full ticket grid ordered by number
// ascending.  Each ticket carries its tagged status and, when paid or
// reserved by a buyer who already submitted contact data, the client
// record the storefront displays.  Returns ErrProductNotFound when the
// slug is unknown.
func (r *ProductRepo) BySlug(ctx context.Context, slug string) (*model.Product, error) {
	p, err := r.scanProduct(ctx, `SELECT id, name, slug, description, img_src, video_src, luck_day,
		price, is_activate, quantidade_de_rifas, created_at, updated_at
		FROM products WHERE slug = ?`, slug)
	if err != nil {
		return nil, err
	}
	if err := r.loadTickets(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ByID loads a product without its tickets.  Returns
// ErrProductNotFound when the id is unknown.
func (r *ProductRepo) ByID(ctx context.Context, id string) (*model.Product, error) {
	return r.scanProduct(ctx, `SELECT id, name, slug, description, img_src, video_src, luck_day,
		price, is_activate, quantidade_de_rifas, created_at, updated_at
		FROM products WHERE id = ?`, id)
}

func (r *ProductRepo) scanProduct(ctx context.Context, q, arg string) (*model.Product, error) {
	var p model.Product
	err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ImgSrc, &p.VideoSrc, &p.LuckDay,
		&p.Price, &p.IsActivate, &p.TotalTickets, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// loadTickets fills p.Rifas and p.Remaining.  Paid tickets join their
// buyer; reserved tickets join the holder's client when one exists.
func (r *ProductRepo) loadTickets(ctx context.Context, p *model.Product) error {
	const q = `SELECT t.id, t.number, t.is_paid, t.product_id, t.created_at, t.updated_at,
		h.session_id, h.expires_at,
		c.id, c.name, c.number_phone, c.instagram, c.socket_id, c.created_at, c.updated_at
	FROM tickets t
	LEFT JOIN ticket_holds h ON h.ticket_id = t.id AND h.expires_at > UTC_TIMESTAMP()
	LEFT JOIN clients c ON c.id = COALESCE(t.client_id, h.client_id)
	WHERE t.product_id = ?
	ORDER BY t.number ASC`
	rows, err := r.db.QueryContext(ctx, q, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	p.Rifas = make([]model.Ticket, 0, p.TotalTickets)
	var remaining uint32
	for rows.Next() {
		var (
			t        model.Ticket
			holdSess sql.NullString
			holdExp  sql.NullTime
			cID      sql.NullString
			cName    sql.NullString
			cPhone   sql.NullString
			cInsta   sql.NullString
			cSocket  sql.NullString
			cCreated sql.NullTime
			cUpdated sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Number, &t.IsPaid, &t.ProductID, &t.CreatedAt, &t.UpdatedAt,
			&holdSess, &holdExp,
			&cID, &cName, &cPhone, &cInsta, &cSocket, &cCreated, &cUpdated); err != nil {
			return err
		}
		switch {
		case t.IsPaid:
			t.Status = model.StatusPaid
		case holdSess.Valid:
			t.Status = model.StatusReserved
		default:
			t.Status = model.StatusAvailable
			remaining++
		}
		t.Client = []model.Client{}
		if cID.Valid {
			t.Client = append(t.Client, model.Client{
				ID:        cID.String,
				Name:      cName.String,
				Phone:     cPhone.String,
				Instagram: cInsta.String,
				SocketID:  cSocket.String,
				CreatedAt: cCreated.Time,
				UpdatedAt: cUpdated.Time,
			})
		}
		p.Rifas = append(p.Rifas, t)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	p.Remaining = remaining
	return nil
}

// CreateWithTickets inserts a product and its numbered tickets 1..N in
// one transaction.  The generated product id is written back into p.
func (r *ProductRepo) CreateWithTickets(ctx context.Context, p *model.Product) error {
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

	p.ID = uuid.NewString()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	const ins = `INSERT INTO products
		(id, name, slug, description, img_src, video_src, luck_day, price, is_activate, quantidade_de_rifas)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins,
		p.ID, p.Name, p.Slug, p.Description, p.ImgSrc, p.VideoSrc, p.LuckDay,
		p.Price, p.IsActivate, p.TotalTickets); err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSlug
		}
		return err
	}

	// Batched multi-row insert; 500 numbers per statement keeps the
	// packet size well under MySQL defaults.
	const batch = 500
	for start := uint32(1); start <= p.TotalTickets; start += batch {
		end := start + batch - 1
		if end > p.TotalTickets {
			end = p.TotalTickets
		}
		q := `INSERT INTO tickets (id, product_id, number) VALUES `
		args := make([]interface{}, 0, int(end-start+1)*3)
		for n := start; n <= end; n++ {
			if n > start {
				q += ","
			}
			q += "(?, ?, ?)"
			args = append(args, uuid.NewString(), p.ID, n)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetActive flips the sales flag.  Returns ErrProductNotFound when the
// id matches nothing.
func (r *ProductRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE products SET is_activate = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either unknown id or flag unchanged; disambiguate.
		var one int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE id = ?`, id).Scan(&one); err == sql.ErrNoRows {
			return ErrProductNotFound
		} else if err != nil {
			return err
		}
	}
	return nil
}

// PaidTickets returns the paid tickets of a product with their buyers,
// ordered by number.  Used by the buyers listing.
func (r *ProductRepo) PaidTickets(ctx context.Context, slug string) ([]model.Ticket, error) {
	p, err := r.scanProduct(ctx, `SELECT id, name, slug, description, img_src, video_src, luck_day,
		price, is_activate, quantidade_de_rifas, created_at, updated_at
		FROM products WHERE slug = ?`, slug)
	if err != nil {
		return nil, err
	}
	const q = `SELECT t.id, t.number, t.product_id, t.created_at, t.updated_at,
		c.id, c.name, c.number_phone, c.instagram, c.socket_id, c.created_at, c.updated_at
	FROM tickets t
	JOIN clients c ON c.id = t.client_id
	WHERE t.product_id = ? AND t.is_paid = 1
	ORDER BY t.number ASC`
	rows, err := r.db.QueryContext(ctx, q, p.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ticket{}
	for rows.Next() {
		var t model.Ticket
		var c model.Client
		var insta sql.NullString
		if err := rows.Scan(&t.ID, &t.Number, &t.ProductID, &t.CreatedAt, &t.UpdatedAt,
			&c.ID, &c.Name, &c.Phone, &insta, &c.SocketID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.Instagram = insta.String
		t.IsPaid = true
		t.Status = model.StatusPaid
		t.Client = []model.Client{c}
		out = append(out, t)
	}
	return out, rows.Err()
}
