package database

import (
	"context"
	"database/sql"
)

// schema holds the DDL for every table, ordered so foreign keys resolve.
// Reservations are embedded as one hold row per ticket (ticket_id is
// UNIQUE, which is what enforces at-most-one-active-hold in the end).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id CHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		slug VARCHAR(191) NOT NULL,
		description TEXT NOT NULL,
		img_src TEXT NOT NULL,
		video_src TEXT NOT NULL,
		luck_day VARCHAR(64) NOT NULL DEFAULT '',
		price DECIMAL(10,2) NOT NULL,
		is_activate TINYINT(1) NOT NULL DEFAULT 1,
		quantidade_de_rifas INT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_products_slug (slug)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS clients (
		id CHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		number_phone VARCHAR(32) NOT NULL,
		instagram VARCHAR(64) NULL,
		socket_id VARCHAR(64) NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_clients_socket (socket_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tickets (
		id CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		number INT UNSIGNED NOT NULL,
		is_paid TINYINT(1) NOT NULL DEFAULT 0,
		client_id CHAR(36) NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_tickets_product_number (product_id, number),
		KEY idx_tickets_client (client_id),
		CONSTRAINT fk_tickets_product FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE CASCADE,
		CONSTRAINT fk_tickets_client FOREIGN KEY (client_id) REFERENCES clients (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS ticket_holds (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		product_id CHAR(36) NOT NULL,
		ticket_id CHAR(36) NOT NULL,
		session_id VARCHAR(64) NOT NULL,
		client_id CHAR(36) NULL,
		expires_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_holds_ticket (ticket_id),
		KEY idx_holds_session (session_id),
		KEY idx_holds_expires (expires_at),
		CONSTRAINT fk_holds_product FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE CASCADE,
		CONSTRAINT fk_holds_ticket FOREIGN KEY (ticket_id) REFERENCES tickets (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS payment_requests (
		id CHAR(36) NOT NULL,
		txid VARCHAR(64) NOT NULL,
		client_id CHAR(36) NOT NULL,
		product_id CHAR(36) NOT NULL,
		amount DECIMAL(10,2) NOT NULL,
		qrcode TEXT NOT NULL,
		qrcode_image TEXT NOT NULL,
		status VARCHAR(16) NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_payments_txid (txid),
		KEY idx_payments_client (client_id),
		CONSTRAINT fk_payments_client FOREIGN KEY (client_id) REFERENCES clients (id) ON DELETE CASCADE,
		CONSTRAINT fk_payments_product FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates missing tables.  Statements are idempotent so this
// runs unconditionally at startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
