// Package repository implements data access over MySQL.  Every
// multi-row mutation (reserve, release, expire, settle) runs inside a
// single transaction so readers never observe a partial batch.  The
// sentinel errors below let handlers and services distinguish failure
// modes without inspecting SQL errors.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrProductNotFound is returned when a slug or id matches no product.
var ErrProductNotFound = errors.New("product not found")

// ErrDuplicateSlug is returned when creating a product whose slug is
// already taken.
var ErrDuplicateSlug = errors.New("slug already exists")

// ErrTicketNotFound is returned when a requested ticket id does not
// exist or belongs to a different product.
var ErrTicketNotFound = errors.New("ticket not found")

// ErrPaymentNotFound is returned when a provider txid matches no
// payment request.
var ErrPaymentNotFound = errors.New("payment request not found")

// ErrConflict signals that a batch operation touched at least one
// ticket whose state disagrees (paid, or held by another session).
// The whole batch is rejected.  Use errors.Is to test for it; the
// concrete value is usually a *ConflictError naming the tickets.
var ErrConflict = errors.New("conflict")

// ConflictError carries the numbers of the contested tickets so the
// caller can render a precise message.  Paid distinguishes "already
// purchased" from "reserved by someone else".  It matches ErrConflict
// under errors.Is.
type ConflictError struct {
	Numbers []uint32
	Paid    bool
}

func (e *ConflictError) Error() string {
	if len(e.Numbers) == 0 {
		return "ticket state conflict"
	}
	parts := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return "ticket state conflict: " + strings.Join(parts, ", ")
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// isDuplicateKey reports whether err is MySQL error 1062 (duplicate
// entry for a unique key).
func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
