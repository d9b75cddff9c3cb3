// Package service implements the reservation and purchase flows on top
// of the repository layer.  Dependencies are narrow interfaces so the
// flows are testable without a database, a broker or the payment
// provider.
package service

import "errors"

// ErrProductInactive is returned when a reserve or purchase targets a
// product whose sales are closed.
var ErrProductInactive = errors.New("product inactive")

// ErrPaymentProvider wraps failures of the external PIX gateway.  The
// buyer's reservation stays held so the purchase can be retried within
// the reservation window.
var ErrPaymentProvider = errors.New("payment provider error")

// ValidationError reports malformed buyer input with a message safe to
// show to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }
