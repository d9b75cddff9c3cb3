package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Reserver is the slice of the reservation manager the HTTP layer
// needs.
type Reserver interface {
	Reserve(ctx context.Context, productSlug string, ticketIDs []string, sessionID string) ([]string, time.Time, error)
	Release(ctx context.Context, sessionID string) error
}

// ReservationHandler exposes batch reservation and release.  The
// storefront calls Reserve when the buyer confirms a selection and
// Release when they navigate away.
type ReservationHandler struct {
	Manager Reserver
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(m Reserver) *ReservationHandler {
	if m == nil {
		panic("nil manager passed to NewReservationHandler")
	}
	return &ReservationHandler{Manager: m}
}

// Reserve handles POST /reservations.  The body carries the product
// slug, the caller's socket session id and the selected ticket ids.
// The whole batch is reserved or nothing is; re-submitting a different
// set replaces the previous one and refreshes the expiry window.
func (h *ReservationHandler) Reserve(c echo.Context) error {
	var body struct {
		ProductSlug string   `json:"productSlug"`
		SocketID    string   `json:"socketId"`
		Rifas       []string `json:"rifas"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Requisição inválida"})
	}
	rifas, expiresAt, err := h.Manager.Reserve(c.Request().Context(), body.ProductSlug, body.Rifas, body.SocketID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"expiresAt": expiresAt.Format(time.RFC3339),
		"rifas":     rifas,
	})
}

// Release handles DELETE /reservations/:socketId, freeing everything
// the session holds.
func (h *ReservationHandler) Release(c echo.Context) error {
	sessionID := c.Param("socketId")
	if sessionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Requisição inválida"})
	}
	if err := h.Manager.Release(c.Request().Context(), sessionID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
