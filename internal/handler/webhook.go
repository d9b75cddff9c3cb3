package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/duckluckie/rifa-api/internal/repository"
)

// WebhookHandler receives the provider's settlement callbacks.
type WebhookHandler struct {
	Purchases Purchaser
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(p Purchaser) *WebhookHandler {
	if p == nil {
		panic("nil service passed to NewWebhookHandler")
	}
	return &WebhookHandler{Purchases: p}
}

// Pix handles POST /webhooks/pix.  The provider posts a batch of
// settled transactions; each txid is confirmed independently so one
// bad entry never blocks the rest.  The endpoint always answers 200 to
// unknown or late txids (the provider retries on anything else and the
// condition will not heal).
func (h *WebhookHandler) Pix(c echo.Context) error {
	var body struct {
		Pix []struct {
			TxID string `json:"txid"`
		} `json:"pix"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Requisição inválida"})
	}
	ctx := c.Request().Context()
	for _, p := range body.Pix {
		if p.TxID == "" {
			continue
		}
		if err := h.Purchases.ConfirmPayment(ctx, p.TxID); err != nil {
			switch {
			case errors.Is(err, repository.ErrPaymentNotFound):
				log.Printf("webhook: unknown txid %s", p.TxID)
			case errors.Is(err, repository.ErrConflict):
				// Reservation expired before settlement; needs manual
				// reconciliation with the provider.
				log.Printf("webhook: txid %s settled after reservation lapsed", p.TxID)
			default:
				log.Printf("webhook: confirm %s failed: %v", p.TxID, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Erro interno"})
			}
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}
