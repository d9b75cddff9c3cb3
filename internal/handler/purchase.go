package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/service"
)

// Purchaser is the slice of the purchase service the HTTP layer needs.
type Purchaser interface {
	CreatePurchase(ctx context.Context, in service.PurchaseInput) (*model.PaymentRequest, error)
	ConfirmPayment(ctx context.Context, txid string) error
}

// PurchaseHandler exposes POST /clients, the endpoint the storefront
// submits contact data to in exchange for a payment QR code.
type PurchaseHandler struct {
	Purchases Purchaser
}

// NewPurchaseHandler constructs a PurchaseHandler.
func NewPurchaseHandler(p Purchaser) *PurchaseHandler {
	if p == nil {
		panic("nil service passed to NewPurchaseHandler")
	}
	return &PurchaseHandler{Purchases: p}
}

// Create handles POST /clients.  The body field names are the legacy
// storefront contract; rifas carries the ticket ids the session has
// reserved.  On success the response is the QR image reference and the
// copy-paste code.
func (h *PurchaseHandler) Create(c echo.Context) error {
	var body struct {
		Name      string   `json:"name"`
		Phone     string   `json:"numberPhone"`
		Instagram string   `json:"instagram"`
		ProductID string   `json:"productId"`
		SocketID  string   `json:"socketId"`
		Rifas     []string `json:"rifas"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Requisição inválida"})
	}
	pr, err := h.Purchases.CreatePurchase(c.Request().Context(), service.PurchaseInput{
		Name:      body.Name,
		Phone:     body.Phone,
		Instagram: body.Instagram,
		ProductID: body.ProductID,
		SocketID:  body.SocketID,
		TicketIDs: body.Rifas,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"imagemQrcode": pr.QRCodeImage,
		"qrcode":       pr.QRCode,
	})
}
