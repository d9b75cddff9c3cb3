package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/repository"
)

// ProductHandler serves the public product endpoints the storefront
// reads: the active-raffle listing and the full ticket grid.
type ProductHandler struct {
	Products *repository.ProductRepo
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products *repository.ProductRepo) *ProductHandler {
	if products == nil {
		panic("nil repository passed to NewProductHandler")
	}
	return &ProductHandler{Products: products}
}

// Get handles GET /products.  With a productSlug query parameter it
// returns the full product including the ticket grid ordered by
// number; without one it returns summaries of the active products.
func (h *ProductHandler) Get(c echo.Context) error {
	slug := c.QueryParam("productSlug")
	ctx := c.Request().Context()
	if slug == "" {
		list, err := h.Products.ActiveSummaries(ctx)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
	product, err := h.Products.BySlug(ctx, slug)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// Buyers handles GET /products/:slug/buyers: the paid tickets of a
// raffle with their buyers, ordered by number.  Public, the storefront
// renders it as the winners/buyers board.
func (h *ProductHandler) Buyers(c echo.Context) error {
	tickets, err := h.Products.PaidTickets(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return writeError(c, err)
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	return c.JSON(http.StatusOK, echo.Map{"rifas": tickets})
}
