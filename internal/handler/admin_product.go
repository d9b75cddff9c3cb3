package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/repository"
)

// ProductReleaser frees the holds of a product when sales close.
type ProductReleaser interface {
	ReleaseProduct(ctx context.Context, productID string) error
}

// AdminHandler manages raffle products.  All routes are JWT-protected.
type AdminHandler struct {
	Products *repository.ProductRepo
	Manager  ProductReleaser
	Notifier interface{ BroadcastTicketsChanged(slug string) }
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(products *repository.ProductRepo, manager ProductReleaser, notifier interface{ BroadcastTicketsChanged(slug string) }) *AdminHandler {
	if products == nil || manager == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Products: products, Manager: manager, Notifier: notifier}
}

// CreateProduct handles POST /v1/products.  It creates the raffle and
// its numbered tickets 1..quantidadeDeRifas in one transaction.
func (h *AdminHandler) CreateProduct(c echo.Context) error {
	var body struct {
		Name         string `json:"name"`
		Slug         string `json:"slug"`
		Description  string `json:"description"`
		ImgSrc       string `json:"imgSrc"`
		VideoSrc     string `json:"videoSrc"`
		LuckDay      string `json:"luckDay"`
		Price        string `json:"price"`
		IsActivate   bool   `json:"isActivate"`
		TotalTickets uint32 `json:"quantidadeDeRifas"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Requisição inválida"})
	}
	body.Name = strings.TrimSpace(body.Name)
	body.Slug = strings.TrimSpace(body.Slug)
	if body.Name == "" || body.Slug == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Nome e slug são obrigatórios"})
	}
	if body.TotalTickets == 0 || body.TotalTickets > 100000 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Quantidade de rifas inválida"})
	}
	if body.Price == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Preço é obrigatório"})
	}

	p := &model.Product{
		Name:         body.Name,
		Slug:         body.Slug,
		Description:  body.Description,
		ImgSrc:       body.ImgSrc,
		VideoSrc:     body.VideoSrc,
		LuckDay:      body.LuckDay,
		Price:        body.Price,
		IsActivate:   body.IsActivate,
		TotalTickets: body.TotalTickets,
	}
	if err := h.Products.CreateWithTickets(c.Request().Context(), p); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// SetActive handles PATCH /v1/products/:id/active.  Deactivating a
// product releases every live hold so no buyer is left waiting on a
// raffle that will never settle, and refreshes the room.
func (h *AdminHandler) SetActive(c echo.Context) error {
	var body struct {
		IsActivate bool `json:"isActivate"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Requisição inválida"})
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	product, err := h.Products.ByID(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	if err := h.Products.SetActive(ctx, id, body.IsActivate); err != nil {
		return writeError(c, err)
	}
	if !body.IsActivate {
		if err := h.Manager.ReleaseProduct(ctx, id); err != nil {
			return writeError(c, err)
		}
	}
	if h.Notifier != nil {
		h.Notifier.BroadcastTicketsChanged(product.Slug)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "isActivate": body.IsActivate})
}
