package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/duckluckie/rifa-api/internal/repository"
	"github.com/duckluckie/rifa-api/internal/service"
)

// writeError maps domain errors to HTTP responses.  The body is always
// {"message": "..."} because that is the field the storefront toasts.
// Messages are user-facing Portuguese; internals are never leaked.
func writeError(c echo.Context, err error) error {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": vErr.Message})
	}
	var cErr *repository.ConflictError
	if errors.As(err, &cErr) {
		return c.JSON(http.StatusConflict, echo.Map{"message": conflictMessage(cErr)})
	}
	switch {
	case errors.Is(err, repository.ErrProductNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Produto não encontrado"})
	case errors.Is(err, repository.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Rifa não encontrada"})
	case errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Pagamento não encontrado"})
	case errors.Is(err, repository.ErrDuplicateSlug):
		return c.JSON(http.StatusConflict, echo.Map{"message": "Já existe um sorteio com esse slug"})
	case errors.Is(err, service.ErrProductInactive):
		return c.JSON(http.StatusForbidden, echo.Map{"message": "As vendas desse sorteio estão encerradas"})
	case errors.Is(err, service.ErrPaymentProvider):
		return c.JSON(http.StatusBadGateway, echo.Map{"message": "Não foi possível gerar o pagamento, tente novamente"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Erro interno, tente novamente"})
}

func conflictMessage(e *repository.ConflictError) string {
	if len(e.Numbers) == 0 {
		return "Sua reserva expirou, selecione os números novamente"
	}
	parts := make([]string, len(e.Numbers))
	for i, n := range e.Numbers {
		parts[i] = fmt.Sprintf("%d", n)
	}
	list := strings.Join(parts, ", ")
	if e.Paid {
		if len(e.Numbers) == 1 {
			return "Essa rifa já foi comprada: " + list
		}
		return "Essas rifas já foram compradas: " + list
	}
	return "Rifas reservadas por outro comprador, tente mais tarde: " + list
}
