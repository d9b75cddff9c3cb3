package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/duckluckie/rifa-api/internal/repository"
	"github.com/duckluckie/rifa-api/internal/service"
)

func postJSON(target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReserveHandlerSuccess(t *testing.T) {
	reserver := new(MockReserver)
	h := NewReservationHandler(reserver)

	expiresAt := time.Date(2025, 6, 1, 12, 3, 0, 0, time.UTC)
	reserver.On("Reserve", mock.Anything, "iphone-16", []string{"t1", "t2"}, "sock-1").
		Return([]string{"t1", "t2"}, expiresAt, nil)

	c, rec := postJSON("/reservations", `{"productSlug":"iphone-16","socketId":"sock-1","rifas":["t1","t2"]}`)
	err := h.Reserve(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"expiresAt":"2025-06-01T12:03:00Z"`)
	reserver.AssertExpectations(t)
}

func TestReserveHandlerEchoesEffectiveSelection(t *testing.T) {
	reserver := new(MockReserver)
	h := NewReservationHandler(reserver)

	// The manager dedupes before holding, and the response must list
	// what was actually held, not the raw request.
	expiresAt := time.Date(2025, 6, 1, 12, 3, 0, 0, time.UTC)
	reserver.On("Reserve", mock.Anything, "iphone-16", []string{"t1", "t1", "t2"}, "sock-1").
		Return([]string{"t1", "t2"}, expiresAt, nil)

	c, rec := postJSON("/reservations", `{"productSlug":"iphone-16","socketId":"sock-1","rifas":["t1","t1","t2"]}`)
	err := h.Reserve(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rifas":["t1","t2"]`)
}

func TestReserveHandlerConflict(t *testing.T) {
	reserver := new(MockReserver)
	h := NewReservationHandler(reserver)

	reserver.On("Reserve", mock.Anything, "iphone-16", []string{"t7"}, "sock-1").
		Return(nil, time.Time{}, &repository.ConflictError{Numbers: []uint32{7}})

	c, rec := postJSON("/reservations", `{"productSlug":"iphone-16","socketId":"sock-1","rifas":["t7"]}`)
	err := h.Reserve(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "outro comprador")
	assert.Contains(t, rec.Body.String(), "7")
}

func TestReserveHandlerPaidConflict(t *testing.T) {
	reserver := new(MockReserver)
	h := NewReservationHandler(reserver)

	reserver.On("Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, time.Time{}, &repository.ConflictError{Numbers: []uint32{7}, Paid: true})

	c, rec := postJSON("/reservations", `{"productSlug":"iphone-16","socketId":"sock-1","rifas":["t7"]}`)
	err := h.Reserve(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "já foi comprada")
}

func TestReserveHandlerProductNotFound(t *testing.T) {
	reserver := new(MockReserver)
	h := NewReservationHandler(reserver)

	reserver.On("Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, time.Time{}, repository.ErrProductNotFound)

	c, rec := postJSON("/reservations", `{"productSlug":"nope","socketId":"sock-1","rifas":["t1"]}`)
	err := h.Reserve(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserveHandlerValidation(t *testing.T) {
	reserver := new(MockReserver)
	h := NewReservationHandler(reserver)

	reserver.On("Reserve", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, time.Time{}, &service.ValidationError{Message: "Selecione ao menos um número..."})

	c, rec := postJSON("/reservations", `{"productSlug":"iphone-16","socketId":"sock-1","rifas":[]}`)
	err := h.Reserve(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Selecione ao menos um número")
}

func TestReleaseHandler(t *testing.T) {
	reserver := new(MockReserver)
	h := NewReservationHandler(reserver)

	reserver.On("Release", mock.Anything, "sock-1").Return(nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/reservations/sock-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("socketId")
	c.SetParamValues("sock-1")

	err := h.Release(c)

	assert.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	reserver.AssertExpectations(t)
}
