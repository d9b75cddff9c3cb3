package handler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/service"
)

type MockReserver struct {
	mock.Mock
}

func (m *MockReserver) Reserve(ctx context.Context, productSlug string, ticketIDs []string, sessionID string) ([]string, time.Time, error) {
	args := m.Called(ctx, productSlug, ticketIDs, sessionID)
	var rifas []string
	if args.Get(0) != nil {
		rifas = args.Get(0).([]string)
	}
	return rifas, args.Get(1).(time.Time), args.Error(2)
}

func (m *MockReserver) Release(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

type MockPurchaser struct {
	mock.Mock
}

func (m *MockPurchaser) CreatePurchase(ctx context.Context, in service.PurchaseInput) (*model.PaymentRequest, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentRequest), args.Error(1)
}

func (m *MockPurchaser) ConfirmPayment(ctx context.Context, txid string) error {
	args := m.Called(ctx, txid)
	return args.Error(0)
}
