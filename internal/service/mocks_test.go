package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/pix"
	"github.com/duckluckie/rifa-api/internal/queue"
	"github.com/duckluckie/rifa-api/internal/repository"
)

type MockProductStore struct {
	mock.Mock
}

func (m *MockProductStore) BySlug(ctx context.Context, slug string) (*model.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductStore) ByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

type MockHoldStore struct {
	mock.Mock
}

func (m *MockHoldStore) Reserve(ctx context.Context, productID string, ticketIDs []string, sessionID string, expiresAt time.Time) ([]repository.ReleasedHold, error) {
	args := m.Called(ctx, productID, ticketIDs, sessionID, expiresAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReleasedHold), args.Error(1)
}

func (m *MockHoldStore) ReleaseSession(ctx context.Context, sessionID string) ([]repository.ReleasedHold, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReleasedHold), args.Error(1)
}

func (m *MockHoldStore) ReleaseProduct(ctx context.Context, productID string) ([]repository.ReleasedHold, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReleasedHold), args.Error(1)
}

func (m *MockHoldStore) Expire(ctx context.Context, now time.Time) ([]repository.ReleasedHold, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.ReleasedHold), args.Error(1)
}

func (m *MockHoldStore) HeldTicketIDs(ctx context.Context, productID, sessionID string) ([]string, error) {
	args := m.Called(ctx, productID, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockHoldStore) AttachClient(ctx context.Context, productID, sessionID, clientID string, ticketIDs []string) error {
	args := m.Called(ctx, productID, sessionID, clientID, ticketIDs)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) BroadcastTicketsChanged(productSlug string) {
	m.Called(productSlug)
}

func (m *MockNotifier) NotifySessionReset(sessionID string) {
	m.Called(sessionID)
}

type MockClientStore struct {
	mock.Mock
}

func (m *MockClientStore) Save(ctx context.Context, c *model.Client) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil && c.ID == "" {
		c.ID = "client-1"
	}
	return args.Error(0)
}

type MockPaymentStore struct {
	mock.Mock
}

func (m *MockPaymentStore) Create(ctx context.Context, pr *model.PaymentRequest) error {
	args := m.Called(ctx, pr)
	return args.Error(0)
}

func (m *MockPaymentStore) Confirm(ctx context.Context, txid string) (*repository.SettledPayment, error) {
	args := m.Called(ctx, txid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.SettledPayment), args.Error(1)
}

type MockChargeProvider struct {
	mock.Mock
}

func (m *MockChargeProvider) CreateCharge(ctx context.Context, req pix.ChargeRequest) (*pix.Charge, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pix.Charge), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishPaymentConfirmed(ctx context.Context, event queue.PaymentConfirmedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
