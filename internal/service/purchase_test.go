package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/pix"
	"github.com/duckluckie/rifa-api/internal/queue"
	"github.com/duckluckie/rifa-api/internal/repository"
)

func validInput() PurchaseInput {
	return PurchaseInput{
		Name:      "Maria Silva",
		Phone:     "(11) 91234-5678",
		Instagram: "maria.silva",
		ProductID: "prod-1",
		SocketID:  "sock-1",
		TicketIDs: []string{"t1", "t2"},
	}
}

func newPurchaseService() (*PurchaseService, *MockProductStore, *MockHoldStore, *MockClientStore, *MockPaymentStore, *MockChargeProvider, *MockEventPublisher, *MockNotifier) {
	products := new(MockProductStore)
	holds := new(MockHoldStore)
	clients := new(MockClientStore)
	payments := new(MockPaymentStore)
	provider := new(MockChargeProvider)
	publisher := new(MockEventPublisher)
	notifier := new(MockNotifier)
	s := NewPurchaseService(products, holds, clients, payments, provider, publisher, notifier, 3600)
	return s, products, holds, clients, payments, provider, publisher, notifier
}

func TestCreatePurchaseSuccess(t *testing.T) {
	s, products, holds, clients, payments, provider, _, notifier := newPurchaseService()

	products.On("ByID", mock.Anything, "prod-1").Return(activeProduct(), nil)
	holds.On("HeldTicketIDs", mock.Anything, "prod-1", "sock-1").Return([]string{"t1", "t2"}, nil)
	clients.On("Save", mock.Anything, mock.MatchedBy(func(c *model.Client) bool {
		return c.Name == "Maria Silva" && c.Instagram == "@maria.silva"
	})).Return(nil)
	holds.On("AttachClient", mock.Anything, "prod-1", "sock-1", "client-1", []string{"t1", "t2"}).Return(nil)
	provider.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req pix.ChargeRequest) bool {
		return req.Amount == "20.00" && req.ExpirySeconds == 3600
	})).Return(&pix.Charge{TxID: "tx-1", QRCode: "copiaecola", QRCodeImage: "data:image/png;base64,x"}, nil)
	payments.On("Create", mock.Anything, mock.MatchedBy(func(pr *model.PaymentRequest) bool {
		return pr.TxID == "tx-1" && pr.Amount == "20.00" && pr.ClientID == "client-1"
	})).Return(nil)
	notifier.On("BroadcastTicketsChanged", "iphone-16").Once()

	pr, err := s.CreatePurchase(context.Background(), validInput())

	assert.NoError(t, err)
	assert.Equal(t, "copiaecola", pr.QRCode)
	assert.Equal(t, "data:image/png;base64,x", pr.QRCodeImage)
	payments.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestCreatePurchaseSubsetChargesAndStampsOnlyRequested(t *testing.T) {
	s, products, holds, clients, payments, provider, _, notifier := newPurchaseService()

	// The session holds three tickets but buys only one: the charge
	// covers one ticket and only that ticket carries the buyer stamp,
	// so settlement cannot touch the other two.
	products.On("ByID", mock.Anything, "prod-1").Return(activeProduct(), nil)
	holds.On("HeldTicketIDs", mock.Anything, "prod-1", "sock-1").Return([]string{"t1", "t2", "t3"}, nil)
	clients.On("Save", mock.Anything, mock.Anything).Return(nil)
	holds.On("AttachClient", mock.Anything, "prod-1", "sock-1", "client-1", []string{"t1"}).Return(nil)
	provider.On("CreateCharge", mock.Anything, mock.MatchedBy(func(req pix.ChargeRequest) bool {
		return req.Amount == "10.00"
	})).Return(&pix.Charge{TxID: "tx-1"}, nil)
	payments.On("Create", mock.Anything, mock.MatchedBy(func(pr *model.PaymentRequest) bool {
		return pr.Amount == "10.00"
	})).Return(nil)
	notifier.On("BroadcastTicketsChanged", "iphone-16")

	in := validInput()
	in.TicketIDs = []string{"t1"}
	_, err := s.CreatePurchase(context.Background(), in)

	assert.NoError(t, err)
	holds.AssertExpectations(t)
	payments.AssertExpectations(t)
}

func TestCreatePurchaseValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*PurchaseInput)
	}{
		{"missing name", func(in *PurchaseInput) { in.Name = "  " }},
		{"phone without area code", func(in *PurchaseInput) { in.Phone = "91234-5678" }},
		{"phone with zero area code", func(in *PurchaseInput) { in.Phone = "(01) 91234-5678" }},
		{"mobile starting 90", func(in *PurchaseInput) { in.Phone = "(11) 90123-4567" }},
		{"phone unformatted", func(in *PurchaseInput) { in.Phone = "11912345678" }},
		{"bad instagram", func(in *PurchaseInput) { in.Instagram = "maria silva!" }},
		{"missing session", func(in *PurchaseInput) { in.SocketID = "" }},
		{"empty selection", func(in *PurchaseInput) { in.TicketIDs = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _, _, _, _, _, _, _ := newPurchaseService()
			in := validInput()
			tc.mutate(&in)

			_, err := s.CreatePurchase(context.Background(), in)

			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestCreatePurchaseAcceptsLandline(t *testing.T) {
	s, products, holds, clients, payments, provider, _, notifier := newPurchaseService()

	products.On("ByID", mock.Anything, "prod-1").Return(activeProduct(), nil)
	holds.On("HeldTicketIDs", mock.Anything, "prod-1", "sock-1").Return([]string{"t1", "t2"}, nil)
	clients.On("Save", mock.Anything, mock.Anything).Return(nil)
	holds.On("AttachClient", mock.Anything, "prod-1", "sock-1", "client-1", mock.Anything).Return(nil)
	provider.On("CreateCharge", mock.Anything, mock.Anything).Return(&pix.Charge{TxID: "tx-1"}, nil)
	payments.On("Create", mock.Anything, mock.Anything).Return(nil)
	notifier.On("BroadcastTicketsChanged", mock.Anything)

	in := validInput()
	in.Phone = "(21) 3123-5678"
	_, err := s.CreatePurchase(context.Background(), in)

	assert.NoError(t, err)
}

func TestCreatePurchaseInactiveProduct(t *testing.T) {
	s, products, holds, _, _, _, _, _ := newPurchaseService()

	inactive := activeProduct()
	inactive.IsActivate = false
	products.On("ByID", mock.Anything, "prod-1").Return(inactive, nil)

	_, err := s.CreatePurchase(context.Background(), validInput())

	assert.ErrorIs(t, err, ErrProductInactive)
	holds.AssertNotCalled(t, "HeldTicketIDs", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreatePurchaseRequiresHeldTickets(t *testing.T) {
	s, products, holds, clients, _, _, _, _ := newPurchaseService()

	products.On("ByID", mock.Anything, "prod-1").Return(activeProduct(), nil)
	holds.On("HeldTicketIDs", mock.Anything, "prod-1", "sock-1").Return([]string{"t1"}, nil)

	_, err := s.CreatePurchase(context.Background(), validInput())

	assert.ErrorIs(t, err, repository.ErrConflict)
	clients.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestCreatePurchaseProviderFailureKeepsHolds(t *testing.T) {
	s, products, holds, clients, payments, provider, _, notifier := newPurchaseService()

	products.On("ByID", mock.Anything, "prod-1").Return(activeProduct(), nil)
	holds.On("HeldTicketIDs", mock.Anything, "prod-1", "sock-1").Return([]string{"t1", "t2"}, nil)
	clients.On("Save", mock.Anything, mock.Anything).Return(nil)
	holds.On("AttachClient", mock.Anything, "prod-1", "sock-1", "client-1", mock.Anything).Return(nil)
	provider.On("CreateCharge", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	_, err := s.CreatePurchase(context.Background(), validInput())

	assert.ErrorIs(t, err, ErrPaymentProvider)
	payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	holds.AssertNotCalled(t, "ReleaseSession", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "BroadcastTicketsChanged", mock.Anything)
}

func TestCreatePurchaseRetryReusesBuyer(t *testing.T) {
	s, products, holds, clients, payments, provider, _, notifier := newPurchaseService()

	products.On("ByID", mock.Anything, "prod-1").Return(activeProduct(), nil)
	holds.On("HeldTicketIDs", mock.Anything, "prod-1", "sock-1").Return([]string{"t1", "t2"}, nil)
	// Save hands back the same buyer row on both attempts; the stamp
	// is simply re-applied to the same client id.
	clients.On("Save", mock.Anything, mock.Anything).Return(nil).Twice()
	holds.On("AttachClient", mock.Anything, "prod-1", "sock-1", "client-1", []string{"t1", "t2"}).Return(nil).Twice()
	provider.On("CreateCharge", mock.Anything, mock.Anything).Return(nil, errors.New("provider down")).Once()
	provider.On("CreateCharge", mock.Anything, mock.Anything).Return(&pix.Charge{TxID: "tx-2"}, nil).Once()
	payments.On("Create", mock.Anything, mock.MatchedBy(func(pr *model.PaymentRequest) bool {
		return pr.ClientID == "client-1" && pr.TxID == "tx-2"
	})).Return(nil)
	notifier.On("BroadcastTicketsChanged", "iphone-16").Once()

	_, err := s.CreatePurchase(context.Background(), validInput())
	assert.ErrorIs(t, err, ErrPaymentProvider)

	pr, err := s.CreatePurchase(context.Background(), validInput())
	assert.NoError(t, err)
	assert.Equal(t, "tx-2", pr.TxID)
	clients.AssertExpectations(t)
	holds.AssertExpectations(t)
}

func TestConfirmPaymentPublishesAndBroadcasts(t *testing.T) {
	s, _, _, _, payments, _, publisher, notifier := newPurchaseService()

	payments.On("Confirm", mock.Anything, "tx-1").Return(&repository.SettledPayment{
		PaymentID:     "pay-1",
		TxID:          "tx-1",
		ProductID:     "prod-1",
		ProductSlug:   "iphone-16",
		ProductName:   "iPhone 16",
		Amount:        "20.00",
		Client:        model.Client{Name: "Maria Silva", Phone: "(11) 91234-5678"},
		TicketNumbers: []uint32{7, 8},
	}, nil)
	publisher.On("PublishPaymentConfirmed", mock.Anything, mock.MatchedBy(func(ev queue.PaymentConfirmedEvent) bool {
		return ev.TxID == "tx-1" && len(ev.Numbers) == 2
	})).Return(nil)
	notifier.On("BroadcastTicketsChanged", "iphone-16").Once()

	err := s.ConfirmPayment(context.Background(), "tx-1")

	assert.NoError(t, err)
	publisher.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	s, _, _, _, payments, _, publisher, notifier := newPurchaseService()

	payments.On("Confirm", mock.Anything, "tx-1").Return(&repository.SettledPayment{
		TxID:             "tx-1",
		AlreadyConfirmed: true,
	}, nil)

	err := s.ConfirmPayment(context.Background(), "tx-1")

	assert.NoError(t, err)
	publisher.AssertNotCalled(t, "PublishPaymentConfirmed", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "BroadcastTicketsChanged", mock.Anything)
}

func TestConfirmPaymentToleratesBrokerOutage(t *testing.T) {
	s, _, _, _, payments, _, publisher, notifier := newPurchaseService()

	payments.On("Confirm", mock.Anything, "tx-1").Return(&repository.SettledPayment{
		TxID:        "tx-1",
		ProductSlug: "iphone-16",
	}, nil)
	publisher.On("PublishPaymentConfirmed", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	notifier.On("BroadcastTicketsChanged", "iphone-16").Once()

	err := s.ConfirmPayment(context.Background(), "tx-1")

	assert.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestTotalAmount(t *testing.T) {
	cases := []struct {
		price string
		count int
		want  string
		ok    bool
	}{
		{"10.00", 2, "20.00", true},
		{"12.5", 3, "37.50", true},
		{"5", 4, "20.00", true},
		{"0.99", 1, "0.99", true},
		{"10.999", 1, "", false},
		{"abc", 1, "", false},
		{"-1.00", 1, "", false},
	}
	for _, tc := range cases {
		got, err := totalAmount(tc.price, tc.count)
		if tc.ok {
			assert.NoError(t, err, tc.price)
			assert.Equal(t, tc.want, got, tc.price)
		} else {
			assert.Error(t, err, tc.price)
		}
	}
}
