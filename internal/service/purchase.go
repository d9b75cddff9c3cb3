package service

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/duckluckie/rifa-api/internal/model"
	"github.com/duckluckie/rifa-api/internal/pix"
	"github.com/duckluckie/rifa-api/internal/queue"
	"github.com/duckluckie/rifa-api/internal/repository"
)

// phoneRe accepts the national formats "(DD) DDDDD-DDDD" and
// "(DD) DDDD-DDDD"; landline prefixes start 2-8, mobile 9X.
var phoneRe = regexp.MustCompile(`^\([1-9]{2}\) (?:[2-8]|9[1-9])[0-9]{3}-[0-9]{4}$`)

// instagramRe accepts a handle with or without the leading @.
var instagramRe = regexp.MustCompile(`^@?[A-Za-z0-9_.]{1,30}$`)

// ClientStore persists buyer records.  Save reuses the session's
// previous unpaid buyer row when one exists, so retries do not
// accumulate orphans.
type ClientStore interface {
	Save(ctx context.Context, c *model.Client) error
}

// PaymentStore persists payment requests and settles them.
type PaymentStore interface {
	Create(ctx context.Context, pr *model.PaymentRequest) error
	Confirm(ctx context.Context, txid string) (*repository.SettledPayment, error)
}

// ChargeProvider creates PIX charges.
type ChargeProvider interface {
	CreateCharge(ctx context.Context, req pix.ChargeRequest) (*pix.Charge, error)
}

// EventPublisher publishes settlement events to the broker.
type EventPublisher interface {
	PublishPaymentConfirmed(ctx context.Context, event queue.PaymentConfirmedEvent) error
}

// PurchaseInput is the contact data plus selection a buyer submits.
type PurchaseInput struct {
	Name      string
	Phone     string
	Instagram string
	ProductID string
	SocketID  string
	TicketIDs []string
}

// PurchaseService turns a confirmed selection plus contact info into a
// PIX payment request, and finalizes tickets to paid when the provider
// confirms settlement.
type PurchaseService struct {
	products  ProductStore
	holds     HoldStore
	clients   ClientStore
	payments  PaymentStore
	provider  ChargeProvider
	publisher EventPublisher
	notifier  Notifier
	chargeTTL int
}

// NewPurchaseService wires the purchase flow.  chargeTTLSec is the
// charge lifetime requested from the provider.
func NewPurchaseService(products ProductStore, holds HoldStore, clients ClientStore, payments PaymentStore,
	provider ChargeProvider, publisher EventPublisher, notifier Notifier, chargeTTLSec int) *PurchaseService {
	return &PurchaseService{
		products:  products,
		holds:     holds,
		clients:   clients,
		payments:  payments,
		provider:  provider,
		publisher: publisher,
		notifier:  notifier,
		chargeTTL: chargeTTLSec,
	}
}

// CreatePurchase validates the buyer, checks that every requested
// ticket is reserved by the buyer's session, creates the client record
// and issues the PIX charge.  A provider failure leaves the holds in
// place so the buyer can retry within the reservation window.
func (s *PurchaseService) CreatePurchase(ctx context.Context, in PurchaseInput) (*model.PaymentRequest, error) {
	client, err := buildClient(in)
	if err != nil {
		return nil, err
	}
	if len(dedupe(in.TicketIDs)) == 0 {
		return nil, &ValidationError{Message: "Selecione ao menos um número..."}
	}

	product, err := s.products.ByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActivate {
		return nil, ErrProductInactive
	}

	held, err := s.holds.HeldTicketIDs(ctx, product.ID, in.SocketID)
	if err != nil {
		return nil, err
	}
	heldSet := make(map[string]struct{}, len(held))
	for _, id := range held {
		heldSet[id] = struct{}{}
	}
	requested := dedupe(in.TicketIDs)
	for _, id := range requested {
		if _, ok := heldSet[id]; !ok {
			return nil, &repository.ConflictError{}
		}
	}

	amount, err := totalAmount(product.Price, len(requested))
	if err != nil {
		return nil, fmt.Errorf("product %s has invalid price %q: %w", product.ID, product.Price, err)
	}

	if err := s.clients.Save(ctx, client); err != nil {
		return nil, err
	}
	// Only the purchased tickets get the buyer stamp; settlement keys
	// on it, so tickets outside this charge can never flip to paid.
	if err := s.holds.AttachClient(ctx, product.ID, in.SocketID, client.ID, requested); err != nil {
		return nil, err
	}

	charge, err := s.provider.CreateCharge(ctx, pix.ChargeRequest{
		Amount:        amount,
		PayerName:     client.Name,
		Description:   product.Name,
		ExpirySeconds: s.chargeTTL,
	})
	if err != nil {
		// Holds stay in place: the buyer may retry until expiry.
		return nil, fmt.Errorf("%w: %v", ErrPaymentProvider, err)
	}

	pr := &model.PaymentRequest{
		TxID:        charge.TxID,
		ClientID:    client.ID,
		ProductID:   product.ID,
		Amount:      amount,
		QRCode:      charge.QRCode,
		QRCodeImage: charge.QRCodeImage,
	}
	if err := s.payments.Create(ctx, pr); err != nil {
		return nil, err
	}

	s.notifier.BroadcastTicketsChanged(product.Slug)
	return pr, nil
}

// ConfirmPayment settles the charge identified by txid: tickets flip
// to paid, the sale event is published and the product room refreshed.
// Safe to call more than once for the same txid.
func (s *PurchaseService) ConfirmPayment(ctx context.Context, txid string) error {
	sp, err := s.payments.Confirm(ctx, txid)
	if err != nil {
		return err
	}
	if sp.AlreadyConfirmed {
		log.Printf("payment: txid %s already confirmed, skipping", txid)
		return nil
	}

	ev := queue.PaymentConfirmedEvent{
		PaymentID:   sp.PaymentID,
		TxID:        sp.TxID,
		ProductID:   sp.ProductID,
		ProductName: sp.ProductName,
		ProductSlug: sp.ProductSlug,
		ClientName:  sp.Client.Name,
		ClientPhone: sp.Client.Phone,
		Instagram:   sp.Client.Instagram,
		Numbers:     sp.TicketNumbers,
		Amount:      sp.Amount,
		ConfirmedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.publisher.PublishPaymentConfirmed(ctx, ev); err != nil {
		// Best-effort: the settlement is already durable in MySQL.
		log.Printf("payment: publish confirmed event failed: %v", err)
	}

	s.notifier.BroadcastTicketsChanged(sp.ProductSlug)
	return nil
}

// buildClient validates contact info and normalizes the instagram
// handle to carry the leading @.
func buildClient(in PurchaseInput) (*model.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, &ValidationError{Message: "O nome é necessário"}
	}
	if !phoneRe.MatchString(in.Phone) {
		return nil, &ValidationError{Message: "Número de telefone inválido"}
	}
	if in.SocketID == "" {
		return nil, &ValidationError{Message: "sessão inválida, recarregue a página"}
	}
	insta := strings.TrimSpace(in.Instagram)
	if insta != "" {
		if !instagramRe.MatchString(insta) {
			return nil, &ValidationError{Message: "Instagram inválido"}
		}
		if !strings.HasPrefix(insta, "@") {
			insta = "@" + insta
		}
	}
	return &model.Client{Name: name, Phone: in.Phone, Instagram: insta, SocketID: in.SocketID}, nil
}

// totalAmount multiplies a decimal price string by a ticket count,
// returning a decimal string ("10.00" x 3 -> "30.00").
func totalAmount(price string, count int) (string, error) {
	cents, err := priceCents(price)
	if err != nil {
		return "", err
	}
	total := cents * int64(count)
	return fmt.Sprintf("%d.%02d", total/100, total%100), nil
}

// priceCents parses "12.50" into 1250.  One or two decimal places are
// accepted; anything else is rejected.
func priceCents(price string) (int64, error) {
	whole, frac, hasFrac := strings.Cut(strings.TrimSpace(price), ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, fmt.Errorf("invalid price %q", price)
	}
	cents := w * 100
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("invalid price %q", price)
		}
		f, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("invalid price %q", price)
		}
		if len(frac) == 1 {
			f *= 10
		}
		cents += f
	}
	return cents, nil
}
