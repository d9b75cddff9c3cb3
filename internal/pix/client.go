// Package pix is a minimal client for an Efí/Gerencianet-style PIX
// API: OAuth client-credentials token, immediate charge creation and
// QR-code retrieval.  The provider is treated as an opaque external
// collaborator; only the three calls the purchase flow needs are
// implemented.
package pix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Charge is the result of a created charge: the provider transaction
// id, the copy-paste code and the QR image reference shown to the
// buyer.
type Charge struct {
	TxID        string
	QRCode      string
	QRCodeImage string
}

// ChargeRequest describes one charge to create.
type ChargeRequest struct {
	// Amount is the decimal value as the provider expects it ("35.00").
	Amount string
	// PayerName is attached to the charge for reconciliation.
	PayerName string
	// Description shows up in the payer's banking app.
	Description string
	// ExpirySeconds is the charge lifetime.
	ExpirySeconds int
}

// Client talks to the PIX provider.  It caches the OAuth token until
// shortly before expiry.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	pixKey       string
	httpc        *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// New builds a Client for the given provider credentials.  pixKey is
// the merchant key charges are addressed to.
func New(baseURL, clientID, clientSecret, pixKey string) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		pixKey:       pixKey,
		httpc:        &http.Client{Timeout: 15 * time.Second},
	}
}

// CreateCharge creates an immediate charge and fetches its QR code.
func (c *Client) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"calendario":         map[string]int{"expiracao": req.ExpirySeconds},
		"valor":              map[string]string{"original": req.Amount},
		"chave":              c.pixKey,
		"solicitacaoPagador": fmt.Sprintf("%s - %s", req.Description, req.PayerName),
	}
	var cob struct {
		TxID string `json:"txid"`
		Loc  struct {
			ID int64 `json:"id"`
		} `json:"loc"`
	}
	if err := c.post(ctx, token, "/v2/cob", body, &cob); err != nil {
		return nil, fmt.Errorf("create charge: %w", err)
	}

	var qr struct {
		QRCode   string `json:"qrcode"`
		ImagemQR string `json:"imagemQrcode"`
	}
	if err := c.get(ctx, token, fmt.Sprintf("/v2/loc/%d/qrcode", cob.Loc.ID), &qr); err != nil {
		return nil, fmt.Errorf("fetch qrcode: %w", err)
	}

	return &Charge{TxID: cob.TxID, QRCode: qr.QRCode, QRCodeImage: qr.ImagemQR}, nil
}

// accessToken returns a cached OAuth token, refreshing when it is
// within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExp.Add(-time.Minute)) {
		return c.token, nil
	}

	payload := bytes.NewBufferString(`{"grant_type":"client_credentials"}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", payload)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request: unexpected status %d", resp.StatusCode)
	}
	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("token decode: %w", err)
	}
	c.token = tok.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.token, nil
}

func (c *Client) post(ctx context.Context, token, path string, body, out interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, token, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
