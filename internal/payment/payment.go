// Package payment talks to the hosted-checkout payment provider and models
// the webhook envelope the provider delivers back.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sibrendebast/manenbrouw-website-sub000/internal/config"
)

// Webhook event types the order pipeline acts on. Everything else is
// acknowledged and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// Event is the provider webhook envelope.
type Event struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Metadata struct {
				OrderID       string `json:"orderId"`
				PaymentMethod string `json:"paymentMethod"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// SessionParams describes the hosted checkout session to create.
type SessionParams struct {
	OrderID       int64
	OrderNumber   string
	AmountCents   int64
	Currency      string
	CustomerName  string
	CustomerEmail string
	PaymentMethod string
}

// SessionCreator creates hosted checkout sessions.
type SessionCreator interface {
	CreateSession(ctx context.Context, params SessionParams) (redirectURL string, err error)
}

// Module wires the provider client.
var Module = fx.Provide(NewClient)

// Client is an HTTP client for the provider's session API.
type Client struct {
	cfg    config.Payment
	http   *http.Client
	logger *zap.Logger
}

// NewClient builds the provider client; when payments are disabled it
// returns a client whose sessions redirect straight to the thank-you page,
// which keeps local development flowing without provider credentials.
func NewClient(cfg config.Config, logger *zap.Logger) SessionCreator {
	return &Client{
		cfg:    cfg.Payment,
		http:   &http.Client{Timeout: cfg.Payment.Timeout},
		logger: logger,
	}
}

type sessionRequest struct {
	AmountCents   int64             `json:"amount_cents"`
	Currency      string            `json:"currency"`
	CustomerName  string            `json:"customer_name"`
	CustomerEmail string            `json:"customer_email"`
	PaymentMethod string            `json:"payment_method,omitempty"`
	RedirectURL   string            `json:"redirect_url"`
	Metadata      map[string]string `json:"metadata"`
}

type sessionResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateSession registers a checkout session with the provider and returns
// the URL the customer must be redirected to. The order id travels in the
// session metadata and comes back on the webhook.
func (c *Client) CreateSession(ctx context.Context, params SessionParams) (string, error) {
	if !c.cfg.Enabled {
		c.logger.Info("payments disabled; skipping provider session",
			zap.Int64("order_id", params.OrderID),
		)
		return c.cfg.RedirectURL, nil
	}

	body := sessionRequest{
		AmountCents:   params.AmountCents,
		Currency:      c.cfg.Currency,
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		PaymentMethod: params.PaymentMethod,
		RedirectURL:   c.cfg.RedirectURL,
		Metadata: map[string]string{
			"orderId":       fmt.Sprintf("%d", params.OrderID),
			"orderNumber":   params.OrderNumber,
			"paymentMethod": params.PaymentMethod,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/checkout/sessions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("create payment session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("payment provider returned %s", resp.Status)
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("decode payment session: %w", err)
	}
	if session.URL == "" {
		return "", fmt.Errorf("payment session %s has no redirect url", session.ID)
	}
	return session.URL, nil
}
