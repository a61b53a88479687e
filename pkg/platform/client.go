// Package platform talks to the remote account and order services that own
// the authoritative ledger. Every payload crossing this boundary is a
// declared request/response type; nothing is passed through untyped.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client wraps the platform HTTP API.
type Client struct {
	BaseURL    string
	Token      string // opaque bearer token forwarded as-is
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a platform client. The limiter keeps bursty flows (rapid
// settlements) from hammering the services.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 20),
	}
}

// AccountSnapshot mirrors GET /api/account.
type AccountSnapshot struct {
	UserID      string  `json:"userId"`
	Name        string  `json:"name"`
	DemoBalance float64 `json:"demoBalance"`
	RealBalance float64 `json:"realBalance"`
}

// CreateOrderRequest mirrors POST /api/orders.
type CreateOrderRequest struct {
	AccountType string  `json:"accountType"`
	Asset       string  `json:"asset"`
	Direction   string  `json:"direction"`
	OpenPrice   float64 `json:"openPrice"`
	Stake       float64 `json:"stake"`
	Timeframe   int64   `json:"timeframe"` // seconds
	Status      string  `json:"status"`
	Outcome     string  `json:"outcome"`
}

type createOrderResponse struct {
	ID string `json:"id"`
}

// OutcomeRequest mirrors PATCH /api/orders/{id}.
type OutcomeRequest struct {
	AccountType string  `json:"accountType"`
	ClosePrice  float64 `json:"closePrice"`
	Result      string  `json:"result"`
}

// GetAccount fetches the authoritative balances/profile snapshot.
func (c *Client) GetAccount(ctx context.Context) (AccountSnapshot, error) {
	var snap AccountSnapshot
	if err := c.do(ctx, http.MethodGet, "/api/account", nil, &snap); err != nil {
		return AccountSnapshot{}, fmt.Errorf("get account: %w", err)
	}
	return snap, nil
}

// CreateOrder registers a new order and returns its authoritative id.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (string, error) {
	var res createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/api/orders", req, &res); err != nil {
		return "", fmt.Errorf("create order: %w", err)
	}
	if res.ID == "" {
		return "", fmt.Errorf("create order: response carried no order id")
	}
	return res.ID, nil
}

// PatchOutcome records the settlement result on an order. The engine calls
// this exactly once per option; idempotency on retries is the service's
// concern, not ours.
func (c *Client) PatchOutcome(ctx context.Context, id string, req OutcomeRequest) error {
	if err := c.do(ctx, http.MethodPatch, "/api/orders/"+id, req, nil); err != nil {
		return fmt.Errorf("patch order %s outcome: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s %s: %s", method, path, serverReason(res))
	}
	if out != nil {
		if err := json.NewDecoder(res.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

// serverReason surfaces the service's own message when it provides one; that
// text is considered user-meaningful.
func serverReason(res *http.Response) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("status %d", res.StatusCode)
}
