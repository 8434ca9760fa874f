package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds payment gateway API configuration
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client calls the external payment gateway over HTTP
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new gateway API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

type createOrderRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type dispatchPayoutRequest struct {
	Destination string `json:"destination"`
	Amount      string `json:"amount"`
	Reference   string `json:"reference"`
}

type dispatchPayoutResponse struct {
	PayoutID string `json:"payout_id"`
	Status   string `json:"status"`
}

// CreateOrder creates a payment order and returns its id and payment URL
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency string) (*Order, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}

	var out Order
	err := c.post(ctx, "/api/v1/orders", createOrderRequest{
		Amount:   amount.StringFixed(2),
		Currency: currency,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CaptureOrder captures a previously created order
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if strings.TrimSpace(orderID) == "" {
		return nil, fmt.Errorf("validation error: order_id must be non-empty")
	}

	var out struct {
		OrderID string `json:"order_id"`
		Status  string `json:"status"`
	}
	if err := c.post(ctx, "/api/v1/orders/"+orderID+"/capture", struct{}{}, &out); err != nil {
		return nil, err
	}

	return &CaptureResult{OrderID: out.OrderID, Succeeded: out.Status == "succeeded"}, nil
}

// DispatchPayout sends funds to an external payout destination. The reference
// makes retries idempotent on the provider side.
func (c *Client) DispatchPayout(ctx context.Context, destination string, amount decimal.Decimal, reference string) (string, error) {
	if amount.Sign() <= 0 {
		return "", fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(destination) == "" {
		return "", fmt.Errorf("validation error: destination must be non-empty")
	}

	var out dispatchPayoutResponse
	err := c.post(ctx, "/api/v1/payouts", dispatchPayoutRequest{
		Destination: destination,
		Amount:      amount.StringFixed(2),
		Reference:   reference,
	}, &out)
	if err != nil {
		return "", err
	}
	if out.Status == "failed" {
		return "", fmt.Errorf("%w: payout rejected by provider", ErrGateway)
	}
	return out.PayoutID, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("gateway client is not initialized")
	}
	if strings.TrimSpace(c.config.BaseURL) == "" {
		return fmt.Errorf("gateway config error: base_url is empty")
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	base := strings.TrimRight(c.config.BaseURL, "/")
	url := base + path

	timeout := c.config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGateway, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: non-2xx status %d, body: %s", ErrGateway, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse gateway response: %w", err)
	}

	return nil
}
