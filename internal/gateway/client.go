package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	errors "github.com/my-other-app/moa-backend/internal"
)

// RawPayment is the provider's payment object as delivered, either by a fetch
// or inline in a webhook payload. Interpretation of its shape belongs to the
// payment verifier, not to this client.
type RawPayment map[string]interface{}

func (p RawPayment) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

func (p RawPayment) Int64(key string) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}

func (p RawPayment) Map(key string) map[string]interface{} {
	if v, ok := p[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}

type OrderRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID          string `json:"id"`
	AmountMinor int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

// Client is a thin adapter over the Razorpay REST API. It is constructed and
// injected explicitly so tests can swap it for a fake behind the small
// interfaces the payment service consumes.
type Client struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// CreateOrder registers an order with the provider. A timeout here means
// "confirmation unknown": the remote order may exist, and a later create for
// the same payable resolves to the local order via receipt idempotency.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.NewInternalError("failed to marshal order request", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var order Order
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, errors.NewGatewayError("failed to decode order response", err)
	}

	c.logger.Info("gateway order created",
		"gateway_order_id", order.ID,
		"receipt", req.Receipt,
		"amount_minor", req.AmountMinor)

	return &order, nil
}

// FetchPayment retrieves the raw payment object for an id.
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (RawPayment, error) {
	return c.fetchPayment(ctx, paymentID, "")
}

// FetchPaymentExpanded retrieves the payment with one entity expanded, e.g.
// "card" for safe display data that the plain fetch omits.
func (c *Client) FetchPaymentExpanded(ctx context.Context, paymentID, expand string) (RawPayment, error) {
	return c.fetchPayment(ctx, paymentID, expand)
}

func (c *Client) fetchPayment(ctx context.Context, paymentID, expand string) (RawPayment, error) {
	path := "/payments/" + url.PathEscape(paymentID)
	if expand != "" {
		path += "?expand[]=" + url.QueryEscape(expand)
	}

	respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var payment RawPayment
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, errors.NewGatewayError("failed to decode payment response", err)
	}

	return payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.NewInternalError("failed to create gateway request", err)
	}

	req.SetBasicAuth(c.keyID, c.keySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("gateway request failed", "method", method, "path", path, "error", err)
		return nil, errors.NewGatewayError("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewGatewayError("failed to read gateway response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("gateway returned error",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"response", string(respBody))
		return nil, errors.NewGatewayError(
			fmt.Sprintf("payment gateway error: status %d", resp.StatusCode), nil)
	}

	return respBody, nil
}
