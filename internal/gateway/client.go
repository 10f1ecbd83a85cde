// Package gateway is the HTTP client for the payment gateway: preferences,
// payment lookup and payment search by external reference.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// API is what the payment services need from the gateway. Every call takes
// the tenant's bearer token.
type API interface {
	CreatePreference(ctx context.Context, token string, req *PreferenceRequest) (*Preference, error)
	GetPayment(ctx context.Context, token, paymentID string) (*Payment, error)
	SearchPayments(ctx context.Context, token, externalReference string) ([]*Payment, error)
}

// APIError is a non-2xx gateway answer.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

// NewClient creates a client with a bounded per-request timeout. Requests
// are never retried here, the poller's next tick is the retry.
func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With(zap.String("component", "gateway")),
	}
}

func (c *Client) CreatePreference(ctx context.Context, token string, req *PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", token, req, &pref); err != nil {
		return nil, fmt.Errorf("create preference for %s: %w", req.ExternalReference, err)
	}
	if pref.ID == "" {
		return nil, fmt.Errorf("create preference for %s: empty preference id", req.ExternalReference)
	}
	return &pref, nil
}

func (c *Client) GetPayment(ctx context.Context, token, paymentID string) (*Payment, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(paymentID), token, nil, &raw); err != nil {
		return nil, fmt.Errorf("get payment %s: %w", paymentID, err)
	}
	return decodePayment(raw)
}

func (c *Client) SearchPayments(ctx context.Context, token, externalReference string) ([]*Payment, error) {
	q := url.Values{}
	q.Set("external_reference", externalReference)
	q.Set("sort", "date_created")
	q.Set("criteria", "desc")

	var body struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/payments/search?"+q.Encode(), token, nil, &body); err != nil {
		return nil, fmt.Errorf("search payments for %s: %w", externalReference, err)
	}

	payments := make([]*Payment, 0, len(body.Results))
	for _, raw := range body.Results {
		p, err := decodePayment(raw)
		if err != nil {
			return nil, fmt.Errorf("search payments for %s: %w", externalReference, err)
		}
		payments = append(payments, p)
	}
	return payments, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Gateway request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("Gateway request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func errorMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return strings.TrimSpace(string(body))
}
