package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vitwit/x402-transfer/types"
)

const (
	defaultRequestTimeout = 15 * time.Second

	// Readiness polling cadence and default budget, matching the mock
	// startup behavior of the surrounding tooling.
	readyPollInterval   = 1 * time.Second
	DefaultReadyTimeout = 10 * time.Second
)

// Client is a typed HTTP client for a facilitator endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultRequestTimeout},
	}
}

// WaitReady polls /list until the facilitator answers or the timeout elapses.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		if _, err := c.ListNetworks(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return types.NewTransferError(types.ErrConnectionError,
				"facilitator at %s not ready within %s", c.baseURL, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}

func (c *Client) ListNetworks(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/list", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facilitator /list returned status %d", resp.StatusCode)
	}

	var out ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode /list response: %w", err)
	}
	return out.Networks, nil
}

// CreatePayment posts a payment intent. The second return value is the
// X-PAYMENT-RESPONSE header.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, string, error) {
	return c.postPayment(ctx, "/create_payment", req)
}

// Settle settles a payment. The second return value is the
// X-PAYMENT-RESPONSE header.
func (c *Client) Settle(ctx context.Context, req PaymentRequest) (*PaymentResponse, string, error) {
	return c.postPayment(ctx, "/settle", req)
}

func (c *Client) Verify(ctx context.Context, req PaymentRequest) (*VerifyResponse, error) {
	resp, err := c.postJSON(ctx, "/verify", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("facilitator /verify returned status %d", resp.StatusCode)
	}

	var out VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode /verify response: %w", err)
	}
	return &out, nil
}

func (c *Client) postPayment(ctx context.Context, path string, req PaymentRequest) (*PaymentResponse, string, error) {
	resp, err := c.postJSON(ctx, path, req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("facilitator %s returned status %d", path, resp.StatusCode)
	}

	var out PaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, "", fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return &out, resp.Header.Get(PaymentResponseHeader), nil
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.http.Do(req)
}
