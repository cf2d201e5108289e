package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/evacurves/store-backend/pkg/errors"
)

const (
	defaultTimeout              = 15 * time.Second
	responseBodyReadLimit int64 = 64 * 1024
)

// Client posts formatted shipments to partner APIs.
type Client struct {
	httpClient *http.Client
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// NewClient builds a partner client.
func NewClient(opts ...Option) *Client {
	client := &Client{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return client
}

// Send posts the adapter-formatted payload to apiURL and returns the parsed
// reply. A transport failure, a non-2xx status or an unsuccessful reply is a
// dependency error carrying the partner message when one is present.
func (c *Client) Send(ctx context.Context, apiURL string, adapter Adapter, payload any) (*Result, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "delivery client not configured")
	}
	if strings.TrimSpace(apiURL) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery company api url is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal delivery request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build delivery request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to send order to delivery service")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read delivery response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := partnerMessage(raw)
		if msg == "" {
			msg = "failed to send order to delivery service"
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), msg).
			WithDetails(map[string]any{"company": adapter.Code(), "status": resp.StatusCode})
	}

	result, err := adapter.Parse(raw)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		msg := result.Message
		if msg == "" {
			msg = "delivery company rejected the order"
		}
		return result, pkgerrors.New(pkgerrors.CodeDependency, msg).
			WithDetails(map[string]any{"company": adapter.Code()})
	}
	return result, nil
}

func partnerMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Message)
}
