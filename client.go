// Package keygate is a Go client for the Keygate license management API.
//
// It wraps authentication, license CRUD, hardware binding, usage analytics
// and webhook verification behind a single Client. Webhook signature
// verification and event dispatch live in keygate/pkg/webhook; machine
// fingerprints in keygate/pkg/hwid.
//
//	client, err := keygate.NewClient("https://api.keygate.io", apiKey)
//	if err != nil {
//		log.Fatal(err)
//	}
//	lic, err := client.GetLicense(ctx, "KG-ABCD-1234-EF56")
package keygate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"keygate/pkg/hwid"
)

const apiVersion = "v1"

// Client talks to the Keygate HTTP API. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	retries int
	log     zerolog.Logger
	cache   *validationCache
	hwid    *hwid.Generator
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpc.Timeout = d }
}

// WithRetries sets how many times a failed request is retried on network
// errors and 5xx responses. Zero disables retries.
func WithRetries(n int) Option {
	return func(c *Client) { c.retries = n }
}

// WithLogger routes client logging through the given logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithValidationCache tunes the local validation result cache. A zero ttl
// disables caching.
func WithValidationCache(ttl time.Duration, maxEntries int) Option {
	return func(c *Client) { c.cache = newValidationCache(ttl, maxEntries) }
}

// NewClient builds a Client for the API at baseURL authenticating with
// apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("keygate: base URL is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("keygate: API key is required")
	}

	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		retries: 2,
		log:     zerolog.Nop(),
		cache:   newValidationCache(5*time.Minute, 1024),
		hwid:    hwid.NewGenerator(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do executes one API call. body (if non-nil) is JSON-encoded; a 2xx
// response is decoded into out (if non-nil). Non-2xx responses come back
// as *Error. POSTs carry an Idempotency-Key so retries cannot double-apply.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("keygate: encode request: %w", err)
		}
	}

	idempotencyKey := ""
	if method == http.MethodPost {
		idempotencyKey = uuid.New().String()
	}

	url := c.baseURL + "/" + apiVersion + path

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 200 * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			c.log.Debug().
				Str("method", method).
				Str("path", path).
				Int("attempt", attempt).
				Msg("retrying request")
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return fmt.Errorf("keygate: build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if idempotencyKey != "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("keygate: %s %s: %w", method, path, err)
			continue
		}

		if resp.StatusCode >= 500 {
			apiErr := decodeError(resp)
			resp.Body.Close()
			lastErr = apiErr
			continue
		}
		if resp.StatusCode >= 400 {
			apiErr := decodeError(resp)
			resp.Body.Close()
			return apiErr
		}

		if out != nil {
			err = json.NewDecoder(resp.Body).Decode(out)
		}
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("keygate: decode response: %w", err)
		}
		return nil
	}

	return lastErr
}

// decodeError turns a non-2xx response into an *Error. Bodies that are not
// the standard error envelope still produce a usable error with just the
// status code.
func decodeError(resp *http.Response) *Error {
	apiErr := &Error{StatusCode: resp.StatusCode}

	var envelope struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&envelope); err == nil {
		apiErr.Code = envelope.Code
		apiErr.Message = envelope.Message
		apiErr.RequestID = envelope.RequestID
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
