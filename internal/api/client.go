// Package api is the thin REST client layer every storefront component
// speaks through. Each call carries a context, a bounded timeout, and an
// error mapped into the shared taxonomy; idempotent reads retry with
// exponential backoff, writes never do.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/racoonius-programmer/levelup-storefront/pkg/config"
	pkgerrors "github.com/racoonius-programmer/levelup-storefront/pkg/errors"
	"github.com/racoonius-programmer/levelup-storefront/pkg/logger"
	"github.com/racoonius-programmer/levelup-storefront/pkg/metrics"
	"github.com/sethvargo/go-retry"
)

// Client issues requests against the remote storefront backend.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	logg          *logger.Logger
	metrics       *metrics.RequestMetrics
	retryAttempts uint64
	retryBackoff  time.Duration
	retryMaxDelay time.Duration
}

// NewClient builds the REST client from configuration.
func NewClient(cfg config.APIConfig, logg *logger.Logger, reqMetrics *metrics.RequestMetrics) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api base url required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	maxDelay := cfg.RetryMaxDelay
	if maxDelay < backoff {
		maxDelay = backoff
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		httpClient:    &http.Client{Timeout: timeout},
		logg:          logg,
		metrics:       reqMetrics,
		retryAttempts: cfg.RetryAttempts,
		retryBackoff:  backoff,
		retryMaxDelay: maxDelay,
	}, nil
}

// Get fetches the resource at path and decodes the JSON body into out.
// Transport failures are retried with exponential backoff.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	backoff := retry.WithMaxRetries(c.retryAttempts, retry.WithCappedDuration(c.retryMaxDelay, retry.NewExponential(c.retryBackoff)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodGet, path, "", nil, out)
		if err == nil {
			return nil
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Retryable() {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Post creates a resource. Never retried: creates are not idempotent here.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, "application/json", in, out)
}

// Put replaces a resource.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, "application/json", in, out)
}

// Delete removes a resource.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, "", nil, nil)
}

// PatchText sends a bare string body, not JSON-wrapped. The order status
// endpoint expects exactly this shape.
func (c *Client) PatchText(ctx context.Context, path, body string, out any) error {
	return c.do(ctx, http.MethodPatch, path, "text/plain", body, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, in, out any) error {
	resource, op := labelsFor(method, path)
	done := c.metrics.TrackInFlight(resource)
	defer done()
	started := time.Now()

	err := c.roundTrip(ctx, method, path, contentType, in, out)
	c.metrics.ObserveDuration(resource, op, time.Since(started))
	if err != nil {
		c.metrics.IncFailure(resource, op)
		ctx = c.logg.WithField(ctx, "error_chain", pkgerrors.Dump(err))
		c.logg.Warn(ctx, fmt.Sprintf("%s %s failed", method, path))
		return err
	}
	c.metrics.IncSuccess(resource, op)
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, contentType string, in, out any) error {
	var body io.Reader
	switch payload := in.(type) {
	case nil:
	case string:
		body = strings.NewReader(payload)
	default:
		encoded, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encoding %s %s body", method, path))
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("building %s %s request", method, path))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransport, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return pkgerrors.FromStatus(resp.StatusCode, serverMessage(resp.Body))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDecode, err, fmt.Sprintf("decoding %s %s response", method, path))
	}
	return nil
}

// serverMessage pulls a human-readable message out of an error body when
// the backend sent one.
func serverMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var wrapped struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.Message != "" {
			return wrapped.Message
		}
		if wrapped.Error != "" {
			return wrapped.Error
		}
	}
	return ""
}

// labelsFor derives the metric labels from the request shape: the first
// path segment is the resource, the method maps to the operation.
func labelsFor(method, path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/")
	resource := trimmed
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		resource = trimmed[:idx]
	}
	if idx := strings.IndexByte(resource, '?'); idx >= 0 {
		resource = resource[:idx]
	}
	return resource, strings.ToLower(method)
}
