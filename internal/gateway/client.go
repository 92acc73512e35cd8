// Package gateway is the HTTP client for the upstream payments backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/edupay-dashboard/pkg/errors"
	"github.com/noah-isme/edupay-dashboard/pkg/middleware/requestid"
)

const maxErrorBody = 64 << 10

// TokenSource yields the bearer token attached to every request.
type TokenSource interface {
	Token(ctx context.Context) string
}

// Observer records gateway call latency. MetricsService satisfies it.
type Observer interface {
	ObserveGatewayCall(endpoint, outcome string, duration time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	Tokens         TokenSource
	OnUnauthorized func(ctx context.Context)
	Observer       Observer
	Logger         *zap.Logger
	HTTPClient     *http.Client
}

// Client talks JSON to the payments gateway.
type Client struct {
	baseURL        string
	http           *http.Client
	tokens         TokenSource
	onUnauthorized func(ctx context.Context)
	observer       Observer
	logger         *zap.Logger
}

// New constructs a gateway client.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           httpClient,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
		observer:       opts.Observer,
		logger:         logger,
	}
}

// do sends one request and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(ctx context.Context, endpoint, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode gateway request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build gateway request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if token := c.tokens.Token(ctx); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.HeaderKey, id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		outcome := "transport_error"
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
		c.observe(endpoint, outcome, start)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn("gateway request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrGatewayUnavailable.Code, appErrors.ErrGatewayUnavailable.Status, appErrors.ErrGatewayUnavailable.Message)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		c.observe(endpoint, "ok", start)
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return appErrors.Wrap(err, appErrors.ErrGateway.Code, appErrors.ErrGateway.Status, "malformed gateway response")
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	message := decodeMessage(raw)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		c.observe(endpoint, "unauthorized", start)
		c.logger.Info("gateway rejected credentials", zap.String("endpoint", endpoint))
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return appErrors.Clone(appErrors.ErrUnauthenticated, "")
	case http.StatusNotFound:
		c.observe(endpoint, "not_found", start)
		return appErrors.Clone(appErrors.ErrNotFound, message)
	default:
		c.observe(endpoint, "error", start)
		c.logger.Warn("gateway returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", message),
		)
		if message == "" {
			message = fmt.Sprintf("gateway responded with status %d", resp.StatusCode)
		}
		status := appErrors.ErrGateway.Status
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			status = resp.StatusCode
		}
		return appErrors.New(appErrors.ErrGateway.Code, status, message)
	}
}

func (c *Client) observe(endpoint, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveGatewayCall(endpoint, outcome, time.Since(start))
	}
}

// decodeMessage extracts {"message": "..."} or {"message": ["...", "..."]}.
func decodeMessage(raw []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if len(body.Message) > 0 {
		var single string
		if err := json.Unmarshal(body.Message, &single); err == nil {
			return strings.TrimSpace(single)
		}
		var list []string
		if err := json.Unmarshal(body.Message, &list); err == nil {
			return strings.Join(list, "; ")
		}
	}
	return strings.TrimSpace(body.Error)
}
