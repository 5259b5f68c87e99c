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

	"github.com/appetiteclub/tableside/internal/session"
	"github.com/aquamarinepk/aqm"
	"github.com/google/uuid"
)

const (
	// TokenEndpoint issues credentials and is the only unauthenticated call.
	TokenEndpoint = "/api/token/"

	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Client issues authenticated calls against the restaurant REST API.
// Every call is a single attempt.
type Client struct {
	baseURL string
	http    *http.Client
	session *session.Context
	logger  aqm.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

func WithLogger(logger aqm.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewClient(baseURL string, sess *session.Context, opts ...Option) *Client {
	if sess == nil {
		sess = session.NewContext(nil)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		session: sess,
		logger:  aqm.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Session() *session.Context {
	return c.session
}

// Request performs one call and returns the raw JSON body. A 204 or an empty
// body yields a nil result and no error.
func (c *Client) Request(ctx context.Context, method, endpoint string, body any) (json.RawMessage, error) {
	protected := endpoint != TokenEndpoint

	token := c.session.AccessToken()
	if protected && token == "" {
		c.logger.Info("no credential for protected call, redirecting to login", "endpoint", endpoint)
		c.session.Invalidate()
		return nil, ErrUnauthenticated
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", endpoint, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if protected {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With("request_id", requestID, "method", method, "endpoint", endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Error("request failed", "error", err)
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	log.Debug("response received", "status", resp.StatusCode)

	if protected && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
		log.Info("session rejected by server, redirecting to login", "status", resp.StatusCode)
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		c.session.Invalidate()
		return nil, ErrUnauthenticated
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		rf := &RequestFailedError{
			Method:   method,
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  errorMessage(resp, raw),
		}
		log.Error("request rejected", "status", resp.StatusCode, "message", rf.Message)
		return nil, rf
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

// errorMessage prefers the JSON detail or error field, then the raw JSON
// body, then the status line.
func errorMessage(resp *http.Response, raw []byte) string {
	fallback := fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fallback
	}
	for _, key := range []string{"detail", "error"} {
		if v, ok := payload[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	if trimmed := strings.TrimSpace(string(raw)); trimmed != "" && trimmed != "{}" {
		return trimmed
	}
	return fallback
}

func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	return c.Request(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) patch(ctx context.Context, endpoint string, body any) error {
	_, err := c.Request(ctx, http.MethodPatch, endpoint, body)
	return err
}
