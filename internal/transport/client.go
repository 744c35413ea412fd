package transport

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

	apperrors "github.com/pacerhq/pacer/internal/errors"
	"github.com/pacerhq/pacer/internal/retry"
)

const defaultMaxBodyBytes = 1 << 20

// Config describes the delivery endpoint.
type Config struct {
	Endpoint    string
	Method      string
	ContentType string
	Headers     http.Header
	Timeout     time.Duration
	UserAgent   string
}

// Client posts payloads to one endpoint over a shared http.Client.
type Client struct {
	HTTP         *http.Client
	Endpoint     string
	Method       string
	ContentType  string
	Headers      http.Header
	UserAgent    string
	MaxBodyBytes int64
}

// New validates cfg and builds a Client with its own session.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("endpoint scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("endpoint host is required")
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		HTTP:        &http.Client{Timeout: timeout},
		Endpoint:    parsed.String(),
		Method:      method,
		ContentType: cfg.ContentType,
		Headers:     cfg.Headers.Clone(),
		UserAgent:   cfg.UserAgent,
	}, nil
}

// Request binds payload to a retry.Caller; each Call sends it once.
func (c *Client) Request(payload []byte) retry.Caller {
	return retry.CallerFunc(func(ctx context.Context) (*retry.Response, error) {
		return c.do(ctx, payload)
	})
}

// Close releases idle connections held by the session.
func (c *Client) Close() {
	if c != nil && c.HTTP != nil {
		c.HTTP.CloseIdleConnections()
	}
}

func (c *Client) do(ctx context.Context, payload []byte) (*retry.Response, error) {
	req, err := http.NewRequestWithContext(ctx, c.Method, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	for key, values := range c.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if c.ContentType != "" {
		req.Header.Set("Content-Type", c.ContentType)
	}
	if c.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, err
	}

	return &retry.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// Receipt is the optional acknowledgement an endpoint returns.
type Receipt struct {
	ID     string
	Region string
	Fields map[string]any
}

// DecodeReceipt parses a JSON response body. An empty body is a valid,
// empty receipt; anything else that is not a JSON object is a decode error.
func DecodeReceipt(body []byte) (Receipt, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Receipt{}, nil
	}

	fields := make(map[string]any)
	if err := json.Unmarshal(body, &fields); err != nil {
		return Receipt{}, apperrors.WrapDecode(err, "response body is not a JSON object")
	}

	return Receipt{
		ID:     firstString(fields, "id", "questionId"),
		Region: firstString(fields, "region", "userRegion"),
		Fields: fields,
	}, nil
}

func firstString(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		switch value := fields[key].(type) {
		case string:
			if value != "" {
				return value
			}
		case float64:
			return fmt.Sprintf("%v", value)
		}
	}
	return ""
}
