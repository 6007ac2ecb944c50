package node

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

	"github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second
	// maxResponseSize caps how much of a node response is read (60MB, above the
	// largest base64-encoded QDN resource).
	maxResponseSize = 60 * 1024 * 1024
)

// Error is a failed node call. Message carries the node's own wording when the
// node supplied one.
type Error struct {
	Method  string
	Path    string
	Status  int
	Code    int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("node request %s %s failed with status %d", e.Method, e.Path, e.Status)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	// APIKey is sent as X-API-KEY for endpoints the node protects.
	APIKey      string
	Timeout     time.Duration
	PublicNodes []string
}

// Client is a thin HTTP wrapper around one node's REST API. It holds no state
// beyond the configured endpoint.
type Client struct {
	baseURL string
	apiKey  string
	public  bool
	http    *http.Client
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	base := strings.TrimRight(cfg.BaseURL, "/")

	public := false
	for _, p := range cfg.PublicNodes {
		if strings.EqualFold(strings.TrimRight(p, "/"), base) {
			public = true
			break
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "New",
		"base_url": base,
		"public":   public,
		"timeout":  timeout,
	}).Info("Creating node API client")

	return &Client{
		baseURL: base,
		apiKey:  cfg.APIKey,
		public:  public,
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the node's base URL without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// IsPublic reports whether the configured node is a public gateway. Public
// gateways refuse wallet-local and admin operations.
func (c *Client) IsPublic() bool { return c.public }

// Do performs a request and returns the raw response body. Non-2xx responses
// become *Error.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build node request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Do",
			"method":   method,
			"path":     path,
			"error":    err.Error(),
		}).Warn("Node request failed")
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read node response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newError(method, path, resp.StatusCode, data)
	}
	if apiErr := embeddedError(method, path, resp.StatusCode, data); apiErr != nil {
		return nil, apiErr
	}
	return data, nil
}

// GetJSON performs a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	data, err := c.Do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return err
	}
	return decode(path, data, out)
}

// GetText performs a GET and returns the body as text.
func (c *Client) GetText(ctx context.Context, path string, query url.Values) (string, error) {
	data, err := c.Do(ctx, http.MethodGet, path, query, nil, "")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PostText posts a text/plain body and returns the response as text.
func (c *Client) PostText(ctx context.Context, path string, query url.Values, body string) (string, error) {
	data, err := c.Do(ctx, http.MethodPost, path, query, strings.NewReader(body), "text/plain")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PostJSON posts in as JSON and decodes the response into out. out may be nil.
func (c *Client) PostJSON(ctx context.Context, path string, query url.Values, in, out any) error {
	return c.sendJSON(ctx, http.MethodPost, path, query, in, out)
}

// DeleteJSON sends a DELETE with a JSON body and decodes the response into out.
func (c *Client) DeleteJSON(ctx context.Context, path string, query url.Values, in, out any) error {
	return c.sendJSON(ctx, http.MethodDelete, path, query, in, out)
}

func (c *Client) sendJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode node request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	data, err := c.Do(ctx, method, path, query, body, "application/json")
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return decode(path, data, out)
}

func decode(path string, data []byte, out any) error {
	if s, ok := out.(*string); ok {
		// text endpoints answer bare; a few answer a JSON string
		if json.Unmarshal(data, s) != nil {
			*s = string(data)
		}
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode node response for %s: %w", path, err)
	}
	return nil
}

// apiError is the body the node returns for failed API calls.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

func newError(method, path string, status int, body []byte) *Error {
	e := &Error{Method: method, Path: path, Status: status}
	var ae apiError
	if json.Unmarshal(body, &ae) == nil && ae.Message != "" {
		e.Code = ae.Error
		e.Message = ae.Message
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 {
		e.Message = text
	}
	return e
}

// embeddedError detects the node's habit of returning {"error":N,"message":...}
// with a 200 status.
func embeddedError(method, path string, status int, body []byte) *Error {
	if len(body) == 0 || body[0] != '{' {
		return nil
	}
	var ae apiError
	if json.Unmarshal(body, &ae) != nil || ae.Error == 0 || ae.Message == "" {
		return nil
	}
	return &Error{Method: method, Path: path, Status: status, Code: ae.Error, Message: ae.Message}
}
