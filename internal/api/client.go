package api

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

	"github.com/google/uuid"

	"github.com/rnks2003/proj-sitesense/internal/model"
)

// maxErrorBodySize limits how much of an error response body is read when
// extracting the service's error detail. Error bodies are small JSON
// documents; anything larger is truncated.
const maxErrorBodySize = 64 * 1024

// maxHeatmapSize limits the size of a downloaded heatmap image.
// Heatmaps are rendered screenshots and stay well under this.
const maxHeatmapSize = 32 * 1024 * 1024

// Heatmap kinds served by the file endpoint.
const (
	// HeatmapAttention is the predicted visual-attention heatmap.
	HeatmapAttention = "attention_heatmap"

	// HeatmapClick is the predicted click heatmap.
	HeatmapClick = "click_heatmap"
)

// Client issues requests against the remote scan service.
//
// Design decision: The client carries no retry logic and no caching.
// Every method maps to exactly one HTTP request so that the lifecycle
// controller owns all retry, backoff, and polling policy in one place.
type Client struct {
	// baseURL is the service root, e.g. "http://localhost:8000".
	baseURL string

	// httpClient is the underlying HTTP client.
	httpClient *http.Client

	// userAgent identifies this client in request headers.
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
// Tests use this to point the client at an httptest server transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a client for the scan service at baseURL.
// The baseURL must be an absolute http(s) URL; a trailing slash is allowed
// and normalized away. The timeout applies per request.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "SiteSense/1.0 (+https://github.com/rnks2003/proj-sitesense)",
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: timeout}
	}
	return c, nil
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ValidateTargetURL checks that target is a syntactically valid absolute
// URL. The lifecycle controller calls this before creating a scan so that
// malformed input never produces a network call.
func ValidateTargetURL(target string) error {
	if strings.TrimSpace(target) == "" {
		return fmt.Errorf("%w: empty URL", ErrInvalidTargetURL)
	}
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTargetURL, target)
	}
	return nil
}

// List retrieves all scans in summary form, newest first as ordered by
// the service. There is no pagination.
func (c *Client) List(ctx context.Context) ([]model.ScanRecord, error) {
	var records []model.ScanRecord
	if err := c.do(ctx, http.MethodGet, "/scan/", nil, &records, "list scans"); err != nil {
		return nil, err
	}
	return records, nil
}

// Create submits a new scan for the target URL. The returned record is in
// the queued state with a service-assigned identifier.
func (c *Client) Create(ctx context.Context, target string) (*model.ScanRecord, error) {
	if err := ValidateTargetURL(target); err != nil {
		return nil, err
	}

	body := map[string]string{"url": target}
	var record model.ScanRecord
	if err := c.do(ctx, http.MethodPost, "/scan/", body, &record, "create scan"); err != nil {
		return nil, err
	}
	return &record, nil
}

// Get retrieves the full record for a scan, including module results when
// the scan has completed. Returns an error matching ErrNotFound when the
// service has no scan with this identifier.
func (c *Client) Get(ctx context.Context, id string) (*model.ScanRecord, error) {
	var record model.ScanRecord
	if err := c.do(ctx, http.MethodGet, "/scan/"+url.PathEscape(id), nil, &record, "get scan"); err != nil {
		return nil, err
	}
	return &record, nil
}

// Delete removes a scan from the service. A 404 response is treated as
// success so repeated deletes of the same identifier are idempotent from
// the caller's perspective.
func (c *Client) Delete(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/scan/"+url.PathEscape(id), nil, nil, "delete scan")
	if err != nil && isNotFound(err) {
		return nil
	}
	return err
}

// Clear removes all scans from the service.
func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/scan/clear", nil, nil, "clear scans")
}

// Chat sends a message about a scan to the AI chat endpoint. The request
// carries the API key and the scan context; the service holds no
// conversation state.
func (c *Client) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	var resp model.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/chat/", req, &resp, "chat"); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Heatmap downloads a heatmap image for a scan. The kind must be one of
// HeatmapAttention or HeatmapClick. It returns the image bytes and the
// content type reported by the service.
func (c *Client) Heatmap(ctx context.Context, id, kind string) ([]byte, string, error) {
	if kind != HeatmapAttention && kind != HeatmapClick {
		return nil, "", fmt.Errorf("unknown heatmap kind %q", kind)
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/files/"+url.PathEscape(id)+"/"+kind, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch heatmap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", c.statusError("fetch heatmap", resp)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHeatmapSize))
	if err != nil {
		return nil, "", fmt.Errorf("fetch heatmap: read body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// newRequest builds a request with the standard client headers.
// Each request carries a fresh X-Request-Id so server logs can be
// correlated with a single client operation.
func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do performs a JSON request/response round trip. A nil in sends no body;
// a nil out discards the response body. Non-2xx responses become a
// *StatusError carrying the service's error detail when present.
func (c *Client) do(ctx context.Context, method, path string, in, out any, operation string) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", operation, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(operation, resp)
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize)) //nolint:errcheck // Best effort drain
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", operation, err)
	}
	return nil
}

// statusError converts a non-success response into a *StatusError,
// extracting the "detail" field the service includes in error bodies.
func (c *Client) statusError(operation string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize)) //nolint:errcheck // Body is best effort for detail

	var payload struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(data, &payload) //nolint:errcheck // Non-JSON bodies just produce an empty detail

	return &StatusError{
		Operation: operation,
		Code:      resp.StatusCode,
		Detail:    payload.Detail,
	}
}

// isNotFound reports whether err matches ErrNotFound.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
