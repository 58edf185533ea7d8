// Package client talks to the scheme REST backend. Responses use the
// {success, data, error} envelope; bare JSON arrays are accepted too.
package client

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

	"github.com/iwvelando/scheme-engine/internal/duplicates"
	"github.com/iwvelando/scheme-engine/internal/presets"
	"github.com/iwvelando/scheme-engine/internal/scheme"
	"github.com/iwvelando/scheme-engine/internal/session"
	"github.com/iwvelando/scheme-engine/pkg/records"
)

// APIError is a non-2xx response or an envelope with success=false.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return "api error: " + e.Message
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// Client is the backend client. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	session session.Session
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a client for baseURL, e.g. http://localhost:8000/api.
func New(baseURL string, sess session.Session, opts ...Option) *Client {
	if sess == nil {
		sess = session.Anonymous()
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: sess,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Distributors fetches the distributor master list.
func (c *Client) Distributors(ctx context.Context) ([]records.Record, error) {
	var raw []map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/distributors", nil, false, &raw); err != nil {
		return nil, err
	}
	return records.FromRawDistributors(raw), nil
}

// Products fetches the product master list.
func (c *Client) Products(ctx context.Context) ([]records.Record, error) {
	var raw []map[string]interface{}
	if err := c.do(ctx, http.MethodGet, "/products", nil, false, &raw); err != nil {
		return nil, err
	}
	return records.FromRawProducts(raw), nil
}

// ListPresets implements presets.Backend.
func (c *Client) ListPresets(ctx context.Context, t presets.Type) ([]presets.Preset, error) {
	var out []presets.Preset
	path := "/filter-presets?type=" + url.QueryEscape(string(t))
	if err := c.do(ctx, http.MethodGet, path, nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreatePreset implements presets.Backend.
func (c *Client) CreatePreset(ctx context.Context, p presets.Preset) (presets.Preset, error) {
	var out presets.Preset
	err := c.do(ctx, http.MethodPost, "/filter-presets", presetBody(p), true, &out)
	return out, err
}

// UpdatePreset implements presets.Backend.
func (c *Client) UpdatePreset(ctx context.Context, id string, p presets.Preset) (presets.Preset, error) {
	var out presets.Preset
	err := c.do(ctx, http.MethodPut, "/filter-presets/"+url.PathEscape(id), presetBody(p), true, &out)
	return out, err
}

// DeletePreset implements presets.Backend.
func (c *Client) DeletePreset(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/filter-presets/"+url.PathEscape(id), nil, true, nil)
}

func presetBody(p presets.Preset) map[string]interface{} {
	return map[string]interface{}{
		"name":    p.Name,
		"type":    p.Type,
		"filters": p.Filters,
	}
}

func schemesRoot(kind scheme.Kind) string {
	if kind == scheme.Base {
		return "/base/schemes"
	}
	return "/schemes"
}

// SubmitScheme implements scheme.Backend.
func (c *Client) SubmitScheme(ctx context.Context, kind scheme.Kind, p scheme.Payload) (scheme.Receipt, error) {
	var out scheme.Receipt
	err := c.do(ctx, http.MethodPost, schemesRoot(kind), p, true, &out)
	return out, err
}

// VerifyScheme implements scheme.Backend.
func (c *Client) VerifyScheme(ctx context.Context, kind scheme.Kind, id, notes string) error {
	path := schemesRoot(kind) + "/verify/" + url.PathEscape(id)
	return c.do(ctx, http.MethodPut, path, map[string]string{"notes": notes}, true, nil)
}

// RejectScheme implements scheme.Backend.
func (c *Client) RejectScheme(ctx context.Context, kind scheme.Kind, id, notes string) error {
	path := schemesRoot(kind) + "/reject/" + url.PathEscape(id)
	return c.do(ctx, http.MethodPut, path, map[string]string{"notes": notes}, true, nil)
}

// ExportScheme implements scheme.Backend and returns the raw file bytes.
func (c *Client) ExportScheme(ctx context.Context, kind scheme.Kind, id, format string) ([]byte, error) {
	path := schemesRoot(kind) + "/export/" + url.PathEscape(id) + "?format=" + url.QueryEscape(format)
	resp, err := c.send(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	return data, nil
}

// DeleteDuplicateProducts implements duplicates.Remover.
func (c *Client) DeleteDuplicateProducts(ctx context.Context, productIDs []string, keepID string) (int, error) {
	body := map[string]interface{}{"productIds": productIDs, "keepId": keepID}
	var out struct {
		DeletedCount int `json:"deletedCount"`
	}
	if err := c.do(ctx, http.MethodPost, "/products/duplicates/delete", body, true, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

var (
	_ presets.Backend    = (*Client)(nil)
	_ scheme.Backend     = (*Client)(nil)
	_ duplicates.Remover = (*Client)(nil)
)

// send builds and executes a request. When auth is set a bearer token is
// required and its absence fails before any network I/O.
func (c *Client) send(ctx context.Context, method, path string, body interface{}, auth bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token, err := c.session.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("op", "client.send"),
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.logger.Debug("request completed",
		zap.String("op", "client.send"),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, auth bool, out interface{}) error {
	resp, err := c.send(ctx, method, path, body, auth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}
	return decode(data, resp.StatusCode, out)
}

func decode(data []byte, status int, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	payload := trimmed
	if trimmed[0] == '{' {
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if env.Success != nil {
			if !*env.Success {
				return &APIError{Status: status, Message: firstNonEmpty(env.Error, env.Message, "request failed")}
			}
			payload = env.Data
		}
	}
	if out == nil || len(payload) == 0 || string(payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

func errorMessage(data []byte, fallback string) string {
	var env envelope
	if json.Unmarshal(data, &env) == nil {
		if msg := firstNonEmpty(env.Error, env.Message); msg != "" {
			return msg
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
