// Package bungie is the HTTP client for the authenticated platform proxy.
package bungie

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

	"guardian-inventory/internal/catalog"
	"guardian-inventory/internal/inventory"
	"guardian-inventory/internal/model"
	"guardian-inventory/pkg/uid"
)

// platformSuccess is the ErrorCode of a successful platform action.
const platformSuccess = 1

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4096

// Config holds client settings.
type Config struct {
	BaseURL     string
	APIKey      string
	AccessToken string
	Timeout     time.Duration
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// PlatformError is returned when an action succeeds at the HTTP level but
// the platform reports a failure code.
type PlatformError struct {
	Code    int
	Status  string
	Message string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform error %d (%s): %s", e.Code, e.Status, e.Message)
}

// Client talks to the proxy.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	http        *http.Client
}

// NewClient creates a client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		accessToken: cfg.AccessToken,
		http:        &http.Client{Timeout: timeout},
	}
}

// Profile fetches the account profile.
func (c *Client) Profile(ctx context.Context) (*model.Snapshot, error) {
	var p profileWire
	if err := c.doJSON(ctx, http.MethodGet, "/api/profile", nil, &p); err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return p.snapshot(), nil
}

// CatalogVersion fetches the current catalog version.
func (c *Client) CatalogVersion(ctx context.Context) (string, error) {
	var v versionWire
	if err := c.doJSON(ctx, http.MethodGet, "/api/manifest/version", nil, &v); err != nil {
		return "", fmt.Errorf("failed to fetch catalog version: %w", err)
	}
	if v.Version == "" {
		return "", fmt.Errorf("catalog version response has no version")
	}
	return v.Version, nil
}

// CatalogTable downloads one whole catalog table as raw JSON.
func (c *Client) CatalogTable(ctx context.Context, table string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/manifest/definitions/"+url.PathEscape(table), nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read table %s: %w", table, err)
	}
	return data, nil
}

// TransferItem performs one vault deposit or withdrawal.
func (c *Client) TransferItem(ctx context.Context, call model.MoveCall) error {
	var status platformWire
	if err := c.doJSON(ctx, http.MethodPost, "/api/actions/transfer", call, &status); err != nil {
		return err
	}
	if status.ErrorCode != 0 && status.ErrorCode != platformSuccess {
		return &PlatformError{Code: status.ErrorCode, Status: status.ErrorStatus, Message: status.Message}
	}
	return nil
}

// FetchAnnotations reads the account's annotation record.
func (c *Client) FetchAnnotations(ctx context.Context) (model.AnnotationRecord, error) {
	rec := model.NewAnnotationRecord()
	if err := c.doJSON(ctx, http.MethodGet, "/api/metadata", nil, &rec); err != nil {
		return model.AnnotationRecord{}, err
	}
	if rec.Tags == nil {
		rec.Tags = map[string]string{}
	}
	if rec.Notes == nil {
		rec.Notes = map[string]string{}
	}
	return rec, nil
}

// StoreAnnotations replaces the account's annotation record.
func (c *Client) StoreAnnotations(ctx context.Context, record model.AnnotationRecord) error {
	return c.doJSON(ctx, http.MethodPut, "/api/metadata", record, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	body, err := c.do(ctx, method, path, in)
	if err != nil {
		return err
	}
	defer body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, body)
		return nil
	}
	if err := json.NewDecoder(body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in any) (io.ReadCloser, error) {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uid.New())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}
	return resp.Body, nil
}

var (
	_ catalog.Source             = (*Client)(nil)
	_ inventory.ProfileSource    = (*Client)(nil)
	_ inventory.ItemMover        = (*Client)(nil)
	_ inventory.AnnotationSource = (*Client)(nil)
)
