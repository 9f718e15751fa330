// Package client is a Go client for the vault inventory HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vyrodovalexey/vault-inventory/internal/auth"
	"github.com/vyrodovalexey/vault-inventory/internal/model"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// DefaultTimeout bounds each request when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// ErrEmptyBaseURL is returned by New when no server address is given.
var ErrEmptyBaseURL = errors.New("server URL must not be empty")

// APIError is a non-2xx response that does not map to a vault error.
type APIError struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server returned %d: %s (%s)", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Client calls the vault API. Not-found and duplicate responses are
// returned as *vault.NotFoundError and *vault.DuplicateIDError so callers
// handle remote and in-process vaults alike.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sends key in the X-API-Key header of every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// List returns all items in vault order.
func (c *Client) List(ctx context.Context) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/api/v1/items", nil, &items); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// Get returns the item with the given id.
func (c *Client) Get(ctx context.Context, id int64) (model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodGet, itemPath(id), nil, &item); err != nil {
		return model.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	return item, nil
}

// Insert adds a new item to the vault.
func (c *Client) Insert(ctx context.Context, id int64, value float64) (model.Item, error) {
	body := model.CreateItemRequest{ID: &id, Value: &value}
	if err := body.Validate(); err != nil {
		return model.Item{}, fmt.Errorf("insert item %d: %w", id, err)
	}

	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/api/v1/items", body, &item); err != nil {
		return model.Item{}, fmt.Errorf("insert item %d: %w", id, err)
	}
	return item, nil
}

// Revalue sets a new value on an existing item.
func (c *Client) Revalue(ctx context.Context, id int64, value float64) (model.Item, error) {
	body := model.RevalueRequest{Value: &value}
	if err := body.Validate(); err != nil {
		return model.Item{}, fmt.Errorf("revalue item %d: %w", id, err)
	}

	var item model.Item
	if err := c.do(ctx, http.MethodPut, itemPath(id), body, &item); err != nil {
		return model.Item{}, fmt.Errorf("revalue item %d: %w", id, err)
	}
	return item, nil
}

// Remove deletes an item and returns it.
func (c *Client) Remove(ctx context.Context, id int64) (model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodDelete, itemPath(id), nil, &item); err != nil {
		return model.Item{}, fmt.Errorf("remove item %d: %w", id, err)
	}
	return item, nil
}

// Total returns the item count and total value of the vault.
func (c *Client) Total(ctx context.Context) (model.VaultSummary, error) {
	var summary model.VaultSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/vault/total", nil, &summary); err != nil {
		return model.VaultSummary{}, fmt.Errorf("total value: %w", err)
	}
	return summary, nil
}

// Render returns the text rendering of the vault without the trailing newline.
func (c *Client) Render(ctx context.Context) (string, error) {
	resp, err := c.send(ctx, http.MethodGet, "/api/v1/vault/render", nil)
	if err != nil {
		return "", fmt.Errorf("render vault: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render vault: %w", decodeError(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("render vault: reading body: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// do sends a JSON request and decodes the data field of the response
// envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	envelope := model.APIResponse[json.RawMessage]{}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !envelope.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("decoding response data: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set(auth.APIKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decodeError turns an error response into a vault error when the server
// identified one, or an *APIError otherwise.
func decodeError(resp *http.Response) error {
	var body model.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Message == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if body.ID != nil {
		switch body.Name {
		case vault.NotFoundErrorName:
			return &vault.NotFoundError{ID: *body.ID}
		case vault.DuplicateIDErrorName:
			return &vault.DuplicateIDError{ID: *body.ID}
		}
	}

	return &APIError{StatusCode: resp.StatusCode, Message: body.Message, Details: body.Details}
}

func itemPath(id int64) string {
	return "/api/v1/items/" + strconv.FormatInt(id, 10)
}
