// Package client is the admin-side API client: a session-scoped HTTP
// wrapper with a single silent token-refresh retry, plus the CSV import
// staging that feeds the bulk endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Henri-Kulmala/ProductManager/internal/models"
)

// APIError is any non-2xx answer that is not an auth failure.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

func New(baseURL string, session *Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
	}
}

// do runs one authenticated request. On a 401 it refreshes the session and
// retries exactly once; a second 401 (or a 403) is a fatal auth error. The
// retry budget of one is what keeps an expired refresh token from looping.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token := c.session.Token()
	if token == "" {
		return ErrNotAuthenticated
	}

	resp, err := c.send(ctx, method, path, body, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		if err := c.session.Refresh(ctx); err != nil {
			return ErrNotAuthenticated
		}
		resp, err = c.send(ctx, method, path, body, c.session.Token())
		if err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrNotAuthenticated
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body interface{}, token string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// ListOptions narrows the product listing.
type ListOptions struct {
	Search string
	Limit  int
	Cursor string
}

func (c *Client) ListProducts(ctx context.Context, opts ListOptions) (*models.ListResponse, error) {
	params := url.Values{}
	if opts.Search != "" {
		params.Set("search", opts.Search)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		params.Set("cursor", opts.Cursor)
	}
	path := "/api/products"
	if q := params.Encode(); q != "" {
		path += "?" + q
	}

	var resp models.ListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, in models.ProductInput) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPost, "/api/products", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	var p models.Product
	if err := c.do(ctx, http.MethodPut, "/api/products/"+url.PathEscape(id), patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil)
}

func (c *Client) BulkImport(ctx context.Context, products []models.ProductInput) (*models.BulkResponse, error) {
	var resp models.BulkResponse
	err := c.do(ctx, http.MethodPost, "/api/products/bulk", models.BulkRequest{Products: products}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteProducts removes the selected ids one at a time, in order. Every id
// is attempted even after a failure; the count of completed deletions comes
// back together with the first error so the caller knows both what happened
// and what went wrong first.
func (c *Client) DeleteProducts(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	var firstErr error
	for _, id := range ids {
		if err := c.DeleteProduct(ctx, id); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("delete %s: %w", id, err)
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}
