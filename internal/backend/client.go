// Package backend talks to the remote POS API that owns products and
// persisted transactions. This service keeps no durable state of its own;
// everything it records ends up behind this client.
package backend

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

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/leafline/backend-leafline/internal/tax"
)

// ErrNotFound indicates the remote API has no record for the identifier.
var ErrNotFound = errors.New("backend: not found")

// ErrConflict indicates the remote API already accepted this submission,
// typically a sale resubmitted for the same cart.
var ErrConflict = errors.New("backend: conflict")

// Product is a catalog entry as the remote API exposes it. Weight is the
// unit weight in grams, zero for non-weight-based items.
type Product struct {
	ID       string          `json:"id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Weight   decimal.Decimal `json:"weight"`
}

// SaleLine is one sold line with the tax breakdown frozen at sale time.
type SaleLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Weight    decimal.Decimal `json:"weight"`
	Qty       int64           `json:"qty"`
	Taxes     tax.ItemTax     `json:"taxes"`
}

// Sale is a completed POS transaction submitted for persistence.
type Sale struct {
	ID          string      `json:"id,omitempty"`
	Number      string      `json:"number,omitempty"`
	CartID      string      `json:"cartId"`
	Register    string      `json:"register,omitempty"`
	Lines       []SaleLine  `json:"lines"`
	Totals      tax.CartTax `json:"totals"`
	CompletedAt time.Time   `json:"completedAt"`
}

// Client is the behaviour the rest of the service needs from the remote API.
type Client interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
	CreateSale(ctx context.Context, sale Sale) (Sale, error)
	GetSale(ctx context.Context, id string) (Sale, error)
	ListSales(ctx context.Context, from, to time.Time) ([]Sale, error)
}

// HTTPClient implements Client over the remote REST API.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Breaker *Breaker
}

// NewHTTPClient constructs a client with a bounded request timeout. Outbound
// calls are traced so a checkout span carries through to the remote API.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Breaker: NewBreaker(0, 0, 0, zerolog.Nop()),
	}
}

func (c *HTTPClient) ListProducts(ctx context.Context) ([]Product, error) {
	var out struct {
		Data []Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/products", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, id string) (Product, error) {
	var out struct {
		Data Product `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/products/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return Product{}, err
	}
	return out.Data, nil
}

func (c *HTTPClient) CreateSale(ctx context.Context, sale Sale) (Sale, error) {
	var out struct {
		Data Sale `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sales", nil, sale, &out); err != nil {
		return Sale{}, err
	}
	return out.Data, nil
}

func (c *HTTPClient) GetSale(ctx context.Context, id string) (Sale, error) {
	var out struct {
		Data Sale `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sales/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return Sale{}, err
	}
	return out.Data, nil
}

func (c *HTTPClient) ListSales(ctx context.Context, from, to time.Time) ([]Sale, error) {
	query := url.Values{}
	if !from.IsZero() {
		query.Set("from", from.Format(time.RFC3339))
	}
	if !to.IsZero() {
		query.Set("to", to.Format(time.RFC3339))
	}
	var out struct {
		Data []Sale `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sales", query, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if c == nil || c.BaseURL == "" {
		return errors.New("backend client not configured")
	}
	if !c.Breaker.allow() {
		return ErrCircuitOpen
	}
	err := c.doOnce(ctx, method, path, query, body, out)
	// Expected API answers are not dependency failures.
	c.Breaker.report(err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict))
	return err
}

func (c *HTTPClient) doOnce(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("backend: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
