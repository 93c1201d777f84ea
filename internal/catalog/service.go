// Package catalog exposes the product menu the POS sells from. Products are
// owned by the remote backend; this service layers a short-lived cache on top
// so cart and checkout lookups stay cheap.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/leafline/backend-leafline/internal/backend"
)

// ErrNotFound indicates the requested product does not exist upstream.
var ErrNotFound = errors.New("product not found")

const listCacheKey = "products"

// Service resolves products through the backend client with caching.
type Service struct {
	Backend backend.Client
	Cache   *Cache
}

// NewService wires a catalog service.
func NewService(client backend.Client, cache *Cache) (*Service, error) {
	if client == nil {
		return nil, errors.New("catalog: backend client is required")
	}
	return &Service{Backend: client, Cache: cache}, nil
}

// List returns the full product menu.
func (s *Service) List(ctx context.Context) ([]backend.Product, error) {
	if s == nil || s.Backend == nil {
		return nil, errors.New("catalog service not configured")
	}
	var cached []backend.Product
	if ok, err := s.Cache.GetJSON(ctx, listCacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	products, err := s.Backend.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	_ = s.Cache.SetJSON(ctx, listCacheKey, products)
	return products, nil
}

// Product resolves a single product by ID.
func (s *Service) Product(ctx context.Context, id string) (backend.Product, error) {
	if s == nil || s.Backend == nil {
		return backend.Product{}, errors.New("catalog service not configured")
	}
	if id == "" {
		return backend.Product{}, ErrNotFound
	}
	var cached backend.Product
	if ok, err := s.Cache.GetJSON(ctx, "product:"+id, &cached); err == nil && ok {
		return cached, nil
	}
	product, err := s.Backend.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			return backend.Product{}, ErrNotFound
		}
		return backend.Product{}, fmt.Errorf("get product: %w", err)
	}
	_ = s.Cache.SetJSON(ctx, "product:"+id, product)
	return product, nil
}
