package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockClient serves canned products and keeps sales in memory. Useful for
// development without a remote API and for tests.
type MockClient struct {
	mu       sync.Mutex
	products []Product
	sales    map[string]Sale
	seq      int
}

// NewMockClient seeds a mock with a small dispensary menu.
func NewMockClient() *MockClient {
	price := func(v string) decimal.Decimal { return decimal.RequireFromString(v) }
	return &MockClient{
		products: []Product{
			{ID: "p-flower-eighth", SKU: "FLW-001", Name: "Sunset Sherbet 3.5g", Category: "flower", Price: price("40"), Weight: price("3.5")},
			{ID: "p-preroll", SKU: "PRE-001", Name: "Classic Pre-Roll 1g", Category: "pre-rolls", Price: price("12"), Weight: price("1")},
			{ID: "p-edible", SKU: "EDI-001", Name: "Citrus Gummies 100mg", Category: "edibles", Price: price("18")},
			{ID: "p-concentrate", SKU: "CON-001", Name: "Live Resin 1g", Category: "concentrates", Price: price("55"), Weight: price("1")},
			{ID: "p-vape", SKU: "VAP-001", Name: "Hybrid Cartridge 0.5g", Category: "cartridges", Price: price("35"), Weight: price("0.5")},
			{ID: "p-grinder", SKU: "ACC-001", Name: "Aluminium Grinder", Category: "accessory", Price: price("25")},
		},
		sales: make(map[string]Sale),
	}
}

func (m *MockClient) ListProducts(ctx context.Context) ([]Product, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, len(m.products))
	copy(out, m.products)
	return out, nil
}

func (m *MockClient) GetProduct(ctx context.Context, id string) (Product, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, product := range m.products {
		if product.ID == id {
			return product, nil
		}
	}
	return Product{}, ErrNotFound
}

func (m *MockClient) CreateSale(ctx context.Context, sale Sale) (Sale, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	if sale.CartID != "" {
		for _, existing := range m.sales {
			if existing.CartID == sale.CartID {
				return Sale{}, ErrConflict
			}
		}
	}
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	m.seq++
	sale.Number = fmt.Sprintf("INV-%05d", m.seq)
	if sale.CompletedAt.IsZero() {
		sale.CompletedAt = time.Now().UTC()
	}
	m.sales[sale.ID] = sale
	return sale, nil
}

func (m *MockClient) GetSale(ctx context.Context, id string) (Sale, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	sale, ok := m.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return sale, nil
}

func (m *MockClient) ListSales(ctx context.Context, from, to time.Time) ([]Sale, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sale, 0, len(m.sales))
	for _, sale := range m.sales {
		if !from.IsZero() && sale.CompletedAt.Before(from) {
			continue
		}
		if !to.IsZero() && sale.CompletedAt.After(to) {
			continue
		}
		out = append(out, sale)
	}
	return out, nil
}
