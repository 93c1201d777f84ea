// Package cart keeps the live POS cart state. Carts are in-memory only: the
// remote backend persists nothing until checkout submits a completed sale,
// so a cart and its tax totals are always recomputed from scratch.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/catalog"
	"github.com/leafline/backend-leafline/internal/obs"
	"github.com/leafline/backend-leafline/internal/tax"
)

// ErrNotFound indicates the requested cart or item could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// ProductSource resolves products for cart additions.
type ProductSource interface {
	Product(ctx context.Context, id string) (backend.Product, error)
}

// Item is one cart line. Price, category and weight are frozen at add time
// from the catalog.
type Item struct {
	ID        uuid.UUID       `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Weight    decimal.Decimal `json:"weight"`
	Qty       int64           `json:"qty"`
}

// TaxLine converts the item into the engine's input shape.
func (it Item) TaxLine() tax.LineItem {
	return tax.LineItem{
		Category: it.Category,
		Pricing:  tax.PricingOption{Price: it.UnitPrice, Weight: it.Weight},
		Quantity: it.Qty,
	}
}

// Cart is a register's open basket.
type Cart struct {
	ID        uuid.UUID `json:"id"`
	Register  string    `json:"register"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LineView pairs a cart line with its computed tax breakdown.
type LineView struct {
	Item
	Taxes tax.ItemTax `json:"taxes"`
}

// Snapshot is a cart plus totals computed against the live tax configuration.
type Snapshot struct {
	Cart   Cart        `json:"cart"`
	Lines  []LineView  `json:"lines"`
	Totals tax.CartTax `json:"totals"`
}

// Service encapsulates cart domain operations.
type Service struct {
	Products ProductSource
	Taxes    *tax.Store
	TTL      time.Duration
	Now      func() time.Time

	mu    sync.Mutex
	carts map[uuid.UUID]*Cart
}

// NewService constructs a cart service.
func NewService(products ProductSource, taxes *tax.Store, ttl time.Duration) *Service {
	return &Service{
		Products: products,
		Taxes:    taxes,
		TTL:      ttl,
		carts:    make(map[uuid.UUID]*Cart),
	}
}

func (s *Service) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create opens a new cart for the given register.
func (s *Service) Create(register string) (Snapshot, error) {
	if s == nil || s.carts == nil {
		return Snapshot{}, errors.New("cart service not configured")
	}
	now := s.now()
	cart := &Cart{
		ID:        uuid.New(),
		Register:  register,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	s.mu.Lock()
	s.carts[cart.ID] = cart
	s.mu.Unlock()
	return s.snapshot(cart), nil
}

// Get returns the cart with fresh tax totals.
func (s *Service) Get(cartID uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.locked(cartID)
	if err != nil {
		return Snapshot{}, err
	}
	return s.snapshot(cart), nil
}

// AddItem inserts or increments a cart line, resolving the product through
// the catalog.
func (s *Service) AddItem(ctx context.Context, cartID uuid.UUID, productID string, qty int64) (Snapshot, error) {
	if qty <= 0 {
		return Snapshot{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	if s == nil || s.Products == nil {
		return Snapshot{}, errors.New("cart service not configured")
	}
	product, err := s.Products.Product(ctx, productID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) || errors.Is(err, catalog.ErrNotFound) {
			return Snapshot{}, fmt.Errorf("unknown product %q: %w", productID, ErrInvalidInput)
		}
		return Snapshot{}, fmt.Errorf("resolve product: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.locked(cartID)
	if err != nil {
		return Snapshot{}, err
	}
	for i := range cart.Items {
		if cart.Items[i].ProductID == product.ID {
			cart.Items[i].Qty += qty
			s.touch(cart)
			return s.snapshot(cart), nil
		}
	}
	cart.Items = append(cart.Items, Item{
		ID:        uuid.New(),
		ProductID: product.ID,
		Name:      product.Name,
		Category:  product.Category,
		UnitPrice: product.Price,
		Weight:    product.Weight,
		Qty:       qty,
	})
	s.touch(cart)
	return s.snapshot(cart), nil
}

// UpdateQty updates the quantity for a cart line.
func (s *Service) UpdateQty(cartID, itemID uuid.UUID, qty int64) (Snapshot, error) {
	if qty <= 0 {
		return Snapshot{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.locked(cartID)
	if err != nil {
		return Snapshot{}, err
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items[i].Qty = qty
			s.touch(cart)
			return s.snapshot(cart), nil
		}
	}
	return Snapshot{}, ErrNotFound
}

// RemoveItem deletes a cart line.
func (s *Service) RemoveItem(cartID, itemID uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cart, err := s.locked(cartID)
	if err != nil {
		return Snapshot{}, err
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			s.touch(cart)
			return s.snapshot(cart), nil
		}
	}
	return Snapshot{}, ErrNotFound
}

// Clear empties and removes the cart. Used after a successful checkout.
func (s *Service) Clear(cartID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.locked(cartID); err != nil {
		return err
	}
	delete(s.carts, cartID)
	return nil
}

// locked resolves a live cart; the caller must hold s.mu.
func (s *Service) locked(cartID uuid.UUID) (*Cart, error) {
	if s == nil || s.carts == nil {
		return nil, errors.New("cart service not configured")
	}
	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrNotFound
	}
	if !cart.ExpiresAt.IsZero() && cart.ExpiresAt.Before(s.now()) {
		delete(s.carts, cartID)
		return nil, ErrNotFound
	}
	return cart, nil
}

func (s *Service) touch(cart *Cart) {
	now := s.now()
	cart.UpdatedAt = now
	cart.ExpiresAt = now.Add(s.ttl())
}

// snapshot recomputes totals for the cart from the live tax configuration.
func (s *Service) snapshot(cart *Cart) Snapshot {
	var cfg tax.Config
	if s.Taxes != nil {
		cfg = s.Taxes.Rates()
	}
	copied := *cart
	copied.Items = make([]Item, len(cart.Items))
	copy(copied.Items, cart.Items)

	lines := make([]LineView, 0, len(copied.Items))
	taxLines := make([]tax.LineItem, 0, len(copied.Items))
	for _, item := range copied.Items {
		line := item.TaxLine()
		taxLines = append(taxLines, line)
		lines = append(lines, LineView{Item: item, Taxes: tax.CalculateItem(cfg, line)})
	}
	totals := tax.CalculateCart(cfg, taxLines)
	if obs.TaxRecalcTotal != nil {
		obs.TaxRecalcTotal.Inc()
	}
	return Snapshot{Cart: copied, Lines: lines, Totals: totals}
}
