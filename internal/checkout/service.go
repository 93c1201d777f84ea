// Package checkout turns an open cart into a completed sale. The sale is
// submitted to the remote backend inline; if the backend is unreachable the
// sale is queued for background delivery so the register never blocks.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/cart"
	"github.com/leafline/backend-leafline/internal/jobs"
	"github.com/leafline/backend-leafline/internal/obs"
)

// ErrEmptyCart is returned when checkout is attempted on a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrDuplicate is returned when the backend already holds a sale for the cart.
var ErrDuplicate = errors.New("cart already checked out")

// Sale sync statuses reported to the register.
const (
	StatusSynced = "synced"
	StatusQueued = "queued"
)

// Queue is the slice of the jobs client checkout needs.
type Queue interface {
	EnqueueSaleSync(ctx context.Context, payload jobs.SaleSyncPayload) (*asynq.TaskInfo, error)
}

// Input is the checkout request.
type Input struct {
	CartID string `json:"cartId"`
}

// Output is the completed sale plus how it reached the backend.
type Output struct {
	Sale   backend.Sale `json:"sale"`
	Status string       `json:"status"`
}

// Service coordinates cart, backend and the retry queue.
type Service struct {
	Carts   *cart.Service
	Backend backend.Client
	Queue   Queue
	Logger  zerolog.Logger
	Now     func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create completes the sale for the given cart. The cart is cleared once the
// sale is either accepted by the backend or safely queued for retry.
func (s *Service) Create(ctx context.Context, in Input) (Output, error) {
	if s == nil || s.Carts == nil || s.Backend == nil {
		return Output{}, errors.New("checkout service not configured")
	}
	cartID, err := uuid.Parse(in.CartID)
	if err != nil {
		return Output{}, fmt.Errorf("invalid cart id: %w", cart.ErrInvalidInput)
	}
	snap, err := s.Carts.Get(cartID)
	if err != nil {
		return Output{}, err
	}
	if len(snap.Lines) == 0 {
		obs.CountCheckout("empty")
		return Output{}, ErrEmptyCart
	}

	sale := buildSale(snap, s.now())

	created, err := s.Backend.CreateSale(ctx, sale)
	if err == nil {
		if clearErr := s.Carts.Clear(cartID); clearErr != nil {
			s.Logger.Warn().Err(clearErr).Str("cart_id", cartID.String()).Msg("checkout: clear cart after sale")
		}
		obs.CountCheckout(StatusSynced)
		return Output{Sale: created, Status: StatusSynced}, nil
	}
	if errors.Is(err, backend.ErrConflict) {
		obs.CountCheckout("duplicate")
		return Output{}, ErrDuplicate
	}
	if s.Queue == nil {
		obs.CountCheckout("failed")
		return Output{}, fmt.Errorf("submit sale: %w", err)
	}

	// Backend is down. Queue the fully-priced sale and let the worker
	// deliver it; the register keeps serving customers.
	sale.ID = uuid.NewString()
	if _, qErr := s.Queue.EnqueueSaleSync(ctx, jobs.SaleSyncPayload{Sale: sale}); qErr != nil {
		obs.CountCheckout("failed")
		return Output{}, fmt.Errorf("submit sale: %w (queue also failed: %v)", err, qErr)
	}
	s.Logger.Warn().Err(err).Str("sale_id", sale.ID).Msg("checkout: backend unavailable, sale queued")
	if clearErr := s.Carts.Clear(cartID); clearErr != nil {
		s.Logger.Warn().Err(clearErr).Str("cart_id", cartID.String()).Msg("checkout: clear cart after queue")
	}
	obs.CountCheckout(StatusQueued)
	return Output{Sale: sale, Status: StatusQueued}, nil
}

// buildSale freezes the snapshot's lines and totals into a backend sale.
func buildSale(snap cart.Snapshot, completedAt time.Time) backend.Sale {
	lines := make([]backend.SaleLine, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		lines = append(lines, backend.SaleLine{
			ProductID: line.ProductID,
			Name:      line.Name,
			Category:  line.Category,
			UnitPrice: line.UnitPrice,
			Weight:    line.Weight,
			Qty:       line.Qty,
			Taxes:     line.Taxes,
		})
	}
	return backend.Sale{
		CartID:      snap.Cart.ID.String(),
		Register:    snap.Cart.Register,
		Lines:       lines,
		Totals:      snap.Totals,
		CompletedAt: completedAt,
	}
}
