// Package jobs holds the asynq task definitions and the background worker
// that retries sale submissions the register could not deliver inline.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/obs"
)

const (
	// QueueDefault is the queue all register tasks run on.
	QueueDefault = "default"
	// TaskTypeSaleSync retries pushing a completed sale to the backend.
	TaskTypeSaleSync = "sale:sync"
)

// SaleSyncPayload carries the full sale so the worker can resubmit it
// without any local persistence.
type SaleSyncPayload struct {
	Sale backend.Sale `json:"sale"`
}

// NewSaleSyncTask builds an asynq task from the sale.
func NewSaleSyncTask(payload SaleSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal sale sync payload: %w", err)
	}
	return asynq.NewTask(TaskTypeSaleSync, data), nil
}

// SaleSyncHandler resubmits sales to the backend.
type SaleSyncHandler struct {
	Backend backend.Client
	Logger  zerolog.Logger
}

// ProcessTask handles TaskTypeSaleSync. Malformed payloads are dropped
// rather than retried; backend failures surface to asynq for retry with
// backoff.
func (h *SaleSyncHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if h == nil || h.Backend == nil {
		return errors.New("sale sync handler not configured")
	}
	var payload SaleSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.Logger.Error().Err(err).Msg("sale sync: bad payload, dropping")
		obs.CountSaleSync("dropped")
		return fmt.Errorf("unmarshal sale sync payload: %w", asynq.SkipRetry)
	}
	if _, err := h.Backend.CreateSale(ctx, payload.Sale); err != nil {
		if errors.Is(err, backend.ErrConflict) {
			// Already accepted on a previous attempt.
			obs.CountSaleSync("duplicate")
			return nil
		}
		h.Logger.Warn().Err(err).Str("sale_id", payload.Sale.ID).Msg("sale sync: backend rejected, will retry")
		obs.CountSaleSync("retry")
		return fmt.Errorf("create sale %s: %w", payload.Sale.ID, err)
	}
	h.Logger.Info().Str("sale_id", payload.Sale.ID).Msg("sale sync: delivered")
	obs.CountSaleSync("ok")
	return nil
}
