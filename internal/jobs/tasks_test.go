package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/jobs"
)

type failingBackend struct {
	backend.Client
	err error
}

func (f *failingBackend) CreateSale(ctx context.Context, sale backend.Sale) (backend.Sale, error) {
	return backend.Sale{}, f.err
}

func TestSaleSyncDelivers(t *testing.T) {
	mock := backend.NewMockClient()
	handler := &jobs.SaleSyncHandler{Backend: mock, Logger: zerolog.Nop()}

	task, err := jobs.NewSaleSyncTask(jobs.SaleSyncPayload{Sale: backend.Sale{
		CartID:      "c-42",
		Register:    "front",
		CompletedAt: time.Now().UTC(),
	}})
	require.NoError(t, err)

	require.NoError(t, handler.ProcessTask(context.Background(), task))

	sales, err := mock.ListSales(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, "c-42", sales[0].CartID)
}

func TestSaleSyncDuplicateIsSuccess(t *testing.T) {
	mock := backend.NewMockClient()
	handler := &jobs.SaleSyncHandler{Backend: mock, Logger: zerolog.Nop()}

	task, err := jobs.NewSaleSyncTask(jobs.SaleSyncPayload{Sale: backend.Sale{CartID: "c-1"}})
	require.NoError(t, err)

	require.NoError(t, handler.ProcessTask(context.Background(), task))
	// A second delivery of the same cart must not error, or asynq would
	// retry it forever.
	require.NoError(t, handler.ProcessTask(context.Background(), task))

	sales, err := mock.ListSales(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
}

func TestSaleSyncBadPayloadSkipsRetry(t *testing.T) {
	handler := &jobs.SaleSyncHandler{Backend: backend.NewMockClient(), Logger: zerolog.Nop()}
	task := asynq.NewTask(jobs.TaskTypeSaleSync, []byte("{not json"))

	err := handler.ProcessTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSaleSyncBackendFailureRetries(t *testing.T) {
	boom := errors.New("upstream down")
	handler := &jobs.SaleSyncHandler{
		Backend: &failingBackend{err: boom},
		Logger:  zerolog.Nop(),
	}

	task, err := jobs.NewSaleSyncTask(jobs.SaleSyncPayload{Sale: backend.Sale{ID: "s-9", CartID: "c-9"}})
	require.NoError(t, err)

	err = handler.ProcessTask(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, boom)
}
