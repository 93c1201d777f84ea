package checkout_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/cart"
	"github.com/leafline/backend-leafline/internal/catalog"
	"github.com/leafline/backend-leafline/internal/checkout"
	"github.com/leafline/backend-leafline/internal/jobs"
	"github.com/leafline/backend-leafline/internal/tax"
)

type downBackend struct {
	backend.Client
}

func (d *downBackend) CreateSale(ctx context.Context, sale backend.Sale) (backend.Sale, error) {
	return backend.Sale{}, errors.New("connection refused")
}

type recordingQueue struct {
	payloads []jobs.SaleSyncPayload
	err      error
}

func (q *recordingQueue) EnqueueSaleSync(ctx context.Context, payload jobs.SaleSyncPayload) (*asynq.TaskInfo, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.payloads = append(q.payloads, payload)
	return &asynq.TaskInfo{ID: uuid.NewString(), Queue: jobs.QueueDefault}, nil
}

func newFixture(t *testing.T, client backend.Client) (*checkout.Service, *cart.Service, uuid.UUID) {
	t.Helper()
	cat, err := catalog.NewService(client, nil)
	require.NoError(t, err)
	carts := cart.NewService(cat, tax.NewStore(tax.DefaultConfig()), time.Hour)

	snap, err := carts.Create("front")
	require.NoError(t, err)
	_, err = carts.AddItem(context.Background(), snap.Cart.ID, "p-flower-eighth", 2)
	require.NoError(t, err)

	svc := &checkout.Service{
		Carts:   carts,
		Backend: client,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) },
	}
	return svc, carts, snap.Cart.ID
}

func TestCheckoutSubmitsInline(t *testing.T) {
	mock := backend.NewMockClient()
	svc, carts, cartID := newFixture(t, mock)

	out, err := svc.Create(context.Background(), checkout.Input{CartID: cartID.String()})
	require.NoError(t, err)
	require.Equal(t, checkout.StatusSynced, out.Status)
	require.Equal(t, "INV-00001", out.Sale.Number)
	require.Len(t, out.Sale.Lines, 1)
	require.Equal(t, "104.11", out.Sale.Totals.GrandTotal.String())
	require.Equal(t, "12", out.Sale.Totals.Taxes.Excise.String())

	// Cart is gone once the sale is accepted.
	_, err = carts.Get(cartID)
	require.ErrorIs(t, err, cart.ErrNotFound)

	sales, err := mock.ListSales(context.Background(), time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, cartID.String(), sales[0].CartID)
}

func TestCheckoutQueuesWhenBackendDown(t *testing.T) {
	catalogSource := backend.NewMockClient()
	svc, carts, cartID := newFixture(t, catalogSource)
	svc.Backend = &downBackend{}
	queue := &recordingQueue{}
	svc.Queue = queue

	out, err := svc.Create(context.Background(), checkout.Input{CartID: cartID.String()})
	require.NoError(t, err)
	require.Equal(t, checkout.StatusQueued, out.Status)
	require.NotEmpty(t, out.Sale.ID)

	require.Len(t, queue.payloads, 1)
	require.Equal(t, out.Sale.ID, queue.payloads[0].Sale.ID)
	require.Equal(t, "104.11", queue.payloads[0].Sale.Totals.GrandTotal.String())

	_, err = carts.Get(cartID)
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCheckoutFailsWhenQueueAlsoDown(t *testing.T) {
	svc, carts, cartID := newFixture(t, backend.NewMockClient())
	svc.Backend = &downBackend{}
	svc.Queue = &recordingQueue{err: errors.New("redis unavailable")}

	_, err := svc.Create(context.Background(), checkout.Input{CartID: cartID.String()})
	require.Error(t, err)

	// Cart must survive so the sale can be retried from the register.
	_, err = carts.Get(cartID)
	require.NoError(t, err)
}

func TestCheckoutEmptyCart(t *testing.T) {
	mock := backend.NewMockClient()
	svc, carts, _ := newFixture(t, mock)
	empty, err := carts.Create("front")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), checkout.Input{CartID: empty.Cart.ID.String()})
	require.ErrorIs(t, err, checkout.ErrEmptyCart)
}

func TestCheckoutUnknownCart(t *testing.T) {
	svc, _, _ := newFixture(t, backend.NewMockClient())
	_, err := svc.Create(context.Background(), checkout.Input{CartID: uuid.NewString()})
	require.ErrorIs(t, err, cart.ErrNotFound)
}

func TestCheckoutInvalidCartID(t *testing.T) {
	svc, _, _ := newFixture(t, backend.NewMockClient())
	_, err := svc.Create(context.Background(), checkout.Input{CartID: "front-register"})
	require.ErrorIs(t, err, cart.ErrInvalidInput)
}

func TestCheckoutDuplicateCart(t *testing.T) {
	mock := backend.NewMockClient()
	svc, carts, cartID := newFixture(t, mock)

	// First submission wins.
	_, err := svc.Create(context.Background(), checkout.Input{CartID: cartID.String()})
	require.NoError(t, err)

	// Rebuild the same cart id server-side is impossible, so simulate the
	// conflict by submitting another cart whose id collides upstream.
	snap, err := carts.Create("front")
	require.NoError(t, err)
	_, err = carts.AddItem(context.Background(), snap.Cart.ID, "p-edible", 1)
	require.NoError(t, err)
	_, err = mock.CreateSale(context.Background(), backend.Sale{CartID: snap.Cart.ID.String()})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), checkout.Input{CartID: snap.Cart.ID.String()})
	require.ErrorIs(t, err, checkout.ErrDuplicate)
}
