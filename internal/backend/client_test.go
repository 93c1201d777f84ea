package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/leafline/backend-leafline/internal/backend"
)

func TestHTTPClientListProducts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/products", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "p-1", "name": "Sunset Sherbet 3.5g", "category": "flower", "price": "40", "weight": "3.5"},
			},
		})
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "secret", time.Second)
	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "flower", products[0].Category)
	require.True(t, products[0].Price.Equal(decimal.RequireFromString("40")))
}

func TestHTTPClientNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "", time.Second)
	_, err := client.GetProduct(context.Background(), "missing")
	require.ErrorIs(t, err, backend.ErrNotFound)
}

func TestHTTPClientCreateSale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/sales", r.URL.Path)
		var sale backend.Sale
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sale))
		sale.ID = "s-1"
		sale.Number = "INV-00001"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": sale})
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "", time.Second)
	created, err := client.CreateSale(context.Background(), backend.Sale{CartID: "c-1"})
	require.NoError(t, err)
	require.Equal(t, "s-1", created.ID)
	require.Equal(t, "INV-00001", created.Number)
}

func TestHTTPClientListSalesRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NotEmpty(t, r.URL.Query().Get("from"))
		require.NotEmpty(t, r.URL.Query().Get("to"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []backend.Sale{}})
	}))
	defer srv.Close()

	client := backend.NewHTTPClient(srv.URL, "", time.Second)
	sales, err := client.ListSales(context.Background(), time.Now().Add(-time.Hour), time.Now())
	require.NoError(t, err)
	require.Empty(t, sales)
}

func TestHTTPClientTracesOutboundCalls(t *testing.T) {
	client := backend.NewHTTPClient("https://pos.example.com", "", 0)
	require.NotNil(t, client.HTTP)
	_, ok := client.HTTP.Transport.(*otelhttp.Transport)
	require.True(t, ok, "outbound transport should carry trace instrumentation")
}

func TestMockClientSalesRoundTrip(t *testing.T) {
	mock := backend.NewMockClient()
	ctx := context.Background()

	products, err := mock.ListProducts(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, products)

	sale, err := mock.CreateSale(ctx, backend.Sale{CartID: "c-1"})
	require.NoError(t, err)
	require.NotEmpty(t, sale.ID)
	require.Equal(t, "INV-00001", sale.Number)

	loaded, err := mock.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, sale.Number, loaded.Number)

	_, err = mock.CreateSale(ctx, backend.Sale{CartID: "c-1"})
	require.ErrorIs(t, err, backend.ErrConflict)

	_, err = mock.GetSale(ctx, "nope")
	require.ErrorIs(t, err, backend.ErrNotFound)
}
