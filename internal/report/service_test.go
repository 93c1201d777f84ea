package report_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/report"
	"github.com/leafline/backend-leafline/internal/tax"
)

func saleAt(t *testing.T, mock *backend.MockClient, cartID string, completed time.Time, lines ...tax.LineItem) backend.Sale {
	t.Helper()
	cfg := tax.DefaultConfig()
	saleLines := make([]backend.SaleLine, 0, len(lines))
	for _, line := range lines {
		saleLines = append(saleLines, backend.SaleLine{
			Category:  line.Category,
			UnitPrice: line.Pricing.Price,
			Weight:    line.Pricing.Weight,
			Qty:       line.Quantity,
			Taxes:     tax.CalculateItem(cfg, line),
		})
	}
	sale, err := mock.CreateSale(context.Background(), backend.Sale{
		CartID:      cartID,
		Lines:       saleLines,
		Totals:      tax.CalculateCart(cfg, lines),
		CompletedAt: completed,
	})
	require.NoError(t, err)
	return sale
}

func flowerLine(qty int64) tax.LineItem {
	return tax.LineItem{
		Category: "flower",
		Pricing:  tax.PricingOption{Price: decimal.NewFromInt(40), Weight: decimal.RequireFromString("3.5")},
		Quantity: qty,
	}
}

func TestTaxesAggregatesByDay(t *testing.T) {
	mock := backend.NewMockClient()
	day1 := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 15, 16, 30, 0, 0, time.UTC)
	saleAt(t, mock, "c-1", day1, flowerLine(2))
	saleAt(t, mock, "c-2", day1.Add(2*time.Hour), flowerLine(2))
	saleAt(t, mock, "c-3", day2, flowerLine(2))

	svc := &report.Service{Backend: mock}
	out, err := svc.Taxes(context.Background(), day1.Add(-time.Hour), day2.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, out.Days, 2)
	require.Equal(t, "2026-03-14", out.Days[0].Date)
	require.EqualValues(t, 2, out.Days[0].Sales)
	require.Equal(t, "2026-03-15", out.Days[1].Date)
	require.EqualValues(t, 1, out.Days[1].Sales)

	// Per-sale: subtotal 80, excise 12, cultivation 2.45, grand 104.11.
	require.True(t, out.Range.Subtotal.Equal(decimal.NewFromInt(240)))
	require.True(t, out.Range.Excise.Equal(decimal.NewFromInt(36)))
	require.True(t, out.Range.Cultivation.Equal(decimal.RequireFromString("7.35")))
	require.True(t, out.Range.GrandTotal.Equal(decimal.RequireFromString("312.33")))
	require.EqualValues(t, 3, out.Range.Sales)

	// Day buckets sum to the range.
	daySum := out.Days[0].GrandTotal.Add(out.Days[1].GrandTotal)
	require.True(t, daySum.Equal(out.Range.GrandTotal))
}

func TestTaxesWindowExcludesOutsideSales(t *testing.T) {
	mock := backend.NewMockClient()
	inside := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	saleAt(t, mock, "c-1", inside, flowerLine(1))
	saleAt(t, mock, "c-2", inside.AddDate(0, 0, 10), flowerLine(1))

	svc := &report.Service{Backend: mock}
	out, err := svc.Taxes(context.Background(), inside.Add(-time.Hour), inside.Add(time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, out.Range.Sales)
}

func TestTaxesRejectsInvertedRange(t *testing.T) {
	svc := &report.Service{Backend: backend.NewMockClient()}
	now := time.Now()
	_, err := svc.Taxes(context.Background(), now, now.Add(-time.Hour))
	require.ErrorIs(t, err, report.ErrInvalidRange)
}

func TestTaxesEmptyRange(t *testing.T) {
	svc := &report.Service{Backend: backend.NewMockClient()}
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out, err := svc.Taxes(context.Background(), from, from.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Empty(t, out.Days)
	require.EqualValues(t, 0, out.Range.Sales)
	require.True(t, out.Range.GrandTotal.IsZero())
}

func TestTaxesHandlerDateParsing(t *testing.T) {
	mock := backend.NewMockClient()
	saleAt(t, mock, "c-1", time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC), flowerLine(1))

	handler := &report.Handler{Svc: &report.Service{Backend: mock}}
	r := chi.NewRouter()
	r.Get("/reports/taxes", handler.Taxes)

	req := httptest.NewRequest(http.MethodGet, "/reports/taxes?from=2026-03-14&to=2026-03-14", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Data report.TaxReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.EqualValues(t, 1, out.Data.Range.Sales, "a bare to-date must cover the whole day")

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/taxes?from=yesterday&to=today", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/taxes?from=2026-03-15&to=2026-03-14", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
