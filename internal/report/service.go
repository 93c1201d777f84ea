// Package report aggregates persisted sales into the tax remittance summary
// an operator files from: collected amounts per layer, per day and for the
// whole requested range.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/leafline/backend-leafline/internal/backend"
)

// ErrInvalidRange is returned for an empty or inverted date range.
var ErrInvalidRange = errors.New("invalid report range")

// Totals is the collected tax breakdown for one bucket.
type Totals struct {
	Sales       int64           `json:"sales"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Cultivation decimal.Decimal `json:"cultivation"`
	Excise      decimal.Decimal `json:"excise"`
	StateSales  decimal.Decimal `json:"stateSales"`
	CountySales decimal.Decimal `json:"countySales"`
	CitySales   decimal.Decimal `json:"citySales"`
	TotalTax    decimal.Decimal `json:"totalTax"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

func (t *Totals) add(sale backend.Sale) {
	t.Sales++
	t.Subtotal = t.Subtotal.Add(sale.Totals.Subtotal)
	t.Cultivation = t.Cultivation.Add(sale.Totals.Taxes.Cultivation)
	t.Excise = t.Excise.Add(sale.Totals.Taxes.Excise)
	t.StateSales = t.StateSales.Add(sale.Totals.Taxes.Sales.State)
	t.CountySales = t.CountySales.Add(sale.Totals.Taxes.Sales.County)
	t.CitySales = t.CitySales.Add(sale.Totals.Taxes.Sales.City)
	t.TotalTax = t.TotalTax.Add(sale.Totals.Taxes.Total)
	t.GrandTotal = t.GrandTotal.Add(sale.Totals.GrandTotal)
}

// DayTotals is one day's bucket keyed by the sale's UTC date.
type DayTotals struct {
	Date string `json:"date"`
	Totals
}

// TaxReport is the full response for a range query.
type TaxReport struct {
	From  string      `json:"from"`
	To    string      `json:"to"`
	Days  []DayTotals `json:"days"`
	Range Totals      `json:"range"`
}

// Service reads sales from the backend and folds them into reports.
type Service struct {
	Backend backend.Client
}

// Taxes builds the remittance report for [from, to].
func (s *Service) Taxes(ctx context.Context, from, to time.Time) (TaxReport, error) {
	if s == nil || s.Backend == nil {
		return TaxReport{}, errors.New("report service not configured")
	}
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return TaxReport{}, ErrInvalidRange
	}
	sales, err := s.Backend.ListSales(ctx, from, to)
	if err != nil {
		return TaxReport{}, fmt.Errorf("list sales: %w", err)
	}

	byDay := make(map[string]*Totals)
	var rangeTotals Totals
	for _, sale := range sales {
		rangeTotals.add(sale)
		day := sale.CompletedAt.UTC().Format("2006-01-02")
		bucket, ok := byDay[day]
		if !ok {
			bucket = &Totals{}
			byDay[day] = bucket
		}
		bucket.add(sale)
	}

	days := make([]DayTotals, 0, len(byDay))
	for day, totals := range byDay {
		days = append(days, DayTotals{Date: day, Totals: *totals})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })

	return TaxReport{
		From:  from.UTC().Format(time.RFC3339),
		To:    to.UTC().Format(time.RFC3339),
		Days:  days,
		Range: rangeTotals,
	}, nil
}
