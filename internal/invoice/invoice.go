// Package invoice renders a completed sale as a customer-facing receipt
// document: formatted currency strings and the tax breakdown, no layout.
package invoice

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/tax"
)

// Line is one receipt row.
type Line struct {
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	Qty       int64           `json:"qty"`
	UnitPrice string          `json:"unitPrice"`
	Subtotal  string          `json:"subtotal"`
	Tax       string          `json:"tax"`
	Total     string          `json:"total"`
	RawTotal  decimal.Decimal `json:"rawTotal"`
}

// TaxSummary is the cart-level tax breakdown with formatted amounts.
type TaxSummary struct {
	Cultivation string `json:"cultivation"`
	Excise      string `json:"excise"`
	StateSales  string `json:"stateSales"`
	CountySales string `json:"countySales"`
	CitySales   string `json:"citySales"`
	TotalTax    string `json:"totalTax"`
}

// Document is the full receipt for one sale.
type Document struct {
	SaleID      string     `json:"saleId"`
	Number      string     `json:"number"`
	Register    string     `json:"register,omitempty"`
	CompletedAt string     `json:"completedAt"`
	Lines       []Line     `json:"lines"`
	Subtotal    string     `json:"subtotal"`
	Taxes       TaxSummary `json:"taxes"`
	GrandTotal  string     `json:"grandTotal"`
}

// Build assembles the receipt document from a persisted sale.
func Build(sale backend.Sale) Document {
	lines := make([]Line, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		lines = append(lines, Line{
			Name:      l.Name,
			Category:  l.Category,
			Qty:       l.Qty,
			UnitPrice: tax.FormatCurrency(l.UnitPrice),
			Subtotal:  tax.FormatCurrency(l.Taxes.Subtotal),
			Tax:       tax.FormatCurrency(l.Taxes.Taxes.Total),
			Total:     tax.FormatCurrency(l.Taxes.GrandTotal),
			RawTotal:  l.Taxes.GrandTotal,
		})
	}
	completed := ""
	if !sale.CompletedAt.IsZero() {
		completed = sale.CompletedAt.UTC().Format("2006-01-02 15:04:05 MST")
	}
	return Document{
		SaleID:      sale.ID,
		Number:      sale.Number,
		Register:    sale.Register,
		CompletedAt: completed,
		Lines:       lines,
		Subtotal:    tax.FormatCurrency(sale.Totals.Subtotal),
		Taxes: TaxSummary{
			Cultivation: tax.FormatCurrency(sale.Totals.Taxes.Cultivation),
			Excise:      tax.FormatCurrency(sale.Totals.Taxes.Excise),
			StateSales:  tax.FormatCurrency(sale.Totals.Taxes.Sales.State),
			CountySales: tax.FormatCurrency(sale.Totals.Taxes.Sales.County),
			CitySales:   tax.FormatCurrency(sale.Totals.Taxes.Sales.City),
			TotalTax:    tax.FormatCurrency(sale.Totals.Taxes.Total),
		},
		GrandTotal: tax.FormatCurrency(sale.Totals.GrandTotal),
	}
}

// Title is the receipt heading, e.g. "Receipt INV-00042".
func (d Document) Title() string {
	if d.Number == "" {
		return "Receipt"
	}
	return fmt.Sprintf("Receipt %s", d.Number)
}
