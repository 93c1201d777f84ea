// Package tax implements the cannabis tax calculation rules: cultivation tax
// on weight, excise tax on the retail price, and multi-jurisdiction sales tax
// compounded on top of excise. The calculators are pure functions over a
// Config snapshot and never return errors; malformed input degrades to zero.
package tax

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PricingOption carries the unit price and, for weight-based products, the
// unit weight in grams. Zero values stand in for data missing upstream.
type PricingOption struct {
	Price  decimal.Decimal `json:"price"`
	Weight decimal.Decimal `json:"weight"`
}

// LineItem is one cart line as seen by the engine. The engine does not own or
// validate it beyond zero-coercion of the numeric fields.
type LineItem struct {
	Category string        `json:"category"`
	Pricing  PricingOption `json:"pricingOption"`
	Quantity int64         `json:"quantity"`
}

// SalesTaxes splits sales tax across the jurisdiction layers.
type SalesTaxes struct {
	State  decimal.Decimal `json:"state"`
	County decimal.Decimal `json:"county"`
	City   decimal.Decimal `json:"city"`
	Total  decimal.Decimal `json:"total"`
}

// Taxes groups every tax component computed for a line or a whole cart.
type Taxes struct {
	Cultivation decimal.Decimal `json:"cultivation"`
	Excise      decimal.Decimal `json:"excise"`
	Sales       SalesTaxes      `json:"sales"`
	Total       decimal.Decimal `json:"total"`
}

// ItemTax is the breakdown for a single line item.
type ItemTax struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Taxes         Taxes           `json:"taxes"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
	EffectiveRate decimal.Decimal `json:"effectiveTaxRate"`
}

// CartTax mirrors ItemTax summed across all lines. The effective rate is a
// per-line figure and is not aggregated at cart level.
type CartTax struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Taxes      Taxes           `json:"taxes"`
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// CalculateItem computes the tax breakdown for one line against cfg. The
// steps run in the legally mandated order: the sales tax base includes excise
// tax, and cultivation tax is excluded from both the excise and the sales
// base. That asymmetry is deliberate, not an oversight.
func CalculateItem(cfg Config, item LineItem) ItemTax {
	qty := decimal.NewFromInt(item.Quantity)
	subtotal := item.Pricing.Price.Mul(qty)

	form := ParseForm(item.Category)

	var cultivation decimal.Decimal
	if cfg.Cultivation.Enabled && form.CannabisTaxable() && item.Pricing.Weight.IsPositive() {
		if key := cultivationRateKey(item.Category); key != "" {
			cultivation = item.Pricing.Weight.Mul(cfg.Cultivation.Rates[key]).Mul(qty)
		}
	}

	var excise decimal.Decimal
	if cfg.Excise.Enabled && form.CannabisTaxable() {
		excise = subtotal.Mul(cfg.Excise.Rate).Div(hundred)
	}

	salesBase := subtotal.Add(excise)
	sales := SalesTaxes{
		State:  layerTax(salesBase, cfg.Sales.State),
		County: layerTax(salesBase, cfg.Sales.County),
		City:   layerTax(salesBase, cfg.Sales.City),
	}
	sales.Total = sales.State.Add(sales.County).Add(sales.City)

	total := cultivation.Add(excise).Add(sales.Total)

	var effective decimal.Decimal
	if subtotal.IsPositive() {
		effective = total.Div(subtotal).Mul(hundred)
	}

	return ItemTax{
		Subtotal: subtotal,
		Taxes: Taxes{
			Cultivation: cultivation,
			Excise:      excise,
			Sales:       sales,
			Total:       total,
		},
		GrandTotal:    subtotal.Add(total),
		EffectiveRate: effective,
	}
}

// CalculateCart sums per-line breakdowns into a cart-level result. An empty
// slice yields a well-defined all-zero result with the same shape, and the
// summation is order-independent.
func CalculateCart(cfg Config, items []LineItem) CartTax {
	var out CartTax
	for _, item := range items {
		line := CalculateItem(cfg, item)
		out.Subtotal = out.Subtotal.Add(line.Subtotal)
		out.Taxes.Cultivation = out.Taxes.Cultivation.Add(line.Taxes.Cultivation)
		out.Taxes.Excise = out.Taxes.Excise.Add(line.Taxes.Excise)
		out.Taxes.Sales.State = out.Taxes.Sales.State.Add(line.Taxes.Sales.State)
		out.Taxes.Sales.County = out.Taxes.Sales.County.Add(line.Taxes.Sales.County)
		out.Taxes.Sales.City = out.Taxes.Sales.City.Add(line.Taxes.Sales.City)
		out.Taxes.Sales.Total = out.Taxes.Sales.Total.Add(line.Taxes.Sales.Total)
		out.Taxes.Total = out.Taxes.Total.Add(line.Taxes.Total)
		out.GrandTotal = out.GrandTotal.Add(line.GrandTotal)
	}
	return out
}

func layerTax(base decimal.Decimal, layer RateLayer) decimal.Decimal {
	if !layer.Enabled {
		return decimal.Decimal{}
	}
	return base.Mul(layer.Rate).Div(hundred)
}
