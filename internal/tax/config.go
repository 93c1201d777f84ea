package tax

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Cultivation rate buckets. Concentrates, edibles and similar manufactured
// forms are carried in the rate table for completeness but are taxed at the
// manufacturer, so their retail per-gram rate stays zero.
const (
	FormKeyFlower      = "flower"
	FormKeyTrim        = "trim"
	FormKeyConcentrate = "concentrate"
	FormKeyEdible      = "edible"
	FormKeyPreroll     = "preroll"
)

// RateLayer is one toggleable percentage tax. Rates are plain percentages:
// 15 means 15%, never 0.15.
type RateLayer struct {
	Enabled bool            `json:"enabled"`
	Rate    decimal.Decimal `json:"rate"`
}

// SalesConfig holds the three independently toggleable sales tax jurisdictions.
type SalesConfig struct {
	State  RateLayer `json:"state"`
	County RateLayer `json:"county"`
	City   RateLayer `json:"city"`
}

// CultivationConfig holds the weight-based tax table in currency per gram.
type CultivationConfig struct {
	Enabled bool                       `json:"enabled"`
	Rates   map[string]decimal.Decimal `json:"rates"`
}

// Config is the full tax configuration read by the calculators.
type Config struct {
	Excise      RateLayer         `json:"exciseTax"`
	Sales       SalesConfig       `json:"salesTax"`
	Cultivation CultivationConfig `json:"cultivationTax"`
}

// Patch is a partial configuration update. A nil field keeps the current
// sub-object; a non-nil field replaces it wholesale, including any layers the
// caller omitted.
type Patch struct {
	Excise      *RateLayer         `json:"exciseTax,omitempty"`
	Sales       *SalesConfig       `json:"salesTax,omitempty"`
	Cultivation *CultivationConfig `json:"cultivationTax,omitempty"`
}

// DefaultConfig returns the rates the store boots with before an operator
// pushes their own via the settings API.
func DefaultConfig() Config {
	return Config{
		Excise: RateLayer{Enabled: true, Rate: decimal.NewFromInt(15)},
		Sales: SalesConfig{
			State:  RateLayer{Enabled: true, Rate: decimal.RequireFromString("8.5")},
			County: RateLayer{Enabled: true, Rate: decimal.RequireFromString("1.5")},
			City:   RateLayer{Enabled: true, Rate: decimal.RequireFromString("0.5")},
		},
		Cultivation: CultivationConfig{
			Enabled: true,
			Rates: map[string]decimal.Decimal{
				FormKeyFlower:      decimal.RequireFromString("0.35"),
				FormKeyPreroll:     decimal.RequireFromString("0.35"),
				FormKeyTrim:        decimal.RequireFromString("0.10"),
				FormKeyConcentrate: decimal.Zero,
				FormKeyEdible:      decimal.Zero,
			},
		},
	}
}

// Store is the single mutable holder of the live tax configuration. The
// calculators themselves take a Config value, so tests can run in parallel
// with distinct configurations; the store only serialises the one writer
// against the many readers an HTTP server brings.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// NewStore seeds a store with the provided configuration.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cloneConfig(cfg)}
}

// Apply merges a partial update into the live configuration. Top-level fields
// present in the patch replace the corresponding sub-object wholesale; the
// store performs no range validation (see the settings handler for that).
func (s *Store) Apply(p Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Excise != nil {
		s.cfg.Excise = *p.Excise
	}
	if p.Sales != nil {
		s.cfg.Sales = *p.Sales
	}
	if p.Cultivation != nil {
		s.cfg.Cultivation = CultivationConfig{
			Enabled: p.Cultivation.Enabled,
			Rates:   cloneRates(p.Cultivation.Rates),
		}
	}
}

// Rates returns a copy of the current configuration. The cultivation map is
// copied too, so readers never share state with a concurrent Apply.
func (s *Store) Rates() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.cfg)
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Cultivation.Rates = cloneRates(cfg.Cultivation.Rates)
	return out
}

func cloneRates(rates map[string]decimal.Decimal) map[string]decimal.Decimal {
	if rates == nil {
		return nil
	}
	out := make(map[string]decimal.Decimal, len(rates))
	for key, rate := range rates {
		out[key] = rate
	}
	return out
}
