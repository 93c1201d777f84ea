// Package settings exposes the operator-facing tax configuration API.
// Updates are validated at this boundary; the tax store itself accepts any
// rates so the engine stays deterministic for whatever it is given.
package settings

import (
	"errors"
	"fmt"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/leafline/backend-leafline/internal/obs"
	"github.com/leafline/backend-leafline/internal/tax"
)

// ErrInvalidInput is returned when a rate update fails validation.
var ErrInvalidInput = errors.New("invalid tax settings")

// RateLayerInput updates one tax layer. Rate is a percentage.
type RateLayerInput struct {
	Enabled *bool    `json:"enabled"`
	Rate    *float64 `json:"rate" validate:"omitempty,gte=0,lte=100"`
}

// SalesInput updates the sales tax jurisdictions.
type SalesInput struct {
	State  *RateLayerInput `json:"state"`
	County *RateLayerInput `json:"county"`
	City   *RateLayerInput `json:"city"`
}

// CultivationInput updates the cultivation tax. Rates are dollars per gram
// keyed by product form.
type CultivationInput struct {
	Enabled *bool              `json:"enabled"`
	Rates   map[string]float64 `json:"rates" validate:"omitempty,dive,gte=0"`
}

// Input is a partial tax configuration update. Absent sections keep their
// current values; a present section replaces its counterpart wholesale.
type Input struct {
	Excise      *RateLayerInput   `json:"exciseTax"`
	Sales       *SalesInput       `json:"salesTax"`
	Cultivation *CultivationInput `json:"cultivationTax"`
}

// Service validates updates and applies them to the live store.
type Service struct {
	Store    *tax.Store
	Validate *validator.Validate
}

// NewService constructs a settings service with its own validator.
func NewService(store *tax.Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("settings: tax store is required")
	}
	return &Service{Store: store, Validate: validator.New()}, nil
}

// Current returns the live tax configuration.
func (s *Service) Current() (tax.Config, error) {
	if s == nil || s.Store == nil {
		return tax.Config{}, errors.New("settings service not configured")
	}
	return s.Store.Rates(), nil
}

// Update validates and applies a partial configuration change, returning the
// resulting configuration.
func (s *Service) Update(in Input) (tax.Config, error) {
	if s == nil || s.Store == nil {
		return tax.Config{}, errors.New("settings service not configured")
	}
	if err := s.validate(in); err != nil {
		return tax.Config{}, err
	}
	s.Store.Apply(toPatch(in, s.Store.Rates()))
	obs.CountTaxConfigUpdate()
	return s.Store.Rates(), nil
}

// validate walks the whole input, nested sections included.
func (s *Service) validate(in Input) error {
	v := s.Validate
	if v == nil {
		v = validator.New()
	}
	if err := v.Struct(in); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidInput)
	}
	return nil
}

// toPatch converts the request DTO into the store's patch shape. The store
// replaces present sections wholesale, so each section is seeded from the
// current config before the request's fields are overlaid. That keeps the
// API's merge semantics: omitting a field leaves its value alone.
func toPatch(in Input, current tax.Config) tax.Patch {
	var patch tax.Patch
	if in.Excise != nil {
		layer := layerFrom(in.Excise, current.Excise)
		patch.Excise = &layer
	}
	if in.Sales != nil {
		sales := tax.SalesConfig{
			State:  layerFrom(in.Sales.State, current.Sales.State),
			County: layerFrom(in.Sales.County, current.Sales.County),
			City:   layerFrom(in.Sales.City, current.Sales.City),
		}
		patch.Sales = &sales
	}
	if in.Cultivation != nil {
		cultivation := tax.CultivationConfig{
			Enabled: current.Cultivation.Enabled,
			Rates:   map[string]decimal.Decimal{},
		}
		for form, rate := range current.Cultivation.Rates {
			cultivation.Rates[form] = rate
		}
		if in.Cultivation.Enabled != nil {
			cultivation.Enabled = *in.Cultivation.Enabled
		}
		for form, rate := range in.Cultivation.Rates {
			cultivation.Rates[form] = decimal.NewFromFloat(rate)
		}
		patch.Cultivation = &cultivation
	}
	return patch
}

func layerFrom(in *RateLayerInput, base tax.RateLayer) tax.RateLayer {
	out := base
	if in == nil {
		return out
	}
	if in.Enabled != nil {
		out.Enabled = *in.Enabled
	}
	if in.Rate != nil {
		out.Rate = decimal.NewFromFloat(*in.Rate)
	}
	return out
}
