package settings_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/leafline/backend-leafline/internal/settings"
	"github.com/leafline/backend-leafline/internal/tax"
)

func ptr[T any](v T) *T { return &v }

func newService(t *testing.T) (*settings.Service, *tax.Store) {
	t.Helper()
	store := tax.NewStore(tax.DefaultConfig())
	svc, err := settings.NewService(store)
	require.NoError(t, err)
	return svc, store
}

func TestUpdateExciseRate(t *testing.T) {
	svc, store := newService(t)

	cfg, err := svc.Update(settings.Input{
		Excise: &settings.RateLayerInput{Rate: ptr(10.0)},
	})
	require.NoError(t, err)
	require.True(t, cfg.Excise.Enabled, "omitting enabled must keep the current value")
	require.True(t, cfg.Excise.Rate.Equal(decimal.NewFromInt(10)))
	require.True(t, store.Rates().Excise.Rate.Equal(decimal.NewFromInt(10)))
}

func TestUpdateDisableJurisdiction(t *testing.T) {
	svc, _ := newService(t)

	cfg, err := svc.Update(settings.Input{
		Sales: &settings.SalesInput{City: &settings.RateLayerInput{Enabled: ptr(false)}},
	})
	require.NoError(t, err)
	require.False(t, cfg.Sales.City.Enabled)
	// Untouched jurisdictions keep their defaults.
	require.True(t, cfg.Sales.State.Enabled)
	require.True(t, cfg.Sales.State.Rate.Equal(decimal.RequireFromString("8.5")))
	require.True(t, cfg.Sales.County.Enabled)
}

func TestUpdateCultivationRates(t *testing.T) {
	svc, _ := newService(t)

	cfg, err := svc.Update(settings.Input{
		Cultivation: &settings.CultivationInput{Rates: map[string]float64{"flower": 0.5}},
	})
	require.NoError(t, err)
	require.True(t, cfg.Cultivation.Enabled)
	require.True(t, cfg.Cultivation.Rates["flower"].Equal(decimal.RequireFromString("0.5")))
	// Forms not named in the update keep their current rates.
	require.True(t, cfg.Cultivation.Rates["trim"].Equal(decimal.RequireFromString("0.1")))
}

func TestUpdateRejectsOutOfRangePercent(t *testing.T) {
	svc, store := newService(t)
	before := store.Rates()

	_, err := svc.Update(settings.Input{
		Excise: &settings.RateLayerInput{Rate: ptr(150.0)},
	})
	require.ErrorIs(t, err, settings.ErrInvalidInput)

	_, err = svc.Update(settings.Input{
		Sales: &settings.SalesInput{State: &settings.RateLayerInput{Rate: ptr(-1.0)}},
	})
	require.ErrorIs(t, err, settings.ErrInvalidInput)

	require.True(t, store.Rates().Excise.Rate.Equal(before.Excise.Rate), "rejected updates must not change the store")
}

func TestUpdateRejectsNegativeCultivationRate(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.Update(settings.Input{
		Cultivation: &settings.CultivationInput{Rates: map[string]float64{"flower": -0.25}},
	})
	require.ErrorIs(t, err, settings.ErrInvalidInput)
}

func newSettingsRouter(t *testing.T) (*chi.Mux, *tax.Store) {
	t.Helper()
	svc, store := newService(t)
	handler := &settings.Handler{Svc: svc}
	r := chi.NewRouter()
	r.Get("/settings/taxes", handler.Taxes)
	r.Put("/settings/taxes", handler.UpdateTaxes)
	return r, store
}

func TestTaxesEndpointRoundTrip(t *testing.T) {
	router, _ := newSettingsRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/settings/taxes", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var current struct {
		Data struct {
			Excise struct {
				Enabled bool   `json:"enabled"`
				Rate    string `json:"rate"`
			} `json:"exciseTax"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &current))
	require.True(t, current.Data.Excise.Enabled)
	require.Equal(t, "15", current.Data.Excise.Rate)

	body := []byte(`{"exciseTax":{"rate":12.5}}`)
	req = httptest.NewRequest(http.MethodPut, "/settings/taxes", bytes.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &current))
	require.Equal(t, "12.5", current.Data.Excise.Rate)
}

func TestTaxesEndpointValidation(t *testing.T) {
	router, store := newSettingsRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/settings/taxes", bytes.NewReader([]byte(`{"exciseTax":{"rate":200}}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.True(t, store.Rates().Excise.Rate.Equal(decimal.NewFromInt(15)))
}

func TestTaxesEndpointRejectsUnknownFields(t *testing.T) {
	router, _ := newSettingsRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/settings/taxes", bytes.NewReader([]byte(`{"vatTax":{"rate":5}}`)))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}
