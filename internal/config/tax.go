package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leafline/backend-leafline/internal/tax"
)

// TaxConfig builds the boot-time tax configuration: the engine defaults with
// any TAX_* environment overrides applied on top. Operators normally push
// rates through the settings API; the env overrides exist so a deployment can
// come up with jurisdiction-correct rates before anyone logs in.
func (c *Config) TaxConfig() tax.Config {
	cfg := tax.DefaultConfig()

	overrideLayer(&cfg.Excise, "TAX_EXCISE")
	overrideLayer(&cfg.Sales.State, "TAX_SALES_STATE")
	overrideLayer(&cfg.Sales.County, "TAX_SALES_COUNTY")
	overrideLayer(&cfg.Sales.City, "TAX_SALES_CITY")

	if v, ok := lookupBool("TAX_CULTIVATION_ENABLED"); ok {
		cfg.Cultivation.Enabled = v
	}
	for _, form := range []string{tax.FormKeyFlower, tax.FormKeyTrim, tax.FormKeyConcentrate, tax.FormKeyEdible, tax.FormKeyPreroll} {
		if rate, ok := lookupDecimal("TAX_CULTIVATION_" + strings.ToUpper(form) + "_RATE"); ok {
			cfg.Cultivation.Rates[form] = rate
		}
	}
	return cfg
}

func overrideLayer(layer *tax.RateLayer, prefix string) {
	if v, ok := lookupBool(prefix + "_ENABLED"); ok {
		layer.Enabled = v
	}
	if rate, ok := lookupDecimal(prefix + "_RATE"); ok {
		layer.Rate = rate
	}
}

func envValue(key string) string {
	return os.Getenv(key)
}

func lookupDecimal(key string) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(envValue(key))
	if raw == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(raw)
	if err != nil || d.IsNegative() {
		return decimal.Decimal{}, false
	}
	return d, true
}

func lookupBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(envValue(key))) {
	case "1", "t", "true", "yes", "on":
		return true, true
	case "0", "f", "false", "no", "off":
		return false, true
	}
	return false, false
}
