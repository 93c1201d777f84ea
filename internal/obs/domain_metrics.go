package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CheckoutTotal counts POS checkout outcomes.
	CheckoutTotal *prometheus.CounterVec
	// SaleSyncTotal counts sale submissions to the remote backend by outcome.
	SaleSyncTotal *prometheus.CounterVec
	// TaxRecalcTotal counts cart tax recalculations.
	TaxRecalcTotal prometheus.Counter
	// CatalogCacheTotal counts catalog cache lookups by hit/miss.
	CatalogCacheTotal *prometheus.CounterVec
	// TaxConfigUpdateTotal counts operator tax configuration updates.
	TaxConfigUpdateTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Count of checkout attempts by result.",
		}, []string{"result"})
		SaleSyncTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_sync_total",
			Help:      "Count of sale submissions to the remote POS backend by result.",
		}, []string{"result"})
		TaxRecalcTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_recalc_total",
			Help:      "Number of cart tax recalculations performed.",
		})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Catalog cache lookups by hit or miss.",
		}, []string{"result"})
		TaxConfigUpdateTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tax_config_update_total",
			Help:      "Number of applied tax configuration updates.",
		})

		mustRegisterCollector(reg, CheckoutTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CheckoutTotal = v
			}
		})
		mustRegisterCollector(reg, SaleSyncTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SaleSyncTotal = v
			}
		})
		mustRegisterCollector(reg, TaxRecalcTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				TaxRecalcTotal = v
			}
		})
		mustRegisterCollector(reg, CatalogCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogCacheTotal = v
			}
		})
		mustRegisterCollector(reg, TaxConfigUpdateTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				TaxConfigUpdateTotal = v
			}
		})
	})
}

// CountCheckout records a checkout attempt outcome. Safe to call before
// MustRegisterDomainMetrics, which makes handlers testable in isolation.
func CountCheckout(result string) {
	if CheckoutTotal != nil {
		CheckoutTotal.WithLabelValues(result).Inc()
	}
}

// CountSaleSync records a sale submission outcome.
func CountSaleSync(result string) {
	if SaleSyncTotal != nil {
		SaleSyncTotal.WithLabelValues(result).Inc()
	}
}

// CountCatalogCache records a catalog cache hit or miss.
func CountCatalogCache(result string) {
	if CatalogCacheTotal != nil {
		CatalogCacheTotal.WithLabelValues(result).Inc()
	}
}

// CountTaxConfigUpdate records an applied tax configuration change.
func CountTaxConfigUpdate() {
	if TaxConfigUpdateTotal != nil {
		TaxConfigUpdateTotal.Inc()
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
