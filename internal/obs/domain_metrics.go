package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartQuoteTotal counts cart quote computations by outcome.
	CartQuoteTotal *prometheus.CounterVec
	// CartQuoteDuration records quote latency in milliseconds.
	CartQuoteDuration prometheus.Histogram
	// DiscountAppliedTotal counts applied discounts by kind and type.
	DiscountAppliedTotal *prometheus.CounterVec
	// DiscountRejectedTotal counts discounts excluded during eligibility or validation.
	DiscountRejectedTotal *prometheus.CounterVec
	// InventoryAdjustmentTotal counts stock adjustments by mode and outcome.
	InventoryAdjustmentTotal *prometheus.CounterVec
	// OrdersPlacedTotal counts successful checkouts.
	OrdersPlacedTotal prometheus.Counter
	// CatalogCacheTotal counts catalog cache lookups by result.
	CatalogCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartQuoteTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_quote_total",
			Help:      "Count of cart quote computations by outcome.",
		}, []string{"result"})
		CartQuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_quote_duration_ms",
			Help:      "Cart quote computation latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		})
		DiscountAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_applied_total",
			Help:      "Count of discounts applied to quoted lines.",
		}, []string{"kind", "type"})
		DiscountRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discount_rejected_total",
			Help:      "Count of discounts excluded from quotes by reason.",
		}, []string{"reason"})
		InventoryAdjustmentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inventory_adjustment_total",
			Help:      "Count of stock adjustments by mode and outcome.",
		}, []string{"mode", "result"})
		OrdersPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed.",
		})
		CatalogCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_total",
			Help:      "Catalog cache lookups by result.",
		}, []string{"result"})

		CartQuoteTotal = registerOrReuse(reg, CartQuoteTotal)
		CartQuoteDuration = registerOrReuse(reg, CartQuoteDuration)
		DiscountAppliedTotal = registerOrReuse(reg, DiscountAppliedTotal)
		DiscountRejectedTotal = registerOrReuse(reg, DiscountRejectedTotal)
		InventoryAdjustmentTotal = registerOrReuse(reg, InventoryAdjustmentTotal)
		OrdersPlacedTotal = registerOrReuse(reg, OrdersPlacedTotal)
		CatalogCacheTotal = registerOrReuse(reg, CatalogCacheTotal)
	})
}
