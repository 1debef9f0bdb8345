// Package metrics derives profit-efficiency metrics from raw counters.
package metrics

import (
	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

// Compute derives a ProfitMetrics snapshot from raw input. It never
// fails: absent counters are zero, and every division is guarded so a
// zero denominator yields zero rather than NaN or infinity. Downstream
// threshold comparisons rely on that zero default.
func Compute(input domain.RawMetricsInput) domain.ProfitMetrics {
	effectiveTotalSpend := input.TotalMarketingSpend
	if effectiveTotalSpend == 0 {
		effectiveTotalSpend = input.Spend
	}

	var aov float64
	if input.Orders > 0 {
		aov = input.Revenue / float64(input.Orders)
	}

	var cac float64
	if input.Customers > 0 {
		cac = effectiveTotalSpend / float64(input.Customers)
	}

	var mer float64
	if effectiveTotalSpend > 0 {
		mer = input.Revenue / effectiveTotalSpend
	}

	var metaRoas float64
	if input.Spend > 0 {
		metaRoas = input.Revenue / input.Spend
	}

	// Estimate LTV as 1.5x AOV when the caller supplies none.
	effectiveLtv := input.LTV
	if effectiveLtv == 0 {
		effectiveLtv = aov * 1.5
	}

	var ltvToCac float64
	if cac > 0 {
		ltvToCac = effectiveLtv / cac
	}

	return domain.ProfitMetrics{
		Spend:               input.Spend,
		Revenue:             input.Revenue,
		Orders:              input.Orders,
		Customers:           input.Customers,
		TotalMarketingSpend: effectiveTotalSpend,
		MER:                 mer,
		MetaROAS:            metaRoas,
		CAC:                 cac,
		AOV:                 aov,
		LTV:                 effectiveLtv,
		LTVToCAC:            ltvToCac,
		PaybackDays:         input.PaybackDays,
	}
}

// Compare calculates per-field movement between two snapshots, keyed by
// the canonical metric names. A zero previous value yields a zero
// percent change.
func Compare(current, previous domain.ProfitMetrics) map[string]domain.MetricDelta {
	result := make(map[string]domain.MetricDelta, len(domain.MetricNames))

	for _, name := range domain.MetricNames {
		currentVal, _ := current.Value(name)
		prevVal, _ := previous.Value(name)
		change := currentVal - prevVal

		var changePercent float64
		if prevVal != 0 {
			changePercent = change / prevVal * 100
		}

		result[name] = domain.MetricDelta{
			Value:         currentVal,
			Change:        change,
			ChangePercent: changePercent,
		}
	}

	return result
}
