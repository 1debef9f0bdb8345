package metrics

import (
	"fmt"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

// Fixed health thresholds. Not tenant-configurable.
const (
	roasBreakeven      = 1.0
	roasScalingFloor   = 3.0
	ltvToCacFloor      = 1.5
	ltvToCacAggressive = 4.0
	merFloor           = 2.0
	paybackDaysCeiling = 90
)

// AssessHealth classifies a metrics snapshot into an overall tier with
// issue and opportunity lists. Checks run in a fixed order and append
// independently; a metric contributes an issue or an opportunity, never
// both.
func AssessHealth(m domain.ProfitMetrics) domain.HealthAssessment {
	var issues []string
	var opportunities []string

	if m.MetaROAS < roasBreakeven {
		issues = append(issues, fmt.Sprintf("ROAS is %.2f, below breakeven", m.MetaROAS))
	} else if m.MetaROAS > roasScalingFloor {
		opportunities = append(opportunities, fmt.Sprintf("High ROAS of %.2f - consider scaling", m.MetaROAS))
	}

	if m.LTVToCAC < ltvToCacFloor {
		issues = append(issues, fmt.Sprintf("LTV:CAC ratio of %.2f is too low", m.LTVToCAC))
	} else if m.LTVToCAC > ltvToCacAggressive {
		opportunities = append(opportunities, fmt.Sprintf("Strong LTV:CAC of %.2f - room for aggressive growth", m.LTVToCAC))
	}

	if m.MER < merFloor {
		issues = append(issues, fmt.Sprintf("MER of %.2f indicates poor efficiency", m.MER))
	}

	if m.PaybackDays > paybackDaysCeiling {
		issues = append(issues, fmt.Sprintf("Payback period of %g days may strain cash flow", m.PaybackDays))
	}

	overall := domain.HealthHealthy
	switch {
	case len(issues) > 2:
		overall = domain.HealthCritical
	case len(issues) > 0:
		overall = domain.HealthWarning
	}

	return domain.HealthAssessment{
		Overall:       overall,
		Issues:        issues,
		Opportunities: opportunities,
	}
}
