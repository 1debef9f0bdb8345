package rules

import (
	"fmt"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

// Preset is a fixed, code-defined rule. Presets hardcode their
// thresholds and are not editable by tenants.
type Preset struct {
	ID          string
	Name        string
	Description string
	Category    domain.PresetCategory
	Evaluate    func(m domain.ProfitMetrics) domain.RuleEvaluationResult
}

// ProtectionPresets guard against losses.
var ProtectionPresets = []Preset{
	{
		ID:          "protect_negative_roas",
		Name:        "Negative ROAS Protection",
		Description: "Pause campaigns with ROAS below 1.0 for 3+ days",
		Category:    domain.PresetProtection,
		Evaluate: func(m domain.ProfitMetrics) domain.RuleEvaluationResult {
			triggered := m.MetaROAS < 1.0
			reason := "ROAS is healthy"
			if triggered {
				reason = fmt.Sprintf("ROAS is %.2f, below breakeven", m.MetaROAS)
			}
			return domain.RuleEvaluationResult{
				ID:        "protect_negative_roas",
				Name:      "Negative ROAS Protection",
				Triggered: triggered,
				Reason:    reason,
			}
		},
	},
	{
		// Keyed on LTV:CAC rather than a raw CAC threshold; the
		// ratio serves as the acquisition-cost proxy here.
		ID:          "protect_high_cac",
		Name:        "High CAC Protection",
		Description: "Alert when CAC exceeds 3x target",
		Category:    domain.PresetProtection,
		Evaluate: func(m domain.ProfitMetrics) domain.RuleEvaluationResult {
			triggered := m.LTVToCAC < 1.5
			reason := "CAC is within acceptable range"
			if triggered {
				reason = fmt.Sprintf("LTV:CAC ratio is %.2f, too low", m.LTVToCAC)
			}
			return domain.RuleEvaluationResult{
				ID:        "protect_high_cac",
				Name:      "High CAC Protection",
				Triggered: triggered,
				Reason:    reason,
			}
		},
	},
	{
		ID:          "protect_mer_drop",
		Name:        "MER Drop Protection",
		Description: "Alert on significant MER decline",
		Category:    domain.PresetProtection,
		Evaluate: func(m domain.ProfitMetrics) domain.RuleEvaluationResult {
			triggered := m.MER < 2.0
			reason := "MER is healthy"
			if triggered {
				reason = fmt.Sprintf("MER is %.2f, below healthy threshold", m.MER)
			}
			return domain.RuleEvaluationResult{
				ID:        "protect_mer_drop",
				Name:      "MER Drop Protection",
				Triggered: triggered,
				Reason:    reason,
			}
		},
	},
}

// ScalingPresets identify growth opportunities.
var ScalingPresets = []Preset{
	{
		ID:          "scale_high_roas",
		Name:        "High ROAS Scaling",
		Description: "Scale budget for campaigns with ROAS > 3.0",
		Category:    domain.PresetScaling,
		Evaluate: func(m domain.ProfitMetrics) domain.RuleEvaluationResult {
			triggered := m.MetaROAS > 3.0
			reason := "ROAS not high enough for scaling"
			if triggered {
				reason = fmt.Sprintf("ROAS is %.2f, eligible for scaling", m.MetaROAS)
			}
			return domain.RuleEvaluationResult{
				ID:        "scale_high_roas",
				Name:      "High ROAS Scaling",
				Triggered: triggered,
				Reason:    reason,
			}
		},
	},
	{
		ID:          "scale_profitable_mer",
		Name:        "Profitable MER Scaling",
		Description: "Scale when MER indicates healthy efficiency",
		Category:    domain.PresetScaling,
		Evaluate: func(m domain.ProfitMetrics) domain.RuleEvaluationResult {
			triggered := m.MER > 3.5 && m.LTVToCAC > 3.0
			reason := "Metrics not strong enough for aggressive scaling"
			if m.MER > 3.5 {
				reason = fmt.Sprintf("MER %.2f with LTV:CAC %.2f - scale opportunity", m.MER, m.LTVToCAC)
			}
			return domain.RuleEvaluationResult{
				ID:        "scale_profitable_mer",
				Name:      "Profitable MER Scaling",
				Triggered: triggered,
				Reason:    reason,
			}
		},
	},
}

// FatiguePresets detect creative exhaustion. These need timeseries
// data the evaluation snapshot does not carry yet, so they never
// trigger.
var FatiguePresets = []Preset{
	{
		ID:          "fatigue_declining_roas",
		Name:        "Declining ROAS Alert",
		Description: "Alert when ROAS trends downward consistently",
		Category:    domain.PresetFatigue,
		Evaluate: func(m domain.ProfitMetrics) domain.RuleEvaluationResult {
			return domain.RuleEvaluationResult{
				ID:        "fatigue_declining_roas",
				Name:      "Declining ROAS Alert",
				Triggered: false,
				Reason:    "Requires timeseries data for trend analysis",
			}
		},
	},
}

// RevivalPresets recover underperformers. Never trigger for the same
// reason as the fatigue presets.
var RevivalPresets = []Preset{
	{
		ID:          "revival_paused_winners",
		Name:        "Paused Winners Revival",
		Description: "Suggest testing paused ads that were previously profitable",
		Category:    domain.PresetRevival,
		Evaluate: func(m domain.ProfitMetrics) domain.RuleEvaluationResult {
			return domain.RuleEvaluationResult{
				ID:        "revival_paused_winners",
				Name:      "Paused Winners Revival",
				Triggered: false,
				Reason:    "Requires historical performance data",
			}
		},
	},
}

func evaluatePresetList(presets []Preset, m domain.ProfitMetrics) []domain.RuleEvaluationResult {
	results := make([]domain.RuleEvaluationResult, 0, len(presets))
	for _, p := range presets {
		results = append(results, p.Evaluate(m))
	}
	return results
}
