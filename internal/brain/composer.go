// Package brain composes triggered rules, health assessment, and
// optional LLM output into ranked recommendations.
package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
	"github.com/shopify-ad-intelligence/adbrain/internal/metrics"
	"github.com/shopify-ad-intelligence/adbrain/internal/rules"
	"github.com/shopify-ad-intelligence/adbrain/internal/trend"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("adbrain-brain")

// Composer produces unified recommendation output. It never fails a
// request: AI failure degrades to the rule-based path, and absent
// trend data degrades to a zero-change context.
type Composer struct {
	engine    *rules.Engine
	trends    *trend.Service
	completer domain.Completer
	lookback  time.Duration
}

// NewComposer creates a composer. trends and completer may be nil;
// without a configured completer only the rule-based path runs.
func NewComposer(engine *rules.Engine, trends *trend.Service, completer domain.Completer, lookback time.Duration) *Composer {
	if lookback <= 0 {
		lookback = 30 * 24 * time.Hour
	}
	return &Composer{
		engine:    engine,
		trends:    trends,
		completer: completer,
		lookback:  lookback,
	}
}

// Params are the inputs for one recommendation request.
type Params struct {
	TenantID       string
	Metrics        domain.ProfitMetrics
	TrackingHealth *domain.TrackingHealth
	RecentActions  []string
}

// GetRecommendations returns ranked recommendations for a tenant. The
// rule-based output is always computed; when an LLM credential is
// configured the AI-enhanced output replaces it, and any AI failure
// falls back to the rule-based result.
func (c *Composer) GetRecommendations(ctx context.Context, params Params) *domain.BrainOutput {
	ctx, span := tracer.Start(ctx, "brain.recommendations",
		trace.WithAttributes(attribute.String("tenant.id", params.TenantID)),
	)
	defer span.End()

	health := metrics.AssessHealth(params.Metrics)
	summary := c.engine.EvaluateAll(params.Metrics, nil)

	out := c.ruleBased(params, health, summary)

	if c.completer != nil && c.completer.Configured() {
		enhanced, err := c.enhance(ctx, params, health, summary)
		if err != nil {
			slog.Warn("AI recommendations failed, using rule-based output",
				"tenant_id", params.TenantID,
				"error", err,
			)
			span.SetAttributes(attribute.String("brain.path", "rules"))
			return out
		}
		span.SetAttributes(attribute.String("brain.path", "ai"))
		return enhanced
	}

	span.SetAttributes(attribute.String("brain.path", "rules"))
	return out
}

// ruleBased converts triggered rules, health issues, and opportunities
// into recommendations with a templated summary.
func (c *Composer) ruleBased(params Params, health domain.HealthAssessment, summary domain.RulesSummary) *domain.BrainOutput {
	recommendations := make([]domain.Recommendation, 0, len(summary.Triggered)+len(health.Issues)+len(health.Opportunities))

	for _, rule := range summary.Triggered {
		isProtection := strings.HasPrefix(rule.ID, "protect")
		isScaling := strings.HasPrefix(rule.ID, "scale")

		recType := domain.RecommendMonitor
		if isProtection {
			recType = domain.RecommendPause
		} else if isScaling {
			recType = domain.RecommendScale
		}

		priority := domain.PriorityMedium
		impact := "Potential revenue increase"
		if isProtection {
			priority = domain.PriorityHigh
			impact = "Prevent further losses"
		}

		recommendations = append(recommendations, domain.Recommendation{
			ID:             "rec_" + rule.ID,
			Type:           recType,
			Priority:       priority,
			Title:          rule.Name,
			Description:    rule.Reason,
			ExpectedImpact: impact,
		})
	}

	for _, issue := range health.Issues {
		if containsDescription(recommendations, issue) {
			continue
		}
		recommendations = append(recommendations, domain.Recommendation{
			ID:             "rec_health_" + uuid.New().String(),
			Type:           domain.RecommendFix,
			Priority:       domain.PriorityHigh,
			Title:          "Address Performance Issue",
			Description:    issue,
			ExpectedImpact: "Improve overall efficiency",
		})
	}

	for _, opportunity := range health.Opportunities {
		recommendations = append(recommendations, domain.Recommendation{
			ID:             "rec_opp_" + uuid.New().String(),
			Type:           domain.RecommendScale,
			Priority:       domain.PriorityMedium,
			Title:          "Growth Opportunity",
			Description:    opportunity,
			ExpectedImpact: "Potential revenue growth",
		})
	}

	actions := make([]string, 0, len(recommendations))
	for _, r := range recommendations {
		actions = append(actions, r.Title)
	}

	return &domain.BrainOutput{
		Input:           c.buildInput(params),
		Summary:         composeSummary(params.Metrics, health, len(summary.Triggered)),
		Recommendations: recommendations,
		Actions:         actions,
	}
}

// containsDescription reports whether any recommendation's description
// already covers the issue text.
func containsDescription(recs []domain.Recommendation, issue string) bool {
	for _, r := range recs {
		if strings.Contains(r.Description, issue) {
			return true
		}
	}
	return false
}

// composeSummary renders the plain-language account summary.
func composeSummary(m domain.ProfitMetrics, health domain.HealthAssessment, triggeredCount int) string {
	status := "needs attention"
	switch health.Overall {
	case domain.HealthHealthy:
		status = "performing well"
	case domain.HealthWarning:
		status = "showing some concerns"
	}

	parts := []string{
		fmt.Sprintf("Your ad account is %s.", status),
		fmt.Sprintf("Current MER: %.2f, ROAS: %.2f, LTV:CAC: %.2f.", m.MER, m.MetaROAS, m.LTVToCAC),
	}

	if triggeredCount > 0 {
		parts = append(parts, fmt.Sprintf("%d rule(s) triggered requiring action.", triggeredCount))
	}
	if len(health.Issues) > 0 {
		parts = append(parts, "Key issue: "+health.Issues[0])
	}
	if len(health.Opportunities) > 0 {
		parts = append(parts, "Opportunity: "+health.Opportunities[0])
	}

	return strings.Join(parts, " ")
}

func (c *Composer) buildInput(params Params) domain.BrainInput {
	return domain.BrainInput{
		ShopID:  params.TenantID,
		Metrics: params.Metrics,
		Context: domain.BrainContext{
			TrackingHealth: params.TrackingHealth,
			RecentActions:  params.RecentActions,
		},
	}
}

// promptContext is the user-prompt payload for the AI path.
type promptContext struct {
	Metrics        domain.ProfitMetrics          `json:"metrics"`
	Trends         map[string]domain.MetricDelta `json:"trends,omitempty"`
	Health         domain.HealthAssessment       `json:"health"`
	TriggeredRules []domain.RuleEvaluationResult `json:"triggeredRules"`
	TrackingHealth *domain.TrackingHealth        `json:"trackingHealth,omitempty"`
	RecentActions  []string                      `json:"recentActions,omitempty"`
}

// aiResponse is the strict JSON shape the model must return.
type aiResponse struct {
	Summary         string             `json:"summary"`
	Recommendations []aiRecommendation `json:"recommendations"`
	Actions         []string           `json:"actions"`
}

type aiRecommendation struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	ExpectedImpact string `json:"expectedImpact"`
}

// enhance runs the AI path: enriched context in, strict JSON out.
// Validation failures surface as errors so the caller falls back.
func (c *Composer) enhance(ctx context.Context, params Params, health domain.HealthAssessment, summary domain.RulesSummary) (*domain.BrainOutput, error) {
	pc := promptContext{
		Metrics:        params.Metrics,
		Health:         health,
		TriggeredRules: summary.Triggered,
		TrackingHealth: params.TrackingHealth,
		RecentActions:  params.RecentActions,
	}

	// Trend context is best effort: a store failure degrades to a
	// promptless trend section, not a failed request.
	if c.trends != nil {
		deltas, err := c.trends.Deltas(ctx, params.TenantID, c.lookback)
		if err != nil {
			slog.Debug("trend context unavailable",
				"tenant_id", params.TenantID,
				"error", err,
			)
		} else {
			pc.Trends = deltas
		}
	}

	contextJSON, err := json.Marshal(pc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prompt context: %w", err)
	}

	userPrompt := "Given this account state:\n" + string(contextJSON) + "\n\n" + responseInstructions

	raw, err := c.completer.CompleteJSON(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	var resp aiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("malformed completion JSON: %w", err)
	}
	if resp.Summary == "" || len(resp.Recommendations) == 0 {
		return nil, fmt.Errorf("completion missing summary or recommendations")
	}

	recommendations := make([]domain.Recommendation, 0, len(resp.Recommendations))
	for _, r := range resp.Recommendations {
		id := r.ID
		if id == "" {
			id = "rec_ai_" + uuid.New().String()
		}
		recommendations = append(recommendations, domain.Recommendation{
			ID:             id,
			Type:           normalizeType(r.Type),
			Priority:       normalizePriority(r.Priority),
			Title:          r.Title,
			Description:    r.Description,
			ExpectedImpact: r.ExpectedImpact,
		})
	}

	actions := resp.Actions
	if actions == nil {
		actions = []string{}
	}

	return &domain.BrainOutput{
		Input:           c.buildInput(params),
		Summary:         resp.Summary,
		Recommendations: recommendations,
		Actions:         actions,
	}, nil
}

// normalizeType maps free-form model output onto the fixed
// recommendation types, defaulting to monitor.
func normalizeType(s string) domain.RecommendationType {
	switch domain.RecommendationType(strings.ToLower(strings.TrimSpace(s))) {
	case domain.RecommendScale:
		return domain.RecommendScale
	case domain.RecommendPause:
		return domain.RecommendPause
	case domain.RecommendTest:
		return domain.RecommendTest
	case domain.RecommendFix:
		return domain.RecommendFix
	case domain.RecommendMonitor:
		return domain.RecommendMonitor
	default:
		return domain.RecommendMonitor
	}
}

// normalizePriority maps free-form model output onto the fixed
// priorities, defaulting to medium.
func normalizePriority(s string) domain.RecommendationPriority {
	switch domain.RecommendationPriority(strings.ToLower(strings.TrimSpace(s))) {
	case domain.PriorityHigh:
		return domain.PriorityHigh
	case domain.PriorityMedium:
		return domain.PriorityMedium
	case domain.PriorityLow:
		return domain.PriorityLow
	default:
		return domain.PriorityMedium
	}
}
