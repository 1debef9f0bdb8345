package brain

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
	"github.com/shopify-ad-intelligence/adbrain/internal/rules"
)

// fakeCompleter scripts the LLM collaborator.
type fakeCompleter struct {
	configured bool
	response   []byte
	err        error
	lastUser   string
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func (f *fakeCompleter) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error) {
	f.lastUser = userPrompt
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func newTestComposer(t *testing.T, completer domain.Completer) *Composer {
	t.Helper()
	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return NewComposer(engine, nil, completer, 0)
}

func healthyMetrics() domain.ProfitMetrics {
	return domain.ProfitMetrics{
		Spend: 100, Revenue: 250, Orders: 10, Customers: 5,
		TotalMarketingSpend: 100,
		MER:                 2.5, MetaROAS: 2.5, CAC: 20, AOV: 25,
		LTV: 45, LTVToCAC: 2.25, PaybackDays: 30,
	}
}

func strugglingMetrics() domain.ProfitMetrics {
	return domain.ProfitMetrics{
		Spend: 100, Revenue: 50, Orders: 2, Customers: 1,
		TotalMarketingSpend: 100,
		MER:                 0.5, MetaROAS: 0.5, CAC: 100, AOV: 25,
		LTV: 37.5, LTVToCAC: 0.375, PaybackDays: 30,
	}
}

func TestGetRecommendationsRuleBased(t *testing.T) {
	t.Run("HealthyAccount", func(t *testing.T) {
		composer := newTestComposer(t, nil)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  healthyMetrics(),
		})

		if out == nil {
			t.Fatal("expected output, got nil")
		}
		if out.Input.ShopID != "shop-001" {
			t.Errorf("expected input echo for shop-001, got %s", out.Input.ShopID)
		}
		if !strings.HasPrefix(out.Summary, "Your ad account is performing well.") {
			t.Errorf("unexpected summary: %s", out.Summary)
		}
		if !strings.Contains(out.Summary, "Current MER: 2.50, ROAS: 2.50, LTV:CAC: 2.25.") {
			t.Errorf("summary missing metrics line: %s", out.Summary)
		}
		if len(out.Recommendations) != 0 {
			t.Errorf("expected no recommendations for healthy account, got %+v", out.Recommendations)
		}
	})

	t.Run("StrugglingAccount", func(t *testing.T) {
		composer := newTestComposer(t, nil)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  strugglingMetrics(),
		})

		if !strings.HasPrefix(out.Summary, "Your ad account is needs attention.") &&
			!strings.Contains(out.Summary, "needs attention") {
			t.Errorf("expected needs-attention summary, got: %s", out.Summary)
		}
		if !strings.Contains(out.Summary, "rule(s) triggered requiring action.") {
			t.Errorf("summary missing trigger count: %s", out.Summary)
		}
		if !strings.Contains(out.Summary, "Key issue: ROAS is 0.50, below breakeven") {
			t.Errorf("summary missing key issue: %s", out.Summary)
		}

		if len(out.Recommendations) == 0 {
			t.Fatal("expected recommendations for struggling account")
		}

		// Protection presets produce high-priority pause recommendations
		first := out.Recommendations[0]
		if first.Type != domain.RecommendPause {
			t.Errorf("expected pause recommendation first, got %s", first.Type)
		}
		if first.Priority != domain.PriorityHigh {
			t.Errorf("expected high priority, got %s", first.Priority)
		}
		if first.ExpectedImpact != "Prevent further losses" {
			t.Errorf("unexpected impact: %s", first.ExpectedImpact)
		}

		// Health issues already covered by triggered rules are not duplicated
		for i, a := range out.Recommendations {
			for j, b := range out.Recommendations {
				if i != j && a.Description == b.Description {
					t.Errorf("duplicate recommendation description: %s", a.Description)
				}
			}
		}

		if len(out.Actions) != len(out.Recommendations) {
			t.Errorf("expected one action per recommendation, got %d vs %d", len(out.Actions), len(out.Recommendations))
		}
	})

	t.Run("OpportunityRecommendations", func(t *testing.T) {
		composer := newTestComposer(t, nil)

		m := healthyMetrics()
		m.MetaROAS = 4.0
		m.LTVToCAC = 5.0

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  m,
		})

		var sawScale bool
		for _, r := range out.Recommendations {
			if r.Type == domain.RecommendScale && r.Priority == domain.PriorityMedium {
				sawScale = true
			}
		}
		if !sawScale {
			t.Errorf("expected medium-priority scale recommendation, got %+v", out.Recommendations)
		}
	})

	t.Run("NotConfiguredCompleterSkipsAI", func(t *testing.T) {
		fc := &fakeCompleter{configured: false}
		composer := newTestComposer(t, fc)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  healthyMetrics(),
		})

		if fc.lastUser != "" {
			t.Error("expected completer not to be called when unconfigured")
		}
		if out == nil {
			t.Fatal("expected rule-based output")
		}
	})
}

func TestGetRecommendationsAIPath(t *testing.T) {
	t.Run("EnhancedOutput", func(t *testing.T) {
		fc := &fakeCompleter{
			configured: true,
			response: []byte(`{
				"summary": "Spend is unprofitable; pause the worst campaigns.",
				"recommendations": [
					{"id": "ai-1", "type": "PAUSE", "priority": "HIGH", "title": "Pause campaign X", "description": "ROAS 0.5", "expectedImpact": "Stop losses"}
				],
				"actions": ["Pause campaign X"]
			}`),
		}
		composer := newTestComposer(t, fc)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  strugglingMetrics(),
		})

		if out.Summary != "Spend is unprofitable; pause the worst campaigns." {
			t.Errorf("expected AI summary, got: %s", out.Summary)
		}
		if len(out.Recommendations) != 1 {
			t.Fatalf("expected 1 AI recommendation, got %d", len(out.Recommendations))
		}
		r := out.Recommendations[0]
		if r.ID != "ai-1" {
			t.Errorf("expected ID preserved, got %s", r.ID)
		}
		// Case-insensitive normalization
		if r.Type != domain.RecommendPause {
			t.Errorf("expected normalized pause type, got %s", r.Type)
		}
		if r.Priority != domain.PriorityHigh {
			t.Errorf("expected normalized high priority, got %s", r.Priority)
		}

		if !strings.Contains(fc.lastUser, "Given this account state:") {
			t.Errorf("user prompt missing context preamble: %s", fc.lastUser)
		}
	})

	t.Run("UnknownTypeAndPriorityNormalized", func(t *testing.T) {
		fc := &fakeCompleter{
			configured: true,
			response: []byte(`{
				"summary": "ok",
				"recommendations": [
					{"type": "obliterate", "priority": "urgent", "title": "X", "description": "Y"}
				]
			}`),
		}
		composer := newTestComposer(t, fc)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  healthyMetrics(),
		})

		r := out.Recommendations[0]
		if r.Type != domain.RecommendMonitor {
			t.Errorf("expected unknown type to normalize to monitor, got %s", r.Type)
		}
		if r.Priority != domain.PriorityMedium {
			t.Errorf("expected unknown priority to normalize to medium, got %s", r.Priority)
		}
		if r.ID == "" {
			t.Error("expected generated ID for recommendation without one")
		}
		if out.Actions == nil {
			t.Error("expected non-nil actions")
		}
	})

	t.Run("CompletionErrorFallsBack", func(t *testing.T) {
		fc := &fakeCompleter{
			configured: true,
			err:        errors.New("rate limited"),
		}
		composer := newTestComposer(t, fc)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  strugglingMetrics(),
		})

		// Falls back to the templated rule-based summary
		if !strings.Contains(out.Summary, "Current MER: 0.50") {
			t.Errorf("expected rule-based fallback summary, got: %s", out.Summary)
		}
		if len(out.Recommendations) == 0 {
			t.Error("expected rule-based fallback recommendations")
		}
	})

	t.Run("MalformedJSONFallsBack", func(t *testing.T) {
		fc := &fakeCompleter{
			configured: true,
			response:   []byte("I think you should pause everything!"),
		}
		composer := newTestComposer(t, fc)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  strugglingMetrics(),
		})

		if strings.Contains(out.Summary, "pause everything") {
			t.Error("expected malformed response to be discarded")
		}
		if !strings.Contains(out.Summary, "Current MER: 0.50") {
			t.Errorf("expected rule-based fallback, got: %s", out.Summary)
		}
	})

	t.Run("EmptyRecommendationsFallsBack", func(t *testing.T) {
		fc := &fakeCompleter{
			configured: true,
			response:   []byte(`{"summary": "all good", "recommendations": []}`),
		}
		composer := newTestComposer(t, fc)

		out := composer.GetRecommendations(context.Background(), Params{
			TenantID: "shop-001",
			Metrics:  strugglingMetrics(),
		})

		if out.Summary == "all good" {
			t.Error("expected empty-recommendation response to be rejected")
		}
	})
}

func TestComposeSummary(t *testing.T) {
	m := domain.ProfitMetrics{MER: 2.5, MetaROAS: 2.5, LTVToCAC: 2.25}

	t.Run("Healthy", func(t *testing.T) {
		got := composeSummary(m, domain.HealthAssessment{Overall: domain.HealthHealthy}, 0)
		want := "Your ad account is performing well. Current MER: 2.50, ROAS: 2.50, LTV:CAC: 2.25."
		if got != want {
			t.Errorf("expected %q, got %q", want, got)
		}
	})

	t.Run("WarningWithTriggers", func(t *testing.T) {
		health := domain.HealthAssessment{
			Overall: domain.HealthWarning,
			Issues:  []string{"MER of 1.50 indicates poor efficiency"},
		}
		got := composeSummary(m, health, 2)
		if !strings.HasPrefix(got, "Your ad account is showing some concerns.") {
			t.Errorf("unexpected prefix: %s", got)
		}
		if !strings.Contains(got, "2 rule(s) triggered requiring action.") {
			t.Errorf("missing trigger sentence: %s", got)
		}
		if !strings.HasSuffix(got, "Key issue: MER of 1.50 indicates poor efficiency") {
			t.Errorf("missing key issue: %s", got)
		}
	})

	t.Run("CriticalWithOpportunity", func(t *testing.T) {
		health := domain.HealthAssessment{
			Overall:       domain.HealthCritical,
			Opportunities: []string{"High ROAS of 4.00 - consider scaling"},
		}
		got := composeSummary(m, health, 0)
		if !strings.HasPrefix(got, "Your ad account is needs attention.") {
			t.Errorf("unexpected prefix: %s", got)
		}
		if !strings.HasSuffix(got, "Opportunity: High ROAS of 4.00 - consider scaling") {
			t.Errorf("missing opportunity: %s", got)
		}
	})
}
