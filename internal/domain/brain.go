package domain

import (
	"context"
	"time"
)

// RecommendationType is the action class of a recommendation.
type RecommendationType string

const (
	RecommendScale   RecommendationType = "scale"
	RecommendPause   RecommendationType = "pause"
	RecommendTest    RecommendationType = "test"
	RecommendFix     RecommendationType = "fix"
	RecommendMonitor RecommendationType = "monitor"
)

// RecommendationPriority orders recommendations for the merchant.
type RecommendationPriority string

const (
	PriorityHigh   RecommendationPriority = "high"
	PriorityMedium RecommendationPriority = "medium"
	PriorityLow    RecommendationPriority = "low"
)

// Recommendation is one ranked suggestion in the composer output.
type Recommendation struct {
	ID              string                 `json:"id"`
	Type            RecommendationType     `json:"type"`
	Priority        RecommendationPriority `json:"priority"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description"`
	EntityType      string                 `json:"entityType,omitempty"` // "campaign", "ad_set" or "ad"
	EntityID        string                 `json:"entityId,omitempty"`
	SuggestedAction string                 `json:"suggestedAction,omitempty"`
	ExpectedImpact  string                 `json:"expectedImpact,omitempty"`
}

// BrainContext carries advisory context for recommendation prompts.
// It never feeds threshold logic.
type BrainContext struct {
	TrackingHealth      *TrackingHealth `json:"trackingHealth,omitempty"`
	RecentActions       []string        `json:"recentActions,omitempty"`
	ActiveCampaignCount int             `json:"activeCampaignCount,omitempty"`
	TopPerformers       []string        `json:"topPerformers,omitempty"`
	UnderPerformers     []string        `json:"underPerformers,omitempty"`
}

// BrainInput echoes what the composer was asked about.
type BrainInput struct {
	ShopID  string        `json:"shopId"`
	Metrics ProfitMetrics `json:"metrics"`
	Context BrainContext  `json:"context"`
}

// BrainOutput is the unified recommendation payload.
type BrainOutput struct {
	Input           BrainInput       `json:"input"`
	Summary         string           `json:"summary"`
	Recommendations []Recommendation `json:"recommendations"`
	Actions         []string         `json:"actions"`
}

// TrackingHealth is the external pixel/CAPI signal. The composer uses
// it only as prompt context.
type TrackingHealth struct {
	PixelStatus       string          `json:"pixelStatus"`       // healthy, degraded, failing
	CAPIStatus        string          `json:"capiStatus"`        // healthy, degraded, failing, not_configured
	EventMatchQuality float64         `json:"eventMatchQuality"` // 0-10
	DedupRate         float64         `json:"dedupRate"`         // percentage
	LastChecked       time.Time       `json:"lastChecked"`
	Issues            []TrackingIssue `json:"issues,omitempty"`
}

// TrackingIssue is one reported tracking problem.
type TrackingIssue struct {
	Type           string `json:"type"`
	Severity       string `json:"severity"` // low, medium, high
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

// Completer is the LLM completion collaborator. CompleteJSON must
// return the raw bytes of a JSON document or an error; the composer
// treats any error, including malformed output, as a signal to fall
// back to rule-based recommendations.
type Completer interface {
	// Configured reports whether a credential is available.
	Configured() bool

	// CompleteJSON sends a system and user prompt and returns the
	// model's JSON response body.
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) ([]byte, error)
}
