// Package domain defines the core interfaces and types for AdBrain.
package domain

import (
	"time"
)

// RawMetricsInput holds raw counters for a reporting period.
// Absent fields default to zero; the input is never mutated.
type RawMetricsInput struct {
	Spend               float64 `json:"spend"`
	Revenue             float64 `json:"revenue"`
	Orders              int     `json:"orders"`
	Customers           int     `json:"customers"`
	TotalMarketingSpend float64 `json:"totalMarketingSpend"`
	LTV                 float64 `json:"ltv"`
	PaybackDays         float64 `json:"paybackDays"`
}

// ProfitMetrics is the derived, immutable metrics snapshot.
// Every derived field is a pure function of the raw input.
// TotalMarketingSpend and LTV carry the effective values the
// calculator settled on, not the raw input values.
type ProfitMetrics struct {
	Spend               float64 `json:"spend"`
	Revenue             float64 `json:"revenue"`
	Orders              int     `json:"orders"`
	Customers           int     `json:"customers"`
	TotalMarketingSpend float64 `json:"totalMarketingSpend"`
	MER                 float64 `json:"mer"`      // Marketing Efficiency Ratio
	MetaROAS            float64 `json:"metaRoas"` // Meta-specific ROAS
	CAC                 float64 `json:"cac"`      // Customer Acquisition Cost
	AOV                 float64 `json:"aov"`      // Average Order Value
	LTV                 float64 `json:"ltv"`      // Lifetime Value
	LTVToCAC            float64 `json:"ltvToCac"` // LTV to CAC ratio
	PaybackDays         float64 `json:"paybackDays"`
}

// MetricNames lists every ProfitMetrics field in canonical order.
// Comparison output and condition lookups use these keys.
var MetricNames = []string{
	"spend",
	"revenue",
	"orders",
	"customers",
	"totalMarketingSpend",
	"mer",
	"metaRoas",
	"cac",
	"aov",
	"ltv",
	"ltvToCac",
	"paybackDays",
}

// Value returns the named metric field. The second return is false
// for unknown names; "roas" is accepted as an alias for metaRoas.
func (m ProfitMetrics) Value(name string) (float64, bool) {
	switch name {
	case "spend":
		return m.Spend, true
	case "revenue":
		return m.Revenue, true
	case "orders":
		return float64(m.Orders), true
	case "customers":
		return float64(m.Customers), true
	case "totalMarketingSpend":
		return m.TotalMarketingSpend, true
	case "mer":
		return m.MER, true
	case "roas", "metaRoas":
		return m.MetaROAS, true
	case "cac":
		return m.CAC, true
	case "aov":
		return m.AOV, true
	case "ltv":
		return m.LTV, true
	case "ltvToCac":
		return m.LTVToCAC, true
	case "paybackDays":
		return m.PaybackDays, true
	default:
		return 0, false
	}
}

// MetricDelta describes the movement of one metric between two snapshots.
type MetricDelta struct {
	Value         float64 `json:"value"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
}

// MetricSnapshot is one persisted day of raw metrics for a tenant.
type MetricSnapshot struct {
	TenantID  string          `json:"tenantId"`
	Date      time.Time       `json:"date"`
	Raw       RawMetricsInput `json:"raw"`
	CreatedAt time.Time       `json:"createdAt"`
}

// HealthStatus classifies an account's overall condition.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// HealthAssessment is the output of the health assessor.
type HealthAssessment struct {
	Overall       HealthStatus `json:"overall"`
	Issues        []string     `json:"issues"`
	Opportunities []string     `json:"opportunities"`
}
