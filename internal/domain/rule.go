package domain

import "time"

// ConditionOperator is a numeric comparison in a rule condition.
type ConditionOperator string

const (
	OpGreater        ConditionOperator = ">"
	OpLess           ConditionOperator = "<"
	OpGreaterOrEqual ConditionOperator = ">="
	OpLessOrEqual    ConditionOperator = "<="
	OpEqual          ConditionOperator = "=="
	OpNotEqual       ConditionOperator = "!="
)

// RuleScope is the entity level a rule applies to.
type RuleScope string

const (
	ScopeAccount  RuleScope = "account"
	ScopeCampaign RuleScope = "campaign"
	ScopeAdSet    RuleScope = "ad_set"
	ScopeAd       RuleScope = "ad"
)

// AutomationMode controls whether triggered actions may be applied
// automatically or only suggested.
type AutomationMode string

const (
	ModeSuggestionsOnly AutomationMode = "suggestions_only"
	ModeAutoLowRisk     AutomationMode = "auto_low_risk"
	ModeAutoAll         AutomationMode = "auto_all"
)

// RiskLevel grades a rule's blast radius.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// RuleCondition is one threshold check over a metrics snapshot.
// WindowDays is informational; evaluation uses the current snapshot only.
type RuleCondition struct {
	Metric     string            `json:"metric"`
	Operator   ConditionOperator `json:"operator"`
	Value      float64           `json:"value"`
	WindowDays int               `json:"windowDays"`
}

// RuleActionType enumerates the action variants a rule can carry.
type RuleActionType string

const (
	ActionPause       RuleActionType = "pause"
	ActionEnable      RuleActionType = "enable"
	ActionScaleBudget RuleActionType = "scale_budget"
	ActionNotify      RuleActionType = "notify"
	ActionTag         RuleActionType = "tag"
)

// RuleAction is a tagged action variant attached to a rule.
type RuleAction struct {
	Type           RuleActionType `json:"type"`
	Value          float64        `json:"value,omitempty"`
	Unit           string         `json:"unit,omitempty"` // "percent" or "absolute"
	NotifyChannels []string       `json:"notifyChannels,omitempty"`
}

// Rule is a tenant-defined automation rule. Conditions are conjunctive:
// every condition must hold for the rule to trigger. Expression is an
// optional CEL predicate over the metrics snapshot, AND-ed with the
// conditions when present.
type Rule struct {
	ID              string          `json:"id"`
	TenantID        string          `json:"tenantId"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Scope           RuleScope       `json:"scope"`
	AutomationMode  AutomationMode  `json:"automationMode"`
	Conditions      []RuleCondition `json:"conditions"`
	Actions         []RuleAction    `json:"actions"`
	Expression      string          `json:"expression,omitempty"`
	RiskLevel       RiskLevel       `json:"riskLevel"`
	Active          bool            `json:"active"`
	LastTriggeredAt *time.Time      `json:"lastTriggeredAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// RuleEvaluationResult is the ephemeral outcome of evaluating one rule.
type RuleEvaluationResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Triggered bool   `json:"triggered"`
	Reason    string `json:"reason"`
}

// RuleExecution is the persistence-ready record of one rule run.
type RuleExecution struct {
	ID               string       `json:"id"`
	RuleID           string       `json:"ruleId"`
	TenantID         string       `json:"tenantId"`
	Triggered        bool         `json:"triggered"`
	ConditionsMet    []string     `json:"conditionsMet"`
	ActionsTaken     []RuleAction `json:"actionsTaken"`
	AffectedEntities []string     `json:"affectedEntities"`
	ExecutedAt       time.Time    `json:"executedAt"`
}

// RulesSummary aggregates one evaluation pass over presets and custom
// rules. Triggered preserves order: protection, scaling, custom.
type RulesSummary struct {
	Protection []RuleEvaluationResult `json:"protection"`
	Scaling    []RuleEvaluationResult `json:"scaling"`
	Custom     []RuleEvaluationResult `json:"custom"`
	Triggered  []RuleEvaluationResult `json:"triggered"`
}

// PresetCategory groups the fixed preset rules.
type PresetCategory string

const (
	PresetProtection PresetCategory = "protection"
	PresetScaling    PresetCategory = "scaling"
	PresetFatigue    PresetCategory = "fatigue"
	PresetRevival    PresetCategory = "revival"
)
