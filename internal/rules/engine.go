// Package rules evaluates preset and custom automation rules against
// profit metric snapshots.
package rules

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/uuid"
	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

// Engine evaluates rules. Threshold conditions are evaluated directly;
// optional CEL expressions are compiled once per rule and cached.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	programs map[string]*compiledExpression
}

type compiledExpression struct {
	expression string
	program    cel.Program
}

// NewEngine creates a rule evaluation engine.
func NewEngine() (*Engine, error) {
	// One CEL variable per metric, plus the roas alias.
	vars := make([]cel.EnvOption, 0, len(domain.MetricNames)+1)
	for _, name := range domain.MetricNames {
		vars = append(vars, cel.Variable(name, cel.DoubleType))
	}
	vars = append(vars, cel.Variable("roas", cel.DoubleType))

	env, err := cel.NewEnv(vars...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:      env,
		programs: make(map[string]*compiledExpression),
	}, nil
}

// EvaluateCondition checks one threshold condition against a snapshot.
// An unknown metric name evaluates as unmet, not as an error. The
// reason string has the same format whether or not the condition held.
func EvaluateCondition(cond domain.RuleCondition, m domain.ProfitMetrics) (bool, string) {
	value, ok := conditionValue(cond.Metric, m)
	if !ok {
		return false, fmt.Sprintf("Unknown metric: %s", cond.Metric)
	}

	var met bool
	switch cond.Operator {
	case domain.OpGreater:
		met = value > cond.Value
	case domain.OpLess:
		met = value < cond.Value
	case domain.OpGreaterOrEqual:
		met = value >= cond.Value
	case domain.OpLessOrEqual:
		met = value <= cond.Value
	case domain.OpEqual:
		met = value == cond.Value
	case domain.OpNotEqual:
		met = value != cond.Value
	}

	reason := fmt.Sprintf("%s (%.2f) %s %s",
		cond.Metric, value, cond.Operator, formatThreshold(cond.Value))
	return met, reason
}

// conditionValue resolves a condition's metric name. The condition
// vocabulary is narrower than ProfitMetrics.Value: totalMarketingSpend
// exists only for trend comparison and is not addressable from rule
// conditions, so a persisted rule naming it stays unmet.
func conditionValue(name string, m domain.ProfitMetrics) (float64, bool) {
	if name == "totalMarketingSpend" {
		return 0, false
	}
	return m.Value(name)
}

// formatThreshold prints a threshold without trailing zeros.
func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// EvaluateCustomRule evaluates a custom rule: a conjunctive AND over
// its conditions and, when present, its CEL expression. A rule with no
// conditions and no expression triggers vacuously.
func (e *Engine) EvaluateCustomRule(rule *domain.Rule, m domain.ProfitMetrics) domain.RuleEvaluationResult {
	allMet := true
	var reasons []string

	for _, cond := range rule.Conditions {
		met, reason := EvaluateCondition(cond, m)
		if met {
			reasons = append(reasons, reason)
		} else {
			allMet = false
		}
	}

	if rule.Expression != "" {
		met, reason := e.evaluateExpression(rule, m)
		if met {
			reasons = append(reasons, reason)
		} else {
			allMet = false
		}
	}

	reason := "Not all conditions met"
	if allMet {
		reason = "Conditions met: " + strings.Join(reasons, "; ")
	}

	return domain.RuleEvaluationResult{
		ID:        rule.ID,
		Name:      rule.Name,
		Triggered: allMet,
		Reason:    reason,
	}
}

// EvaluatePresets runs the fixed preset catalog against a snapshot.
func (e *Engine) EvaluatePresets(m domain.ProfitMetrics) (protection, scaling []domain.RuleEvaluationResult) {
	return evaluatePresetList(ProtectionPresets, m), evaluatePresetList(ScalingPresets, m)
}

// EvaluateAll evaluates presets and custom rules, collecting triggered
// results in order: protection, scaling, custom.
func (e *Engine) EvaluateAll(m domain.ProfitMetrics, customRules []*domain.Rule) domain.RulesSummary {
	protection, scaling := e.EvaluatePresets(m)

	custom := make([]domain.RuleEvaluationResult, 0, len(customRules))
	for _, rule := range customRules {
		custom = append(custom, e.EvaluateCustomRule(rule, m))
	}

	var triggered []domain.RuleEvaluationResult
	for _, group := range [][]domain.RuleEvaluationResult{protection, scaling, custom} {
		for _, r := range group {
			if r.Triggered {
				triggered = append(triggered, r)
			}
		}
	}

	return domain.RulesSummary{
		Protection: protection,
		Scaling:    scaling,
		Custom:     custom,
		Triggered:  triggered,
	}
}

// CreateExecution builds a persistence-ready execution record. Pure
// construction; the caller persists it.
func (e *Engine) CreateExecution(rule *domain.Rule, result domain.RuleEvaluationResult, affectedEntities []string) *domain.RuleExecution {
	conditionsMet := []string{}
	actionsTaken := []domain.RuleAction{}
	if result.Triggered {
		conditionsMet = []string{result.Reason}
		actionsTaken = rule.Actions
	}
	if affectedEntities == nil {
		affectedEntities = []string{}
	}

	return &domain.RuleExecution{
		ID:               uuid.New().String(),
		RuleID:           rule.ID,
		TenantID:         rule.TenantID,
		Triggered:        result.Triggered,
		ConditionsMet:    conditionsMet,
		ActionsTaken:     actionsTaken,
		AffectedEntities: affectedEntities,
		ExecutedAt:       time.Now().UTC(),
	}
}

// ValidateExpression compiles an expression without caching it. Used
// when rules are created or updated.
func (e *Engine) ValidateExpression(expression string) error {
	_, err := e.compile(expression)
	return err
}

// evaluateExpression evaluates a rule's CEL expression against the
// snapshot. Compile and eval failures count as unmet, never as errors.
func (e *Engine) evaluateExpression(rule *domain.Rule, m domain.ProfitMetrics) (bool, string) {
	program, err := e.programFor(rule)
	if err != nil {
		return false, fmt.Sprintf("invalid expression: %v", err)
	}

	out, _, err := program.Eval(activation(m))
	if err != nil {
		return false, fmt.Sprintf("expression error: %v", err)
	}

	if b, ok := out.(types.Bool); ok && bool(b) {
		return true, fmt.Sprintf("expression (%s)", rule.Expression)
	}
	return false, fmt.Sprintf("expression (%s)", rule.Expression)
}

// programFor returns the cached compiled program for a rule,
// recompiling when the expression changed since it was cached.
func (e *Engine) programFor(rule *domain.Rule) (cel.Program, error) {
	e.mu.RLock()
	cached, ok := e.programs[rule.ID]
	e.mu.RUnlock()
	if ok && cached.expression == rule.Expression {
		return cached.program, nil
	}

	program, err := e.compile(rule.Expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[rule.ID] = &compiledExpression{
		expression: rule.Expression,
		program:    program,
	}
	e.mu.Unlock()

	return program, nil
}

func (e *Engine) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("expression must return bool, got %s", ast.OutputType())
	}

	return e.env.Program(ast)
}

// Close cleans up the engine.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.programs = make(map[string]*compiledExpression)
	return nil
}

func activation(m domain.ProfitMetrics) map[string]any {
	vars := make(map[string]any, len(domain.MetricNames)+1)
	for _, name := range domain.MetricNames {
		value, _ := m.Value(name)
		vars[name] = value
	}
	vars["roas"] = m.MetaROAS
	return vars
}
