//go:build integration
// +build integration

// Package integration provides end-to-end tests for the AdBrain
// evaluation pipeline.
//
// These tests wire the real components together in-process:
//
//	Snapshot → Metrics → Rules → Actions → Alerts / Recommendations
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
// 1. SNAPSHOT: One day of raw ad-account numbers (spend, revenue,
//    orders, customers) for a tenant.
//
// 2. METRICS: Derived profit metrics computed from a snapshot:
//    MER, Meta ROAS, CAC, AOV, LTV:CAC, payback days.
//
// 3. RULE: A tenant-defined automation pattern. Each rule has:
//   - Conditions: conjunctive threshold checks over the metrics
//   - Actions: notify / pause / scale_budget, gated by automation mode
//   - RiskLevel: grades the blast radius of the actions
//
// 4. EXECUTION: A persisted record of one rule evaluation, triggered
//    or not, with the conditions that held.
//
// 5. ALERT: Published on the alert topic when a notify action fires.
//    Downstream dispatchers fan it out to the configured channels.
package integration

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopify-ad-intelligence/adbrain/internal/brain"
	"github.com/shopify-ad-intelligence/adbrain/internal/bus"
	"github.com/shopify-ad-intelligence/adbrain/internal/cache"
	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
	"github.com/shopify-ad-intelligence/adbrain/internal/executor"
	"github.com/shopify-ad-intelligence/adbrain/internal/repository"
	"github.com/shopify-ad-intelligence/adbrain/internal/rules"
)

const (
	testTenant  = "shop-integration"
	waitTimeout = 3 * time.Second
)

// env holds the wired pipeline for one test.
type env struct {
	repo domain.Repository
	bus  domain.EventBus
	cch  domain.Cache
	exec *executor.Executor
}

// newEnv wires a full Community-tier pipeline: SQLite repository,
// in-memory LRU cache, channel bus, rules engine, composer without an
// LLM credential, and a running executor for the test tenant.
func newEnv(t *testing.T) *env {
	t.Helper()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "adbrain-integration.db"),
	})
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}

	cch, err := cache.New(domain.CacheConfig{
		Type:         "memory",
		LocalMaxSize: 100,
		LocalTTL:     time.Minute,
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}

	eventBus, err := bus.New(domain.EventBusConfig{
		Type:              "channel",
		ChannelBufferSize: 64,
	})
	if err != nil {
		t.Fatalf("failed to create bus: %v", err)
	}

	engine, err := rules.NewEngine()
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}

	composer := brain.NewComposer(engine, nil, nil, 0)

	exec := executor.NewExecutor(eventBus, repo, cch, engine, composer, domain.ExecutorConfig{
		SnapshotTTL: time.Minute,
	})
	if err := exec.Start(domain.ExecutorConfig{TenantIDs: []string{testTenant}}); err != nil {
		t.Fatalf("failed to start executor: %v", err)
	}

	t.Cleanup(func() {
		exec.Stop()
		eventBus.Close()
		cch.Close()
		repo.Close()
	})

	return &env{repo: repo, bus: eventBus, cch: cch, exec: exec}
}

// collect subscribes to a topic and returns a channel of decoded
// messages.
func collect(t *testing.T, e *env, topic string) <-chan *domain.Message {
	t.Helper()

	ch := make(chan *domain.Message, 16)
	sub, err := e.bus.Subscribe(context.Background(), testTenant, topic, func(ctx context.Context, msg *domain.Message) error {
		ch <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("failed to subscribe to %s: %v", topic, err)
	}
	t.Cleanup(func() { sub.Unsubscribe() })

	return ch
}

// ingest publishes one snapshot message and returns its date.
func ingest(t *testing.T, e *env, raw domain.RawMetricsInput) time.Time {
	t.Helper()

	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(executor.SnapshotMessage{
		TenantID: testTenant,
		Date:     date,
		Raw:      raw,
	})
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}

	if err := e.bus.Publish(context.Background(), testTenant, domain.TopicSnapshotIngested, payload); err != nil {
		t.Fatalf("failed to publish snapshot: %v", err)
	}

	return date
}

// waitMessage blocks until a message arrives or the timeout expires.
func waitMessage(t *testing.T, ch <-chan *domain.Message) *domain.Message {
	t.Helper()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

// expectNoMessage asserts no message arrives within a short window.
func expectNoMessage(t *testing.T, ch <-chan *domain.Message) {
	t.Helper()

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message on %s: %s", msg.Topic, msg.Payload)
	case <-time.After(300 * time.Millisecond):
	}
}

// seedRule persists an active rule for the test tenant.
func seedRule(t *testing.T, e *env, rule *domain.Rule) {
	t.Helper()

	rule.TenantID = testTenant
	rule.Active = true
	if err := e.repo.SaveRule(context.Background(), testTenant, rule); err != nil {
		t.Fatalf("failed to seed rule %s: %v", rule.ID, err)
	}
}

func roasGuardRule() *domain.Rule {
	return &domain.Rule{
		ID:             "roas-guard-001",
		Name:           "Pause on negative ROAS",
		Scope:          domain.ScopeAccount,
		AutomationMode: domain.ModeSuggestionsOnly,
		Conditions: []domain.RuleCondition{
			{Metric: "metaRoas", Operator: domain.OpLess, Value: 1.0},
		},
		Actions: []domain.RuleAction{
			{Type: domain.ActionNotify, NotifyChannels: []string{"email", "slack"}},
			{Type: domain.ActionPause},
		},
		RiskLevel: domain.RiskHigh,
	}
}

func TestStrugglingAccount_AlertRaised(t *testing.T) {
	e := newEnv(t)
	seedRule(t, e, roasGuardRule())

	alerts := collect(t, e, domain.TopicAlert)

	// Spend 200, revenue 100: Meta ROAS 0.5, well below breakeven.
	date := ingest(t, e, domain.RawMetricsInput{
		Spend:     200,
		Revenue:   100,
		Orders:    5,
		Customers: 3,
	})

	msg := waitMessage(t, alerts)

	var alert executor.AlertMessage
	if err := json.Unmarshal(msg.Payload, &alert); err != nil {
		t.Fatalf("failed to decode alert: %v", err)
	}

	if alert.RuleID != "roas-guard-001" {
		t.Errorf("expected rule roas-guard-001, got %s", alert.RuleID)
	}
	if alert.Title != "Rule Triggered: Pause on negative ROAS" {
		t.Errorf("unexpected alert title: %s", alert.Title)
	}
	if alert.Severity != "high" {
		t.Errorf("expected high severity, got %s", alert.Severity)
	}
	if len(alert.Channels) != 2 || alert.Channels[0] != "email" || alert.Channels[1] != "slack" {
		t.Errorf("unexpected channels: %v", alert.Channels)
	}

	// Snapshot persisted.
	snap, err := e.repo.LatestSnapshot(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if !snap.Date.Equal(date) {
		t.Errorf("expected snapshot date %v, got %v", date, snap.Date)
	}
	if snap.Raw.Spend != 200 {
		t.Errorf("expected spend 200, got %v", snap.Raw.Spend)
	}

	// Execution recorded as triggered.
	execs, err := e.repo.ListExecutions(context.Background(), testTenant, "roas-guard-001", 10)
	if err != nil {
		t.Fatalf("failed to list executions: %v", err)
	}
	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	if !execs[0].Triggered {
		t.Error("expected execution to be triggered")
	}

	// Rule marked as triggered.
	rule, err := e.repo.GetRule(context.Background(), testTenant, "roas-guard-001")
	if err != nil {
		t.Fatalf("failed to load rule: %v", err)
	}
	if rule.LastTriggeredAt == nil {
		t.Error("expected lastTriggeredAt to be set")
	}
}

func TestHealthyAccount_NoAlert(t *testing.T) {
	e := newEnv(t)
	seedRule(t, e, roasGuardRule())

	alerts := collect(t, e, domain.TopicAlert)
	triggered := collect(t, e, domain.TopicRuleTriggered)

	// Spend 100, revenue 300: Meta ROAS 3.0.
	ingest(t, e, domain.RawMetricsInput{
		Spend:     100,
		Revenue:   300,
		Orders:    10,
		Customers: 6,
	})

	expectNoMessage(t, alerts)
	expectNoMessage(t, triggered)

	// Execution still recorded, as not triggered.
	execs, err := e.repo.ListExecutions(context.Background(), testTenant, "roas-guard-001", 10)
	if err != nil {
		t.Fatalf("failed to list executions: %v", err)
	}
	if len(execs) != 1 {
		t.Fatalf("expected 1 execution, got %d", len(execs))
	}
	if execs[0].Triggered {
		t.Error("expected execution to be not triggered")
	}
}

func TestExactThreshold_NoAlert(t *testing.T) {
	e := newEnv(t)
	seedRule(t, e, roasGuardRule())

	alerts := collect(t, e, domain.TopicAlert)

	// Spend 100, revenue 100: Meta ROAS exactly 1.0. The condition is
	// a strict less-than, so breakeven itself does not fire.
	ingest(t, e, domain.RawMetricsInput{
		Spend:     100,
		Revenue:   100,
		Orders:    4,
		Customers: 2,
	})

	expectNoMessage(t, alerts)
}

func TestJustBelowThreshold_RuleFires(t *testing.T) {
	e := newEnv(t)
	seedRule(t, e, roasGuardRule())

	triggered := collect(t, e, domain.TopicRuleTriggered)

	// Spend 100, revenue 99: Meta ROAS 0.99, just under breakeven.
	ingest(t, e, domain.RawMetricsInput{
		Spend:     100,
		Revenue:   99,
		Orders:    4,
		Customers: 2,
	})

	msg := waitMessage(t, triggered)

	var result domain.RuleEvaluationResult
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !result.Triggered {
		t.Error("expected rule to trigger")
	}
	if result.Reason != "Conditions met: metaRoas (0.99) < 1" {
		t.Errorf("unexpected reason: %s", result.Reason)
	}
}

func TestMultipleRulesTriggered_CompoundRisk(t *testing.T) {
	e := newEnv(t)
	seedRule(t, e, roasGuardRule())
	seedRule(t, e, &domain.Rule{
		ID:             "mer-guard-001",
		Name:           "Flag blended efficiency drop",
		Scope:          domain.ScopeAccount,
		AutomationMode: domain.ModeSuggestionsOnly,
		Conditions: []domain.RuleCondition{
			{Metric: "mer", Operator: domain.OpLess, Value: 2.0},
		},
		Actions: []domain.RuleAction{
			{Type: domain.ActionNotify, NotifyChannels: []string{"email"}},
		},
		RiskLevel: domain.RiskMedium,
	})

	triggered := collect(t, e, domain.TopicRuleTriggered)

	// Spend 200, revenue 100: Meta ROAS 0.5 and MER 0.5. Both rules
	// should fire on the same snapshot.
	ingest(t, e, domain.RawMetricsInput{
		Spend:     200,
		Revenue:   100,
		Orders:    5,
		Customers: 3,
	})

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		msg := waitMessage(t, triggered)
		var result domain.RuleEvaluationResult
		if err := json.Unmarshal(msg.Payload, &result); err != nil {
			t.Fatalf("failed to decode result: %v", err)
		}
		seen[result.ID] = true
	}

	if !seen["roas-guard-001"] || !seen["mer-guard-001"] {
		t.Errorf("expected both rules to trigger, saw %v", seen)
	}
}

func TestRecommendationPublished(t *testing.T) {
	e := newEnv(t)

	recs := collect(t, e, domain.TopicRecommendation)

	// A struggling account: the composer's rule-based path should
	// produce protective recommendations even with no custom rules.
	ingest(t, e, domain.RawMetricsInput{
		Spend:     200,
		Revenue:   100,
		Orders:    5,
		Customers: 3,
	})

	msg := waitMessage(t, recs)

	var out domain.BrainOutput
	if err := json.Unmarshal(msg.Payload, &out); err != nil {
		t.Fatalf("failed to decode recommendations: %v", err)
	}

	if out.Summary == "" {
		t.Error("expected a non-empty summary")
	}
	if len(out.Recommendations) == 0 {
		t.Error("expected at least one recommendation for a struggling account")
	}
	for _, rec := range out.Recommendations {
		if rec.Priority == domain.PriorityHigh {
			return
		}
	}
	t.Error("expected a high-priority recommendation for a struggling account")
}

func TestMetricsCachedAfterIngestion(t *testing.T) {
	e := newEnv(t)

	alerts := collect(t, e, domain.TopicRecommendation)

	ingest(t, e, domain.RawMetricsInput{
		Spend:     100,
		Revenue:   300,
		Orders:    10,
		Customers: 6,
	})

	// Recommendation publish is the last pipeline step; once it lands
	// the cache write has happened.
	waitMessage(t, alerts)

	m, err := e.cch.GetMetrics(context.Background(), testTenant)
	if err != nil {
		t.Fatalf("failed to read cached metrics: %v", err)
	}
	if m.MetaROAS != 3.0 {
		t.Errorf("expected cached MetaROAS 3.0, got %v", m.MetaROAS)
	}
	if m.MER != 3.0 {
		t.Errorf("expected cached MER 3.0, got %v", m.MER)
	}
}

func TestMalformedSnapshot_PipelineSurvives(t *testing.T) {
	e := newEnv(t)
	seedRule(t, e, roasGuardRule())

	alerts := collect(t, e, domain.TopicAlert)

	// Garbage payload is dropped without wedging the executor.
	if err := e.bus.Publish(context.Background(), testTenant, domain.TopicSnapshotIngested, []byte("not json")); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	// A well-formed snapshot afterwards still flows end to end.
	ingest(t, e, domain.RawMetricsInput{
		Spend:     200,
		Revenue:   100,
		Orders:    5,
		Customers: 3,
	})

	waitMessage(t, alerts)
}

func TestTenantIsolation_OtherTenantSilent(t *testing.T) {
	e := newEnv(t)
	seedRule(t, e, roasGuardRule())

	alerts := collect(t, e, domain.TopicAlert)

	// A snapshot for a tenant without a running executor is ignored.
	payload, _ := json.Marshal(executor.SnapshotMessage{
		TenantID: "shop-other",
		Raw:      domain.RawMetricsInput{Spend: 200, Revenue: 100, Orders: 5, Customers: 3},
	})
	if err := e.bus.Publish(context.Background(), "shop-other", domain.TopicSnapshotIngested, payload); err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	expectNoMessage(t, alerts)

	if _, err := e.repo.LatestSnapshot(context.Background(), "shop-other"); err == nil {
		t.Error("expected no snapshot for the other tenant")
	}
}
