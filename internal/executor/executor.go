// Package executor runs the async rule evaluation pipeline.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/shopify-ad-intelligence/adbrain/internal/brain"
	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
	"github.com/shopify-ad-intelligence/adbrain/internal/metrics"
	"github.com/shopify-ad-intelligence/adbrain/internal/rules"
)

var tracer = otel.Tracer("adbrain-executor")

const defaultSnapshotTTL = 15 * time.Minute

// Executor processes metric snapshots asynchronously from the EventBus.
// Each ingested snapshot is persisted, computed into profit metrics,
// cached, and evaluated against the tenant's active rules.
type Executor struct {
	bus      domain.EventBus
	repo     domain.Repository
	cache    domain.Cache
	engine   *rules.Engine
	composer *brain.Composer

	snapshotTTL   time.Duration
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewExecutor creates a new async rule executor. The composer is
// optional; when nil no recommendations are published.
func NewExecutor(bus domain.EventBus, repo domain.Repository, cache domain.Cache, engine *rules.Engine, composer *brain.Composer, cfg domain.ExecutorConfig) *Executor {
	ttl := cfg.SnapshotTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		bus:         bus,
		repo:        repo,
		cache:       cache,
		engine:      engine,
		composer:    composer,
		snapshotTTL: ttl,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing snapshots for the given tenants.
func (e *Executor) Start(cfg domain.ExecutorConfig) error {
	if len(cfg.TenantIDs) == 0 {
		return e.startGlobalExecutor()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := e.startTenantExecutor(tenantID); err != nil {
			slog.Error("failed to start executor for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("executors started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalExecutor subscribes under a special "global" tenant ID,
// used in dev and testing; production deployments list tenants.
func (e *Executor) startGlobalExecutor() error {
	sub, err := e.bus.Subscribe(e.ctx, "_global", domain.TopicSnapshotIngested, e.handleMessage)
	if err != nil {
		return err
	}
	e.subscriptions = append(e.subscriptions, sub)

	slog.Info("global executor started")
	return nil
}

// startTenantExecutor subscribes to snapshot ingestion for one tenant.
func (e *Executor) startTenantExecutor(tenantID string) error {
	sub, err := e.bus.Subscribe(e.ctx, tenantID, domain.TopicSnapshotIngested, func(ctx context.Context, msg *domain.Message) error {
		return e.processSnapshot(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	e.subscriptions = append(e.subscriptions, sub)

	slog.Info("tenant executor started",
		"tenant_id", tenantID,
		"topic", domain.TopicSnapshotIngested,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (e *Executor) handleMessage(ctx context.Context, msg *domain.Message) error {
	return e.processSnapshot(ctx, msg.TenantID, msg)
}

// SnapshotMessage is the message payload for snapshot processing.
type SnapshotMessage struct {
	TenantID string                 `json:"tenantId"`
	Date     time.Time              `json:"date"`
	Raw      domain.RawMetricsInput `json:"raw"`
	TraceID  string                 `json:"traceId,omitempty"`
}

// AlertMessage is published on the alert topic when a notify action
// fires. Downstream dispatchers fan it out to the configured channels.
type AlertMessage struct {
	RuleID   string   `json:"ruleId"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Channels []string `json:"channels"`
	Severity string   `json:"severity"`
}

// processSnapshot runs one snapshot through the full pipeline.
func (e *Executor) processSnapshot(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	var snapMsg SnapshotMessage
	if err := json.Unmarshal(msg.Payload, &snapMsg); err != nil {
		slog.Error("failed to parse snapshot message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if snapMsg.TenantID != "" {
		tenantID = snapMsg.TenantID
	}
	if snapMsg.Date.IsZero() {
		snapMsg.Date = time.Now().UTC().Truncate(24 * time.Hour)
	}

	ctx, span := tracer.Start(ctx, "executor.snapshot",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("snapshot.date", snapMsg.Date.Format("2006-01-02")),
		),
	)
	defer span.End()

	slog.Debug("processing snapshot",
		"tenant_id", tenantID,
		"date", snapMsg.Date,
	)

	// 1. Persist the raw snapshot
	snapshot := &domain.MetricSnapshot{
		TenantID: tenantID,
		Date:     snapMsg.Date,
		Raw:      snapMsg.Raw,
	}
	if err := e.repo.SaveSnapshot(ctx, tenantID, snapshot); err != nil {
		slog.Error("failed to save snapshot",
			"tenant_id", tenantID,
			"error", err,
		)
		return err
	}

	// 2. Compute profit metrics
	m := metrics.Compute(snapMsg.Raw)

	// 3. Cache the latest computed metrics
	if e.cache != nil {
		if err := e.cache.SetMetrics(ctx, tenantID, &m, e.snapshotTTL); err != nil {
			slog.Warn("failed to cache metrics",
				"tenant_id", tenantID,
				"error", err,
			)
		}
	}

	// 4. Evaluate active rules
	triggeredCount, err := e.evaluateRules(ctx, tenantID, m)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("rules.triggered", triggeredCount))

	// 5. Publish recommendations when the composer is wired
	if e.composer != nil {
		e.publishRecommendations(ctx, tenantID, m)
	}

	slog.Info("snapshot processed",
		"tenant_id", tenantID,
		"date", snapMsg.Date.Format("2006-01-02"),
		"rules_triggered", triggeredCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// evaluateRules runs every active rule against the computed metrics,
// persisting an execution record per rule.
func (e *Executor) evaluateRules(ctx context.Context, tenantID string, m domain.ProfitMetrics) (int, error) {
	activeRules, err := e.repo.ListActiveRules(ctx, tenantID)
	if err != nil {
		slog.Error("failed to list active rules",
			"tenant_id", tenantID,
			"error", err,
		)
		return 0, err
	}

	triggered := 0
	for _, rule := range activeRules {
		result := e.engine.EvaluateCustomRule(rule, m)

		exec := e.engine.CreateExecution(rule, result, nil)
		if err := e.repo.SaveExecution(ctx, tenantID, exec); err != nil {
			slog.Error("failed to save execution",
				"rule_id", rule.ID,
				"error", err,
			)
		}

		if !result.Triggered {
			continue
		}
		triggered++

		e.handleActions(ctx, tenantID, rule, result.Reason)

		if err := e.repo.MarkRuleTriggered(ctx, tenantID, rule.ID, time.Now().UTC()); err != nil {
			slog.Error("failed to mark rule triggered",
				"rule_id", rule.ID,
				"error", err,
			)
		}

		payload, _ := json.Marshal(result)
		if err := e.bus.Publish(ctx, tenantID, domain.TopicRuleTriggered, payload); err != nil {
			slog.Error("failed to publish rule trigger",
				"rule_id", rule.ID,
				"error", err,
			)
		}
	}

	return triggered, nil
}

// handleActions applies a triggered rule's actions, honoring the
// tenant's automation mode. Notifications always go out; pause is
// skipped in suggestions-only mode; budget scaling requires full
// automation.
func (e *Executor) handleActions(ctx context.Context, tenantID string, rule *domain.Rule, reason string) {
	for _, action := range rule.Actions {
		switch action.Type {
		case domain.ActionNotify:
			channels := action.NotifyChannels
			if len(channels) == 0 {
				channels = []string{"email"}
			}
			severity := string(rule.RiskLevel)
			if severity == "" {
				severity = string(domain.RiskMedium)
			}

			alert := AlertMessage{
				RuleID:   rule.ID,
				Title:    fmt.Sprintf("Rule Triggered: %s", rule.Name),
				Message:  reason,
				Channels: channels,
				Severity: severity,
			}
			payload, _ := json.Marshal(alert)
			if err := e.bus.Publish(ctx, tenantID, domain.TopicAlert, payload); err != nil {
				slog.Error("failed to publish alert",
					"rule_id", rule.ID,
					"error", err,
				)
			}

		case domain.ActionPause:
			if rule.AutomationMode == domain.ModeSuggestionsOnly {
				continue
			}
			slog.Info("would pause entities",
				"tenant_id", tenantID,
				"rule_id", rule.ID,
				"scope", rule.Scope,
			)

		case domain.ActionScaleBudget:
			if rule.AutomationMode != domain.ModeAutoAll {
				continue
			}
			slog.Info("would scale budget",
				"tenant_id", tenantID,
				"rule_id", rule.ID,
				"scope", rule.Scope,
				"value", action.Value,
				"unit", action.Unit,
			)
		}
	}
}

// publishRecommendations asks the composer for recommendations and
// publishes the result. Failures here never fail the pipeline.
func (e *Executor) publishRecommendations(ctx context.Context, tenantID string, m domain.ProfitMetrics) {
	out := e.composer.GetRecommendations(ctx, brain.Params{
		TenantID: tenantID,
		Metrics:  m,
	})

	payload, err := json.Marshal(out)
	if err != nil {
		slog.Error("failed to marshal recommendations",
			"tenant_id", tenantID,
			"error", err,
		)
		return
	}

	if err := e.bus.Publish(ctx, tenantID, domain.TopicRecommendation, payload); err != nil {
		slog.Error("failed to publish recommendations",
			"tenant_id", tenantID,
			"error", err,
		)
	}
}

// Stop gracefully stops all executors.
func (e *Executor) Stop() error {
	e.cancel()

	for _, sub := range e.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	e.subscriptions = nil

	slog.Info("executors stopped")
	return nil
}

// Stats returns executor statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current executor statistics.
func (e *Executor) GetStats() Stats {
	topics := make([]string, len(e.subscriptions))
	for i, sub := range e.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(e.subscriptions),
		Topics:            topics,
	}
}
