// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopify-ad-intelligence/adbrain/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot upserts one day of raw metrics with tenant isolation.
func (r *SQLRepository) SaveSnapshot(ctx context.Context, tenantID string, snap *domain.MetricSnapshot) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO metric_snapshots (
			tenant_id, date, spend, revenue, orders, customers,
			total_marketing_spend, ltv, payback_days, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, date) DO UPDATE SET
			spend = excluded.spend,
			revenue = excluded.revenue,
			orders = excluded.orders,
			customers = excluded.customers,
			total_marketing_spend = excluded.total_marketing_spend,
			ltv = excluded.ltv,
			payback_days = excluded.payback_days
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		tenantID, snap.Date,
		snap.Raw.Spend, snap.Raw.Revenue, snap.Raw.Orders, snap.Raw.Customers,
		snap.Raw.TotalMarketingSpend, snap.Raw.LTV, snap.Raw.PaybackDays,
		createdAt,
	)
	return err
}

// LatestSnapshot retrieves the most recent snapshot for a tenant.
func (r *SQLRepository) LatestSnapshot(ctx context.Context, tenantID string) (*domain.MetricSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, date, spend, revenue, orders, customers,
			   total_marketing_spend, ltv, payback_days, created_at
		FROM metric_snapshots
		WHERE tenant_id = ?
		ORDER BY date DESC
		LIMIT 1
	`

	var snap domain.MetricSnapshot
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(
		&snap.TenantID, &snap.Date,
		&snap.Raw.Spend, &snap.Raw.Revenue, &snap.Raw.Orders, &snap.Raw.Customers,
		&snap.Raw.TotalMarketingSpend, &snap.Raw.LTV, &snap.Raw.PaybackDays,
		&snap.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &snap, nil
}

// ListSnapshots retrieves snapshots since a point in time, oldest first.
func (r *SQLRepository) ListSnapshots(ctx context.Context, tenantID string, since time.Time) ([]*domain.MetricSnapshot, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, date, spend, revenue, orders, customers,
			   total_marketing_spend, ltv, payback_days, created_at
		FROM metric_snapshots
		WHERE tenant_id = ? AND date >= ?
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*domain.MetricSnapshot
	for rows.Next() {
		var snap domain.MetricSnapshot
		if err := rows.Scan(
			&snap.TenantID, &snap.Date,
			&snap.Raw.Spend, &snap.Raw.Revenue, &snap.Raw.Orders, &snap.Raw.Customers,
			&snap.Raw.TotalMarketingSpend, &snap.Raw.LTV, &snap.Raw.PaybackDays,
			&snap.CreatedAt,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, &snap)
	}

	return snapshots, rows.Err()
}

// SaveRule upserts a rule with tenant isolation.
func (r *SQLRepository) SaveRule(ctx context.Context, tenantID string, rule *domain.Rule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	conditions, _ := json.Marshal(rule.Conditions)
	actions, _ := json.Marshal(rule.Actions)

	active := 0
	if rule.Active {
		active = 1
	}

	createdAt := rule.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := time.Now().UTC()

	query := `
		INSERT INTO rules (
			id, tenant_id, name, description, scope, automation_mode,
			conditions, actions, expression, risk_level, active,
			last_triggered_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			scope = excluded.scope,
			automation_mode = excluded.automation_mode,
			conditions = excluded.conditions,
			actions = excluded.actions,
			expression = excluded.expression,
			risk_level = excluded.risk_level,
			active = excluded.active,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		string(rule.Scope), string(rule.AutomationMode),
		string(conditions), string(actions), rule.Expression,
		string(rule.RiskLevel), active,
		rule.LastTriggeredAt, createdAt, updatedAt,
	)
	return err
}

// GetRule retrieves a rule by ID with tenant isolation.
func (r *SQLRepository) GetRule(ctx context.Context, tenantID string, ruleID string) (*domain.Rule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := ruleSelect + ` WHERE tenant_id = ? AND id = ?`

	row := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, ruleID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rule, err
}

// ListRules retrieves all rules for a tenant.
func (r *SQLRepository) ListRules(ctx context.Context, tenantID string) ([]*domain.Rule, error) {
	return r.listRules(ctx, tenantID, false)
}

// ListActiveRules retrieves only active rules for a tenant.
func (r *SQLRepository) ListActiveRules(ctx context.Context, tenantID string) ([]*domain.Rule, error) {
	return r.listRules(ctx, tenantID, true)
}

func (r *SQLRepository) listRules(ctx context.Context, tenantID string, activeOnly bool) ([]*domain.Rule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := ruleSelect + ` WHERE tenant_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rule)
	}

	return result, rows.Err()
}

// MarkRuleTriggered stamps lastTriggeredAt after a triggering evaluation.
func (r *SQLRepository) MarkRuleTriggered(ctx context.Context, tenantID string, ruleID string, at time.Time) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `UPDATE rules SET last_triggered_at = ? WHERE tenant_id = ? AND id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query), at, tenantID, ruleID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveExecution stores a rule execution record with tenant isolation.
func (r *SQLRepository) SaveExecution(ctx context.Context, tenantID string, exec *domain.RuleExecution) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	conditionsMet, _ := json.Marshal(exec.ConditionsMet)
	actionsTaken, _ := json.Marshal(exec.ActionsTaken)
	affectedEntities, _ := json.Marshal(exec.AffectedEntities)

	triggered := 0
	if exec.Triggered {
		triggered = 1
	}

	query := `
		INSERT INTO rule_executions (
			id, rule_id, tenant_id, triggered, conditions_met,
			actions_taken, affected_entities, executed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		exec.ID, exec.RuleID, tenantID, triggered,
		string(conditionsMet), string(actionsTaken), string(affectedEntities),
		exec.ExecutedAt,
	)
	return err
}

// ListExecutions retrieves execution records, newest first. An empty
// ruleID lists executions across all of the tenant's rules.
func (r *SQLRepository) ListExecutions(ctx context.Context, tenantID string, ruleID string, limit int) ([]*domain.RuleExecution, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, rule_id, tenant_id, triggered, conditions_met,
			   actions_taken, affected_entities, executed_at
		FROM rule_executions
		WHERE tenant_id = ?
	`
	args := []any{tenantID}
	if ruleID != "" {
		query += ` AND rule_id = ?`
		args = append(args, ruleID)
	}
	query += ` ORDER BY executed_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.RuleExecution
	for rows.Next() {
		var exec domain.RuleExecution
		var triggered int
		var conditionsMet, actionsTaken, affectedEntities string

		if err := rows.Scan(
			&exec.ID, &exec.RuleID, &exec.TenantID, &triggered,
			&conditionsMet, &actionsTaken, &affectedEntities,
			&exec.ExecutedAt,
		); err != nil {
			return nil, err
		}

		exec.Triggered = triggered == 1
		json.Unmarshal([]byte(conditionsMet), &exec.ConditionsMet)
		json.Unmarshal([]byte(actionsTaken), &exec.ActionsTaken)
		json.Unmarshal([]byte(affectedEntities), &exec.AffectedEntities)

		result = append(result, &exec)
	}

	return result, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

const ruleSelect = `
	SELECT id, tenant_id, name, description, scope, automation_mode,
		   conditions, actions, expression, risk_level, active,
		   last_triggered_at, created_at, updated_at
	FROM rules`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRule(s scanner) (*domain.Rule, error) {
	var rule domain.Rule
	var description, expression sql.NullString
	var active int
	var lastTriggeredAt sql.NullTime

	if err := s.Scan(
		&rule.ID, &rule.TenantID, &rule.Name, &description,
		(*string)(&rule.Scope), (*string)(&rule.AutomationMode),
		&ruleJSON{&rule.Conditions}, &ruleJSON{&rule.Actions},
		&expression, (*string)(&rule.RiskLevel), &active,
		&lastTriggeredAt, &rule.CreatedAt, &rule.UpdatedAt,
	); err != nil {
		return nil, err
	}

	rule.Description = description.String
	rule.Expression = expression.String
	rule.Active = active == 1
	if lastTriggeredAt.Valid {
		t := lastTriggeredAt.Time
		rule.LastTriggeredAt = &t
	}

	return &rule, nil
}

// ruleJSON scans a JSON text column into its target.
type ruleJSON struct {
	target any
}

func (j *ruleJSON) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported JSON column type %T", src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, j.target)
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
