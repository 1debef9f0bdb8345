package repository

// Schema definitions for the AdBrain database.
// Compatible with both SQLite and PostgreSQL.

const schemaMetricSnapshots = `
CREATE TABLE IF NOT EXISTS metric_snapshots (
    tenant_id TEXT NOT NULL,
    date TIMESTAMP NOT NULL,
    spend REAL NOT NULL DEFAULT 0,
    revenue REAL NOT NULL DEFAULT 0,
    orders INTEGER NOT NULL DEFAULT 0,
    customers INTEGER NOT NULL DEFAULT 0,
    total_marketing_spend REAL NOT NULL DEFAULT 0,
    ltv REAL NOT NULL DEFAULT 0,
    payback_days REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, date)
);

CREATE INDEX IF NOT EXISTS idx_metric_snapshots_tenant_date ON metric_snapshots(tenant_id, date);
`

const schemaRules = `
CREATE TABLE IF NOT EXISTS rules (
    id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    scope TEXT NOT NULL,
    automation_mode TEXT NOT NULL,
    conditions TEXT NOT NULL,
    actions TEXT NOT NULL,
    expression TEXT,
    risk_level TEXT NOT NULL,
    active INTEGER NOT NULL DEFAULT 1,
    last_triggered_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_rules_tenant ON rules(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rules_active ON rules(tenant_id, active);
`

const schemaRuleExecutions = `
CREATE TABLE IF NOT EXISTS rule_executions (
    id TEXT PRIMARY KEY,
    rule_id TEXT NOT NULL,
    tenant_id TEXT NOT NULL,
    triggered INTEGER NOT NULL DEFAULT 0,
    conditions_met TEXT NOT NULL,
    actions_taken TEXT NOT NULL,
    affected_entities TEXT NOT NULL,
    executed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rule_executions_tenant ON rule_executions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rule_executions_rule ON rule_executions(tenant_id, rule_id);
CREATE INDEX IF NOT EXISTS idx_rule_executions_executed ON rule_executions(tenant_id, executed_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaMetricSnapshots,
		schemaRules,
		schemaRuleExecutions,
	}
}
