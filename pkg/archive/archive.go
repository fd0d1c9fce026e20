package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"sentinel-be/internal/entity"
	"sentinel-be/internal/repository/specification"
	"sentinel-be/internal/repository/unitofwork"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT NOT NULL,
	status      TEXT NOT NULL,
	num_cases   INTEGER NOT NULL,
	processed   INTEGER NOT NULL,
	error       TEXT,
	config_json TEXT,
	started_at  TEXT NOT NULL,
	ended_at    TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS cases (
	run_id            TEXT NOT NULL,
	case_id           TEXT NOT NULL,
	case_date         TEXT NOT NULL,
	country           TEXT,
	city              TEXT,
	lat               REAL,
	lon               REAL,
	pathogen_label    TEXT,
	normalized_json   TEXT,
	ground_truth_json TEXT,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS agent_outputs (
	run_id      TEXT NOT NULL,
	case_id     TEXT NOT NULL,
	agent_name  TEXT NOT NULL,
	score       REAL,
	confidence  REAL,
	output_json TEXT,
	created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	run_id              TEXT NOT NULL,
	case_id             TEXT NOT NULL,
	fused_score         REAL,
	severity            REAL,
	confidence          REAL,
	eligible_for_review INTEGER,
	rationale           TEXT,
	contributions_json  TEXT,
	threshold           REAL,
	suggestion          TEXT,
	created_at          TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS approvals (
	run_id        TEXT NOT NULL,
	case_id       TEXT NOT NULL,
	status        TEXT NOT NULL,
	reviewer_name TEXT,
	notes         TEXT,
	dispatch_json TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS suggestion_executions (
	run_id        TEXT NOT NULL,
	case_id       TEXT NOT NULL,
	suggestion    TEXT,
	operator_name TEXT,
	notes         TEXT,
	dispatch_json TEXT,
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics (
	run_id            TEXT NOT NULL,
	lead_time_days    REAL,
	false_alarm_rate  REAL,
	severity_mae      REAL,
	calibration_brier REAL,
	created_at        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS strategy_memory (
	run_id               TEXT NOT NULL,
	case_id              TEXT NOT NULL,
	strategy_notes       TEXT,
	updated_prompts_json TEXT,
	weights_json         TEXT,
	threshold            REAL,
	created_at           TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS audit_logs (
	run_id       TEXT,
	case_id      TEXT,
	event_type   TEXT NOT NULL,
	actor        TEXT,
	payload_json TEXT,
	created_at   TEXT NOT NULL
);
`

// Bundle is every record one run left behind.
type Bundle struct {
	RunId                string
	Runs                 []*entity.RunEvent
	Cases                []*entity.CaseRecord
	AgentOutputs         []*entity.AgentOutputRecord
	Decisions            []*entity.Decision
	Approvals            []*entity.ApprovalRecord
	SuggestionExecutions []*entity.SuggestionExecution
	Metrics              *entity.RunMetrics
	StrategyMemory       []*entity.StrategyMemory
	AuditLogs            []*entity.AuditEvent
}

// Collect reads a run's rows oldest first. A run with no runs row is an error.
func Collect(ctx context.Context, uow unitofwork.UnitOfWork, runId string) (*Bundle, error) {
	byRun := specification.ByRunId{RunId: runId}
	order := specification.OldestFirst()
	b := &Bundle{RunId: runId}
	var err error

	if b.Runs, err = uow.RunRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read runs: %w", err)
	}
	if len(b.Runs) == 0 {
		return nil, fmt.Errorf("run %q not found", runId)
	}
	if b.Cases, err = uow.CaseRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	if b.AgentOutputs, err = uow.AgentOutputRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read agent outputs: %w", err)
	}
	if b.Decisions, err = uow.DecisionRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read decisions: %w", err)
	}
	if b.Approvals, err = uow.ApprovalRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read approvals: %w", err)
	}
	if b.SuggestionExecutions, err = uow.SuggestionExecutionRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read suggestion executions: %w", err)
	}
	if b.Metrics, err = uow.MetricRepository().FindOne(ctx, byRun, specification.NewestFirst()); err != nil {
		return nil, fmt.Errorf("read metrics: %w", err)
	}
	if b.StrategyMemory, err = uow.StrategyMemoryRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read strategy memory: %w", err)
	}
	if b.AuditLogs, err = uow.AuditLogRepository().FindAll(ctx, byRun, order); err != nil {
		return nil, fmt.Errorf("read audit logs: %w", err)
	}
	return b, nil
}

// Rows reports how many rows the bundle holds per table.
func (b *Bundle) Rows() map[string]int {
	metrics := 0
	if b.Metrics != nil {
		metrics = 1
	}
	return map[string]int{
		"runs":                  len(b.Runs),
		"cases":                 len(b.Cases),
		"agent_outputs":         len(b.AgentOutputs),
		"decisions":             len(b.Decisions),
		"approvals":             len(b.Approvals),
		"suggestion_executions": len(b.SuggestionExecutions),
		"metrics":               metrics,
		"strategy_memory":       len(b.StrategyMemory),
		"audit_logs":            len(b.AuditLogs),
	}
}

// Write stores the bundle in a SQLite file at path inside one transaction.
// Writing into an existing archive appends.
func Write(ctx context.Context, path string, b *Bundle) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate archive: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := insertAll(ctx, tx, b); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertAll(ctx context.Context, tx *sql.Tx, b *Bundle) error {
	exec := func(table, query string, args ...interface{}) error {
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
		return nil
	}

	for _, r := range b.Runs {
		if err := exec("runs", `INSERT INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunId, string(r.Status), r.NumCases, r.Processed, nullable(r.Error), toJSON(r.Config),
			stamp(r.StartedAt), optionalStamp(r.EndedAt), stamp(r.CreatedAt)); err != nil {
			return err
		}
	}
	for _, c := range b.Cases {
		if err := exec("cases", `INSERT INTO cases VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.RunId, c.CaseId, c.CaseDate, c.Country, c.City, c.Lat, c.Lon, nullable(c.PathogenLabel),
			toJSON(c.Normalized), toJSON(c.GroundTruth), stamp(c.CreatedAt)); err != nil {
			return err
		}
	}
	for _, o := range b.AgentOutputs {
		if err := exec("agent_outputs", `INSERT INTO agent_outputs VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.RunId, o.CaseId, o.AgentName, o.Score, o.Confidence, toJSON(o.Output), stamp(o.CreatedAt)); err != nil {
			return err
		}
	}
	for _, d := range b.Decisions {
		if err := exec("decisions", `INSERT INTO decisions VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.RunId, d.CaseId, d.FusedScore, d.Severity, d.Confidence, d.EligibleForApproval,
			d.Rationale, toJSON(d.Contributions), d.RecommendedThreshold, d.Suggestion, stamp(d.CreatedAt)); err != nil {
			return err
		}
	}
	for _, a := range b.Approvals {
		if err := exec("approvals", `INSERT INTO approvals VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.RunId, a.CaseId, string(a.Status), nullable(a.Reviewer), a.ReviewNotes, toJSON(a.DispatchInfo), stamp(a.CreatedAt)); err != nil {
			return err
		}
	}
	for _, s := range b.SuggestionExecutions {
		if err := exec("suggestion_executions", `INSERT INTO suggestion_executions VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.RunId, s.CaseId, s.Suggestion, s.Operator, s.Notes, toJSON(s.Dispatch), stamp(s.CreatedAt)); err != nil {
			return err
		}
	}
	if m := b.Metrics; m != nil {
		if err := exec("metrics", `INSERT INTO metrics VALUES (?, ?, ?, ?, ?, ?)`,
			m.RunId, m.LeadTimeDays, m.FalseAlarmRate, m.SeverityMAE, m.CalibrationBrier, stamp(m.CreatedAt)); err != nil {
			return err
		}
	}
	for _, s := range b.StrategyMemory {
		if err := exec("strategy_memory", `INSERT INTO strategy_memory VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.RunId, s.CaseId, s.StrategyNotes, toJSON(s.UpdatedPrompts), toJSON(s.Weights), s.Threshold, stamp(s.CreatedAt)); err != nil {
			return err
		}
	}
	for _, e := range b.AuditLogs {
		if err := exec("audit_logs", `INSERT INTO audit_logs VALUES (?, ?, ?, ?, ?, ?)`,
			nullable(e.RunId), nullable(e.CaseId), e.EventType, e.Actor, toJSON(e.Payload), stamp(e.CreatedAt)); err != nil {
			return err
		}
	}
	return nil
}

func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func optionalStamp(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return stamp(*t)
}
