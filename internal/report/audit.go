package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-feedback/internal/rollup"
)

const dbTimeout = 5 * time.Second

// Run records one report computation for auditing.
type Run struct {
	ID        string                   `json:"id"`
	Kind      string                   `json:"kind"`
	Scope     map[string]string        `json:"scope"`
	Succeeded int                      `json:"succeeded"`
	Excluded  int                      `json:"excluded"`
	Failures  []rollup.OfferingFailure `json:"failures,omitempty"`
	Error     string                   `json:"error,omitempty"`
	StartedAt time.Time                `json:"started_at"`
	Duration  time.Duration            `json:"duration"`
}

// RunLogger persists report runs.
type RunLogger interface {
	LogRun(ctx context.Context, run Run) error
}

// NopRunLogger ignores all runs.
type NopRunLogger struct{}

func (NopRunLogger) LogRun(context.Context, Run) error {
	return nil
}

// MemoryRunLogger keeps runs in memory for tests.
type MemoryRunLogger struct {
	mu   sync.Mutex
	runs []Run
}

func NewMemoryRunLogger() *MemoryRunLogger {
	return &MemoryRunLogger{runs: []Run{}}
}

func (l *MemoryRunLogger) LogRun(_ context.Context, run Run) error {
	if run.Kind == "" {
		return fmt.Errorf("run kind is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	l.mu.Lock()
	l.runs = append(l.runs, run)
	l.mu.Unlock()
	return nil
}

func (l *MemoryRunLogger) Runs() []Run {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Run{}, l.runs...)
}

// RunSchema creates the table PostgresRunLogger writes to.
const RunSchema = `
CREATE TABLE IF NOT EXISTS report_runs (
	id          UUID PRIMARY KEY,
	kind        TEXT NOT NULL,
	scope       JSONB NOT NULL DEFAULT '{}'::jsonb,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	excluded    INTEGER NOT NULL DEFAULT 0,
	failures    JSONB NOT NULL DEFAULT '[]'::jsonb,
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0
);
`

// PostgresRunLogger inserts runs into the report_runs table.
type PostgresRunLogger struct {
	pool *pgxpool.Pool
}

func NewPostgresRunLogger(pool *pgxpool.Pool) *PostgresRunLogger {
	return &PostgresRunLogger{pool: pool}
}

// Migrate creates the report_runs table if it does not exist.
func (l *PostgresRunLogger) Migrate(ctx context.Context) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("run logger pool is nil")
	}
	if _, err := l.pool.Exec(ctx, RunSchema); err != nil {
		return fmt.Errorf("create run schema: %w", err)
	}
	return nil
}

func (l *PostgresRunLogger) LogRun(ctx context.Context, run Run) error {
	if l == nil || l.pool == nil {
		return fmt.Errorf("run logger pool is nil")
	}
	if run.Kind == "" {
		return fmt.Errorf("run kind is required")
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	scope := run.Scope
	if scope == nil {
		scope = map[string]string{}
	}
	scopeJSON, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("marshal run scope: %w", err)
	}
	failures := run.Failures
	if failures == nil {
		failures = []rollup.OfferingFailure{}
	}
	failuresJSON, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("marshal run failures: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbTimeout)
	defer cancel()

	if _, err := l.pool.Exec(ctx,
		`INSERT INTO report_runs (id, kind, scope, succeeded, excluded, failures, error, started_at, duration_ms)
		 VALUES ($1::uuid, $2, $3::jsonb, $4, $5, $6::jsonb, $7, $8, $9)`,
		run.ID,
		run.Kind,
		string(scopeJSON),
		run.Succeeded,
		run.Excluded,
		string(failuresJSON),
		run.Error,
		run.StartedAt,
		run.Duration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	slog.Debug("report run logged",
		"run_id", run.ID,
		"kind", run.Kind,
		"excluded", run.Excluded,
	)
	return nil
}
