package telemetry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresSink stores records in the debug_records table.
type PostgresSink struct {
	db *sql.DB

	mu          sync.Mutex
	schemaReady bool
}

// OpenPostgresSink opens dsn with the pgx stdlib driver.
func OpenPostgresSink(dsn string) (*PostgresSink, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresSink(db), nil
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schemaReady {
		return nil
	}
	// A failed attempt is retried on the next call.
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS debug_records (
    id BIGSERIAL PRIMARY KEY,
    run_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    stage TEXT NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL,
    duration_ms BIGINT NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT '',
    body JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_debug_records_run_id ON debug_records(run_id, id);
`); err != nil {
		return fmt.Errorf("ensure debug_records schema: %w", err)
	}
	s.schemaReady = true
	return nil
}

func (s *PostgresSink) Write(ctx context.Context, rec Record) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	rec = stamp(rec)
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO debug_records (run_id, kind, stage, recorded_at, duration_ms, error, body)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, rec.RunID, string(rec.Kind), rec.Stage, rec.Timestamp, rec.DurationMs, rec.Error, body)
	return err
}

func (s *PostgresSink) Read(ctx context.Context, runID string) ([]Record, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT body FROM debug_records WHERE run_id=$1 ORDER BY id`, strings.TrimSpace(runID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var rec Record
		if err := json.Unmarshal(body, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresSink) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
