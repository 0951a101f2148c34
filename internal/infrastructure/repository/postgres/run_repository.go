package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/factusalud/rips-engine/internal/core/domain"
)

type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026053001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS processing_runs (
	id TEXT PRIMARY KEY,
	invoice_key TEXT NOT NULL,
	history_key TEXT NOT NULL,
	annex_key TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	result JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_processing_runs_status ON processing_runs(status);
CREATE INDEX IF NOT EXISTS idx_processing_runs_created_at ON processing_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) Create(ctx context.Context, run *domain.Run) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO processing_runs (
	id, invoice_key, history_key, annex_key, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		run.ID, run.InvoiceKey, run.HistoryKey, run.AnnexKey, string(run.Status), run.Error,
		run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.Run, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, invoice_key, history_key, annex_key, status, error_message, result, created_at, updated_at
FROM processing_runs
WHERE id = $1
`, id)

	var run domain.Run
	var status string
	var annexKey sql.NullString
	var errMessage sql.NullString
	var resultRaw []byte

	err := row.Scan(
		&run.ID, &run.InvoiceKey, &run.HistoryKey, &annexKey, &status, &errMessage,
		&resultRaw, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrRunNotFound, "fetch run", err)
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	run.AnnexKey = annexKey.String
	run.Error = errMessage.String
	if len(resultRaw) > 0 {
		var result domain.Result
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal run result: %w", err)
		}
		run.Result = &result
	}
	return &run, nil
}

func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_runs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return ensureRowAffected(res, "update run status", id)
}

func (r *RunRepository) SaveResult(ctx context.Context, id string, result *domain.Result) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal run result: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE processing_runs
SET result = $2, updated_at = $3
WHERE id = $1
`, id, resultJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save run result: %w", err)
	}
	return ensureRowAffected(res, "save run result", id)
}

func ensureRowAffected(res sql.Result, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrRunNotFound, operation, fmt.Errorf("no row for id %s", id))
	}
	return nil
}
