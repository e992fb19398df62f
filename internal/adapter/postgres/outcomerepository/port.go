// Package outcomerepository stores batch outcome history in PostgreSQL
package outcomerepository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"gitlab.com/dutbench.net/internal/core/ports/primary"
	"gitlab.com/dutbench.net/internal/core/ports/secondary"
	"gitlab.com/dutbench.net/internal/domain"
	"gitlab.com/dutbench.net/internal/static/errs"
	querybuilder "gitlab.com/dutbench.net/internal/utils"
)

var _ secondary.OutcomeRepository = (*OutcomeRepository)(nil)

const schema = "public"

// Schema creates the outcome tables when they do not exist
const Schema = `
CREATE TABLE IF NOT EXISTS batch_runs (
	id         UUID PRIMARY KEY,
	started_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	run_names  JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	batch_id         UUID NOT NULL REFERENCES batch_runs (id) ON DELETE CASCADE,
	run_index        INTEGER NOT NULL,
	run_name         TEXT NOT NULL,
	duration_ms      BIGINT NOT NULL,
	execution_error  BOOLEAN NOT NULL DEFAULT FALSE,
	error_reason     TEXT NOT NULL DEFAULT '',
	command_failures INTEGER NOT NULL DEFAULT 0,
	recorded_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (batch_id, run_index)
);

CREATE TABLE IF NOT EXISTS test_results (
	batch_id  UUID NOT NULL,
	run_index INTEGER NOT NULL,
	position  INTEGER NOT NULL,
	test_id   INTEGER NOT NULL,
	passed    BOOLEAN NOT NULL,
	margin    DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (batch_id, run_index, position),
	FOREIGN KEY (batch_id, run_index) REFERENCES run_outcomes (batch_id, run_index) ON DELETE CASCADE
);
`

// OutcomeRepository implements secondary.OutcomeRepository with PostgreSQL
type OutcomeRepository struct {
	db     *sqlx.DB
	logger primary.Logger
}

// NewOutcomeRepository creates a new PostgreSQL outcome repository
func NewOutcomeRepository(db *sqlx.DB, logger primary.Logger) *OutcomeRepository {
	return &OutcomeRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema creates the tables if needed
func (r *OutcomeRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, Schema); err != nil {
		r.logger.Error("Failed to create outcome schema", "error", err)
		return fmt.Errorf("failed to create outcome schema: %w", err)
	}
	return nil
}

// SaveBatch records a batch and its configured run order
func (r *OutcomeRepository) SaveBatch(ctx context.Context, batchID uuid.UUID, runNames []string) error {
	namesJSON, err := json.Marshal(runNames)
	if err != nil {
		return fmt.Errorf("failed to marshal run names: %w", err)
	}

	tbl := domain.GetBatchRunTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Insert(tbl.ID, tbl.StartedAt, tbl.RunNames).
		Into(tbl.TableName()).
		Values(batchID, time.Now().UTC(), string(namesJSON)).
		OnConflict(tbl.ID).
		SetExclude(tbl.RunNames).
		Build()

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to save batch", "batchId", batchID, "error", err)
		return fmt.Errorf("failed to save batch: %w", err)
	}

	return nil
}

// SaveOutcome stores one run outcome and replaces its test results, in one transaction
func (r *OutcomeRepository) SaveOutcome(ctx context.Context, batchID uuid.UUID, runIndex int, outcome domain.RunOutcome) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin transaction", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if the transaction is committed

	query, args := OutcomeUpsert(batchID, runIndex, outcome)
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to save run outcome", "run", outcome.RunName, "error", err)
		return fmt.Errorf("failed to save run outcome: %w", err)
	}

	resTbl := domain.GetTestResultTable()
	query, args = querybuilder.NewQueryBuilder(schema).
		Delete(resTbl.TableName()).
		Where(resTbl.BatchID+" = ?", batchID).
		And(resTbl.RunIndex+" = ?", runIndex).
		Build()
	if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to clear test results: %w", err)
	}

	if len(outcome.Results) > 0 {
		query, args = ResultsInsert(batchID, runIndex, outcome.Results)
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			r.logger.Error("Failed to save test results", "run", outcome.RunName, "error", err)
			return fmt.Errorf("failed to save test results: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run outcome: %w", err)
	}
	return nil
}

// OutcomeUpsert builds the run_outcomes insert for one outcome
func OutcomeUpsert(batchID uuid.UUID, runIndex int, outcome domain.RunOutcome) (string, []interface{}) {
	tbl := domain.GetRunOutcomeTable()
	return querybuilder.NewQueryBuilder(schema).
		Insert(tbl.BatchID, tbl.RunIndex, tbl.RunName, tbl.DurationMs, tbl.ExecutionError, tbl.ErrorReason, tbl.CommandFailures).
		Into(tbl.TableName()).
		Values(batchID, runIndex, outcome.RunName, outcome.Duration.Milliseconds(), outcome.ExecutionError, outcome.ErrorReason, outcome.CommandFailures).
		OnConflict(tbl.BatchID, tbl.RunIndex).
		SetExclude(tbl.RunName, tbl.DurationMs, tbl.ExecutionError, tbl.ErrorReason, tbl.CommandFailures).
		Build()
}

// ResultsInsert builds one multi-row insert for a run's test results
func ResultsInsert(batchID uuid.UUID, runIndex int, results []domain.TestResult) (string, []interface{}) {
	tbl := domain.GetTestResultTable()
	qb := querybuilder.NewQueryBuilder(schema).
		Insert(tbl.BatchID, tbl.RunIndex, tbl.Position, tbl.TestID, tbl.Passed, tbl.Margin).
		Into(tbl.TableName())
	for i, res := range results {
		qb.Values(batchID, runIndex, i, res.TestID, res.Passed, res.Margin)
	}
	return qb.Build()
}

type outcomeRow struct {
	RunIndex        int    `db:"run_index"`
	RunName         string `db:"run_name"`
	DurationMs      int64  `db:"duration_ms"`
	ExecutionError  bool   `db:"execution_error"`
	ErrorReason     string `db:"error_reason"`
	CommandFailures int    `db:"command_failures"`
}

type resultRow struct {
	RunIndex int `db:"run_index"`
	domain.TestResult
}

// GetBatch returns the configured run order and the recorded outcomes in run order
func (r *OutcomeRepository) GetBatch(ctx context.Context, batchID uuid.UUID) ([]string, []domain.RunOutcome, error) {
	batchTbl := domain.GetBatchRunTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Select(batchTbl.RunNames).
		From(batchTbl.TableName()).
		Where(batchTbl.ID+" = ?", batchID).
		Build()

	var namesJSON []byte
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&namesJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, errs.ErrBatchNotFound
		}
		r.logger.Error("Failed to get batch", "batchId", batchID, "error", err)
		return nil, nil, fmt.Errorf("failed to get batch: %w", err)
	}

	var runNames []string
	if err := json.Unmarshal(namesJSON, &runNames); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal run names: %w", err)
	}

	outTbl := domain.GetRunOutcomeTable()
	query, args = querybuilder.NewQueryBuilder(schema).
		Select(outTbl.RunIndex, outTbl.RunName, outTbl.DurationMs, outTbl.ExecutionError, outTbl.ErrorReason, outTbl.CommandFailures).
		From(outTbl.TableName()).
		Where(outTbl.BatchID+" = ?", batchID).
		OrderBy(outTbl.RunIndex, true).
		Build()

	var rows []outcomeRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to get run outcomes", "batchId", batchID, "error", err)
		return nil, nil, fmt.Errorf("failed to get run outcomes: %w", err)
	}

	resTbl := domain.GetTestResultTable()
	query, args = querybuilder.NewQueryBuilder(schema).
		Select(resTbl.RunIndex, resTbl.TestID, resTbl.Passed, resTbl.Margin).
		From(resTbl.TableName()).
		Where(resTbl.BatchID+" = ?", batchID).
		OrderBy(resTbl.RunIndex, true).
		OrderBy(resTbl.Position, true).
		Build()

	var results []resultRow
	if err := r.db.SelectContext(ctx, &results, r.db.Rebind(query), args...); err != nil {
		r.logger.Error("Failed to get test results", "batchId", batchID, "error", err)
		return nil, nil, fmt.Errorf("failed to get test results: %w", err)
	}

	return runNames, assembleOutcomes(rows, results), nil
}

func assembleOutcomes(rows []outcomeRow, results []resultRow) []domain.RunOutcome {
	byRun := make(map[int][]domain.TestResult, len(rows))
	for _, res := range results {
		byRun[res.RunIndex] = append(byRun[res.RunIndex], res.TestResult)
	}

	outcomes := make([]domain.RunOutcome, 0, len(rows))
	for _, row := range rows {
		runResults := byRun[row.RunIndex]
		if runResults == nil {
			runResults = []domain.TestResult{}
		}
		outcomes = append(outcomes, domain.RunOutcome{
			RunName:         row.RunName,
			Results:         runResults,
			Duration:        time.Duration(row.DurationMs) * time.Millisecond,
			ExecutionError:  row.ExecutionError,
			ErrorReason:     row.ErrorReason,
			CommandFailures: row.CommandFailures,
		})
	}
	return outcomes
}

// LatestBatchID returns the most recently started batch
func (r *OutcomeRepository) LatestBatchID(ctx context.Context) (uuid.UUID, error) {
	tbl := domain.GetBatchRunTable()
	query, args := querybuilder.NewQueryBuilder(schema).
		Select(tbl.ID).
		From(tbl.TableName()).
		OrderBy(tbl.StartedAt, false).
		Limit(1).
		Build()

	var id uuid.UUID
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, errs.ErrBatchNotFound
		}
		r.logger.Error("Failed to get latest batch", "error", err)
		return uuid.Nil, fmt.Errorf("failed to get latest batch: %w", err)
	}
	return id, nil
}
