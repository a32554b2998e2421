package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fundquant/internal/contracts"
)

// ErrNoRuns is returned when no batch has been stored yet
var ErrNoRuns = errors.New("no analysis runs stored")

// RecordRepository implements contracts.RecordSink over fund.analysis_*
type RecordRepository struct {
	pool *pgxpool.Pool
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

// SaveRecords stores the run header and every record in one transaction
func (r *RecordRepository) SaveRecords(ctx context.Context, result *contracts.BatchResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO fund.analysis_runs
			(run_id, profile_hash, workers, started_at, finished_at, succeeded, failed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, result.RunID, result.ProfileHash, result.Workers,
		result.StartedAt, result.FinishedAt, result.Succeeded, result.Failed)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", result.RunID, err)
	}

	batch := &pgx.Batch{}
	for _, rec := range result.Records {
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.Code, err)
		}
		batch.Queue(`
			INSERT INTO fund.analysis_records (run_id, code, status, record)
			VALUES ($1, $2, $3, $4)
		`, result.RunID, rec.Code, string(rec.Status), payload)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert records for run %s: %w", result.RunID, err)
	}

	return tx.Commit(ctx)
}

// LatestRun loads the newest stored run with its records sorted by code
func (r *RecordRepository) LatestRun(ctx context.Context) (*contracts.BatchResult, error) {
	result := &contracts.BatchResult{}
	err := r.pool.QueryRow(ctx, `
		SELECT run_id::text, profile_hash, workers, started_at, finished_at, succeeded, failed
		FROM fund.analysis_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`).Scan(&result.RunID, &result.ProfileHash, &result.Workers,
		&result.StartedAt, &result.FinishedAt, &result.Succeeded, &result.Failed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT record FROM fund.analysis_records WHERE run_id = $1 ORDER BY code
	`, result.RunID)
	if err != nil {
		return nil, fmt.Errorf("records of run %s: %w", result.RunID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec contracts.AnalysisRecord
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		result.Records = append(result.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result.Records) > 0 {
		result.Schema = make([]string, len(result.Records[0].Fields))
		for i, f := range result.Records[0].Fields {
			result.Schema[i] = f.Key
		}
	}
	return result, nil
}
