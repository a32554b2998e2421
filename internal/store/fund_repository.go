package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fundquant/internal/contracts"
)

// FundRepository stores fund master data (code → name)
type FundRepository struct {
	pool *pgxpool.Pool
}

// NewFundRepository creates a new fund repository
func NewFundRepository(pool *pgxpool.Pool) *FundRepository {
	return &FundRepository{pool: pool}
}

// Upsert stores the display name of a fund
func (r *FundRepository) Upsert(ctx context.Context, code, name, source string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO fund.instruments (code, name, source, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (code) DO UPDATE SET
			name = CASE WHEN EXCLUDED.name = '' THEN fund.instruments.name ELSE EXCLUDED.name END,
			source = EXCLUDED.source,
			updated_at = now()
	`, code, name, source)
	if err != nil {
		return fmt.Errorf("upsert fund %s: %w", code, err)
	}
	return nil
}

// Names loads every known name as a NameLookup
func (r *FundRepository) Names(ctx context.Context) (contracts.StaticNames, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name FROM fund.instruments WHERE name <> ''`)
	if err != nil {
		return nil, fmt.Errorf("load fund names: %w", err)
	}
	defer rows.Close()

	names := contracts.StaticNames{}
	for rows.Next() {
		var code, name string
		if err := rows.Scan(&code, &name); err != nil {
			return nil, fmt.Errorf("scan fund name: %w", err)
		}
		names[code] = name
	}
	return names, rows.Err()
}
