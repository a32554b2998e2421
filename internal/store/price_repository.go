// Package store persists prices, fund names and analysis results in Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/fundquant/internal/contracts"
)

// PriceRepository implements contracts.SeriesSource over fund.daily_prices
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// ListCodes returns every code with at least one price
func (r *PriceRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT code FROM fund.daily_prices ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	codes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return codes, nil
}

// LoadSeries loads raw points for codes (all codes when empty)
func (r *PriceRepository) LoadSeries(ctx context.Context, codes []string) ([]contracts.Instrument, error) {
	query := `
		SELECT p.code, COALESCE(f.name, ''), p.trade_date,
		       p.open_price, p.high_price, p.low_price, p.close_price,
		       p.prev_close, p.volume, p.amount
		FROM fund.daily_prices p
		LEFT JOIN fund.instruments f ON f.code = p.code
		WHERE cardinality($1::text[]) = 0 OR p.code = ANY($1)
		ORDER BY p.code, p.trade_date
	`
	if codes == nil {
		codes = []string{}
	}

	rows, err := r.pool.Query(ctx, query, codes)
	if err != nil {
		return nil, fmt.Errorf("load series: %w", err)
	}
	defer rows.Close()

	var out []contracts.Instrument
	for rows.Next() {
		var (
			code, name string
			p          contracts.PricePoint
		)
		if err := rows.Scan(&code, &name, &p.Date,
			&p.Open, &p.High, &p.Low, &p.Close,
			&p.PrevClose, &p.Volume, &p.Amount,
		); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}

		if len(out) == 0 || out[len(out)-1].Code != code {
			out = append(out, contracts.Instrument{Code: code, Name: name})
		}
		last := &out[len(out)-1]
		last.Points = append(last.Points, p)
	}
	return out, rows.Err()
}

// LatestDate returns the newest stored date for code (zero when none)
func (r *PriceRepository) LatestDate(ctx context.Context, code string) (time.Time, error) {
	var d *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(trade_date) FROM fund.daily_prices WHERE code = $1`, code,
	).Scan(&d)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest date %s: %w", code, err)
	}
	if d == nil {
		return time.Time{}, nil
	}
	return *d, nil
}

// SavePoints upserts points for code in one round trip
func (r *PriceRepository) SavePoints(ctx context.Context, code string, points []contracts.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	query := `
		INSERT INTO fund.daily_prices
			(code, trade_date, open_price, high_price, low_price, close_price, prev_close, volume, amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code, trade_date) DO UPDATE SET
			open_price = EXCLUDED.open_price,
			high_price = EXCLUDED.high_price,
			low_price = EXCLUDED.low_price,
			close_price = EXCLUDED.close_price,
			prev_close = EXCLUDED.prev_close,
			volume = EXCLUDED.volume,
			amount = EXCLUDED.amount
	`

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(query, code, p.Date, p.Open, p.High, p.Low, p.Close, p.PrevClose, p.Volume, p.Amount)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save %d points for %s: %w", len(points), code, err)
	}
	return nil
}
