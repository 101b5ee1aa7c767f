package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/danphilibin/ticket-waitlist/internal/model"
)

// PostgresStore implements Store using PostgreSQL. Prices are stored as
// NUMERIC for exact decimal precision.
//
// Expected schema:
//
//	CREATE TABLE ticks (
//	    id               TEXT PRIMARY KEY,
//	    at               TIMESTAMPTZ NOT NULL,
//	    outcome          TEXT NOT NULL,
//	    qualifying_count INT NOT NULL,
//	    lowest_price     NUMERIC,
//	    trend            TEXT NOT NULL DEFAULT '',
//	    notified         BOOLEAN NOT NULL,
//	    error            TEXT NOT NULL DEFAULT ''
//	);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed archive.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) AppendTick(ctx context.Context, rec *model.TickRecord) error {
	var lowest *string
	if rec.LowestPrice != nil {
		v := rec.LowestPrice.String()
		lowest = &v
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO ticks (id, at, outcome, qualifying_count, lowest_price, trend, notified, error)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6, $7, $8)`,
		rec.ID, rec.At, rec.Outcome, rec.QualifyingCount,
		lowest, string(rec.Trend), rec.Notified, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("append tick %s: %w", rec.ID, err)
	}
	return nil
}

func (s *PostgresStore) RecentTicks(ctx context.Context, limit int) ([]model.TickRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, at, outcome, qualifying_count, lowest_price::TEXT, trend, notified, error
		 FROM ticks ORDER BY at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent ticks: %w", err)
	}
	defer rows.Close()

	var ticks []model.TickRecord
	for rows.Next() {
		rec, err := scanTick(rows.Scan)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, *rec)
	}
	return ticks, rows.Err()
}

func (s *PostgresStore) LatestTick(ctx context.Context) (*model.TickRecord, error) {
	rows, err := s.RecentTicks(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func scanTick(scan func(...any) error) (*model.TickRecord, error) {
	var rec model.TickRecord
	var lowest *string
	var trend string

	if err := scan(&rec.ID, &rec.At, &rec.Outcome, &rec.QualifyingCount,
		&lowest, &trend, &rec.Notified, &rec.Error); err != nil {
		return nil, fmt.Errorf("scan tick: %w", err)
	}

	rec.Trend = model.Trend(trend)
	if lowest != nil {
		price, err := decimal.NewFromString(*lowest)
		if err != nil {
			return nil, fmt.Errorf("parse lowest_price %q: %w", *lowest, err)
		}
		rec.LowestPrice = &price
	}
	return &rec, nil
}
