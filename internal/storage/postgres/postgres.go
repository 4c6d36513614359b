package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/storage"
)

// PostgresStorage stores menus as jsonb snapshots in menu_snapshots and
// scrape history in scrape_runs.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// New connects and pings the database.
func New(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStorage{pool: pool}, nil
}

func (p *PostgresStorage) GetMenu(ctx context.Context, date string) (*storage.MenuSnapshot, error) {
	query := `
		SELECT menu_date::text, payload, item_count, fetched_at
		FROM menu_snapshots
		WHERE menu_date = $1::date
	`

	var (
		snap    storage.MenuSnapshot
		payload []byte
	)
	err := p.pool.QueryRow(ctx, query, date).Scan(&snap.Date, &payload, &snap.ItemCount, &snap.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get menu snapshot: %w", err)
	}

	var m menu.DailyMenu
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("failed to decode menu snapshot %s: %w", date, err)
	}
	snap.Menu = &m
	return &snap, nil
}

func (p *PostgresStorage) PutMenu(ctx context.Context, snap storage.MenuSnapshot) error {
	payload, err := json.Marshal(snap.Menu)
	if err != nil {
		return fmt.Errorf("failed to encode menu snapshot: %w", err)
	}

	query := `
		INSERT INTO menu_snapshots (menu_date, payload, item_count, fetched_at)
		VALUES ($1::date, $2, $3, $4)
		ON CONFLICT (menu_date)
		DO UPDATE SET
			payload = EXCLUDED.payload,
			item_count = EXCLUDED.item_count,
			fetched_at = EXCLUDED.fetched_at
	`
	if _, err := p.pool.Exec(ctx, query, snap.Date, payload, snap.ItemCount, snap.FetchedAt); err != nil {
		return fmt.Errorf("failed to upsert menu snapshot: %w", err)
	}
	return nil
}

func (p *PostgresStorage) DeleteMenusBefore(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM menu_snapshots WHERE fetched_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune menu snapshots: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (p *PostgresStorage) RecordRun(ctx context.Context, run storage.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (id, menu_date, strategy, report_refs, failed_reports, item_count, error, started_at, finished_at)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := p.pool.Exec(ctx, query,
		run.ID,
		run.Date,
		run.Strategy,
		run.ReportRefs,
		run.FailedReports,
		run.ItemCount,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record scrape run: %w", err)
	}
	return nil
}

func (p *PostgresStorage) ListRuns(ctx context.Context, date string, limit int) ([]storage.ScrapeRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, menu_date::text, strategy, report_refs, failed_reports, item_count, error, started_at, finished_at
		FROM scrape_runs
		WHERE ($1 = '' OR menu_date = NULLIF($1, '')::date)
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := p.pool.Query(ctx, query, date, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list scrape runs: %w", err)
	}
	defer rows.Close()

	runs := []storage.ScrapeRun{}
	for rows.Next() {
		var run storage.ScrapeRun
		err := rows.Scan(
			&run.ID,
			&run.Date,
			&run.Strategy,
			&run.ReportRefs,
			&run.FailedReports,
			&run.ItemCount,
			&run.Error,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func (p *PostgresStorage) Close() error {
	p.pool.Close()
	return nil
}
