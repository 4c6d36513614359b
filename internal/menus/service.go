// Package menus serves scraped menus through the snapshot cache and keeps
// the scrape history.
package menus

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/scraper"
	"github.com/fdg312/dining-planner/internal/storage"
)

const (
	dateLayout   = "2006-01-02"
	defaultRuns  = 20
	maxRunsLimit = 200
)

var ErrInvalidDays = errors.New("days must be a positive integer")

type Logger interface {
	Printf(format string, v ...any)
}

// Source scrapes menus. *scraper.Scraper implements it.
type Source interface {
	ScrapeDate(ctx context.Context, date string) (*menu.DailyMenu, error)
	ScrapeToday(ctx context.Context) (*menu.DailyMenu, error)
	Today() string
}

type Service struct {
	source  Source
	cache   *storage.MenuCache
	runs    storage.RunStorage
	maxDays int
	logger  Logger
}

// NewService wires source behind cache. cache and runs may be nil.
func NewService(source Source, cache *storage.MenuCache, runs storage.RunStorage, maxDays int, logger Logger) *Service {
	if maxDays <= 0 {
		maxDays = 7
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{source: source, cache: cache, runs: runs, maxDays: maxDays, logger: logger}
}

// GetMenu returns the menu for date, or for today when date is empty.
// Fresh cached snapshots are served without contacting the menu source.
func (s *Service) GetMenu(ctx context.Context, date string) (*menu.DailyMenu, error) {
	today := date == ""
	if today {
		date = s.source.Today()
	} else if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w %q: expected YYYY-MM-DD", scraper.ErrInvalidDate, date)
	}

	if m, ok := s.cache.Get(ctx, date); ok {
		return m, nil
	}

	var (
		m   *menu.DailyMenu
		err error
	)
	if today {
		m, err = s.source.ScrapeToday(ctx)
	} else {
		m, err = s.source.ScrapeDate(ctx, date)
	}
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, m)
	return m, nil
}

// GetRange returns up to days consecutive menus starting today, capped at
// the configured maximum. Dates that fail are skipped; the call fails only
// when all of them did.
func (s *Service) GetRange(ctx context.Context, days int) ([]*menu.DailyMenu, error) {
	if days < 1 {
		return nil, ErrInvalidDays
	}
	if days > s.maxDays {
		days = s.maxDays
	}

	start, err := time.Parse(dateLayout, s.source.Today())
	if err != nil {
		return nil, fmt.Errorf("parse today: %w", err)
	}

	out := make([]*menu.DailyMenu, 0, days)
	var lastErr error
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		m, err := s.GetMenu(ctx, date)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		if err != nil {
			s.logger.Printf("WARN menus: date=%s skipped err=%v", date, err)
			lastErr = err
			continue
		}
		out = append(out, m)
	}
	if len(out) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}

// ListRuns returns recent scrape attempts, newest first.
func (s *Service) ListRuns(ctx context.Context, date string, limit int) ([]storage.ScrapeRun, error) {
	if s.runs == nil {
		return []storage.ScrapeRun{}, nil
	}
	if date != "" {
		if _, err := time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("%w %q: expected YYYY-MM-DD", scraper.ErrInvalidDate, date)
		}
	}
	if limit <= 0 {
		limit = defaultRuns
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	return s.runs.ListRuns(ctx, date, limit)
}

// RunRecorder persists scraper runs. Its Record method is meant for
// scraper.Options.OnRun.
type RunRecorder struct {
	runs   storage.RunStorage
	logger Logger
}

func NewRunRecorder(runs storage.RunStorage, logger Logger) *RunRecorder {
	if logger == nil {
		logger = log.Default()
	}
	return &RunRecorder{runs: runs, logger: logger}
}

func (r *RunRecorder) Record(ctx context.Context, run scraper.Run) {
	if r == nil || r.runs == nil {
		return
	}
	rec := storage.ScrapeRun{
		ID:            uuid.New(),
		Date:          run.Date,
		Strategy:      string(run.Strategy),
		ReportRefs:    run.Reports,
		FailedReports: run.Failed,
		ItemCount:     run.Items,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
	}
	if run.Err != nil {
		rec.Error = run.Err.Error()
	}
	if err := r.runs.RecordRun(ctx, rec); err != nil {
		r.logger.Printf("WARN menus: record run date=%s err=%v", run.Date, err)
	}
}
