// Package scraper builds a DailyMenu from the university's ServiceMenuReport
// site. An index page lists opaque report ids; each report page is an HTML
// nutrition table for one location and meal.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fdg312/dining-planner/internal/menu"
)

const dateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("invalid date")

type Logger interface {
	Printf(format string, v ...any)
}

// Archiver stores raw pages so upstream markup changes can be captured as
// fixtures.
type Archiver interface {
	Archive(ctx context.Context, key string, html []byte) error
}

// Run summarizes one date's scrape.
type Run struct {
	Date       string
	Strategy   ExtractStrategy
	Reports    int
	Failed     int
	Items      int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Config controls how the scraper talks to the menu source.
type Config struct {
	BaseURL             string
	Timeout             time.Duration
	Concurrency         int
	RequestsPerSecond   float64
	DisableFlatFallback bool
	MaxRangeDays        int
	Location            *time.Location
}

// Options are the optional collaborators of a Scraper.
type Options struct {
	HTTPClient *http.Client
	Archiver   Archiver
	Logger     Logger
	Now        func() time.Time
	// OnRun, when set, is called after every scrape attempt.
	OnRun func(ctx context.Context, run Run)
}

type Scraper struct {
	client      *Client
	concurrency int
	limiter     *rate.Limiter
	allowFlat   bool
	maxDays     int
	loc         *time.Location
	archiver    Archiver
	logger      Logger
	now         func() time.Time
	onRun       func(ctx context.Context, run Run)
}

func New(cfg Config, opts Options) *Scraper {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	maxDays := cfg.MaxRangeDays
	if maxDays <= 0 {
		maxDays = 7
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), concurrency)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Scraper{
		client:      NewClient(cfg.BaseURL, opts.HTTPClient, cfg.Timeout),
		concurrency: concurrency,
		limiter:     limiter,
		allowFlat:   !cfg.DisableFlatFallback,
		maxDays:     maxDays,
		loc:         loc,
		archiver:    opts.Archiver,
		logger:      logger,
		now:         now,
		onRun:       opts.OnRun,
	}
}

// Today returns the current date in the menu's timezone.
func (s *Scraper) Today() string {
	return s.now().In(s.loc).Format(dateLayout)
}

// ScrapeDate scrapes every location's menu for date (YYYY-MM-DD).
func (s *Scraper) ScrapeDate(ctx context.Context, date string) (*menu.DailyMenu, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, fmt.Errorf("%w %q: expected YYYY-MM-DD", ErrInvalidDate, date)
	}
	return s.scrape(ctx, date, date)
}

// ScrapeToday scrapes the site's Today page and stamps it with today's date.
func (s *Scraper) ScrapeToday(ctx context.Context) (*menu.DailyMenu, error) {
	return s.scrape(ctx, "", s.Today())
}

// ScrapeRange scrapes days consecutive dates starting today. Dates whose
// index page fails are skipped and logged; the call fails only when every
// date failed or ctx was cancelled.
func (s *Scraper) ScrapeRange(ctx context.Context, days int) ([]*menu.DailyMenu, error) {
	if days < 1 {
		days = 1
	}
	if days > s.maxDays {
		days = s.maxDays
	}

	start := s.now().In(s.loc)
	menus := make([]*menu.DailyMenu, 0, days)
	var lastErr error
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(dateLayout)
		m, err := s.ScrapeDate(ctx, date)
		if ctxErr := ctx.Err(); ctxErr != nil {
			if m != nil {
				menus = append(menus, m)
			}
			return menus, ctxErr
		}
		if err != nil {
			s.logger.Printf("WARN scraper: date=%s skipped err=%v", date, err)
			lastErr = err
			continue
		}
		menus = append(menus, m)
	}
	if len(menus) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return menus, nil
}

// scrape fetches the index for indexDate ("" means Today) and every report
// it lists. Per-report failures leave that slot absent. On cancellation the
// partial menu is returned with ctx's error.
func (s *Scraper) scrape(ctx context.Context, indexDate, date string) (*menu.DailyMenu, error) {
	run := Run{Date: date, Strategy: StrategyNone, StartedAt: s.now()}
	daily, err := s.scrapeInto(ctx, indexDate, &run)
	run.Err = err
	run.FinishedAt = s.now()
	if daily != nil {
		run.Items = daily.ItemCount()
	}
	if s.onRun != nil {
		s.onRun(context.WithoutCancel(ctx), run)
	}
	return daily, err
}

func (s *Scraper) scrapeInto(ctx context.Context, indexDate string, run *Run) (*menu.DailyMenu, error) {
	date := run.Date
	indexHTML, err := s.client.FetchIndex(ctx, indexDate)
	if err != nil {
		return nil, fmt.Errorf("%w: index for %s: %w", ErrUpstreamUnavailable, date, err)
	}
	s.archive(ctx, date, "index", indexHTML)

	refs, strategy := extractReports(indexHTML, s.allowFlat)
	run.Strategy = strategy
	run.Reports = len(refs)
	switch strategy {
	case StrategyFlatSlice:
		s.logger.Printf("WARN scraper: date=%s strategy=%s refs=%d (nested navigation tree not found)", date, strategy, len(refs))
	case StrategyNone:
		s.logger.Printf("WARN scraper: date=%s strategy=%s no report ids found", date, strategy)
	default:
		s.logger.Printf("INFO scraper: date=%s strategy=%s refs=%d", date, strategy, len(refs))
	}

	daily := menu.NewDailyMenu(date)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, ref := range refs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			items, err := s.fetchReport(gctx, ref, date)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				run.Failed++
				daily.Unavailable = append(daily.Unavailable, menu.Slot{LocationID: ref.LocationID, Meal: ref.Meal})
				if gctx.Err() == nil {
					s.logger.Printf("WARN scraper: date=%s report=%s location=%s meal=%s err=%v", date, ref.ID, ref.LocationID, ref.Meal, err)
				}
				return nil
			}
			daily.SetMeal(ref.LocationID, ref.Location, ref.Meal, items)
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(daily.Unavailable, func(i, j int) bool {
		a, b := daily.Unavailable[i], daily.Unavailable[j]
		if a.LocationID != b.LocationID {
			return a.LocationID < b.LocationID
		}
		return a.Meal < b.Meal
	})

	if err := ctx.Err(); err != nil {
		return daily, err
	}
	return daily, nil
}

func (s *Scraper) fetchReport(ctx context.Context, ref ReportRef, date string) ([]menu.Item, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	html, err := s.client.FetchReport(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	s.archive(ctx, date, ref.ID, html)
	return ParseReport(html, ref, date)
}

func (s *Scraper) archive(ctx context.Context, date, name string, html []byte) {
	if s.archiver == nil {
		return
	}
	key := SnapshotKey(date, name)
	if err := s.archiver.Archive(ctx, key, html); err != nil {
		s.logger.Printf("WARN scraper: archive key=%s err=%v", key, err)
	}
}

// SnapshotKey is the blob key of a raw page.
func SnapshotKey(date, name string) string {
	return "snapshots/" + date + "/" + name + ".html"
}

// IsUpstreamUnavailable reports whether err means the index page failed.
func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}
