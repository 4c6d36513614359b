// Command scrape fetches menus from the ServiceMenuReport site and prints
// them as JSON. With -archive the raw pages are kept in the configured
// snapshot store for use as test fixtures.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/fdg312/dining-planner/internal/blob"
	"github.com/fdg312/dining-planner/internal/config"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/scraper"
)

func main() {
	date := flag.String("date", "", "date to scrape (YYYY-MM-DD); today when empty")
	days := flag.Int("days", 0, "scrape this many days starting today instead of one date")
	archive := flag.Bool("archive", false, "store raw pages through BLOB_MODE / SNAPSHOT_DIR")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	cfg := config.Load()
	logger := log.New(os.Stderr, "", log.LstdFlags)

	opts := scraper.Options{
		Logger: logger,
		OnRun: func(_ context.Context, run scraper.Run) {
			logger.Printf("INFO scrape: date=%s strategy=%s reports=%d failed=%d items=%d took=%s",
				run.Date, run.Strategy, run.Reports, run.Failed, run.Items, run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	if *archive {
		store, mode, err := blob.NewBlobStore(ctx, cfg.Blob, logger)
		if err != nil {
			logger.Fatalf("FATAL blob: %v", err)
		}
		if store == nil {
			logger.Fatalf("FATAL blob: -archive needs SNAPSHOT_DIR or an S3 store (BLOB_MODE=%s)", mode)
		}
		opts.Archiver = blob.NewSnapshotArchiver(store)
	}

	s := scraper.New(scraper.Config{
		BaseURL:             cfg.Scraper.BaseURL,
		Timeout:             cfg.Scraper.Timeout(),
		Concurrency:         cfg.Scraper.Concurrency,
		RequestsPerSecond:   cfg.Scraper.RequestsPerSecond,
		DisableFlatFallback: cfg.Scraper.DisableFlatFallback,
		MaxRangeDays:        cfg.Scraper.MaxRangeDays,
		Location:            cfg.Scraper.Location(),
	}, opts)

	var out any
	switch {
	case *days > 0:
		menus, err := s.ScrapeRange(ctx, *days)
		if err != nil && len(menus) == 0 {
			logger.Fatalf("FATAL scrape: %v", err)
		}
		if err != nil {
			logger.Printf("WARN scrape: partial range: %v", err)
		}
		out = menus
	default:
		var (
			m   *menu.DailyMenu
			err error
		)
		if *date == "" {
			m, err = s.ScrapeToday(ctx)
		} else {
			m, err = s.ScrapeDate(ctx, *date)
		}
		if err != nil {
			logger.Fatalf("FATAL scrape: %v", err)
		}
		out = m
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Fatalf("FATAL scrape: encode: %v", err)
	}
}
