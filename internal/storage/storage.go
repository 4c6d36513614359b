// Package storage defines persistence for scraped menus and scrape history.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/dining-planner/internal/menu"
)

// MenuSnapshot is a scraped DailyMenu as stored.
type MenuSnapshot struct {
	Date      string
	Menu      *menu.DailyMenu
	ItemCount int
	FetchedAt time.Time
}

// ScrapeRun is one recorded scrape attempt.
type ScrapeRun struct {
	ID            uuid.UUID
	Date          string
	Strategy      string
	ReportRefs    int
	FailedReports int
	ItemCount     int
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// MenuStorage stores one snapshot per date. GetMenu returns nil, nil when
// nothing is stored for date.
type MenuStorage interface {
	GetMenu(ctx context.Context, date string) (*MenuSnapshot, error)
	PutMenu(ctx context.Context, snap MenuSnapshot) error
	// DeleteMenusBefore removes snapshots fetched before cutoff.
	DeleteMenusBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// RunStorage keeps scrape history.
type RunStorage interface {
	RecordRun(ctx context.Context, run ScrapeRun) error
	// ListRuns returns the newest runs first, for date or for every date
	// when date is empty.
	ListRuns(ctx context.Context, date string, limit int) ([]ScrapeRun, error)
}

// Storage is implemented by the memory and Postgres backends.
type Storage interface {
	MenuStorage
	RunStorage
	Close() error
}
