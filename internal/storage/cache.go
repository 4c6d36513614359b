package storage

import (
	"context"
	"log"
	"time"

	"github.com/fdg312/dining-planner/internal/menu"
)

type Logger interface {
	Printf(format string, v ...any)
}

// MenuCache serves stored menus younger than ttl. A zero ttl disables it.
// Storage errors are logged and treated as misses.
type MenuCache struct {
	store  MenuStorage
	ttl    time.Duration
	now    func() time.Time
	logger Logger
}

func NewMenuCache(store MenuStorage, ttl time.Duration, logger Logger) *MenuCache {
	if logger == nil {
		logger = log.Default()
	}
	return &MenuCache{store: store, ttl: ttl, now: time.Now, logger: logger}
}

func (c *MenuCache) Enabled() bool {
	return c != nil && c.store != nil && c.ttl > 0
}

// Get returns the cached menu for date, if fresh.
func (c *MenuCache) Get(ctx context.Context, date string) (*menu.DailyMenu, bool) {
	if !c.Enabled() {
		return nil, false
	}
	snap, err := c.store.GetMenu(ctx, date)
	if err != nil {
		c.logger.Printf("WARN cache: get date=%s err=%v", date, err)
		return nil, false
	}
	if snap == nil || snap.Menu == nil || c.now().Sub(snap.FetchedAt) > c.ttl {
		return nil, false
	}
	return snap.Menu, true
}

// Put stores m. Empty menus are not cached so a closed day is re-checked,
// and partial menus are not cached so a failed report is retried.
func (c *MenuCache) Put(ctx context.Context, m *menu.DailyMenu) {
	if !c.Enabled() || m == nil || m.ItemCount() == 0 {
		return
	}
	if m.Partial() {
		c.logger.Printf("INFO cache: date=%s not cached, %d reports unavailable", m.Date, len(m.Unavailable))
		return
	}
	snap := MenuSnapshot{Date: m.Date, Menu: m, ItemCount: m.ItemCount(), FetchedAt: c.now()}
	if err := c.store.PutMenu(ctx, snap); err != nil {
		c.logger.Printf("WARN cache: put date=%s err=%v", m.Date, err)
	}
}

// Prune drops snapshots older than the ttl.
func (c *MenuCache) Prune(ctx context.Context) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}
	return c.store.DeleteMenusBefore(ctx, c.now().Add(-c.ttl))
}
