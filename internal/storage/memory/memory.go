package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fdg312/dining-planner/internal/storage"
)

// MemoryStorage keeps menus and runs in process memory.
type MemoryStorage struct {
	mu    sync.RWMutex
	menus map[string]storage.MenuSnapshot
	runs  []storage.ScrapeRun
}

func New() *MemoryStorage {
	return &MemoryStorage{menus: make(map[string]storage.MenuSnapshot)}
}

func (m *MemoryStorage) GetMenu(ctx context.Context, date string) (*storage.MenuSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.menus[date]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *MemoryStorage) PutMenu(ctx context.Context, snap storage.MenuSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.menus[snap.Date] = snap
	return nil
}

func (m *MemoryStorage) DeleteMenusBefore(ctx context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for date, snap := range m.menus {
		if snap.FetchedAt.Before(cutoff) {
			delete(m.menus, date)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStorage) RecordRun(ctx context.Context, run storage.ScrapeRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryStorage) ListRuns(ctx context.Context, date string, limit int) ([]storage.ScrapeRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []storage.ScrapeRun{}
	for _, run := range m.runs {
		if date == "" || run.Date == date {
			out = append(out, run)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStorage) Close() error {
	return nil
}
