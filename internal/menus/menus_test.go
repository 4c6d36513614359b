package menus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/scraper"
	"github.com/fdg312/dining-planner/internal/storage"
	"github.com/fdg312/dining-planner/internal/storage/memory"
)

type fakeSource struct {
	mu      sync.Mutex
	today   string
	down    map[string]bool
	flaky   map[string]bool // dinner report fails on the first scrape of a date
	scraped []string
}

func (f *fakeSource) Today() string { return f.today }

func (f *fakeSource) ScrapeToday(ctx context.Context) (*menu.DailyMenu, error) {
	return f.scrape("today", f.today)
}

func (f *fakeSource) ScrapeDate(ctx context.Context, date string) (*menu.DailyMenu, error) {
	return f.scrape(date, date)
}

func (f *fakeSource) scrape(label, date string) (*menu.DailyMenu, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scraped = append(f.scraped, label)
	if f.down[date] {
		return nil, fmt.Errorf("%w: index for %s: boom", scraper.ErrUpstreamUnavailable, date)
	}
	m := menu.NewDailyMenu(date)
	m.SetMeal("chestnut", "Chestnut Residence", menu.Breakfast, []menu.Item{{ID: "b1", Name: "Scrambled Eggs", Meal: menu.Breakfast, Date: date, Protein: 14}})
	if f.flaky[date] {
		delete(f.flaky, date)
		m.Unavailable = []menu.Slot{{LocationID: "chestnut", Meal: menu.Dinner}}
		return m, nil
	}
	m.SetMeal("chestnut", "Chestnut Residence", menu.Dinner, []menu.Item{{ID: "d1", Name: "Grilled Chicken", Meal: menu.Dinner, Date: date, Protein: 38}})
	return m, nil
}

func newTestService(src *fakeSource) (*Service, *memory.MemoryStorage, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)
	store := memory.New()
	cache := storage.NewMenuCache(store, time.Hour, logger)
	return NewService(src, cache, store, 3, logger), store, &buf
}

func TestGetMenuUsesCache(t *testing.T) {
	src := &fakeSource{today: "2025-01-15"}
	svc, _, _ := newTestService(src)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		m, err := svc.GetMenu(ctx, "2025-01-16")
		if err != nil {
			t.Fatalf("GetMenu: %v", err)
		}
		if m.Date != "2025-01-16" || m.ItemCount() != 2 {
			t.Fatalf("unexpected menu %+v", m)
		}
	}
	if len(src.scraped) != 1 {
		t.Fatalf("expected one scrape, got %v", src.scraped)
	}
}

func TestGetMenuDoesNotCachePartialMenu(t *testing.T) {
	src := &fakeSource{today: "2025-01-15", flaky: map[string]bool{"2025-01-15": true}}
	svc, _, logs := newTestService(src)
	ctx := context.Background()

	first, err := svc.GetMenu(ctx, "2025-01-15")
	if err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if !first.Partial() || len(first.Items("chestnut", menu.Dinner)) != 0 {
		t.Fatalf("expected partial menu without dinner, got %+v", first)
	}

	second, err := svc.GetMenu(ctx, "2025-01-15")
	if err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if second.Partial() || len(second.Items("chestnut", menu.Dinner)) != 1 {
		t.Fatalf("second call should rescrape and see dinner, got %+v", second)
	}
	if len(src.scraped) != 2 {
		t.Fatalf("expected two scrapes, got %v", src.scraped)
	}
	if !strings.Contains(logs.String(), "not cached, 1 reports unavailable") {
		t.Fatalf("expected cache skip log, got %s", logs.String())
	}

	if _, err := svc.GetMenu(ctx, "2025-01-15"); err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if len(src.scraped) != 2 {
		t.Fatalf("complete menu should be served from cache, got %v", src.scraped)
	}
}

func TestGetMenuEmptyDateScrapesTodayPage(t *testing.T) {
	src := &fakeSource{today: "2025-01-15"}
	svc, _, _ := newTestService(src)

	m, err := svc.GetMenu(context.Background(), "")
	if err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if m.Date != "2025-01-15" {
		t.Fatalf("date = %s", m.Date)
	}
	if len(src.scraped) != 1 || src.scraped[0] != "today" {
		t.Fatalf("expected the Today page, got %v", src.scraped)
	}

	// A later request for the explicit date is a cache hit.
	if _, err := svc.GetMenu(context.Background(), "2025-01-15"); err != nil {
		t.Fatalf("GetMenu: %v", err)
	}
	if len(src.scraped) != 1 {
		t.Fatalf("expected cache hit, got %v", src.scraped)
	}
}

func TestGetMenuRejectsBadDate(t *testing.T) {
	svc, _, _ := newTestService(&fakeSource{today: "2025-01-15"})
	if _, err := svc.GetMenu(context.Background(), "15/01/2025"); !errors.Is(err, scraper.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestGetRangeSkipsFailedDatesAndCaps(t *testing.T) {
	src := &fakeSource{today: "2025-01-30", down: map[string]bool{"2025-01-31": true}}
	svc, _, buf := newTestService(src)

	menus, err := svc.GetRange(context.Background(), 10)
	if err != nil {
		t.Fatalf("GetRange: %v", err)
	}
	if len(menus) != 2 || menus[0].Date != "2025-01-30" || menus[1].Date != "2025-02-01" {
		t.Fatalf("unexpected range %v", menus)
	}
	if !strings.Contains(buf.String(), "WARN menus: date=2025-01-31 skipped") {
		t.Fatalf("expected skip warning, got %s", buf.String())
	}

	if _, err := svc.GetRange(context.Background(), 0); !errors.Is(err, ErrInvalidDays) {
		t.Fatalf("expected ErrInvalidDays, got %v", err)
	}
}

func TestGetRangeAllFailed(t *testing.T) {
	src := &fakeSource{today: "2025-01-15", down: map[string]bool{"2025-01-15": true}}
	svc, _, _ := newTestService(src)
	if _, err := svc.GetRange(context.Background(), 1); !scraper.IsUpstreamUnavailable(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestRunRecorderPersistsRuns(t *testing.T) {
	store := memory.New()
	rec := NewRunRecorder(store, log.New(&bytes.Buffer{}, "", 0))
	started := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)

	rec.Record(context.Background(), scraper.Run{Date: "2025-01-15", Strategy: scraper.StrategyNested, Reports: 12, Failed: 1, Items: 55, StartedAt: started, FinishedAt: started.Add(time.Second)})
	rec.Record(context.Background(), scraper.Run{Date: "2025-01-15", Strategy: scraper.StrategyNone, Err: errors.New("menu source unavailable"), StartedAt: started.Add(time.Minute), FinishedAt: started.Add(time.Minute)})

	svc := NewService(&fakeSource{today: "2025-01-15"}, nil, store, 7, nil)
	runs, err := svc.ListRuns(context.Background(), "2025-01-15", 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Error != "menu source unavailable" || runs[1].ReportRefs != 12 || runs[1].FailedReports != 1 || runs[1].ItemCount != 55 {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].ID == runs[1].ID {
		t.Fatal("run ids must be unique")
	}
}

func TestHandleGetMenu(t *testing.T) {
	src := &fakeSource{today: "2025-01-15", down: map[string]bool{"2025-01-20": true}}
	svc, _, _ := newTestService(src)
	h := HandleGetMenu(svc)

	tests := []struct {
		name     string
		query    string
		status   int
		wantCode string
	}{
		{"today", "", http.StatusOK, ""},
		{"explicit date", "?date=2025-01-16", http.StatusOK, ""},
		{"bad date", "?date=tomorrow", http.StatusBadRequest, "invalid_request"},
		{"upstream down", "?date=2025-01-20", http.StatusBadGateway, "upstream_unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h(rr, httptest.NewRequest(http.MethodGet, "/v1/menu"+tt.query, nil))
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if tt.wantCode == "" {
				var m menu.DailyMenu
				if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if _, ok := m.Locations["chestnut"]; !ok {
					t.Fatalf("missing location: %s", rr.Body.String())
				}
				return
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			json.Unmarshal(rr.Body.Bytes(), &body)
			if body.Error.Code != tt.wantCode {
				t.Fatalf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleGetRangeAndRuns(t *testing.T) {
	store := memory.New()
	src := &fakeSource{today: "2025-01-15"}
	svc := NewService(src, storage.NewMenuCache(store, time.Hour, nil), store, 7, log.New(&bytes.Buffer{}, "", 0))

	rr := httptest.NewRecorder()
	HandleGetRange(svc)(rr, httptest.NewRequest(http.MethodGet, "/v1/menus?days=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var resp MenusResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Menus) != 2 {
		t.Fatalf("expected 2 menus, got %d", len(resp.Menus))
	}

	rr = httptest.NewRecorder()
	HandleGetRange(svc)(rr, httptest.NewRequest(http.MethodGet, "/v1/menus?days=zero", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad days status = %d", rr.Code)
	}

	NewRunRecorder(store, nil).Record(context.Background(), scraper.Run{Date: "2025-01-15", Strategy: scraper.StrategyNested, Reports: 3, Items: 9})
	rr = httptest.NewRecorder()
	HandleListRuns(svc)(rr, httptest.NewRequest(http.MethodGet, "/v1/scrape-runs?limit=5", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("runs status = %d: %s", rr.Code, rr.Body.String())
	}
	var runs RunsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &runs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(runs.Runs) != 1 || runs.Runs[0].Strategy != "nested" || runs.Runs[0].ItemCount != 9 {
		t.Fatalf("unexpected runs %+v", runs.Runs)
	}

	rr = httptest.NewRecorder()
	HandleListRuns(svc)(rr, httptest.NewRequest(http.MethodGet, "/v1/scrape-runs?date=bad", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d", rr.Code)
	}
}
