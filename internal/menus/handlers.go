package menus

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/scraper"
	"github.com/fdg312/dining-planner/internal/storage"
)

type MenusResponse struct {
	Menus []*menu.DailyMenu `json:"menus"`
}

type RunDTO struct {
	ID            string    `json:"id"`
	Date          string    `json:"date"`
	Strategy      string    `json:"strategy"`
	ReportRefs    int       `json:"report_refs"`
	FailedReports int       `json:"failed_reports"`
	ItemCount     int       `json:"item_count"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

type RunsResponse struct {
	Runs []RunDTO `json:"runs"`
}

// HandleGetMenu handles GET /v1/menu?date=
func HandleGetMenu(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := service.GetMenu(r.Context(), r.URL.Query().Get("date"))
		if err != nil {
			writeScrapeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}

// HandleGetRange handles GET /v1/menus?days=
func HandleGetRange(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 1
		if raw := r.URL.Query().Get("days"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid_request", ErrInvalidDays.Error())
				return
			}
			days = n
		}

		menus, err := service.GetRange(r.Context(), days)
		if err != nil {
			writeScrapeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, MenusResponse{Menus: menus})
	}
}

// HandleListRuns handles GET /v1/scrape-runs?date=&limit=
func HandleListRuns(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer")
				return
			}
			limit = n
		}

		runs, err := service.ListRuns(r.Context(), r.URL.Query().Get("date"), limit)
		if err != nil {
			if errors.Is(err, scraper.ErrInvalidDate) {
				writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to list scrape runs")
			return
		}

		out := make([]RunDTO, 0, len(runs))
		for _, run := range runs {
			out = append(out, toDTO(run))
		}
		writeJSON(w, http.StatusOK, RunsResponse{Runs: out})
	}
}

func toDTO(run storage.ScrapeRun) RunDTO {
	return RunDTO{
		ID:            run.ID.String(),
		Date:          run.Date,
		Strategy:      run.Strategy,
		ReportRefs:    run.ReportRefs,
		FailedReports: run.FailedReports,
		ItemCount:     run.ItemCount,
		Error:         run.Error,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
	}
}

// writeScrapeError maps scrape failures to the API's error codes.
func writeScrapeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scraper.ErrInvalidDate), errors.Is(err, ErrInvalidDays):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case scraper.IsUpstreamUnavailable(err):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "The dining hall menu site is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load menu")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
