package export

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fdg312/dining-planner/internal/plan"
)

const maxPlanBytes = 1 << 20

// HandleExport handles POST /v1/plans/export?format=pdf|csv with a
// DailySuggestion body.
func HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_format", err.Error())
		return
	}

	var s plan.DailySuggestion
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPlanBytes)).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON")
		return
	}

	data, err := Render(s, format)
	if err != nil {
		if errors.Is(err, ErrEmptyPlan) {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to render plan")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+Filename(s, format)+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
