package nutrition

import (
	"encoding/json"
	"net/http"
)

// Handler serves the target calculator.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// HandleCalculate handles POST /v1/targets/calculate
func (h *Handler) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req BodyStats
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	targets := Calculate(req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(CalculateResponse{
		Targets:        targets,
		ProteinPerMeal: ProteinPerMeal(targets.Protein),
	})
}

type CalculateResponse struct {
	Targets
	ProteinPerMeal int `json:"protein_per_meal"`
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
