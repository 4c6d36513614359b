package suggestions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fdg312/dining-planner/internal/llmplan"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/scraper"
)

const maxBodyBytes = 1 << 20

type SwapResponse struct {
	Alternatives []menu.Item `json:"alternatives"`
}

// HandleSuggest handles POST /v1/suggest
func HandleSuggest(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SuggestRequest
		if !decode(w, r, &req) {
			return
		}
		suggestion, err := service.Suggest(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, suggestion)
	}
}

// HandleSuggestLLM handles POST /v1/suggest-llm
func HandleSuggestLLM(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LLMSuggestRequest
		if !decode(w, r, &req) {
			return
		}
		suggestion, err := service.SuggestLLM(r.Context(), req)
		if err != nil {
			service.logger.Printf("WARN suggestions: llm plan failed err=%v", err)
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, suggestion)
	}
}

// HandleSwapOptions handles POST /v1/swap-options
func HandleSwapOptions(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SwapRequest
		if !decode(w, r, &req) {
			return
		}
		items, err := service.SwapOptions(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SwapResponse{Alternatives: items})
	}
}

// HandleAvailability handles POST /v1/availability
func HandleAvailability(service *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilityRequest
		if !decode(w, r, &req) {
			return
		}
		avail, err := service.Availability(r.Context(), req)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, avail)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var closed *ClosedError
	var respErr *llmplan.ResponseError
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, scraper.ErrInvalidDate):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.As(err, &closed):
		writeErrorDetails(w, http.StatusConflict, "locations_closed", closed.Error(), closed.Availability)
	case scraper.IsUpstreamUnavailable(err):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", "The dining hall menu site is unavailable")
	case errors.Is(err, llmplan.ErrRetriesExhausted):
		details := map[string]string{}
		if errors.As(err, &respErr) {
			details["raw_response"] = respErr.Raw
			details["reason"] = respErr.Reason
		}
		writeErrorDetails(w, http.StatusBadGateway, "planning_failed", err.Error(), details)
	case errors.As(err, &respErr):
		writeErrorDetails(w, http.StatusBadGateway, "planning_failed", "The model returned a plan that could not be read", map[string]string{
			"raw_response": respErr.Raw,
			"reason":       respErr.Reason,
		})
	case errors.Is(err, llmplan.ErrProvider), errors.Is(err, llmplan.ErrUnparseableResponse):
		writeError(w, http.StatusBadGateway, "planning_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build suggestion")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeErrorDetails(w, status, code, message, nil)
}

func writeErrorDetails(w http.ResponseWriter, status int, code, message string, details any) {
	body := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	writeJSON(w, status, map[string]interface{}{"error": body})
}
