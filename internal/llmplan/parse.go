package llmplan

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrUnparseableResponse = errors.New("llmplan: unparseable model response")
	ErrRetriesExhausted    = errors.New("llmplan: tool call retries exhausted")
	ErrProvider            = errors.New("llmplan: provider call failed")
)

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ResponseError carries the raw model output that could not be used.
type ResponseError struct {
	Raw    string
	Reason string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%v: %s", ErrUnparseableResponse, e.Reason)
}

func (e *ResponseError) Unwrap() error { return ErrUnparseableResponse }

type rawItem struct {
	ItemID   string  `json:"itemId"`
	Servings float64 `json:"servings"`
}

type rawMeal struct {
	Meal  string    `json:"meal"`
	Items []rawItem `json:"items"`
}

type rawPlan struct {
	Meals []rawMeal `json:"meals"`
}

// parseText pulls the outermost {...} span out of free text and decodes it.
func parseText(text string) (rawPlan, error) {
	chunk := jsonObjectPattern.FindString(text)
	if chunk == "" {
		return rawPlan{}, &ResponseError{Raw: text, Reason: "no JSON object in response"}
	}
	return decodePlan([]byte(chunk), text)
}

func decodePlan(data []byte, raw string) (rawPlan, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return rawPlan{}, &ResponseError{Raw: raw, Reason: "invalid JSON: " + err.Error()}
	}
	meals, ok := probe["meals"]
	if !ok || strings.TrimSpace(string(meals)) == "null" {
		return rawPlan{}, &ResponseError{Raw: raw, Reason: "missing meals array"}
	}

	var plan rawPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return rawPlan{}, &ResponseError{Raw: raw, Reason: "invalid meal plan structure: " + err.Error()}
	}
	return plan, nil
}
