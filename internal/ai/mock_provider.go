package ai

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
)

var (
	mockSectionPattern = regexp.MustCompile(`(?m)^## ([A-Z]+) at `)
	mockIDPattern      = regexp.MustCompile(`- ID: "([^"]+)"`)
)

// MockProvider answers offline. For every "## MEAL at ..." section of the
// prompt it picks the first listed item with one serving.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string { return "mock" }

type mockPlanItem struct {
	ItemID   string `json:"itemId"`
	Servings int    `json:"servings"`
}

type mockPlanMeal struct {
	Meal  string         `json:"meal"`
	Items []mockPlanItem `json:"items"`
}

func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}

	meals := []mockPlanMeal{}
	sections := mockSectionPattern.FindAllStringSubmatchIndex(req.Prompt, -1)
	for i, loc := range sections {
		end := len(req.Prompt)
		if i+1 < len(sections) {
			end = sections[i+1][0]
		}
		meal := mockPlanMeal{
			Meal:  strings.ToLower(req.Prompt[loc[2]:loc[3]]),
			Items: []mockPlanItem{},
		}
		if m := mockIDPattern.FindStringSubmatch(req.Prompt[loc[1]:end]); m != nil {
			meal.Items = append(meal.Items, mockPlanItem{ItemID: m[1], Servings: 1})
		}
		meals = append(meals, meal)
	}

	payload, err := json.Marshal(map[string]any{"meals": meals})
	if err != nil {
		return CompletionResponse{}, err
	}

	usage := Usage{InputTokens: int64(len(req.System)+len(req.Prompt)) / 4, OutputTokens: int64(len(payload)) / 4}
	if req.Tool != nil {
		return CompletionResponse{ToolInput: payload, Usage: usage}, nil
	}
	return CompletionResponse{Text: "Here is your plan:\n" + string(payload), Usage: usage}, nil
}
