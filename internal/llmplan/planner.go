// Package llmplan plans a day of meals with a language model and validates
// every selection against the scraped menu before accepting it.
package llmplan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/fdg312/dining-planner/internal/ai"
	"github.com/fdg312/dining-planner/internal/classify"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/plan"
	"github.com/fdg312/dining-planner/internal/prefs"
)

const (
	defaultMaxTokens       = 2000
	defaultMaxToolAttempts = 5
	maxItemsPerMeal        = 3
)

type Approach string

const (
	// ApproachFullCatalog sends every item and expects free-text JSON.
	ApproachFullCatalog Approach = "v1"
	// ApproachFiltered sends only items passing the hard constraints.
	ApproachFiltered Approach = "v2"
	// ApproachTool sends the filtered catalog and forces a tool call.
	ApproachTool Approach = "v3"
)

var ErrUnknownApproach = errors.New("llmplan: unknown approach")

// ParseApproach maps "" to the full-catalog approach.
func ParseApproach(s string) (Approach, error) {
	switch a := Approach(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return ApproachFullCatalog, nil
	case ApproachFullCatalog, ApproachFiltered, ApproachTool:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownApproach, s)
	}
}

type Logger interface {
	Printf(format string, v ...any)
}

type Options struct {
	MaxTokens       int
	MaxToolAttempts int
	DefaultApproach Approach
	Logger          Logger
}

type Planner struct {
	provider        ai.Provider
	maxTokens       int
	maxToolAttempts int
	approach        Approach
	logger          Logger
}

func NewPlanner(provider ai.Provider, opts Options) *Planner {
	p := &Planner{
		provider:        provider,
		maxTokens:       opts.MaxTokens,
		maxToolAttempts: opts.MaxToolAttempts,
		approach:        opts.DefaultApproach,
		logger:          opts.Logger,
	}
	if p.maxTokens <= 0 {
		p.maxTokens = defaultMaxTokens
	}
	if p.maxToolAttempts <= 0 || p.maxToolAttempts > defaultMaxToolAttempts {
		p.maxToolAttempts = defaultMaxToolAttempts
	}
	if p.approach == "" {
		p.approach = ApproachFullCatalog
	}
	if p.logger == nil {
		p.logger = log.Default()
	}
	return p
}

// Request selects the approach and carries optional free-text feedback.
type Request struct {
	Approach Approach
	Feedback string
}

// GenerateWithFeedback plans with the planner's default approach.
func (pl *Planner) GenerateWithFeedback(ctx context.Context, m *menu.DailyMenu, p prefs.Preferences, feedback string) (plan.DailySuggestion, error) {
	return pl.Generate(ctx, m, p, Request{Approach: pl.approach, Feedback: feedback})
}

// Generate asks the model for a plan. Output that cannot be decoded fails the
// call; unknown or ineligible selections are dropped with a warning.
func (pl *Planner) Generate(ctx context.Context, m *menu.DailyMenu, p prefs.Preferences, req Request) (plan.DailySuggestion, error) {
	approach := req.Approach
	if approach == "" {
		approach = pl.approach
	}
	if _, err := ParseApproach(string(approach)); err != nil {
		return plan.DailySuggestion{}, err
	}

	var (
		raw   rawPlan
		usage ai.Usage
		err   error
	)
	if approach == ApproachTool {
		raw, usage, err = pl.completeTool(ctx, m, p, req.Feedback)
	} else {
		raw, usage, err = pl.completeText(ctx, m, p, req.Feedback, approach == ApproachFiltered)
	}
	pl.logger.Printf("INFO llmplan: provider=%s approach=%s tokens_in=%d tokens_out=%d", pl.provider.Name(), approach, usage.InputTokens, usage.OutputTokens)
	if err != nil {
		return plan.DailySuggestion{}, err
	}

	return pl.convert(raw, m, p), nil
}

func (pl *Planner) completeText(ctx context.Context, m *menu.DailyMenu, p prefs.Preferences, feedback string, eligibleOnly bool) (rawPlan, ai.Usage, error) {
	resp, err := pl.provider.Complete(ctx, ai.CompletionRequest{
		System:    SystemPrompt,
		Prompt:    UserPrompt(m, p, feedback, eligibleOnly, false),
		MaxTokens: pl.maxTokens,
	})
	if err != nil {
		if errors.Is(err, ai.ErrNoContent) {
			return rawPlan{}, resp.Usage, &ResponseError{Reason: "no text in response"}
		}
		return rawPlan{}, resp.Usage, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	raw, err := parseText(resp.Text)
	if err != nil {
		pl.logger.Printf("WARN llmplan: unparseable response: %v", err)
	}
	return raw, resp.Usage, err
}

// completeTool re-asks until the forced tool call decodes, up to
// maxToolAttempts times.
func (pl *Planner) completeTool(ctx context.Context, m *menu.DailyMenu, p prefs.Preferences, feedback string) (rawPlan, ai.Usage, error) {
	req := ai.CompletionRequest{
		System:    ToolSystemPrompt,
		Prompt:    UserPrompt(m, p, feedback, true, true),
		MaxTokens: pl.maxTokens,
		Tool: &ai.Tool{
			Name:        ToolName,
			Description: "Submit the selected menu items for breakfast, lunch and dinner.",
			Properties:  PlanTool,
			Required:    []string{"meals"},
		},
	}

	var (
		total   ai.Usage
		lastErr error
	)
	for attempt := 1; attempt <= pl.maxToolAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return rawPlan{}, total, err
		}

		resp, err := pl.provider.Complete(ctx, req)
		total.Add(resp.Usage)
		switch {
		case errors.Is(err, ai.ErrNoContent):
			lastErr = &ResponseError{Reason: "no tool call in response"}
		case err != nil:
			return rawPlan{}, total, fmt.Errorf("%w: %w", ErrProvider, err)
		case resp.ToolInput != nil:
			raw, perr := decodePlan(resp.ToolInput, string(resp.ToolInput))
			if perr == nil {
				return raw, total, nil
			}
			lastErr = perr
		default:
			lastErr = &ResponseError{Raw: resp.Text, Reason: "no tool call in response"}
		}
		pl.logger.Printf("WARN llmplan: tool attempt %d/%d failed: %v", attempt, pl.maxToolAttempts, lastErr)
	}

	return rawPlan{}, total, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, pl.maxToolAttempts, lastErr)
}

// convert resolves the model's picks against the catalog of each meal's
// chosen location. Picks that are unknown there, ineligible for p, repeated,
// or beyond the per-meal limit are dropped.
func (pl *Planner) convert(raw rawPlan, m *menu.DailyMenu, p prefs.Preferences) plan.DailySuggestion {
	meals := make([]plan.MealSuggestion, 0, len(menu.Meals))
	for _, meal := range menu.Meals {
		locationID := p.LocationFor(meal)
		byID := make(map[string]menu.Item)
		for _, item := range m.Items(locationID, meal) {
			if _, dup := byID[item.ID]; !dup {
				byID[item.ID] = item
			}
		}

		selected := []plan.SelectedItem{}
		seen := make(map[string]bool)
		for _, pick := range picksFor(raw, meal) {
			item, ok := byID[pick.ItemID]
			switch {
			case !ok:
				pl.logger.Printf("WARN llmplan: meal=%s location=%s unknown item %q skipped", meal, locationID, pick.ItemID)
				continue
			case !classify.Eligible(item, p, nil):
				pl.logger.Printf("WARN llmplan: meal=%s item %q violates dietary constraints, skipped", meal, pick.ItemID)
				continue
			case seen[item.ID]:
				pl.logger.Printf("WARN llmplan: meal=%s item %q repeated, skipped", meal, pick.ItemID)
				continue
			case len(selected) == maxItemsPerMeal:
				pl.logger.Printf("WARN llmplan: meal=%s more than %d items, %q skipped", meal, maxItemsPerMeal, pick.ItemID)
				continue
			}
			seen[item.ID] = true
			selected = append(selected, plan.Select(item, roundServings(pick.Servings)))
		}
		meals = append(meals, plan.NewMeal(meal, locationID, selected))
	}

	date := ""
	if m != nil {
		date = m.Date
	}
	return plan.NewDaily(date, plan.StrategyLLM, meals)
}

// picksFor returns the items of the first entry for meal.
func picksFor(raw rawPlan, meal menu.Meal) []rawItem {
	for _, rm := range raw.Meals {
		if strings.EqualFold(strings.TrimSpace(rm.Meal), string(meal)) {
			return rm.Items
		}
	}
	return nil
}

func roundServings(s float64) int {
	r := math.Round(s)
	switch {
	case math.IsNaN(r) || r < plan.MinServings:
		return plan.MinServings
	case r > plan.MaxServings:
		return plan.MaxServings
	}
	return int(r)
}
