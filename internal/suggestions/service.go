// Package suggestions exposes the planning engines over HTTP.
package suggestions

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/fdg312/dining-planner/internal/llmplan"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/plan"
	"github.com/fdg312/dining-planner/internal/prefs"
	"github.com/fdg312/dining-planner/internal/scraper"
)

var ErrInvalidRequest = errors.New("invalid request")

// ClosedError reports that a chosen (meal, location) serves nothing.
type ClosedError struct {
	Availability plan.LocationAvailability
}

func (e *ClosedError) Error() string {
	parts := make([]string, 0, len(e.Availability.ClosedLocations))
	for _, c := range e.Availability.ClosedLocations {
		parts = append(parts, fmt.Sprintf("%s at %s", c.Meal, c.LocationID))
	}
	return "no items available for " + strings.Join(parts, ", ")
}

type Logger interface {
	Printf(format string, v ...any)
}

// MenuSource returns the menu for a date, today when empty.
type MenuSource interface {
	GetMenu(ctx context.Context, date string) (*menu.DailyMenu, error)
}

// Planner is the LLM planning engine.
type Planner interface {
	Generate(ctx context.Context, m *menu.DailyMenu, p prefs.Preferences, req llmplan.Request) (plan.DailySuggestion, error)
}

type SuggestRequest struct {
	Date        string             `json:"date"`
	Preferences *prefs.Preferences `json:"preferences"`
}

type LLMSuggestRequest struct {
	Date         string             `json:"date"`
	Preferences  *prefs.Preferences `json:"preferences"`
	UserFeedback string             `json:"user_feedback"`
	Approach     string             `json:"approach"`
}

type SwapRequest struct {
	Date          string             `json:"date"`
	MealType      string             `json:"meal_type"`
	LocationID    string             `json:"location_id"`
	CurrentItemID string             `json:"current_item_id"`
	Preferences   *prefs.Preferences `json:"preferences"`
}

type AvailabilityRequest struct {
	Date        string             `json:"date"`
	Preferences *prefs.Preferences `json:"preferences"`
}

type Service struct {
	menus   MenuSource
	planner Planner
	logger  Logger
}

// NewService creates the service. A nil planner disables LLM suggestions.
func NewService(menus MenuSource, planner Planner, logger Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{menus: menus, planner: planner, logger: logger}
}

// Suggest builds the deterministic plan for the chosen locations.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (plan.DailySuggestion, error) {
	p, err := preferences(req.Preferences)
	if err != nil {
		return plan.DailySuggestion{}, err
	}
	m, err := s.openMenu(ctx, req.Date, p)
	if err != nil {
		return plan.DailySuggestion{}, err
	}
	return plan.GenerateDeterministic(m, p), nil
}

// SuggestLLM asks the planner for a plan after the same availability check
// as Suggest.
func (s *Service) SuggestLLM(ctx context.Context, req LLMSuggestRequest) (plan.DailySuggestion, error) {
	if s.planner == nil {
		return plan.DailySuggestion{}, fmt.Errorf("%w: LLM planning is not configured", llmplan.ErrProvider)
	}
	p, err := preferences(req.Preferences)
	if err != nil {
		return plan.DailySuggestion{}, err
	}
	var approach llmplan.Approach
	if req.Approach != "" {
		approach, err = llmplan.ParseApproach(req.Approach)
		if err != nil {
			return plan.DailySuggestion{}, fmt.Errorf("%w: approach must be v1, v2 or v3", ErrInvalidRequest)
		}
	}
	if len(req.UserFeedback) > 2000 {
		return plan.DailySuggestion{}, fmt.Errorf("%w: user_feedback cannot exceed 2000 characters", ErrInvalidRequest)
	}

	m, err := s.openMenu(ctx, req.Date, p)
	if err != nil {
		return plan.DailySuggestion{}, err
	}
	return s.planner.Generate(ctx, m, p, llmplan.Request{Approach: approach, Feedback: strings.TrimSpace(req.UserFeedback)})
}

// SwapOptions lists alternatives for one item of a meal.
func (s *Service) SwapOptions(ctx context.Context, req SwapRequest) ([]menu.Item, error) {
	p, err := preferences(req.Preferences)
	if err != nil {
		return nil, err
	}
	meal, err := menu.ParseMeal(strings.ToLower(strings.TrimSpace(req.MealType)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	locationID := strings.TrimSpace(req.LocationID)
	if locationID == "" {
		return nil, fmt.Errorf("%w: location_id is required", ErrInvalidRequest)
	}

	m, err := s.menus.GetMenu(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	return plan.SwapAlternatives(m, meal, locationID, req.CurrentItemID, p), nil
}

// Availability reports which chosen locations are closed.
func (s *Service) Availability(ctx context.Context, req AvailabilityRequest) (plan.LocationAvailability, error) {
	p, err := preferences(req.Preferences)
	if err != nil {
		return plan.LocationAvailability{}, err
	}
	m, err := s.menus.GetMenu(ctx, req.Date)
	if err != nil {
		return plan.LocationAvailability{}, err
	}
	return plan.CheckLocationAvailability(m, p), nil
}

// openMenu loads the menu and fails with *ClosedError when any chosen
// location has nothing for its meal. A chosen slot whose report failed
// upstream fails with ErrUpstreamUnavailable instead.
func (s *Service) openMenu(ctx context.Context, date string, p prefs.Preferences) (*menu.DailyMenu, error) {
	m, err := s.menus.GetMenu(ctx, date)
	if err != nil {
		return nil, err
	}
	avail := plan.CheckLocationAvailability(m, p)
	if len(avail.UnavailableLocations) > 0 {
		u := avail.UnavailableLocations[0]
		s.logger.Printf("WARN suggestions: date=%s unavailable=%d", m.Date, len(avail.UnavailableLocations))
		return nil, fmt.Errorf("%w: %s report for %s failed", scraper.ErrUpstreamUnavailable, u.Meal, u.LocationID)
	}
	if !avail.Available {
		s.logger.Printf("INFO suggestions: date=%s closed=%d", m.Date, len(avail.ClosedLocations))
		return nil, &ClosedError{Availability: avail}
	}
	return m, nil
}

func preferences(p *prefs.Preferences) (prefs.Preferences, error) {
	if p == nil {
		return prefs.Preferences{}, fmt.Errorf("%w: preferences are required", ErrInvalidRequest)
	}
	out := *p
	out.Normalize()
	if err := out.Validate(); err != nil {
		return prefs.Preferences{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return out, nil
}
