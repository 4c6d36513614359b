// Package prefs holds the client-owned planning preferences. The service only
// reads them; persistence lives on the client.
package prefs

import (
	"fmt"
	"strings"

	"github.com/fdg312/dining-planner/internal/menu"
)

type DietaryFilter string

const (
	DietAll        DietaryFilter = "all"
	DietVegetarian DietaryFilter = "vegetarian"
	DietVegan      DietaryFilter = "vegan"
)

// Preferences are the daily targets and constraints a plan is built against.
type Preferences struct {
	TargetCalories      int           `json:"target_calories"`
	TargetProtein       int           `json:"target_protein"`
	TargetCarbs         int           `json:"target_carbs"`
	TargetFat           int           `json:"target_fat"`
	BreakfastLocation   string        `json:"breakfast_location"`
	LunchLocation       string        `json:"lunch_location"`
	DinnerLocation      string        `json:"dinner_location"`
	DietaryFilter       DietaryFilter `json:"dietary_filter"`
	IsHalal             bool          `json:"is_halal"`
	ExcludedAllergens   []string      `json:"excluded_allergens"`
	ExcludedProteins    []string      `json:"excluded_proteins"`
	LikedItemIDs        []string      `json:"liked_item_ids"`
	DislikedItemIDs     []string      `json:"disliked_item_ids"`
	DietaryPreferences  string        `json:"dietary_preferences"`
	OnboardingCompleted bool          `json:"onboarding_completed"`
}

// Default mirrors the client's first-run preferences.
func Default() Preferences {
	return Preferences{
		TargetCalories:    2500,
		TargetProtein:     150,
		TargetCarbs:       300,
		TargetFat:         80,
		BreakfastLocation: "chestnut",
		LunchLocation:     "newcollege",
		DinnerLocation:    "chestnut",
		DietaryFilter:     DietAll,
	}
}

// LocationFor returns the location chosen for meal.
func (p Preferences) LocationFor(meal menu.Meal) string {
	switch meal {
	case menu.Breakfast:
		return p.BreakfastLocation
	case menu.Lunch:
		return p.LunchLocation
	case menu.Dinner:
		return p.DinnerLocation
	}
	return ""
}

// Normalize fills in defaults for optional fields. An empty dietary filter
// means no dietary restriction.
func (p *Preferences) Normalize() {
	p.DietaryFilter = DietaryFilter(strings.ToLower(strings.TrimSpace(string(p.DietaryFilter))))
	if p.DietaryFilter == "" {
		p.DietaryFilter = DietAll
	}
	p.BreakfastLocation = strings.TrimSpace(p.BreakfastLocation)
	p.LunchLocation = strings.TrimSpace(p.LunchLocation)
	p.DinnerLocation = strings.TrimSpace(p.DinnerLocation)
}

// Validate checks the fields every planning operation depends on. Call
// Normalize first.
func (p *Preferences) Validate() error {
	if p.TargetCalories <= 0 {
		return fmt.Errorf("target_calories must be positive")
	}
	if p.TargetCalories > 10000 {
		return fmt.Errorf("target_calories cannot exceed 10000")
	}
	if p.TargetProtein <= 0 {
		return fmt.Errorf("target_protein must be positive")
	}
	if p.TargetProtein > 1000 {
		return fmt.Errorf("target_protein cannot exceed 1000")
	}
	if p.TargetCarbs < 0 || p.TargetCarbs > 2000 {
		return fmt.Errorf("target_carbs must be 0-2000")
	}
	if p.TargetFat < 0 || p.TargetFat > 1000 {
		return fmt.Errorf("target_fat must be 0-1000")
	}
	for _, meal := range menu.Meals {
		if p.LocationFor(meal) == "" {
			return fmt.Errorf("%s_location is required", meal)
		}
	}
	switch p.DietaryFilter {
	case DietAll, DietVegetarian, DietVegan:
	default:
		return fmt.Errorf("dietary_filter must be one of all, vegetarian, vegan")
	}
	if len(p.DietaryPreferences) > 2000 {
		return fmt.Errorf("dietary_preferences cannot exceed 2000 characters")
	}
	return nil
}
