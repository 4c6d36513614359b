// Package plan builds meal plans from a scraped menu without any external
// service: per-meal targets, main and side selection, serving counts and
// daily totals.
package plan

import (
	"math"

	"github.com/fdg312/dining-planner/internal/menu"
)

const (
	MinServings = 1
	MaxServings = 5
)

type Totals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (t Totals) Add(o Totals) Totals {
	return Totals{
		Calories: t.Calories + o.Calories,
		Protein:  t.Protein + o.Protein,
		Carbs:    t.Carbs + o.Carbs,
		Fat:      t.Fat + o.Fat,
	}
}

// SelectedItem is one line of a meal.
type SelectedItem struct {
	Item            menu.Item `json:"item"`
	Servings        int       `json:"servings"`
	DisplayQuantity string    `json:"display_quantity"`
}

type MealSuggestion struct {
	Meal       menu.Meal      `json:"meal"`
	LocationID string         `json:"location_id"`
	Items      []SelectedItem `json:"items"`
	Totals     Totals         `json:"totals"`
}

type Shortfall struct {
	Protein  float64 `json:"protein"`
	Calories float64 `json:"calories"`
	Message  string  `json:"message,omitempty"`
}

// Strategy names how a DailySuggestion was produced.
type Strategy string

const (
	StrategyDeterministic Strategy = "deterministic"
	StrategyLLM           Strategy = "llm"
)

// DailySuggestion always holds breakfast, lunch and dinner in that order.
type DailySuggestion struct {
	Date        string           `json:"date"`
	Strategy    Strategy         `json:"strategy"`
	Meals       []MealSuggestion `json:"meals"`
	DailyTotals Totals           `json:"daily_totals"`
	Shortfall   *Shortfall       `json:"shortfall,omitempty"`
}

// Meal returns the suggestion for meal, or nil.
func (d *DailySuggestion) Meal(meal menu.Meal) *MealSuggestion {
	for i := range d.Meals {
		if d.Meals[i].Meal == meal {
			return &d.Meals[i]
		}
	}
	return nil
}

// Select builds a SelectedItem with servings clamped to the allowed range.
func Select(item menu.Item, servings int) SelectedItem {
	servings = ClampServings(servings)
	return SelectedItem{
		Item:            item,
		Servings:        servings,
		DisplayQuantity: FormatServingSize(item, servings),
	}
}

func ClampServings(n int) int {
	if n < MinServings {
		return MinServings
	}
	if n > MaxServings {
		return MaxServings
	}
	return n
}

// SumItems returns the macro totals of selected items.
func SumItems(items []SelectedItem) Totals {
	var t Totals
	for _, s := range items {
		n := float64(s.Servings)
		t.Calories += s.Item.Calories * n
		t.Protein += s.Item.Protein * n
		t.Carbs += s.Item.Carbs * n
		t.Fat += s.Item.Fat * n
	}
	return t
}

// NewMeal returns a meal suggestion with its totals filled in.
func NewMeal(meal menu.Meal, locationID string, items []SelectedItem) MealSuggestion {
	if items == nil {
		items = []SelectedItem{}
	}
	return MealSuggestion{
		Meal:       meal,
		LocationID: locationID,
		Items:      items,
		Totals:     SumItems(items),
	}
}

// NewDaily assembles meals into a day and sums the daily totals.
func NewDaily(date string, strategy Strategy, meals []MealSuggestion) DailySuggestion {
	var total Totals
	for _, m := range meals {
		total = total.Add(m.Totals)
	}
	return DailySuggestion{
		Date:        date,
		Strategy:    strategy,
		Meals:       meals,
		DailyTotals: total,
	}
}

// ProteinDensity is grams of protein per calorie. Zero-calorie items have
// density zero.
func ProteinDensity(item menu.Item) float64 {
	if item.Calories == 0 {
		return 0
	}
	return item.Protein / item.Calories
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
