package menu

import "fmt"

// Meal is one of the three daily service periods.
type Meal string

const (
	Breakfast Meal = "breakfast"
	Lunch     Meal = "lunch"
	Dinner    Meal = "dinner"
)

// Meals lists the service periods in day order.
var Meals = []Meal{Breakfast, Lunch, Dinner}

// ParseMeal accepts only the exact enum values. Use NormalizeMeal for
// upstream labels.
func ParseMeal(s string) (Meal, error) {
	switch Meal(s) {
	case Breakfast, Lunch, Dinner:
		return Meal(s), nil
	default:
		return "", fmt.Errorf("invalid meal %q: expected breakfast, lunch or dinner", s)
	}
}

// Item is one dining-hall offering for a specific date, meal and location.
// Dietary flags are inferred from the name and are never authoritative.
// Allergens is always empty: the upstream report carries no allergen column.
type Item struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Location     string   `json:"location"`
	Meal         Meal     `json:"meal"`
	Date         string   `json:"date"`
	ServingSize  string   `json:"serving_size"`
	Calories     float64  `json:"calories"`
	Protein      float64  `json:"protein"`
	Carbs        float64  `json:"carbs"`
	Fat          float64  `json:"fat"`
	Fiber        float64  `json:"fiber"`
	Sugar        float64  `json:"sugar"`
	Sodium       float64  `json:"sodium"`
	IsVegetarian bool     `json:"is_vegetarian"`
	IsVegan      bool     `json:"is_vegan"`
	IsHalal      bool     `json:"is_halal"`
	Allergens    []string `json:"allergens"`
}

// Location is one dining hall with its items grouped by meal.
type Location struct {
	Name  string          `json:"name"`
	Meals map[Meal][]Item `json:"meals"`
}

// DailyMenu is the scraped offering of every location for one date.
// It is built once per scrape and not mutated afterwards.
type DailyMenu struct {
	Date      string              `json:"date"`
	Locations map[string]Location `json:"locations"`
	// Unavailable lists the slots whose report could not be fetched or
	// parsed. Such a slot is unknown, not closed.
	Unavailable []Slot `json:"unavailable,omitempty"`
}

// Slot is one (location, meal) pair of a menu.
type Slot struct {
	LocationID string `json:"location_id"`
	Meal       Meal   `json:"meal"`
}

// Partial reports whether any report of the menu failed.
func (m *DailyMenu) Partial() bool {
	return m != nil && len(m.Unavailable) > 0
}

// IsUnavailable reports whether the report for (locationID, meal) failed.
func (m *DailyMenu) IsUnavailable(locationID string, meal Meal) bool {
	if m == nil {
		return false
	}
	for _, s := range m.Unavailable {
		if s.LocationID == locationID && s.Meal == meal {
			return true
		}
	}
	return false
}

// NewDailyMenu returns an empty menu for date (YYYY-MM-DD).
func NewDailyMenu(date string) *DailyMenu {
	return &DailyMenu{
		Date:      date,
		Locations: make(map[string]Location),
	}
}

// Items returns the items served at locationID for meal, or nil.
func (m *DailyMenu) Items(locationID string, meal Meal) []Item {
	if m == nil {
		return nil
	}
	loc, ok := m.Locations[locationID]
	if !ok {
		return nil
	}
	return loc.Meals[meal]
}

// SetMeal stores items for (locationID, meal), creating the location record
// on first use.
func (m *DailyMenu) SetMeal(locationID, locationName string, meal Meal, items []Item) {
	loc, ok := m.Locations[locationID]
	if !ok {
		loc = Location{Name: locationName, Meals: make(map[Meal][]Item)}
	}
	loc.Meals[meal] = items
	m.Locations[locationID] = loc
}

// Lookup indexes every item of the menu by id. When two items share an id
// (same name at the same location, meal and date) the first one wins.
func (m *DailyMenu) Lookup() map[string]Item {
	out := make(map[string]Item)
	if m == nil {
		return out
	}
	for _, loc := range m.Locations {
		for _, items := range loc.Meals {
			for _, item := range items {
				if _, exists := out[item.ID]; !exists {
					out[item.ID] = item
				}
			}
		}
	}
	return out
}

// ItemCount returns the number of items across all locations and meals.
func (m *DailyMenu) ItemCount() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, loc := range m.Locations {
		for _, items := range loc.Meals {
			n += len(items)
		}
	}
	return n
}
