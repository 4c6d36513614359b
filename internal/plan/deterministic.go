package plan

import (
	"fmt"
	"math"
	"sort"

	"github.com/fdg312/dining-planner/internal/classify"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/prefs"
)

const (
	// The chosen main is scaled to reach this share of the meal's protein.
	mainProteinShare = 0.8
	maxMainServings  = 4
	// Items in uncategorized menus need this much protein to count as a main.
	fallbackMainProtein = 5.0

	shortfallThreshold = 20.0
	shortfallSevere    = 40.0
)

// Distribution is the share of the daily targets each meal gets.
var Distribution = map[menu.Meal]float64{
	menu.Breakfast: 0.25,
	menu.Lunch:     0.35,
	menu.Dinner:    0.40,
}

type MealTargets struct {
	Calories int `json:"calories"`
	Protein  int `json:"protein"`
	Carbs    int `json:"carbs"`
	Fat      int `json:"fat"`
}

// TargetsFor splits the daily targets in p for meal.
func TargetsFor(p prefs.Preferences, meal menu.Meal) MealTargets {
	ratio := Distribution[meal]
	return MealTargets{
		Calories: roundHalfUp(float64(p.TargetCalories) * ratio),
		Protein:  roundHalfUp(float64(p.TargetProtein) * ratio),
		Carbs:    roundHalfUp(float64(p.TargetCarbs) * ratio),
		Fat:      roundHalfUp(float64(p.TargetFat) * ratio),
	}
}

// GenerateDeterministic plans breakfast, lunch and dinner from the locations
// chosen in p. A meal whose location has nothing eligible is empty.
func GenerateDeterministic(m *menu.DailyMenu, p prefs.Preferences) DailySuggestion {
	meals := make([]MealSuggestion, 0, len(menu.Meals))
	for _, meal := range menu.Meals {
		locationID := p.LocationFor(meal)
		items := m.Items(locationID, meal)
		selected := SelectMeal(items, TargetsFor(p, meal), p)
		meals = append(meals, NewMeal(meal, locationID, selected))
	}

	date := ""
	if m != nil {
		date = m.Date
	}
	daily := NewDaily(date, StrategyDeterministic, meals)
	sf := ComputeShortfall(p, daily.DailyTotals)
	daily.Shortfall = &sf
	return daily
}

// SelectMeal picks a main and at most one side from items.
//
// The main is the first liked item found among main candidates, in the order
// the user listed them, else the candidate with the highest protein density.
// The side is always a single serving; salads and soups are preferred.
func SelectMeal(items []menu.Item, targets MealTargets, p prefs.Preferences) []SelectedItem {
	eligible := classify.Filter(items, p, nil)
	if len(eligible) == 0 {
		return []SelectedItem{}
	}

	main, ok := pickMain(mainCandidates(eligible), p.LikedItemIDs)
	if !ok {
		return []SelectedItem{}
	}

	selected := []SelectedItem{Select(main, mainServings(main, targets))}
	if side, ok := pickSide(eligible, main.ID); ok {
		selected = append(selected, Select(side, 1))
	}
	return selected
}

func mainCandidates(eligible []menu.Item) []menu.Item {
	var mains []menu.Item
	for _, item := range eligible {
		if classify.IsMain(item.Category) && item.Protein > 0 {
			mains = append(mains, item)
		}
	}
	if len(mains) > 0 {
		return mains
	}
	for _, item := range eligible {
		if item.Protein > fallbackMainProtein {
			mains = append(mains, item)
		}
	}
	return mains
}

func pickMain(candidates []menu.Item, liked []string) (menu.Item, bool) {
	if len(candidates) == 0 {
		return menu.Item{}, false
	}
	for _, id := range liked {
		for _, c := range candidates {
			if c.ID == id {
				return c, true
			}
		}
	}
	return SortByDensity(candidates)[0], true
}

func pickSide(eligible []menu.Item, mainID string) (menu.Item, bool) {
	var sides []menu.Item
	for _, item := range eligible {
		if item.ID != mainID && classify.IsSide(item.Category) {
			sides = append(sides, item)
		}
	}
	if len(sides) == 0 {
		return menu.Item{}, false
	}
	for _, s := range sides {
		if containsFold(s.Category, "salad") || containsFold(s.Category, "soup") {
			return s, true
		}
	}
	return sides[0], true
}

// mainServings aims for 80% of the meal's protein target, between 1 and 4
// servings. Zero-protein items get one serving.
func mainServings(item menu.Item, targets MealTargets) int {
	if item.Protein <= 0 {
		return 1
	}
	n := int(math.Ceil(mainProteinShare * float64(targets.Protein) / item.Protein))
	if n < 1 {
		n = 1
	}
	if n > maxMainServings {
		n = maxMainServings
	}
	return n
}

// SortByDensity returns a copy of items ordered by protein density, highest
// first. Ties keep menu order.
func SortByDensity(items []menu.Item) []menu.Item {
	out := make([]menu.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return ProteinDensity(out[i]) > ProteinDensity(out[j])
	})
	return out
}

// ComputeShortfall compares daily totals with the daily targets in p. A
// message is set only when protein is more than 20g short.
func ComputeShortfall(p prefs.Preferences, totals Totals) Shortfall {
	sf := Shortfall{
		Protein:  math.Max(0, float64(p.TargetProtein)-totals.Protein),
		Calories: math.Max(0, float64(p.TargetCalories)-totals.Calories),
	}
	grams := roundHalfUp(sf.Protein)
	switch {
	case sf.Protein > shortfallSevere:
		sf.Message = fmt.Sprintf("You're %dg protein short. Consider a protein shake plus a high-protein snack like Greek yogurt, or pick a different location for one meal.", grams)
	case sf.Protein > shortfallThreshold:
		sf.Message = fmt.Sprintf("You're %dg protein short. Consider adding a protein shake or extra eggs.", grams)
	}
	return sf
}
