package classify

import "strings"

// Category names as they appear in the report headers.
var (
	MainCategories = []string{
		"Bowls",
		"Burritos",
		"Grill",
		"Dinner Entree",
		"Lunch Entree",
		"Breakfast Entree",
		"Pizza and Bake Station",
		"Pan Station",
		"Large Burrito Bowls",
		"Small Burrito Bowls",
		"Express Bowls",
		"Combos",
		"Entree (Selections will vary Daily)",
	}

	SideCategories = []string{
		"Salad Bar",
		"Soup",
		"Sides and More",
		"Breakfast Cold Pantry",
		"Dessert",
	}
)

// IsMain reports whether category matches an entree-like category in either
// direction of containment, ignoring case.
func IsMain(category string) bool {
	return matchesCategory(category, MainCategories)
}

// IsSide is IsMain for side-like categories.
func IsSide(category string) bool {
	return matchesCategory(category, SideCategories)
}

// A blank category matches nothing.
func matchesCategory(category string, names []string) bool {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return false
	}
	for _, name := range names {
		n := strings.ToLower(name)
		if strings.Contains(c, n) || strings.Contains(n, c) {
			return true
		}
	}
	return false
}
