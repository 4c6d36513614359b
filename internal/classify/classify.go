// Package classify infers dietary flags from item names and decides which
// items a set of preferences allows.
//
// Every flag is inferred from the display name alone. The dining service
// publishes no dietary metadata, so the flags are best-effort and can be
// wrong in both directions ("Ham and Cheese" is meat, but so is "Graham
// Crackers" by substring).
package classify

import (
	"strings"

	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/prefs"
)

var meatKeywords = []string{
	"chicken", "beef", "pork", "bacon", "ham", "turkey", "sausage",
	"meat", "steak", "lamb", "fish", "salmon", "tuna", "shrimp",
	"prawn", "crab", "lobster", "duck", "veal", "pepperoni", "meatball",
	"chorizo", "prosciutto", "salami", "bologna", "hotdog", "burger patty",
	"surimi", "anchovy", "anchovies", "sardine", "cod", "tilapia", "halibut",
	"trout", "mackerel", "oyster", "clam", "mussel", "scallop", "calamari",
	"squid", "octopus", "eel", "brisket", "ribs", "wings",
}

// Names with a meat keyword are still meat-free when one of these appears,
// e.g. "Beyond Beef Burger".
var plantBasedIndicators = []string{"plant based", "plant-based", "impossible", "beyond", "vegan"}

// ProteinKeywords maps an excludable protein category to the name keywords
// that identify it. Matching is plain substring containment.
var ProteinKeywords = map[string][]string{
	"fish":      {"fish", "salmon", "tuna", "cod", "tilapia", "halibut", "trout", "mackerel", "sardine", "anchovy"},
	"pork":      {"pork", "bacon", "ham", "sausage", "pepperoni", "prosciutto", "chorizo"},
	"beef":      {"beef", "steak", "burger", "brisket", "meatball"},
	"shellfish": {"shrimp", "prawn", "crab", "lobster", "oyster", "clam", "mussel", "scallop", "calamari", "squid"},
	"tofu":      {"tofu"},
	"lamb":      {"lamb"},
}

// Flags are the inferred dietary properties of an item name.
type Flags struct {
	Vegetarian bool
	Vegan      bool
	Halal      bool
}

// InferFlags classifies an item by its display name.
func InferFlags(name string) Flags {
	lower := strings.ToLower(name)
	meat := ContainsMeat(lower)
	return Flags{
		Vegetarian: !meat,
		Vegan:      !meat && (strings.Contains(lower, "vegan") || strings.Contains(lower, "plant based")),
		Halal:      strings.Contains(lower, "halal"),
	}
}

// ContainsMeat reports whether a lowercased name names a meat without also
// naming a plant-based substitute.
func ContainsMeat(lower string) bool {
	if !containsAny(lower, meatKeywords) {
		return false
	}
	return !containsAny(lower, plantBasedIndicators)
}

// ContainsExcludedProtein reports whether name matches a keyword of any of
// the excluded categories. Unknown categories match nothing.
func ContainsExcludedProtein(name string, excluded []string) bool {
	lower := strings.ToLower(name)
	for _, category := range excluded {
		if keywords, ok := ProteinKeywords[strings.ToLower(category)]; ok && containsAny(lower, keywords) {
			return true
		}
	}
	return false
}

// Eligible reports whether item passes every hard constraint in p and is not
// one of the ids in exclude.
func Eligible(item menu.Item, p prefs.Preferences, exclude map[string]bool) bool {
	switch p.DietaryFilter {
	case prefs.DietVegetarian:
		if !item.IsVegetarian {
			return false
		}
	case prefs.DietVegan:
		if !item.IsVegan {
			return false
		}
	}

	// Meat-free food counts as halal-safe.
	if p.IsHalal && !item.IsHalal && !item.IsVegetarian && !item.IsVegan {
		return false
	}

	if len(p.ExcludedAllergens) > 0 && len(item.Allergens) > 0 {
		for _, allergen := range item.Allergens {
			for _, excluded := range p.ExcludedAllergens {
				if strings.EqualFold(allergen, excluded) {
					return false
				}
			}
		}
	}

	if ContainsExcludedProtein(item.Name, p.ExcludedProteins) {
		return false
	}

	return !exclude[item.ID]
}

// Filter returns the eligible items in their original order.
func Filter(items []menu.Item, p prefs.Preferences, exclude map[string]bool) []menu.Item {
	out := make([]menu.Item, 0, len(items))
	for _, item := range items {
		if Eligible(item, p, exclude) {
			out = append(out, item)
		}
	}
	return out
}

// IDSet builds an exclusion set from id lists.
func IDSet(lists ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, ids := range lists {
		for _, id := range ids {
			set[id] = true
		}
	}
	return set
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
