package plan

import (
	"sort"
	"strings"

	"github.com/fdg312/dining-planner/internal/classify"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/prefs"
)

// SwapAlternatives lists the eligible items of (locationID, meal) other than
// currentItemID and the user's disliked items, highest protein density first.
func SwapAlternatives(m *menu.DailyMenu, meal menu.Meal, locationID, currentItemID string, p prefs.Preferences) []menu.Item {
	items := m.Items(locationID, meal)
	exclude := classify.IDSet([]string{currentItemID}, p.DislikedItemIDs)
	return SortByDensity(classify.Filter(items, p, exclude))
}

type ClosedLocation struct {
	Meal       menu.Meal `json:"meal"`
	LocationID string    `json:"location_id"`
}

type LocationAvailability struct {
	Available          bool             `json:"available"`
	ClosedLocations    []ClosedLocation `json:"closed_locations"`
	AvailableLocations []string         `json:"available_locations"`
	// Choices whose report failed upstream; their service is unknown.
	UnavailableLocations []ClosedLocation `json:"unavailable_locations,omitempty"`
}

// CheckLocationAvailability reports which of the user's (meal, location)
// choices have no items, and which locations serve anything that day. A
// choice whose report failed is listed as unavailable instead of closed.
func CheckLocationAvailability(m *menu.DailyMenu, p prefs.Preferences) LocationAvailability {
	closed := []ClosedLocation{}
	var unavailable []ClosedLocation
	for _, meal := range menu.Meals {
		locationID := p.LocationFor(meal)
		if len(m.Items(locationID, meal)) > 0 {
			continue
		}
		if m.IsUnavailable(locationID, meal) {
			unavailable = append(unavailable, ClosedLocation{Meal: meal, LocationID: locationID})
			continue
		}
		closed = append(closed, ClosedLocation{Meal: meal, LocationID: locationID})
	}

	open := []string{}
	if m != nil {
		for id, loc := range m.Locations {
			for _, items := range loc.Meals {
				if len(items) > 0 {
					open = append(open, id)
					break
				}
			}
		}
	}
	sort.Strings(open)

	return LocationAvailability{
		Available:            len(closed) == 0 && len(unavailable) == 0,
		ClosedLocations:      closed,
		AvailableLocations:   open,
		UnavailableLocations: unavailable,
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}
