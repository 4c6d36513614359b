package plan

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/fdg312/dining-planner/internal/menu"
)

var gramsPattern = regexp.MustCompile(`(?i)(\d+)\s*g`)

// FormatServingSize describes servings of item for display. Unit-count
// servings ("1 each", "1 slice") show a count, mass servings ("100g") show
// total grams plus an approximate volume, anything else is repeated as is.
func FormatServingSize(item menu.Item, servings int) string {
	size := strings.ToLower(item.ServingSize)
	if strings.Contains(size, "each") || strings.Contains(size, "slice") || strings.Contains(size, "piece") {
		if servings == 1 {
			return "1"
		}
		return fmt.Sprintf("%dx", servings)
	}

	if m := gramsPattern.FindStringSubmatch(item.ServingSize); m != nil {
		perServing, err := strconv.Atoi(m[1])
		if err == nil {
			total := perServing * servings
			return fmt.Sprintf("%dg (%s)", total, massToVolume(float64(total), item.Category))
		}
	}

	if servings == 1 {
		return item.ServingSize
	}
	return fmt.Sprintf("%dx %s", servings, item.ServingSize)
}

// massToVolume approximates grams as cups using a per-category density.
func massToVolume(grams float64, category string) string {
	gramsPerCup := 150.0
	c := strings.ToLower(category)
	switch {
	case strings.Contains(c, "salad"):
		gramsPerCup = 50
	case strings.Contains(c, "rice"), strings.Contains(c, "grain"), strings.Contains(c, "cereal"):
		gramsPerCup = 180
	case strings.Contains(c, "soup"):
		gramsPerCup = 240
	}

	cups := grams / gramsPerCup
	switch {
	case cups < 0.3:
		return "~1/4 cup"
	case cups < 0.6:
		return "~1/2 cup"
	case cups < 0.9:
		return "~3/4 cup"
	case cups < 1.3:
		return "~1 cup"
	case cups < 1.7:
		return "~1.5 cups"
	case cups < 2.3:
		return "~2 cups"
	default:
		return fmt.Sprintf("~%d cups", int(math.Floor(cups+0.5)))
	}
}
