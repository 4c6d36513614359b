package menu

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	idDisallowed  = regexp.MustCompile(`[^a-z0-9-]`)
)

// ParseNumber reads a nutrition-table cell. Thousands separators and
// surrounding whitespace are ignored and the leading decimal prefix is used,
// so "1,234.5" is 1234.5 and "12g" is 12. Blank, "N/A" and other
// non-numeric text yield 0.
func ParseNumber(text string) float64 {
	s := strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if s == "" {
		return 0
	}
	m := leadingNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}
	return v
}

// NormalizeMeal maps an upstream meal label to a Meal by case-insensitive
// substring match. Labels naming none of the three meals map to Lunch.
func NormalizeMeal(label string) Meal {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "breakfast"):
		return Breakfast
	case strings.Contains(l, "lunch"):
		return Lunch
	case strings.Contains(l, "dinner"):
		return Dinner
	default:
		return Lunch
	}
}

// ItemID derives the item identifier from its name, location display name,
// meal and date. It is stable across scrapes of the same page but not unique
// when a location serves two items with the same name in one meal.
func ItemID(name, location string, meal Meal, date string) string {
	raw := strings.ToLower(date + "-" + location + "-" + string(meal) + "-" + name)
	raw = whitespaceRun.ReplaceAllString(raw, "-")
	return idDisallowed.ReplaceAllString(raw, "")
}
