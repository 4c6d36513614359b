package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fdg312/dining-planner/internal/classify"
	"github.com/fdg312/dining-planner/internal/menu"
)

// Cell offsets of an item row in a report table. The site's column order is
// the contract; report_test.go pins each index against a saved page.
const (
	colServingSize = 1
	colCalories    = 2
	colFat         = 3
	colSodium      = 6
	colCarbs       = 7
	colFiber       = 8
	colSugar       = 9
	colProtein     = 10
)

// ParseReport turns one report page into menu items for ref on date.
func ParseReport(html []byte, ref ReportRef, date string) ([]menu.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse report %s: %w", ref.ID, err)
	}

	items := make([]menu.Item, 0)
	category := ""
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")

		if cells.Length() == 1 && cells.First().HasClass("courseHeader") {
			category = strings.TrimSpace(cells.First().Text())
			return
		}

		desc := row.Find("td.description")
		if desc.Length() == 0 {
			return
		}
		name := strings.TrimSpace(desc.Text())
		if name == "" {
			return
		}

		items = append(items, buildItem(name, category, cells, ref, date))
	})
	return items, nil
}

func buildItem(name, category string, cells *goquery.Selection, ref ReportRef, date string) menu.Item {
	cell := func(i int) string { return cells.Eq(i).Text() }
	num := func(i int) float64 { return nonNegative(menu.ParseNumber(cell(i))) }

	meal := menu.NormalizeMeal(string(ref.Meal))
	flags := classify.InferFlags(name)
	return menu.Item{
		ID:           menu.ItemID(name, ref.Location, meal, date),
		Name:         name,
		Category:     category,
		Location:     ref.Location,
		Meal:         meal,
		Date:         date,
		ServingSize:  strings.TrimSpace(cell(colServingSize)),
		Calories:     num(colCalories),
		Fat:          num(colFat),
		Sodium:       num(colSodium),
		Carbs:        num(colCarbs),
		Fiber:        num(colFiber),
		Sugar:        num(colSugar),
		Protein:      num(colProtein),
		IsVegetarian: flags.Vegetarian,
		IsVegan:      flags.Vegan,
		IsHalal:      flags.Halal,
		Allergens:    []string{},
	}
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
