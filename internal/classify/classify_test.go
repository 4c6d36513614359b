package classify

import (
	"testing"

	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/prefs"
)

func TestInferFlags(t *testing.T) {
	tests := []struct {
		name string
		want Flags
	}{
		{"Grilled Chicken Breast", Flags{}},
		{"Chicken And Vegetable Dumplings", Flags{}},
		{"Beyond Beef Burger", Flags{Vegetarian: true}},
		{"Impossible Meatball Sub", Flags{Vegetarian: true}},
		{"Plant Based Chorizo Tacos", Flags{Vegetarian: true, Vegan: true}},
		{"Vegan Lentil Curry", Flags{Vegetarian: true, Vegan: true}},
		{"Cheese Pizza", Flags{Vegetarian: true}},
		{"Halal Beef Shawarma", Flags{Halal: true}},
		{"Halal Falafel Wrap", Flags{Vegetarian: true, Halal: true}},
		{"BBQ Pork Ribs", Flags{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferFlags(tt.name); got != tt.want {
				t.Fatalf("InferFlags(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
		})
	}
}

func TestContainsExcludedProtein(t *testing.T) {
	if !ContainsExcludedProtein("Smoked Bacon Strips", []string{"pork"}) {
		t.Fatal("bacon should match pork")
	}
	if !ContainsExcludedProtein("Garlic Shrimp", []string{"fish", "shellfish"}) {
		t.Fatal("shrimp should match shellfish")
	}
	if ContainsExcludedProtein("Garlic Shrimp", []string{"fish"}) {
		t.Fatal("shrimp is not fish")
	}
	if ContainsExcludedProtein("Tofu Stir Fry", []string{"unknown"}) {
		t.Fatal("unknown categories must match nothing")
	}
	// Substring matching is permissive.
	if !ContainsExcludedProtein("Porkpie", []string{"pork"}) {
		t.Fatal("porkpie should match pork")
	}
}

func item(id, name string) menu.Item {
	f := InferFlags(name)
	return menu.Item{
		ID:           id,
		Name:         name,
		IsVegetarian: f.Vegetarian,
		IsVegan:      f.Vegan,
		IsHalal:      f.Halal,
		Allergens:    []string{},
	}
}

func TestEligible(t *testing.T) {
	chicken := item("c", "Roast Chicken")
	halalChicken := item("hc", "Halal Chicken")
	pasta := item("p", "Pasta Primavera")
	vegan := item("v", "Vegan Chili")
	bacon := item("b", "Bacon Omelette")
	nuts := menu.Item{ID: "n", Name: "Trail Mix", IsVegetarian: true, Allergens: []string{"Tree Nuts"}}

	base := prefs.Default()
	base.Normalize()

	tests := []struct {
		name    string
		mutate  func(*prefs.Preferences)
		item    menu.Item
		exclude map[string]bool
		want    bool
	}{
		{"no constraints", nil, chicken, nil, true},
		{"vegetarian rejects chicken", func(p *prefs.Preferences) { p.DietaryFilter = prefs.DietVegetarian }, chicken, nil, false},
		{"vegetarian accepts pasta", func(p *prefs.Preferences) { p.DietaryFilter = prefs.DietVegetarian }, pasta, nil, true},
		{"vegan rejects pasta", func(p *prefs.Preferences) { p.DietaryFilter = prefs.DietVegan }, pasta, nil, false},
		{"vegan accepts vegan", func(p *prefs.Preferences) { p.DietaryFilter = prefs.DietVegan }, vegan, nil, true},
		{"halal rejects chicken", func(p *prefs.Preferences) { p.IsHalal = true }, chicken, nil, false},
		{"halal accepts halal chicken", func(p *prefs.Preferences) { p.IsHalal = true }, halalChicken, nil, true},
		{"halal accepts vegetarian", func(p *prefs.Preferences) { p.IsHalal = true }, pasta, nil, true},
		{"halal accepts vegan", func(p *prefs.Preferences) { p.IsHalal = true }, vegan, nil, true},
		{"excluded protein", func(p *prefs.Preferences) { p.ExcludedProteins = []string{"pork"} }, bacon, nil, false},
		{"allergen", func(p *prefs.Preferences) { p.ExcludedAllergens = []string{"tree nuts"} }, nuts, nil, false},
		{"allergen other", func(p *prefs.Preferences) { p.ExcludedAllergens = []string{"dairy"} }, nuts, nil, true},
		{"excluded id", nil, pasta, map[string]bool{"p": true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			if tt.mutate != nil {
				tt.mutate(&p)
			}
			if got := Eligible(tt.item, p, tt.exclude); got != tt.want {
				t.Fatalf("Eligible = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterKeepsOrder(t *testing.T) {
	items := []menu.Item{item("1", "Vegan Bowl"), item("2", "Beef Stew"), item("3", "Veggie Wrap")}
	p := prefs.Default()
	p.DietaryFilter = prefs.DietVegetarian

	got := Filter(items, p, IDSet([]string{"3"}))
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("Filter = %+v", got)
	}
}

func TestCategoryMatching(t *testing.T) {
	tests := []struct {
		category string
		main     bool
		side     bool
	}{
		{"Grill", true, false},
		{"THE GRILL", true, false},
		{"Bowls", true, false},
		{"Entree", true, false},
		{"Salad Bar", false, true},
		{"Soup of the Day", false, true},
		{"Salad", false, true},
		{"Beverages", false, false},
		{"", false, false},
		{"   ", false, false},
	}
	for _, tt := range tests {
		if got := IsMain(tt.category); got != tt.main {
			t.Errorf("IsMain(%q) = %v, want %v", tt.category, got, tt.main)
		}
		if got := IsSide(tt.category); got != tt.side {
			t.Errorf("IsSide(%q) = %v, want %v", tt.category, got, tt.side)
		}
	}
}
