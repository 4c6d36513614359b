package menu

import "testing"

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"12", 12},
		{"  12.5  ", 12.5},
		{"1,234", 1234},
		{"1,234.75", 1234.75},
		{"0", 0},
		{".5", 0.5},
		{"12g", 12},
		{"", 0},
		{"   ", 0},
		{"N/A", 0},
		{"abc", 0},
		{"-", 0},
		{"-3", -3},
	}
	for _, tt := range tests {
		if got := ParseNumber(tt.in); got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// Unknown labels fall back to lunch on purpose; upstream reports without a
// recognizable meal word are mid-day stations.
func TestNormalizeMeal(t *testing.T) {
	tests := []struct {
		in   string
		want Meal
	}{
		{"Breakfast", Breakfast},
		{"BREAKFAST MENU", Breakfast},
		{"weekend brunch/lunch", Lunch},
		{"Lunch", Lunch},
		{"Dinner Service", Dinner},
		{"dinner", Dinner},
		{"", Lunch},
		{"Late Night", Lunch},
		{"Brunch", Lunch},
	}
	for _, tt := range tests {
		if got := NormalizeMeal(tt.in); got != tt.want {
			t.Errorf("NormalizeMeal(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemID(t *testing.T) {
	got := ItemID("Grilled  Chicken (Halal) & Rice", "Chestnut Residence", Dinner, "2025-01-15")
	want := "2025-01-15-chestnut-residence-dinner-grilled-chicken-halal--rice"
	if got != want {
		t.Fatalf("ItemID = %q, want %q", got, want)
	}
	if again := ItemID("Grilled  Chicken (Halal) & Rice", "Chestnut Residence", Dinner, "2025-01-15"); again != got {
		t.Fatalf("ItemID not stable: %q vs %q", again, got)
	}
}

func TestParseMeal(t *testing.T) {
	for _, m := range Meals {
		got, err := ParseMeal(string(m))
		if err != nil || got != m {
			t.Fatalf("ParseMeal(%q) = %q, %v", m, got, err)
		}
	}
	if _, err := ParseMeal("Lunch"); err == nil {
		t.Fatal("expected error for non-canonical label")
	}
}

func TestDailyMenuLookup(t *testing.T) {
	m := NewDailyMenu("2025-01-15")
	m.SetMeal("chestnut", "Chestnut Residence", Breakfast, []Item{{ID: "a", Name: "A"}, {ID: "a", Name: "A dup"}})
	m.SetMeal("chestnut", "Chestnut Residence", Lunch, []Item{{ID: "b"}})

	if n := m.ItemCount(); n != 3 {
		t.Fatalf("ItemCount = %d, want 3", n)
	}
	idx := m.Lookup()
	if len(idx) != 2 {
		t.Fatalf("Lookup size = %d, want 2", len(idx))
	}
	if idx["a"].Name != "A" {
		t.Fatalf("first duplicate should win, got %q", idx["a"].Name)
	}
	if got := m.Items("chestnut", Dinner); got != nil {
		t.Fatalf("expected nil for absent meal, got %v", got)
	}
	if got := m.Items("robarts", Lunch); got != nil {
		t.Fatalf("expected nil for absent location, got %v", got)
	}
}
