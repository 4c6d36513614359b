package prefs

import (
	"strings"
	"testing"

	"github.com/fdg312/dining-planner/internal/menu"
)

func TestDefaultIsValid(t *testing.T) {
	p := Default()
	p.Normalize()
	if err := p.Validate(); err != nil {
		t.Fatalf("default preferences invalid: %v", err)
	}
	if got := p.LocationFor(menu.Lunch); got != "newcollege" {
		t.Fatalf("lunch location = %q", got)
	}
}

func TestNormalizeDietaryFilter(t *testing.T) {
	p := Default()
	p.DietaryFilter = ""
	p.Normalize()
	if p.DietaryFilter != DietAll {
		t.Fatalf("empty filter normalized to %q", p.DietaryFilter)
	}
	p.DietaryFilter = " Vegan "
	p.Normalize()
	if p.DietaryFilter != DietVegan {
		t.Fatalf("filter normalized to %q", p.DietaryFilter)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Preferences)
		wantErr string
	}{
		{"zero calories", func(p *Preferences) { p.TargetCalories = 0 }, "target_calories"},
		{"negative protein", func(p *Preferences) { p.TargetProtein = -1 }, "target_protein"},
		{"negative fat", func(p *Preferences) { p.TargetFat = -1 }, "target_fat"},
		{"missing dinner", func(p *Preferences) { p.DinnerLocation = "" }, "dinner_location"},
		{"bad filter", func(p *Preferences) { p.DietaryFilter = "pescatarian" }, "dietary_filter"},
		{"ok", func(p *Preferences) {}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Default()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
