package llmplan

import (
	"strconv"
	"strings"

	"github.com/fdg312/dining-planner/internal/classify"
	"github.com/fdg312/dining-planner/internal/menu"
	"github.com/fdg312/dining-planner/internal/prefs"
)

const rulesPrompt = `You are a meal planning assistant for university students. Select items from the menu to create a balanced meal plan.

RULES:
1. ONLY use exact item IDs from the menu - never invent items
2. Select 1-3 items per meal with servings 1-5
3. Prioritize hitting protein targets
4. STRICTLY respect user dietary preferences based on item names. For vegetarian users, avoid meat/fish/poultry. For vegan users, avoid all animal products. For halal users, avoid pork and non-halal meat. Use your knowledge of food to make appropriate selections.`

// SystemPrompt asks for a bare JSON document.
const SystemPrompt = rulesPrompt + `

Return ONLY valid JSON matching this schema:
{
  "meals": [
    { "meal": "breakfast", "items": [{ "itemId": "exact-id", "servings": 1 }] },
    { "meal": "lunch", "items": [{ "itemId": "exact-id", "servings": 2 }] },
    { "meal": "dinner", "items": [{ "itemId": "exact-id", "servings": 1 }] }
  ]
}`

// ToolSystemPrompt asks for the plan through the submit tool.
const ToolSystemPrompt = rulesPrompt + `

Submit the plan by calling the ` + ToolName + ` tool exactly once, with one entry per meal.`

const ToolName = "submit_meal_plan"

// PlanTool is the schema of the forced tool call.
var PlanTool = map[string]any{
	"meals": map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"meal": map[string]any{
					"type": "string",
					"enum": []string{string(menu.Breakfast), string(menu.Lunch), string(menu.Dinner)},
				},
				"items": map[string]any{
					"type":     "array",
					"maxItems": maxItemsPerMeal,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"itemId":   map[string]any{"type": "string", "description": "Exact ID from the menu"},
							"servings": map[string]any{"type": "integer", "minimum": 1, "maximum": 5},
						},
						"required": []string{"itemId", "servings"},
					},
				},
			},
			"required": []string{"meal", "items"},
		},
	},
}

// catalog returns the items offered for meal at the user's chosen location.
// With eligibleOnly the hard dietary constraints are applied first.
func catalog(m *menu.DailyMenu, p prefs.Preferences, meal menu.Meal, eligibleOnly bool) []menu.Item {
	items := m.Items(p.LocationFor(meal), meal)
	if eligibleOnly {
		return classify.Filter(items, p, nil)
	}
	return items
}

// MenuContext renders the catalog of each meal's chosen location. A missing
// location and a meal with nothing on offer render the same way.
func MenuContext(m *menu.DailyMenu, p prefs.Preferences, eligibleOnly bool) string {
	var b strings.Builder
	for _, meal := range menu.Meals {
		locationID := p.LocationFor(meal)
		items := catalog(m, p, meal, eligibleOnly)
		header := strings.ToUpper(string(meal))

		if len(items) == 0 {
			b.WriteString("\n## " + header + " at " + locationID + "\nNo items available.\n")
			continue
		}

		name := locationID
		if loc, ok := m.Locations[locationID]; ok && loc.Name != "" {
			name = loc.Name
		}
		b.WriteString("\n## " + header + " at " + name + "\n")
		for _, item := range items {
			b.WriteString(`- ID: "` + item.ID + `" | ` + item.Name + " | ")
			b.WriteString(formatNumber(item.Calories) + "cal, " + formatNumber(item.Protein) + "g protein per " + item.ServingSize + "\n")
		}
	}
	return b.String()
}

func PreferencesContext(p prefs.Preferences) string {
	var b strings.Builder
	b.WriteString("\nDAILY TARGETS: " + strconv.Itoa(p.TargetCalories) + " cal, " + strconv.Itoa(p.TargetProtein) + "g protein\n")
	b.WriteString("MEAL DISTRIBUTION: breakfast 25%, lunch 35%, dinner 40%\n")
	if strings.TrimSpace(p.DietaryPreferences) != "" {
		b.WriteString("\nUSER PREFERENCES: " + p.DietaryPreferences + "\n")
	}
	return b.String()
}

// UserPrompt assembles the per-request prompt.
func UserPrompt(m *menu.DailyMenu, p prefs.Preferences, feedback string, eligibleOnly, tool bool) string {
	var b strings.Builder
	b.WriteString(PreferencesContext(p))
	b.WriteString("\nMENU:")
	b.WriteString(MenuContext(m, p, eligibleOnly))
	if strings.TrimSpace(feedback) != "" {
		b.WriteString("\n\nUSER REQUEST: " + feedback)
	}
	if tool {
		b.WriteString("\n\nCreate a meal plan and submit it with " + ToolName + ".")
	} else {
		b.WriteString("\n\nCreate a meal plan. Return ONLY JSON.")
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
