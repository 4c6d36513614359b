package nutrition

import "math"

const (
	kgPerPound = 0.453592
	cmPerInch  = 2.54

	kcalPerGramProtein = 4
	kcalPerGramCarbs   = 4
	kcalPerGramFat     = 9

	carbShare = 0.55
	fatShare  = 0.45
)

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal.
func BMR(s BodyStats) float64 {
	bmr := 10*s.WeightLb*kgPerPound + 6.25*s.HeightIn*cmPerInch - 5*float64(s.Age)
	if s.Sex == SexMale {
		return bmr + 5
	}
	return bmr - 161
}

// Calculate derives daily targets from body stats. Protein is set from
// bodyweight; the calories left over are split 55/45 between carbs and fat.
// s must be valid.
func Calculate(s BodyStats) Targets {
	goal := Goals[s.Goal]
	tdee := BMR(s) * ActivityMultipliers[s.ActivityLevel]

	calories := round(tdee + goal.Calories)
	protein := round(s.WeightLb * goal.ProteinPerPound)
	remaining := float64(calories - protein*kcalPerGramProtein)

	return Targets{
		Calories: calories,
		Protein:  protein,
		Carbs:    round(remaining * carbShare / kcalPerGramCarbs),
		Fat:      round(remaining * fatShare / kcalPerGramFat),
	}
}

// ProteinPerMeal spreads protein evenly over three meals.
func ProteinPerMeal(totalProtein int) int {
	return round(float64(totalProtein) / 3)
}

func round(v float64) int {
	return int(math.Floor(v + 0.5))
}
