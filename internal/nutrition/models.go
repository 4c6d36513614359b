package nutrition

import (
	"fmt"
	"strings"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type ActivityLevel string

const (
	ActivitySedentary  ActivityLevel = "sedentary"
	ActivityLight      ActivityLevel = "light"
	ActivityModerate   ActivityLevel = "moderate"
	ActivityActive     ActivityLevel = "active"
	ActivityVeryActive ActivityLevel = "very_active"
)

// ActivityMultipliers scale BMR to daily energy expenditure.
var ActivityMultipliers = map[ActivityLevel]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityActive:     1.725,
	ActivityVeryActive: 1.9,
}

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

// GoalAdjustment is the calorie delta and grams of protein per pound of
// bodyweight for a goal.
type GoalAdjustment struct {
	Calories        float64
	ProteinPerPound float64
}

var Goals = map[Goal]GoalAdjustment{
	GoalLose:     {Calories: -500, ProteinPerPound: 1.0},
	GoalMaintain: {Calories: 0, ProteinPerPound: 0.8},
	GoalGain:     {Calories: 300, ProteinPerPound: 1.0},
}

// BodyStats is the request body for POST /v1/targets/calculate. Weight is
// in pounds and height in inches.
type BodyStats struct {
	WeightLb      float64       `json:"weight_lb"`
	HeightIn      float64       `json:"height_in"`
	Age           int           `json:"age"`
	Sex           Sex           `json:"sex"`
	ActivityLevel ActivityLevel `json:"activity_level"`
	Goal          Goal          `json:"goal"`
}

// Targets are daily macro targets in kcal and grams.
type Targets struct {
	Calories int `json:"target_calories"`
	Protein  int `json:"target_protein"`
	Carbs    int `json:"target_carbs"`
	Fat      int `json:"target_fat"`
}

// Normalize lowercases the enum fields.
func (s *BodyStats) Normalize() {
	s.Sex = Sex(strings.ToLower(strings.TrimSpace(string(s.Sex))))
	s.ActivityLevel = ActivityLevel(strings.ToLower(strings.TrimSpace(string(s.ActivityLevel))))
	s.Goal = Goal(strings.ToLower(strings.TrimSpace(string(s.Goal))))
}

func (s BodyStats) Validate() error {
	if s.WeightLb < 50 || s.WeightLb > 700 {
		return fmt.Errorf("weight_lb must be between 50 and 700")
	}
	if s.HeightIn < 36 || s.HeightIn > 96 {
		return fmt.Errorf("height_in must be between 36 and 96")
	}
	if s.Age < 13 || s.Age > 100 {
		return fmt.Errorf("age must be between 13 and 100")
	}
	if s.Sex != SexMale && s.Sex != SexFemale {
		return fmt.Errorf("sex must be male or female")
	}
	if _, ok := ActivityMultipliers[s.ActivityLevel]; !ok {
		return fmt.Errorf("unknown activity_level %q", s.ActivityLevel)
	}
	if _, ok := Goals[s.Goal]; !ok {
		return fmt.Errorf("unknown goal %q", s.Goal)
	}
	return nil
}
