package services

import (
	"math"
	"strings"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

const (
	lbToKg   = 0.453592
	inToCm   = 2.54
	fatShare = 0.28
)

// Macro is one macronutrient target
type Macro struct {
	Name    string `json:"name"`
	Grams   int    `json:"grams"`
	Percent int    `json:"percent"`
}

// NutritionValues are the energy and macro targets derived from a profile
type NutritionValues struct {
	BMR               int     `json:"bmr"`
	TDEE              int     `json:"tdee"`
	DailyCalories     int     `json:"daily_calories"`
	CalorieAdjustment int     `json:"calorie_adjustment"`
	Macros            []Macro `json:"macros"`
}

// Macro returns the named macro, or a zero value
func (n NutritionValues) Macro(name string) Macro {
	for _, m := range n.Macros {
		if m.Name == name {
			return m
		}
	}
	return Macro{Name: name}
}

// WorkoutValues are the training prescription derived from a profile
type WorkoutValues struct {
	WeeklyFrequency int    `json:"weekly_frequency"`
	TrainingSplit   string `json:"training_split"`
	VolumeGuidance  string `json:"volume_guidance"`
	SessionMinutes  int    `json:"session_minutes"`
}

// CalculateNutrition applies Mifflin-St Jeor with activity and goal adjustments
func CalculateNutrition(p *entities.ClientProfile) NutritionValues {
	weight := p.WeightLb
	if weight <= 0 {
		weight = entities.DefaultWeightLb
	}
	height := p.HeightIn
	if height <= 0 {
		height = entities.DefaultHeightIn
	}
	age := p.Age
	if age <= 0 {
		age = entities.DefaultAge
	}

	genderConstant := -161.0
	if p.IsMale() {
		genderConstant = 5
	}

	bmr := 10*weight*lbToKg + 6.25*height*inToCm - 5*float64(age) + genderConstant
	tdee := bmr * activityMultiplier(p.ActivityLevel)
	adjustment := calorieAdjustment(p.Goal)
	daily := int(math.Round(tdee)) + adjustment

	protein := int(math.Round(weight * proteinFactor(p)))
	fat := int(math.Round(float64(daily) * fatShare / 9))
	carbs := int(math.Round(float64(daily-protein*4-fat*9) / 4))
	if carbs < 0 {
		carbs = 0
	}

	proteinPct, fatPct, carbPct := macroPercentages(protein, fat, carbs)

	return NutritionValues{
		BMR:               int(math.Round(bmr)),
		TDEE:              int(math.Round(tdee)),
		DailyCalories:     daily,
		CalorieAdjustment: adjustment,
		Macros: []Macro{
			{Name: "protein", Grams: protein, Percent: proteinPct},
			{Name: "fat", Grams: fat, Percent: fatPct},
			{Name: "carbs", Grams: carbs, Percent: carbPct},
		},
	}
}

// Levels are matched in table order, except that "extra" and "athlete" come
// first so "very extra active" is not read as very active. "very light" is light.
func activityMultiplier(level string) float64 {
	l := strings.ToLower(level)
	switch {
	case strings.Contains(l, "sedentary"):
		return 1.2
	case strings.Contains(l, "extra"), strings.Contains(l, "athlete"):
		return 1.9
	case strings.Contains(l, "light"):
		return 1.375
	case strings.Contains(l, "moderate"):
		return 1.55
	case strings.Contains(l, "very"), strings.Contains(l, "heavy"):
		return 1.725
	default:
		return 1.55
	}
}

func isFatLossGoal(goal string) bool {
	g := strings.ToLower(goal)
	return strings.Contains(g, "lose") || strings.Contains(g, "fat loss") || strings.Contains(g, "weight loss") || strings.Contains(g, "fat-loss") || strings.Contains(g, "weight-loss")
}

func isGainGoal(goal string) bool {
	g := strings.ToLower(goal)
	return strings.Contains(g, "gain") || strings.Contains(g, "muscle") || strings.Contains(g, "bulk")
}

func calorieAdjustment(goal string) int {
	switch {
	case isFatLossGoal(goal):
		return -500
	case isGainGoal(goal):
		return 300
	default:
		return 0
	}
}

// grams of protein per pound of bodyweight
func proteinFactor(p *entities.ClientProfile) float64 {
	athlete := p.Classification == entities.ClassificationAthletePerformance ||
		strings.Contains(strings.ToLower(p.Goal), "athlete")
	switch {
	case isGainGoal(p.Goal) || athlete:
		return 1.2
	case isFatLossGoal(p.Goal):
		return 1.0
	default:
		return 0.8
	}
}

// macroPercentages derives shares from grams; carbs absorb rounding drift so
// the three always sum to 100.
func macroPercentages(protein, fat, carbs int) (int, int, int) {
	total := float64(protein*4 + fat*9 + carbs*4)
	if total == 0 {
		return 0, 0, 0
	}
	proteinPct := int(math.Round(float64(protein*4) * 100 / total))
	fatPct := int(math.Round(float64(fat*9) * 100 / total))
	carbPct := 100 - proteinPct - fatPct
	if carbPct < 0 {
		fatPct += carbPct
		carbPct = 0
	}
	return proteinPct, fatPct, carbPct
}

// CalculateWorkout derives frequency, split and volume
func CalculateWorkout(p *entities.ClientProfile) WorkoutValues {
	experience := strings.ToLower(p.ExperienceLevel)

	frequency := 3
	switch {
	case p.TrainingDays > 0:
		frequency = p.TrainingDays
		if frequency < 2 {
			frequency = 2
		}
		if frequency > 6 {
			frequency = 6
		}
	case strings.Contains(experience, "advanced"):
		frequency = 5
	case strings.Contains(experience, "intermediate"):
		frequency = 4
	}

	split := "Full Body"
	switch {
	case frequency >= 5:
		split = "Push/Pull/Legs"
	case frequency == 4:
		split = "Upper/Lower"
	}

	minutes := 45
	switch {
	case strings.Contains(experience, "advanced"):
		minutes = 75
	case strings.Contains(experience, "intermediate"):
		minutes = 60
	}

	return WorkoutValues{
		WeeklyFrequency: frequency,
		TrainingSplit:   split,
		VolumeGuidance:  volumeGuidance(p.Goal),
		SessionMinutes:  minutes,
	}
}

func volumeGuidance(goal string) string {
	g := strings.ToLower(goal)
	switch {
	case strings.Contains(g, "strength"):
		return "3-5 reps x 4-6 sets"
	case strings.Contains(g, "muscle"), strings.Contains(g, "hypertrophy"), strings.Contains(g, "gain"):
		return "8-12 reps x 3-4 sets"
	case strings.Contains(g, "endurance"):
		return "15-20 reps x 2-3 sets"
	default:
		return "10-15 reps x 3 sets"
	}
}

// Calculated builds the `calculated` root of the template context
func Calculated(p *entities.ClientProfile) map[string]interface{} {
	n := CalculateNutrition(p)
	w := CalculateWorkout(p)
	protein, fat, carbs := n.Macro("protein"), n.Macro("fat"), n.Macro("carbs")

	return map[string]interface{}{
		"nutrition": map[string]interface{}{
			"bmr":                n.BMR,
			"tdee":               n.TDEE,
			"daily_calories":     n.DailyCalories,
			"calorie_adjustment": n.CalorieAdjustment,
			"protein_grams":      protein.Grams,
			"fat_grams":          fat.Grams,
			"carb_grams":         carbs.Grams,
			"protein_pct":        protein.Percent,
			"fat_pct":            fat.Percent,
			"carb_pct":           carbs.Percent,
		},
		"workout": map[string]interface{}{
			"weekly_frequency": w.WeeklyFrequency,
			"training_split":   w.TrainingSplit,
			"volume_guidance":  w.VolumeGuidance,
			"session_minutes":  w.SessionMinutes,
		},
	}
}
