package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

func defaultProfile() *entities.ClientProfile {
	return entities.NewClientProfile(&entities.Client{ID: "c1", Name: "Jane Doe"})
}

func TestCalculateNutrition_Defaults(t *testing.T) {
	n := CalculateNutrition(defaultProfile())

	assert.Equal(t, 1417, n.BMR)
	assert.Equal(t, 2197, n.TDEE)
	assert.Equal(t, 2197, n.DailyCalories)
	assert.Equal(t, 0, n.CalorieAdjustment)
	assert.Equal(t, Macro{Name: "protein", Grams: 120, Percent: 22}, n.Macro("protein"))
	assert.Equal(t, Macro{Name: "fat", Grams: 68, Percent: 28}, n.Macro("fat"))
	assert.Equal(t, Macro{Name: "carbs", Grams: 276, Percent: 50}, n.Macro("carbs"))
}

func TestCalculateNutrition_MaleMuscleGain(t *testing.T) {
	p := &entities.ClientProfile{
		Gender:        "male",
		WeightLb:      180,
		HeightIn:      70,
		Age:           25,
		ActivityLevel: "very active",
		Goal:          "build muscle",
	}

	n := CalculateNutrition(p)

	assert.Equal(t, 1808, n.BMR)
	assert.Equal(t, 3118, n.TDEE)
	assert.Equal(t, 300, n.CalorieAdjustment)
	assert.Equal(t, 3418, n.DailyCalories)
	assert.Equal(t, 216, n.Macro("protein").Grams)
	assert.Equal(t, 106, n.Macro("fat").Grams)
	assert.Equal(t, 400, n.Macro("carbs").Grams)
}

func TestCalculateNutrition_FatLoss(t *testing.T) {
	p := defaultProfile()
	p.Goal = "Lose weight"

	n := CalculateNutrition(p)

	assert.Equal(t, -500, n.CalorieAdjustment)
	assert.Equal(t, n.TDEE-500, n.DailyCalories)
	assert.Equal(t, 150, n.Macro("protein").Grams)
}

func TestCalculateNutrition_ModeratelyActiveMaleLosingWeight(t *testing.T) {
	p := &entities.ClientProfile{
		Gender:        "male",
		WeightLb:      180,
		HeightIn:      70,
		Age:           34,
		ActivityLevel: "moderately-active",
		Goal:          "lose weight",
	}

	n := CalculateNutrition(p)

	assert.Equal(t, 2732, n.TDEE)
	assert.Equal(t, -500, n.CalorieAdjustment)
	assert.Equal(t, 2232, n.DailyCalories)
	assert.Equal(t, 32, n.Macro("protein").Percent)
	assert.Equal(t, 28, n.Macro("fat").Percent)
	assert.Equal(t, 40, n.Macro("carbs").Percent)
	assert.Equal(t, 100, n.Macro("protein").Percent+n.Macro("fat").Percent+n.Macro("carbs").Percent)
}

func TestActivityMultiplier(t *testing.T) {
	tests := map[string]float64{
		"sedentary":         1.2,
		"lightly active":    1.375,
		"moderately-active": 1.55,
		"very active":       1.725,
		"heavy labor":       1.725,
		"extra active":      1.9,
		"very extra active": 1.9,
		"very light":        1.375,
		"very moderate":     1.55,
		"athlete":           1.9,
		"":                  1.55,
		"unknown":           1.55,
	}
	for level, want := range tests {
		assert.Equal(t, want, activityMultiplier(level), level)
	}
}

func TestMacroPercentagesAlwaysSumTo100(t *testing.T) {
	goals := []string{"", "lose fat", "gain muscle", "athlete performance", "maintain"}
	activities := []string{"sedentary", "light", "moderate", "very active", "extra"}
	for _, weight := range []float64{95, 130, 150, 210, 320} {
		for _, goal := range goals {
			for _, activity := range activities {
				p := &entities.ClientProfile{WeightLb: weight, HeightIn: 64, Age: 40, Goal: goal, ActivityLevel: activity}
				n := CalculateNutrition(p)
				sum := 0
				for _, m := range n.Macros {
					sum += m.Percent
				}
				assert.Equal(t, 100, sum, "weight=%v goal=%q activity=%q", weight, goal, activity)
			}
		}
	}
}

func TestCalculateWorkout(t *testing.T) {
	tests := []struct {
		name      string
		profile   entities.ClientProfile
		frequency int
		split     string
		volume    string
	}{
		{"defaults", entities.ClientProfile{}, 3, "Full Body", "10-15 reps x 3 sets"},
		{"beginner", entities.ClientProfile{ExperienceLevel: "Beginner"}, 3, "Full Body", "10-15 reps x 3 sets"},
		{"intermediate", entities.ClientProfile{ExperienceLevel: "intermediate", Goal: "strength"}, 4, "Upper/Lower", "3-5 reps x 4-6 sets"},
		{"advanced", entities.ClientProfile{ExperienceLevel: "advanced", Goal: "muscle"}, 5, "Push/Pull/Legs", "8-12 reps x 3-4 sets"},
		{"training days clamped high", entities.ClientProfile{TrainingDays: 7, Goal: "endurance"}, 6, "Push/Pull/Legs", "15-20 reps x 2-3 sets"},
		{"training days clamped low", entities.ClientProfile{TrainingDays: 1, ExperienceLevel: "advanced"}, 2, "Full Body", "10-15 reps x 3 sets"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := CalculateWorkout(&tt.profile)
			assert.Equal(t, tt.frequency, w.WeeklyFrequency)
			assert.Equal(t, tt.split, w.TrainingSplit)
			assert.Equal(t, tt.volume, w.VolumeGuidance)
		})
	}
}

func TestCalculated_ExposesTemplateKeys(t *testing.T) {
	calc := Calculated(defaultProfile())

	nutrition := calc["nutrition"].(map[string]interface{})
	for _, key := range []string{"bmr", "tdee", "daily_calories", "calorie_adjustment", "protein_grams", "fat_grams", "carb_grams", "protein_pct", "fat_pct", "carb_pct"} {
		assert.Contains(t, nutrition, key)
	}
	workout := calc["workout"].(map[string]interface{})
	for _, key := range []string{"weekly_frequency", "training_split", "volume_guidance", "session_minutes"} {
		assert.Contains(t, workout, key)
	}
}
