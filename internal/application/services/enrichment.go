package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/pkg/utils"
)

// EnricherRegistry dispatches content enrichment by document type
type EnricherRegistry struct {
	enrichers map[entities.DocumentType]providers.ContentEnricher
}

// NewEnricherRegistry registers enrichers; a later enricher for the same type wins
func NewEnricherRegistry(enrichers ...providers.ContentEnricher) *EnricherRegistry {
	r := &EnricherRegistry{enrichers: make(map[entities.DocumentType]providers.ContentEnricher)}
	for _, e := range enrichers {
		r.enrichers[e.DocumentType()] = e
	}
	return r
}

// DefaultEnrichers returns the enrichers for every document type that has one
func DefaultEnrichers() []providers.ContentEnricher {
	return []providers.ContentEnricher{
		NutritionEnricher{},
		WorkoutEnricher{},
		PerformanceEnricher{},
		YouthEnricher{},
		RecoveryEnricher{},
		WellnessEnricher{},
	}
}

// Enrich runs the enricher for docType. Types without one pass through.
func (r *EnricherRegistry) Enrich(ctx context.Context, docType entities.DocumentType, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error) {
	if r == nil {
		return content, nil
	}
	e, ok := r.enrichers[docType]
	if !ok {
		return content, nil
	}
	enriched, err := e.Enrich(ctx, content, profile)
	if err != nil {
		return nil, fmt.Errorf("%s enrichment failed: %w", docType, err)
	}
	return enriched, nil
}

func itoa(i int) string { return strconv.Itoa(i) }

// NutritionEnricher adds the calorie breakdown, macro table and hydration target
type NutritionEnricher struct{}

func (NutritionEnricher) DocumentType() entities.DocumentType { return entities.DocumentTypeNutrition }

func (NutritionEnricher) Enrich(_ context.Context, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error) {
	out := content.Clone()
	n := CalculateNutrition(profile)

	meals := []struct {
		name  string
		share float64
	}{
		{"Breakfast", 0.25},
		{"Lunch", 0.30},
		{"Dinner", 0.30},
		{"Snacks", 0.15},
	}
	mealRows := make([][]string, 0, len(meals))
	for _, m := range meals {
		mealRows = append(mealRows, []string{m.name, itoa(int(math.Round(float64(n.DailyCalories) * m.share)))})
	}
	out.AddSection(entities.TableSection("calorie-breakdown", "Calorie Breakdown", []string{"Meal", "Calories"}, mealRows))

	macroRows := make([][]string, 0, len(n.Macros))
	for _, m := range n.Macros {
		perGram := 4
		if m.Name == "fat" {
			perGram = 9
		}
		macroRows = append(macroRows, []string{
			macroLabels[m.Name],
			itoa(m.Grams) + " g",
			itoa(m.Percent) + "%",
			itoa(m.Grams * perGram),
		})
	}
	out.AddSection(entities.TableSection("macros", "Macronutrient Targets", []string{"Macro", "Grams", "Share", "Calories"}, macroRows))

	weight := profile.WeightLb
	if weight <= 0 {
		weight = entities.DefaultWeightLb
	}
	ounces := int(math.Round(weight / 2))
	out.AddSection(entities.TextSection("hydration", "Hydration",
		fmt.Sprintf("Aim for about %d oz of water a day, plus 16-24 oz for every hour of training.", ounces)))

	return out, nil
}

var macroLabels = map[string]string{
	"protein": "Protein",
	"fat":     "Fat",
	"carbs":   "Carbohydrates",
}

// WorkoutEnricher adds a weekly schedule and progression rules
type WorkoutEnricher struct{}

func (WorkoutEnricher) DocumentType() entities.DocumentType { return entities.DocumentTypeWorkout }

var weekDays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Training days for each weekly frequency, spread to leave rest between sessions
var trainingDayIndexes = map[int][]int{
	2: {0, 3},
	3: {0, 2, 4},
	4: {0, 1, 3, 4},
	5: {0, 1, 2, 4, 5},
	6: {0, 1, 2, 3, 4, 5},
}

func sessionFocus(split string, session int) string {
	switch split {
	case "Push/Pull/Legs":
		return []string{"Push", "Pull", "Legs"}[session%3]
	case "Upper/Lower":
		return []string{"Upper Body", "Lower Body"}[session%2]
	default:
		return "Full Body"
	}
}

func (WorkoutEnricher) Enrich(_ context.Context, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error) {
	out := content.Clone()
	w := CalculateWorkout(profile)

	days, ok := trainingDayIndexes[w.WeeklyFrequency]
	if !ok {
		days = trainingDayIndexes[3]
	}
	training := make(map[int]int, len(days))
	for session, day := range days {
		training[day] = session
	}

	rows := make([][]string, 0, len(weekDays))
	for i, day := range weekDays {
		if session, ok := training[i]; ok {
			rows = append(rows, []string{day, sessionFocus(w.TrainingSplit, session), itoa(w.SessionMinutes) + " min"})
		} else {
			rows = append(rows, []string{day, "Rest or light activity", "-"})
		}
	}
	out.AddSection(entities.TableSection("weekly-schedule", "Weekly Schedule", []string{"Day", "Focus", "Duration"}, rows))

	out.AddSection(entities.ListSection("progression", "Progression",
		"Work in the "+w.VolumeGuidance+" range.",
		"When you complete every set at the top of the rep range, add 2.5-5% load.",
		"Every fourth week, reduce volume by a third to recover.",
	))
	return out, nil
}

// PerformanceEnricher adds the periodization phase for the athlete's season
type PerformanceEnricher struct{}

func (PerformanceEnricher) DocumentType() entities.DocumentType {
	return entities.DocumentTypePerformance
}

// SeasonPhase maps a season answer onto a training phase and its emphasis
func SeasonPhase(season string) (string, string) {
	s := utils.NormalizeToken(season)
	switch {
	case strings.HasPrefix(s, "off"):
		return "Off-Season", "Build strength and work capacity with higher training volume."
	case strings.HasPrefix(s, "pre"):
		return "Pre-Season", "Convert strength to power and sharpen sport-specific conditioning."
	case strings.HasPrefix(s, "post"):
		return "Post-Season", "Recover, address injuries and rebuild movement quality."
	case strings.HasPrefix(s, "in"):
		return "In-Season", "Maintain strength with low volume so competition comes first."
	default:
		return "General Preparation", "Develop a broad base of strength, speed and conditioning."
	}
}

func (PerformanceEnricher) Enrich(_ context.Context, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error) {
	out := content.Clone()
	phase, emphasis := SeasonPhase(profile.Season)

	children := []entities.Section{
		entities.TextSection("phase-emphasis", phase, emphasis),
	}
	if profile.Sport != "" {
		children = append(children, entities.TextSection("phase-sport", "Sport",
			fmt.Sprintf("Conditioning work is matched to the demands of %s.", profile.Sport)))
	}
	out.AddSection(entities.NestedSection("periodization", "Periodization", children...))
	return out, nil
}

// YouthEnricher swaps adult prescriptions for age-appropriate ones
type YouthEnricher struct{}

func (YouthEnricher) DocumentType() entities.DocumentType { return entities.DocumentTypeYouth }

func (YouthEnricher) Enrich(_ context.Context, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error) {
	out := content.Clone()

	out.AddSection(entities.TableSection("substitutions", "Age-Appropriate Substitutions",
		[]string{"Instead of", "Do"},
		[][]string{
			{"Maximal barbell lifts", "Bodyweight and light dumbbell variations"},
			{"Calorie counting", "Regular meals and snacks built around whole foods"},
			{"Long steady cardio", "Games, sprints and skill play"},
		}))

	if profile.Age > 0 && profile.Age < 13 {
		out.AddSection(entities.ListSection("under-13", "Under 13 Guidelines",
			"No maximal or one-rep-max testing.",
			"Sessions last no longer than 60 minutes.",
			"An adult supervises every session.",
		))
	}
	return out, nil
}

// RecoveryEnricher adds phase guidance and the medical clearance reminder
type RecoveryEnricher struct{}

func (RecoveryEnricher) DocumentType() entities.DocumentType { return entities.DocumentTypeRecovery }

// RecoveryPhase reads the recovery phase answer, defaulting to the early phase
func RecoveryPhase(answers map[string]interface{}) (string, string) {
	phase := utils.NormalizeToken(utils.AsString(answers["recovery_phase"]))
	switch {
	case strings.Contains(phase, "return"), strings.Contains(phase, "late"):
		return "Return to Activity", "Reintroduce sport and training loads gradually, watching for symptom flare-ups."
	case strings.Contains(phase, "sub"), strings.Contains(phase, "mid"):
		return "Rebuilding", "Restore range of motion and begin light strengthening."
	default:
		return "Early Recovery", "Protect the injured area, manage pain and keep the rest of the body moving."
	}
}

func (RecoveryEnricher) Enrich(_ context.Context, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error) {
	out := content.Clone()
	title, guidance := RecoveryPhase(profile.Answers)

	out.AddSection(entities.TextSection("recovery-phase", "Current Phase: "+title, guidance))
	out.AddSection(entities.TextSection("medical-clearance", "Medical Clearance",
		"Check with your physician or physical therapist before progressing to the next phase."))
	return out, nil
}

// WellnessEnricher builds a habit checklist from the client's focus areas
type WellnessEnricher struct{}

func (WellnessEnricher) DocumentType() entities.DocumentType { return entities.DocumentTypeWellness }

var focusHabits = []struct {
	token string
	habit string
}{
	{"sleep", "Keep a consistent bedtime and wake time."},
	{"stress", "Take five minutes for slow breathing each afternoon."},
	{"energy", "Get outside for ten minutes of daylight each morning."},
	{"nutrition", "Add one serving of vegetables to lunch and dinner."},
	{"healthy-eating", "Add one serving of vegetables to lunch and dinner."},
	{"fitness", "Move for at least 30 minutes on most days."},
	{"mobility", "Do a ten-minute mobility routine after waking."},
	{"weight-loss", "Walk 8,000 steps a day."},
}

func (WellnessEnricher) Enrich(_ context.Context, content *entities.Content, profile *entities.ClientProfile) (*entities.Content, error) {
	out := content.Clone()

	focus := make(map[string]bool, len(profile.Focus))
	for _, f := range profile.Focus {
		focus[utils.NormalizeToken(f)] = true
	}

	var habits []string
	seen := make(map[string]bool)
	for _, fh := range focusHabits {
		if focus[fh.token] && !seen[fh.habit] {
			seen[fh.habit] = true
			habits = append(habits, fh.habit)
		}
	}
	if len(habits) == 0 {
		habits = []string{
			"Drink a glass of water with every meal.",
			"Move for at least 30 minutes on most days.",
			"Keep a consistent bedtime and wake time.",
		}
	}

	out.AddSection(entities.ListSection("habit-checklist", "Habit Checklist", habits...))
	return out, nil
}
