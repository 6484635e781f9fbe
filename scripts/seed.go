package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zatekoja/coachpackets/internal/app"
	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/config"
)

// Demo intakes, one per classification
var demoIntakes = []services.IntakeSubmission{
	{
		OwnerID: "demo-nutrition", Name: "Jane Doe", Email: "jane@example.com",
		Classification: entities.ClassificationNutritionOnly,
		Answers: map[string]interface{}{
			"age": 34, "gender": "female", "weight": 150, "height": 66, "goal": "fat_loss",
			"activity_level": "moderate", "dietary_restrictions": "vegetarian",
		},
	},
	{
		OwnerID: "demo-workout", Name: "Sam Lee",
		Classification: entities.ClassificationWorkoutOnly,
		Answers: map[string]interface{}{
			"experience_level": "beginner", "goal": "strength", "training_days": 3,
		},
	},
	{
		OwnerID: "demo-full", Name: "Alex Kim", Phone: "+15550100",
		Classification: entities.ClassificationFullProgram,
		Answers: map[string]interface{}{
			"age": 41, "weight": 190, "height": 71, "goal": "muscle_gain",
			"experience_level": "intermediate", "training_days": 4,
		},
	},
	{
		OwnerID: "demo-athlete", Name: "Jordan Park",
		Classification: entities.ClassificationAthletePerformance,
		Answers: map[string]interface{}{
			"age": 24, "sport": "soccer", "season": "pre-season", "weight": 165,
		},
	},
	{
		OwnerID: "demo-youth", Name: "Riley Chen",
		Classification: entities.ClassificationYouthAthlete,
		Answers: map[string]interface{}{
			"age": 14, "sport": "basketball", "guardian_name": "Morgan Chen",
		},
	},
	{
		OwnerID: "demo-wellness", Name: "Casey Diaz",
		Classification: entities.ClassificationGeneralWellness,
		Answers:        map[string]interface{}{"focus": "sleep"},
	},
	{
		OwnerID: "demo-special", Name: "Taylor Reed",
		Classification: entities.ClassificationSpecialSituation,
		Answers:        map[string]interface{}{"injury": "knee", "goal": "return to running"},
	},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("seed", cfg.Environment, cfg.LogLevel)
	logger := observability.GetLogger()

	ctx := context.Background()
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer a.Close()

	if err := a.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to apply schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		logger.Warn().Msg("RESET_DB=true detected, truncating tables before seeding")
		if err := a.Reset(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to reset tables")
		}
	}

	for i := range demoIntakes {
		sub := demoIntakes[i]
		result, err := a.Services.Intake.Submit(ctx, &sub)
		if err != nil {
			logger.Error().Err(err).Str("owner_id", sub.OwnerID).Msg("Failed to seed intake")
			continue
		}
		logger.Info().
			Str("client_id", result.Client.ID).
			Str("classification", string(sub.Classification)).
			Int("packets", len(result.Routing.PacketIDs)).
			Msg("Seeded client")
	}

	if os.Getenv("SEED_GENERATE") == "true" {
		n, err := a.Services.Queue.RunCycle(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to generate seeded packets")
		}
		logger.Info().Int("packets", n).Msg("Generated seeded packets")
	}
}
