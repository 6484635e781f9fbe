package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/coachpackets/internal/adapters/memory"
	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
)

func TestRequiredDocumentTypes(t *testing.T) {
	N, W := entities.DocumentTypeNutrition, entities.DocumentTypeWorkout

	tests := []struct {
		name           string
		classification entities.Classification
		answers        map[string]interface{}
		want           []entities.DocumentType
	}{
		{"nutrition only", entities.ClassificationNutritionOnly, nil, []entities.DocumentType{N}},
		{"workout only", entities.ClassificationWorkoutOnly, nil, []entities.DocumentType{W}},
		{"full program", entities.ClassificationFullProgram, nil, []entities.DocumentType{N, W}},
		{"youth", entities.ClassificationYouthAthlete, nil, []entities.DocumentType{entities.DocumentTypeYouth}},
		{
			"athlete with nutrition opt in",
			entities.ClassificationAthletePerformance,
			map[string]interface{}{"nutrition_opt_in": "  YES "},
			[]entities.DocumentType{entities.DocumentTypePerformance, N},
		},
		{
			"athlete without opt in",
			entities.ClassificationAthletePerformance,
			map[string]interface{}{"nutrition_opt_in": "no"},
			[]entities.DocumentType{entities.DocumentTypePerformance},
		},
		{
			"wellness with overlapping focus",
			entities.ClassificationGeneralWellness,
			map[string]interface{}{"focus": []interface{}{"Weight Loss"}},
			[]entities.DocumentType{entities.DocumentTypeWellness, W, N},
		},
		{
			"wellness with energy focus",
			entities.ClassificationGeneralWellness,
			map[string]interface{}{"focus": []string{"energy", "sleep"}},
			[]entities.DocumentType{entities.DocumentTypeWellness, N},
		},
		{
			"wellness with scalar focus",
			entities.ClassificationGeneralWellness,
			map[string]interface{}{"focus": "strength"},
			[]entities.DocumentType{entities.DocumentTypeWellness},
		},
		{
			"special situation wanting nutrition",
			entities.ClassificationSpecialSituation,
			map[string]interface{}{"recovery_goals": "Better NUTRITION while healing"},
			[]entities.DocumentType{entities.DocumentTypeRecovery, N},
		},
		{
			"special situation",
			entities.ClassificationSpecialSituation,
			map[string]interface{}{"recovery_goals": "walk without pain"},
			[]entities.DocumentType{entities.DocumentTypeRecovery},
		},
		{"unmapped", entities.Classification("SOMETHING_ELSE"), nil, []entities.DocumentType{entities.DocumentTypeIntro}},
		{"empty", entities.Classification(""), nil, []entities.DocumentType{entities.DocumentTypeIntro}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := services.RequiredDocumentTypes(tt.classification, tt.answers)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequiredDocumentTypes_NeverEmptyNorDuplicated(t *testing.T) {
	classifications := []entities.Classification{
		entities.ClassificationNutritionOnly,
		entities.ClassificationWorkoutOnly,
		entities.ClassificationFullProgram,
		entities.ClassificationAthletePerformance,
		entities.ClassificationYouthAthlete,
		entities.ClassificationGeneralWellness,
		entities.ClassificationSpecialSituation,
		"UNKNOWN",
	}
	answers := map[string]interface{}{
		"nutrition_opt_in": "yes",
		"focus":            []interface{}{"strength", "nutrition", "weight-loss", "cardio"},
		"recovery_goals":   "nutrition",
	}

	for _, c := range classifications {
		got := services.RequiredDocumentTypes(c, answers)
		require.NotEmpty(t, got, c)
		seen := map[entities.DocumentType]bool{}
		for _, d := range got {
			assert.False(t, seen[d], "duplicate %s for %s", d, c)
			seen[d] = true
		}
	}
}

func TestRoutingService_RoutePackets(t *testing.T) {
	t.Run("creates one pending packet per type", func(t *testing.T) {
		packets := memory.NewPacketStore()
		bus := NewRecordingEventBus()
		service := services.NewRoutingService(packets, bus)

		result, err := service.RoutePackets(context.Background(), "client-1", entities.ClassificationFullProgram, nil)
		require.NoError(t, err)

		assert.Len(t, result.PacketIDs, 2)
		assert.Equal(t, []entities.DocumentType{entities.DocumentTypeNutrition, entities.DocumentTypeWorkout}, result.DocumentTypes)

		stored, _ := packets.ListByClient(context.Background(), "client-1")
		require.Len(t, stored, 2)
		for _, p := range stored {
			assert.Equal(t, entities.PacketStatusPending, p.Status)
			assert.Equal(t, 1, p.Version)
			assert.Equal(t, 0, p.RetryCount)
		}
		assert.Len(t, bus.Statuses(providers.GetClientChannel("client-1")), 2)
	})

	t.Run("resubmission does not duplicate live packets", func(t *testing.T) {
		packets := memory.NewPacketStore()
		service := services.NewRoutingService(packets, nil)
		ctx := context.Background()

		_, err := service.RoutePackets(ctx, "client-1", entities.ClassificationNutritionOnly, nil)
		require.NoError(t, err)

		result, err := service.RoutePackets(ctx, "client-1", entities.ClassificationFullProgram, nil)
		require.NoError(t, err)

		assert.Equal(t, []entities.DocumentType{entities.DocumentTypeWorkout}, result.DocumentTypes)
		assert.Equal(t, []entities.DocumentType{entities.DocumentTypeNutrition}, result.Skipped)

		stored, _ := packets.ListByClient(ctx, "client-1")
		assert.Len(t, stored, 2)
	})

	t.Run("failed packets are replaced", func(t *testing.T) {
		repo := new(MockPacketRepository)
		service := services.NewRoutingService(repo, nil)

		repo.On("ListByClient", mock.Anything, "client-1").Return([]*entities.Packet{
			{ID: "old", ClientID: "client-1", DocumentType: entities.DocumentTypeNutrition, Status: entities.PacketStatusFailed},
		}, nil)
		repo.On("Create", mock.Anything, mock.MatchedBy(func(p *entities.Packet) bool {
			return p.DocumentType == entities.DocumentTypeNutrition && p.Status == entities.PacketStatusPending
		})).Return(nil)

		result, err := service.RoutePackets(context.Background(), "client-1", entities.ClassificationNutritionOnly, nil)
		require.NoError(t, err)
		assert.Len(t, result.PacketIDs, 1)
		repo.AssertExpectations(t)
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		repo := new(MockPacketRepository)
		service := services.NewRoutingService(repo, nil)

		repo.On("ListByClient", mock.Anything, "client-1").Return(nil, errors.New("connection refused"))

		_, err := service.RoutePackets(context.Background(), "client-1", entities.ClassificationNutritionOnly, nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}
