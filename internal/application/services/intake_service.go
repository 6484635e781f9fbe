package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
	"github.com/zatekoja/coachpackets/pkg/utils"
)

// Answers each classification needs before packets can be generated
var requiredAnswers = map[entities.Classification][]string{
	entities.ClassificationNutritionOnly:      {"age", "weight", "height", "goal"},
	entities.ClassificationWorkoutOnly:        {"experience_level", "goal"},
	entities.ClassificationFullProgram:        {"age", "weight", "height", "goal", "experience_level"},
	entities.ClassificationAthletePerformance: {"age", "sport", "season"},
	entities.ClassificationYouthAthlete:       {"age", "sport", "guardian_name"},
	entities.ClassificationGeneralWellness:    {"focus"},
	entities.ClassificationSpecialSituation:   {"injury"},
}

// Answers copied onto the client as normalized attributes
var attributeKeys = []string{
	"age", "gender", "weight", "height", "activity_level", "goal",
	"experience_level", "training_days", "sport", "season",
}

// IntakeSubmission is a completed questionnaire
type IntakeSubmission struct {
	OwnerID        string                  `json:"owner_id"`
	Name           string                  `json:"name"`
	Email          string                  `json:"email"`
	Phone          string                  `json:"phone"`
	Classification entities.Classification `json:"classification"`
	Answers        map[string]interface{}  `json:"answers"`
}

// IntakeResult is the stored client and the packets routed for it
type IntakeResult struct {
	Client  *entities.Client `json:"client"`
	Routing *RoutingResult   `json:"routing"`
}

// IntakeService stores intake submissions and routes their packets
type IntakeService struct {
	clientRepo repositories.ClientRepository
	routing    *RoutingService
}

// NewIntakeService creates a new intake service
func NewIntakeService(clientRepo repositories.ClientRepository, routing *RoutingService) *IntakeService {
	return &IntakeService{clientRepo: clientRepo, routing: routing}
}

// MissingAnswers lists required answers that are absent or blank, sorted
func MissingAnswers(classification entities.Classification, answers map[string]interface{}) []string {
	var missing []string
	for _, key := range requiredAnswers[classification] {
		v, ok := answers[key]
		if !ok || strings.TrimSpace(utils.AsString(v)) == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// Submit validates a submission, upserts the client and routes packets
func (s *IntakeService) Submit(ctx context.Context, sub *IntakeSubmission) (*IntakeResult, error) {
	if strings.TrimSpace(sub.OwnerID) == "" {
		return nil, apperrors.NewValidationError("owner_id is required")
	}
	if strings.TrimSpace(sub.Name) == "" {
		return nil, apperrors.NewValidationError("name is required")
	}
	if sub.Classification == "" {
		return nil, apperrors.NewValidationError("classification is required")
	}
	if sub.Answers == nil {
		sub.Answers = map[string]interface{}{}
	}
	if missing := MissingAnswers(sub.Classification, sub.Answers); len(missing) > 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("missing required answers: %s", strings.Join(missing, ", ")))
	}

	attributes := make(map[string]interface{})
	for _, key := range attributeKeys {
		v, ok := sub.Answers[key]
		if !ok {
			continue
		}
		if str, isStr := v.(string); isStr {
			if str = strings.TrimSpace(str); str == "" {
				continue
			}
			v = str
		}
		attributes[key] = v
	}

	client, err := s.clientRepo.UpsertByOwner(ctx, &entities.Client{
		OwnerID:        strings.TrimSpace(sub.OwnerID),
		Name:           strings.TrimSpace(sub.Name),
		Email:          strings.TrimSpace(sub.Email),
		Phone:          strings.TrimSpace(sub.Phone),
		Classification: sub.Classification,
		Attributes:     attributes,
		Answers:        sub.Answers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save client: %w", err)
	}

	routing, err := s.routing.RoutePackets(ctx, client.ID, client.Classification, client.Answers)
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("client_id", client.ID).
		Str("classification", string(client.Classification)).
		Msg("Intake submitted")

	return &IntakeResult{Client: client, Routing: routing}, nil
}
