package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/utils"
)

var (
	wellnessWorkoutFocus   = utils.TokenSet("strength", "fitness", "weight-loss", "mobility", "cardio", "exercise")
	wellnessNutritionFocus = utils.TokenSet("nutrition", "healthy-eating", "weight-loss", "energy", "meal-planning")
)

// RequiredDocumentTypes decides which packets a client needs. It is pure and
// total: every classification, mapped or not, yields at least one type.
func RequiredDocumentTypes(classification entities.Classification, answers map[string]interface{}) []entities.DocumentType {
	var types []entities.DocumentType

	switch classification {
	case entities.ClassificationNutritionOnly:
		types = append(types, entities.DocumentTypeNutrition)
	case entities.ClassificationWorkoutOnly:
		types = append(types, entities.DocumentTypeWorkout)
	case entities.ClassificationFullProgram:
		types = append(types, entities.DocumentTypeNutrition, entities.DocumentTypeWorkout)
	case entities.ClassificationAthletePerformance:
		types = append(types, entities.DocumentTypePerformance)
		if strings.EqualFold(strings.TrimSpace(utils.AsString(answers["nutrition_opt_in"])), "yes") {
			types = append(types, entities.DocumentTypeNutrition)
		}
	case entities.ClassificationYouthAthlete:
		types = append(types, entities.DocumentTypeYouth)
	case entities.ClassificationGeneralWellness:
		types = append(types, entities.DocumentTypeWellness)
		if focus, ok := utils.AsStringSlice(answers["focus"]); ok {
			if utils.ContainsAnyToken(focus, wellnessWorkoutFocus) {
				types = append(types, entities.DocumentTypeWorkout)
			}
			if utils.ContainsAnyToken(focus, wellnessNutritionFocus) {
				types = append(types, entities.DocumentTypeNutrition)
			}
		}
	case entities.ClassificationSpecialSituation:
		types = append(types, entities.DocumentTypeRecovery)
		if strings.Contains(strings.ToLower(utils.AsString(answers["recovery_goals"])), "nutrition") {
			types = append(types, entities.DocumentTypeNutrition)
		}
	default:
		types = append(types, entities.DocumentTypeIntro)
	}

	return dedupeTypes(types)
}

func dedupeTypes(types []entities.DocumentType) []entities.DocumentType {
	seen := make(map[entities.DocumentType]bool, len(types))
	out := types[:0]
	for _, t := range types {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// RoutingResult lists the packets created by a routing decision
type RoutingResult struct {
	PacketIDs     []string                `json:"packet_ids"`
	DocumentTypes []entities.DocumentType `json:"document_types"`
	Skipped       []entities.DocumentType `json:"skipped,omitempty"`
}

// RoutingService turns a routing decision into pending packets
type RoutingService struct {
	packetRepo repositories.PacketRepository
	eventBus   providers.EventBus
}

// NewRoutingService creates a new routing service
func NewRoutingService(packetRepo repositories.PacketRepository, eventBus providers.EventBus) *RoutingService {
	return &RoutingService{
		packetRepo: packetRepo,
		eventBus:   eventBus,
	}
}

// RoutePackets creates one PENDING packet per required document type. Types
// for which the client already holds a live (non-FAILED) packet are skipped.
func (s *RoutingService) RoutePackets(ctx context.Context, clientID string, classification entities.Classification, answers map[string]interface{}) (*RoutingResult, error) {
	logger := observability.LoggerFromContext(ctx)

	existing, err := s.packetRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list existing packets: %w", err)
	}
	live := make(map[entities.DocumentType]bool)
	for _, p := range existing {
		if p.Status != entities.PacketStatusFailed {
			live[p.DocumentType] = true
		}
	}

	result := &RoutingResult{PacketIDs: []string{}, DocumentTypes: []entities.DocumentType{}}
	for _, docType := range RequiredDocumentTypes(classification, answers) {
		if live[docType] {
			result.Skipped = append(result.Skipped, docType)
			continue
		}

		now := time.Now()
		packet := &entities.Packet{
			ID:           uuid.New().String(),
			ClientID:     clientID,
			DocumentType: docType,
			Status:       entities.PacketStatusPending,
			Version:      1,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.packetRepo.Create(ctx, packet); err != nil {
			return nil, fmt.Errorf("failed to create %s packet: %w", docType, err)
		}

		result.PacketIDs = append(result.PacketIDs, packet.ID)
		result.DocumentTypes = append(result.DocumentTypes, docType)
		publishPacketEvent(ctx, s.eventBus, packet)
	}

	logger.Info().
		Str("client_id", clientID).
		Str("classification", string(classification)).
		Int("created", len(result.PacketIDs)).
		Int("skipped", len(result.Skipped)).
		Msg("Packets routed")

	return result, nil
}

// publishPacketEvent announces a status change on the global and client
// channels. Publishing is best effort.
func publishPacketEvent(ctx context.Context, bus providers.EventBus, packet *entities.Packet) {
	if bus == nil || packet == nil {
		return
	}
	event := entities.NewPacketEvent(packet)
	logger := observability.LoggerFromContext(ctx)
	for _, channel := range []string{providers.EventChannelPacketUpdates, providers.GetClientChannel(packet.ClientID)} {
		if err := bus.Publish(ctx, channel, event); err != nil {
			logger.Warn().Err(err).Str("channel", channel).Str("packet_id", packet.ID).Msg("Failed to publish packet event")
		}
	}
}
