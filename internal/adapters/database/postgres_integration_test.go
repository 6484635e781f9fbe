//go:build integration

package database_test

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"github.com/zatekoja/coachpackets/internal/adapters/database"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/coachpackets/pkg/config"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

type PostgresIntegrationTestSuite struct {
	suite.Suite
	client  *postgres.Client
	clients repositories.ClientRepository
	packets repositories.PacketRepository
	audit   repositories.AuditRepository
}

func (s *PostgresIntegrationTestSuite) SetupSuite() {
	cfg := &config.DatabaseConfig{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvAsInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "coachpackets_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	client, err := postgres.NewClient(cfg)
	s.Require().NoError(err, "Failed to create postgres client")
	s.Require().NoError(client.Migrate(context.Background()))

	s.client = client
	s.clients = database.NewClientAdapter(client)
	s.packets = database.NewPacketAdapter(client)
	s.audit = database.NewAuditAdapter(client.SQLX())
}

func (s *PostgresIntegrationTestSuite) TearDownSuite() {
	if s.client != nil {
		s.client.Close()
	}
}

func (s *PostgresIntegrationTestSuite) SetupTest() {
	_, err := s.client.DB().Exec(`TRUNCATE TABLE audit_log, packets, packet_templates, clients CASCADE`)
	s.Require().NoError(err)
}

func (s *PostgresIntegrationTestSuite) newPacket(docType entities.DocumentType) *entities.Packet {
	ctx := context.Background()
	client, err := s.clients.UpsertByOwner(ctx, &entities.Client{
		OwnerID:        "owner-" + uuid.NewString(),
		Name:           "Jane Doe",
		Classification: entities.ClassificationNutritionOnly,
		Answers:        map[string]interface{}{"weight": 150},
	})
	s.Require().NoError(err)

	now := time.Now().UTC().Truncate(time.Microsecond)
	packet := &entities.Packet{
		ID:           uuid.NewString(),
		ClientID:     client.ID,
		DocumentType: docType,
		Status:       entities.PacketStatusPending,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.packets.Create(ctx, packet))
	return packet
}

func (s *PostgresIntegrationTestSuite) TestClaimIsExclusive() {
	ctx := context.Background()
	packet := s.newPacket(entities.DocumentTypeNutrition)

	won, err := s.packets.Claim(ctx, packet.ID, time.Now())
	s.Require().NoError(err)
	s.True(won)

	won, err = s.packets.Claim(ctx, packet.ID, time.Now())
	s.Require().NoError(err)
	s.False(won)
}

func (s *PostgresIntegrationTestSuite) TestRetryLifecycle() {
	ctx := context.Background()
	packet := s.newPacket(entities.DocumentTypeNutrition)

	_, err := s.packets.Claim(ctx, packet.ID, time.Now())
	s.Require().NoError(err)
	failed, err := s.packets.MarkFailed(ctx, packet.ID, "connection refused", entities.ErrorKindDatabase)
	s.Require().NoError(err)
	s.True(failed)

	next := time.Now().Add(time.Hour)
	scheduled, err := s.packets.ScheduleRetry(ctx, packet.ID, next)
	s.Require().NoError(err)
	s.True(scheduled)

	due, err := s.packets.ListDue(ctx, time.Now(), 3, 10)
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.packets.ListDue(ctx, next.Add(time.Second), 3, 10)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal(1, due[0].RetryCount)
}

func (s *PostgresIntegrationTestSuite) TestMarkReadyAndRegenerate() {
	ctx := context.Background()
	packet := s.newPacket(entities.DocumentTypeWorkout)

	_, err := s.packets.Claim(ctx, packet.ID, time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.packets.MarkReady(ctx, packet.ID, repositories.ReadyResult{
		Content: &entities.Content{
			Title:    "Workout Plan",
			Sections: []entities.Section{{Key: "intro", Title: "Intro", Kind: entities.SectionKindText, Text: "Hello"}},
		},
		GeneratedBy: "system",
		Method:      entities.GenerationMethodTemplate,
		GeneratedAt: time.Now(),
	}))

	stored, err := s.packets.GetByID(ctx, packet.ID)
	s.Require().NoError(err)
	s.Equal(entities.PacketStatusReady, stored.Status)
	s.Require().NotNil(stored.Content)
	s.Equal("Workout Plan", stored.Content.Title)

	requeued, err := s.packets.RequeueForRegeneration(ctx, packet.ID)
	s.Require().NoError(err)
	s.Equal(entities.PacketStatusPending, requeued.Status)
	s.Equal(2, requeued.Version)
}

func (s *PostgresIntegrationTestSuite) TestAuditTrail() {
	ctx := context.Background()
	packet := s.newPacket(entities.DocumentTypeNutrition)

	s.Require().NoError(s.audit.Record(ctx, &entities.AuditEntry{
		Action:     entities.AuditPacketGenerationFailed,
		ResourceID: packet.ID,
		Details:    map[string]interface{}{"error_kind": "DATA_ERROR"},
	}))

	entries, err := s.audit.ListByResource(ctx, packet.ID, 10)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("DATA_ERROR", entries[0].Details["error_kind"])
}

func TestPostgresIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(PostgresIntegrationTestSuite))
}
