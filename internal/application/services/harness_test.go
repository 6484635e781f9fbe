package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zatekoja/coachpackets/internal/adapters/memory"
	"github.com/zatekoja/coachpackets/internal/adapters/providers/templatefs"
	"github.com/zatekoja/coachpackets/internal/application/services"
	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/pkg/config"
	"github.com/zatekoja/coachpackets/pkg/retry"
)

var bgCtx = context.Background()

// harness wires the generation pipeline over in-memory stores
type harness struct {
	clients      *memory.ClientStore
	packets      *memory.PacketStore
	audit        *memory.AuditStore
	channel      *RecordingChannel
	bus          *RecordingEventBus
	routing      *services.RoutingService
	retry        *services.RetryService
	notifier     *services.NotificationService
	orchestrator *services.PacketOrchestrator
	queue        *services.PacketQueue
	admin        *services.AdminService
}

type harnessOption func(*services.OrchestratorDeps, *config.QueueConfig)

func withExporter(e providers.PDFExporter) harnessOption {
	return func(d *services.OrchestratorDeps, _ *config.QueueConfig) { d.Exporter = e }
}

func withResolver(r *services.TemplateResolver) harnessOption {
	return func(d *services.OrchestratorDeps, _ *config.QueueConfig) { d.Resolver = r }
}

func withQueueConfig(fn func(*config.QueueConfig)) harnessOption {
	return func(_ *services.OrchestratorDeps, c *config.QueueConfig) { fn(c) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	builtin, err := templatefs.NewBuiltinStore()
	require.NoError(t, err)

	h := &harness{
		clients: memory.NewClientStore(),
		packets: memory.NewPacketStore(),
		audit:   memory.NewAuditStore(),
		channel: &RecordingChannel{},
		bus:     NewRecordingEventBus(),
	}

	policy := retry.PacketConfig()
	h.routing = services.NewRoutingService(h.packets, h.bus)
	h.retry = services.NewRetryService(h.packets, h.audit, policy)
	h.notifier = services.NewNotificationService(h.packets, h.clients, h.audit,
		[]providers.NotificationChannel{h.channel}, []string{"+15550000001"}, nil)
	errorHandler := services.NewErrorHandler(h.packets, h.audit, nil)

	deps := services.OrchestratorDeps{
		ClientRepo:   h.clients,
		PacketRepo:   h.packets,
		Resolver:     services.NewTemplateResolver(builtin),
		Enrichers:    services.NewEnricherRegistry(services.DefaultEnrichers()...),
		ErrorHandler: errorHandler,
		Notifier:     h.notifier,
		EventBus:     h.bus,
	}
	queueCfg := config.QueueConfig{
		BatchSize:         10,
		Concurrency:       1,
		ProcessingTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&deps, &queueCfg)
	}

	h.orchestrator = services.NewPacketOrchestrator(deps)
	h.queue = services.NewPacketQueue(services.QueueDeps{
		PacketRepo:   h.packets,
		Processor:    h.orchestrator,
		ErrorHandler: errorHandler,
		Retry:        h.retry,
		Notifier:     h.notifier,
		EventBus:     h.bus,
	}, queueCfg)
	h.admin = services.NewAdminService(h.packets, h.audit, h.retry, h.bus)
	return h
}

func (h *harness) addClient(id string, classification entities.Classification, answers map[string]interface{}) *entities.Client {
	c := &entities.Client{
		ID:             id,
		OwnerID:        "owner-" + id,
		Name:           "Jane Doe",
		Phone:          "+15550001234",
		Classification: classification,
		Answers:        answers,
	}
	h.clients.Put(c)
	return c
}

// packetByType returns the client's packet of the given type
func (h *harness) packetByType(t *testing.T, clientID string, docType entities.DocumentType) *entities.Packet {
	t.Helper()
	packets, err := h.packets.ListByClient(bgCtx, clientID)
	require.NoError(t, err)
	for _, p := range packets {
		if p.DocumentType == docType {
			return p
		}
	}
	t.Fatalf("no %s packet for %s", docType, clientID)
	return nil
}
