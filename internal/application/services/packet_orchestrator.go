package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
)

// GeneratedByTemplateEngine is recorded as the author of rendered packets
const GeneratedByTemplateEngine = "template-engine"

// ErrProcessingTimeout marks a generation cut off by the queue's processing timeout
var ErrProcessingTimeout = errors.New("processing timeout exceeded")

// OrchestratorDeps groups the orchestrator's collaborators. Exporter,
// Notifier, EventBus and Metrics are optional.
type OrchestratorDeps struct {
	ClientRepo   repositories.ClientRepository
	PacketRepo   repositories.PacketRepository
	Resolver     *TemplateResolver
	Enrichers    *EnricherRegistry
	Exporter     providers.PDFExporter
	ErrorHandler *ErrorHandler
	Notifier     *NotificationService
	EventBus     providers.EventBus
	Metrics      *observability.Metrics
}

// PacketOrchestrator runs one packet generation end to end
type PacketOrchestrator struct {
	deps OrchestratorDeps
	now  func() time.Time
}

// NewPacketOrchestrator creates a new orchestrator
func NewPacketOrchestrator(deps OrchestratorDeps) *PacketOrchestrator {
	return &PacketOrchestrator{deps: deps, now: time.Now}
}

type generation struct {
	client  *entities.Client
	profile *entities.ClientProfile
	content *entities.Content
}

// Generate renders and enriches content for a client without persisting it
func (o *PacketOrchestrator) Generate(ctx context.Context, clientID string, docType entities.DocumentType) (*entities.Content, error) {
	gen, err := o.generate(ctx, clientID, docType)
	if err != nil {
		return nil, err
	}
	return gen.content, nil
}

func (o *PacketOrchestrator) generate(ctx context.Context, clientID string, docType entities.DocumentType) (*generation, error) {
	client, err := o.deps.ClientRepo.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	profile := entities.NewClientProfile(client)

	tmpl, err := o.deps.Resolver.Resolve(ctx, docType, client.Classification)
	if err != nil {
		return nil, err
	}

	content := Render(tmpl, NewTemplateContext(profile))

	content, err = o.deps.Enrichers.Enrich(ctx, docType, content, profile)
	if err != nil {
		return nil, err
	}
	if err := content.Validate(); err != nil {
		return nil, entities.WithKind(entities.ErrorKindTemplate, fmt.Errorf("rendered content is malformed: %w", err))
	}

	return &generation{client: client, profile: profile, content: content}, nil
}

// Orchestrate generates a claimed packet and stores the result. Failures are
// recorded through the error handler and returned.
func (o *PacketOrchestrator) Orchestrate(ctx context.Context, clientID, packetID string, docType entities.DocumentType) error {
	ctx, span := observability.StartSpan(ctx, "packet.orchestrate")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("packet.id", packetID),
		attribute.String("packet.client_id", clientID),
		attribute.String("packet.document_type", string(docType)),
	)

	logger := observability.LoggerFromContext(ctx)
	start := o.now()

	gen, err := o.generate(ctx, clientID, docType)
	if err != nil {
		return o.fail(ctx, span, err, clientID, packetID, docType)
	}

	pdfURL := o.export(ctx, packetID, docType, gen)

	err = o.deps.PacketRepo.MarkReady(ctx, packetID, repositories.ReadyResult{
		Content:     gen.content,
		PDFURL:      pdfURL,
		GeneratedBy: GeneratedByTemplateEngine,
		Method:      entities.GenerationMethodTemplate,
		GeneratedAt: o.now(),
	})
	if err != nil {
		return o.fail(ctx, span, fmt.Errorf("failed to store generated packet: %w", err), clientID, packetID, docType)
	}

	observability.RecordPacketGenerated(ctx, o.deps.Metrics, string(docType), o.now().Sub(start))
	logger.Info().
		Str("packet_id", packetID).
		Str("client_id", clientID).
		Str("document_type", string(docType)).
		Bool("pdf", pdfURL != nil).
		Dur("duration", o.now().Sub(start)).
		Msg("Packet generated")

	if packet, err := o.deps.PacketRepo.GetByID(ctx, packetID); err == nil {
		publishPacketEvent(ctx, o.deps.EventBus, packet)
	}

	if o.deps.Notifier != nil {
		if err := o.deps.Notifier.NotifyClientReady(ctx, packetID); err != nil {
			logger.Warn().Err(err).Str("packet_id", packetID).Msg("Failed to notify client")
		}
	}
	return nil
}

// export is best effort: a failed export leaves the packet without a PDF
func (o *PacketOrchestrator) export(ctx context.Context, packetID string, docType entities.DocumentType, gen *generation) *string {
	if o.deps.Exporter == nil {
		return nil
	}
	url, err := o.deps.Exporter.Export(ctx, providers.ExportRequest{
		PacketID:     packetID,
		ClientName:   gen.client.Name,
		DocumentType: docType,
		Content:      gen.content,
		Options:      providers.ExportOptions{IncludeCover: true, PageSize: "letter"},
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().
			Err(err).
			Str("packet_id", packetID).
			Str("error_kind", string(entities.ClassifyError(err))).
			Msg("PDF export failed, storing packet without PDF")
		return nil
	}
	return &url
}

func (o *PacketOrchestrator) fail(ctx context.Context, span trace.Span, err error, clientID, packetID string, docType entities.DocumentType) error {
	if errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("%w: %w", ErrProcessingTimeout, err)
	}
	observability.RecordError(span, err)

	if o.deps.ErrorHandler != nil {
		// the generation context may already be done; recording must still happen
		o.deps.ErrorHandler.Handle(context.WithoutCancel(ctx), err, packetID, clientID, docType)
	}
	return err
}
