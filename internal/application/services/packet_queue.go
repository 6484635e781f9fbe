package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	"github.com/zatekoja/coachpackets/internal/infrastructure/observability"
	"github.com/zatekoja/coachpackets/pkg/config"
)

// PacketProcessor generates one claimed packet
type PacketProcessor interface {
	Orchestrate(ctx context.Context, clientID, packetID string, docType entities.DocumentType) error
}

// QueueDeps groups the queue's collaborators. Notifier and EventBus are optional.
type QueueDeps struct {
	PacketRepo   repositories.PacketRepository
	Processor    PacketProcessor
	ErrorHandler *ErrorHandler
	Retry        *RetryService
	Notifier     *NotificationService
	EventBus     providers.EventBus
}

// PacketQueue polls the packet table for due work and runs it
type PacketQueue struct {
	deps    QueueDeps
	cfg     config.QueueConfig
	running atomic.Bool
	started atomic.Bool
	now     func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewPacketQueue creates a new queue poller
func NewPacketQueue(deps QueueDeps, cfg config.QueueConfig) *PacketQueue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.ProcessingTimeout <= 0 {
		cfg.ProcessingTimeout = 5 * time.Minute
	}
	return &PacketQueue{
		deps: deps,
		cfg:  cfg,
		now:  time.Now,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start polls in the background until Stop is called or ctx is done
func (q *PacketQueue) Start(ctx context.Context) {
	logger := observability.LoggerFromContext(ctx)
	logger.Info().
		Dur("poll_interval", q.cfg.PollInterval).
		Int("batch_size", q.cfg.BatchSize).
		Int("concurrency", q.cfg.Concurrency).
		Msg("Packet queue started")

	q.started.Store(true)
	go func() {
		defer close(q.done)

		ticker := time.NewTicker(q.cfg.PollInterval)
		defer ticker.Stop()

		for {
			if _, err := q.RunCycle(ctx); err != nil {
				logger.Error().Err(err).Msg("Packet queue cycle failed")
			}

			select {
			case <-ctx.Done():
				return
			case <-q.stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends polling. A running cycle claims nothing further; Stop waits
// only for the packets already being generated.
func (q *PacketQueue) Stop() {
	q.stopOnce.Do(func() {
		close(q.stop)
	})
	if q.started.Load() {
		<-q.done
	}
}

func (q *PacketQueue) stopping(ctx context.Context) bool {
	select {
	case <-q.stop:
		return true
	default:
		return ctx.Err() != nil
	}
}

// RunCycle processes one batch of due packets and returns how many it
// claimed. A cycle requested while another is running is skipped.
func (q *PacketQueue) RunCycle(ctx context.Context) (int, error) {
	if !q.running.CompareAndSwap(false, true) {
		observability.LoggerFromContext(ctx).Debug().Msg("Packet queue cycle already running, skipping")
		return 0, nil
	}
	defer q.running.Store(false)

	ctx, span := observability.StartSpan(ctx, "packet.queue.cycle")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	now := q.now()
	reset, err := q.deps.PacketRepo.ResetStale(ctx, now.Add(-2*q.cfg.ProcessingTimeout))
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to reset stale packets")
	} else if reset > 0 {
		logger.Warn().Int64("count", reset).Msg("Reset stale generating packets")
	}

	due, err := q.deps.PacketRepo.ListDue(ctx, now, q.deps.Retry.MaxRetries(), q.cfg.BatchSize)
	if err != nil {
		observability.RecordError(span, err)
		return 0, fmt.Errorf("failed to list due packets: %w", err)
	}
	observability.SetSpanAttributes(span, attribute.Int("queue.due", len(due)))
	if len(due) == 0 {
		return 0, nil
	}

	var claimed atomic.Int64
	if q.cfg.Concurrency <= 1 {
		for _, p := range due {
			if q.stopping(ctx) {
				break
			}
			if q.process(ctx, p) {
				claimed.Add(1)
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(q.cfg.Concurrency)
		for _, p := range due {
			p := p
			g.Go(func() error {
				if q.stopping(gctx) {
					return nil
				}
				if q.process(gctx, p) {
					claimed.Add(1)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	logger.Info().Int("due", len(due)).Int64("claimed", claimed.Load()).Msg("Packet queue cycle complete")
	return int(claimed.Load()), nil
}

// process claims and generates one packet. It reports whether the claim succeeded.
func (q *PacketQueue) process(ctx context.Context, p *entities.Packet) bool {
	logger := observability.LoggerFromContext(ctx)

	ok, err := q.deps.PacketRepo.Claim(ctx, p.ID, q.now())
	if err != nil {
		logger.Error().Err(err).Str("packet_id", p.ID).Msg("Failed to claim packet")
		return false
	}
	if !ok {
		logger.Debug().Str("packet_id", p.ID).Msg("Packet claimed by another worker")
		return false
	}

	claimedPacket := *p
	claimedPacket.Status = entities.PacketStatusGenerating
	publishPacketEvent(ctx, q.deps.EventBus, &claimedPacket)

	if err := q.runWithTimeout(ctx, p); err != nil {
		q.afterFailure(ctx, p)
	}
	return true
}

// runWithTimeout bounds a generation by the processing timeout. When the
// timeout wins, the packet is failed here; a late result from the abandoned
// generation cannot overwrite it because every transition requires GENERATING.
func (q *PacketQueue) runWithTimeout(ctx context.Context, p *entities.Packet) error {
	tctx, cancel := context.WithTimeout(ctx, q.cfg.ProcessingTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() {
		result <- q.deps.Processor.Orchestrate(tctx, p.ClientID, p.ID, p.DocumentType)
	}()

	select {
	case err := <-result:
		return err
	case <-tctx.Done():
		if ctx.Err() != nil {
			// shutting down: let the generation observe cancellation and record itself
			return <-result
		}
		err := fmt.Errorf("%w after %s", ErrProcessingTimeout, q.cfg.ProcessingTimeout)
		if q.deps.ErrorHandler != nil {
			q.deps.ErrorHandler.Handle(context.WithoutCancel(ctx), err, p.ID, p.ClientID, p.DocumentType)
		}
		return err
	}
}

func (q *PacketQueue) afterFailure(ctx context.Context, p *entities.Packet) {
	ctx = context.WithoutCancel(ctx)
	logger := observability.LoggerFromContext(ctx)

	retry, err := q.deps.Retry.ShouldRetry(ctx, p.ID)
	if err != nil {
		logger.Error().Err(err).Str("packet_id", p.ID).Msg("Failed to evaluate retry")
		return
	}

	if retry {
		if err := q.deps.Retry.ScheduleRetry(ctx, p.ID); err != nil {
			logger.Error().Err(err).Str("packet_id", p.ID).Msg("Failed to schedule retry")
		}
		return
	}

	if q.deps.Notifier != nil {
		if err := q.deps.Notifier.NotifyAdminsFailed(ctx, p.ID, q.deps.Retry.MaxRetries()); err != nil {
			logger.Warn().Err(err).Str("packet_id", p.ID).Msg("Failed to notify admins")
		}
	}
	if updated, err := q.deps.PacketRepo.GetByID(ctx, p.ID); err == nil {
		publishPacketEvent(ctx, q.deps.EventBus, updated)
	}
}
