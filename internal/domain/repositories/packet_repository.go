package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// PacketRepository defines storage for packets. The packet table is also the
// generation queue, so every status transition is a conditional update and
// the boolean results report whether this caller won the transition.
type PacketRepository interface {
	// Create inserts a new packet
	Create(ctx context.Context, packet *entities.Packet) error

	// GetByID retrieves a packet by ID
	GetByID(ctx context.Context, id string) (*entities.Packet, error)

	// ListByClient returns a client's packets, oldest first
	ListByClient(ctx context.Context, clientID string) ([]*entities.Packet, error)

	// ListDue returns up to limit PENDING packets with retry budget left whose
	// next_retry_at is unset or not after now, oldest first
	ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*entities.Packet, error)

	// Claim moves a packet from PENDING to GENERATING. It reports false when
	// another worker got there first.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)

	// MarkReady stores generated content on a GENERATING packet
	MarkReady(ctx context.Context, id string, result ReadyResult) error

	// MarkFailed moves a GENERATING packet to FAILED, records the error and
	// increments retry_count
	MarkFailed(ctx context.Context, id string, message string, kind entities.ErrorKind) (bool, error)

	// ScheduleRetry moves a FAILED packet back to PENDING, eligible at nextRetryAt
	ScheduleRetry(ctx context.Context, id string, nextRetryAt time.Time) (bool, error)

	// ResetForRetry makes a FAILED or PENDING packet immediately eligible and
	// clears its last error, optionally zeroing retry_count
	ResetForRetry(ctx context.Context, id string, resetCount bool) error

	// UpdateContent replaces content by hand, bumping version and marking READY
	UpdateContent(ctx context.Context, id string, content *entities.Content, editedBy string) (*entities.Packet, error)

	// RequeueForRegeneration forces a READY or FAILED packet back to PENDING
	// with version incremented
	RequeueForRegeneration(ctx context.Context, id string) (*entities.Packet, error)

	// ListFailed returns FAILED packets that will not be retried automatically
	ListFailed(ctx context.Context, maxRetries, limit int) ([]*entities.Packet, error)

	// MarkAdminNotified records an admin alert for the current failure
	// episode. It reports false when this episode was already alerted.
	MarkAdminNotified(ctx context.Context, id string, now time.Time) (bool, error)

	// ResetStale returns GENERATING packets claimed before the cutoff to PENDING
	ResetStale(ctx context.Context, claimedBefore time.Time) (int64, error)
}

// ReadyResult is the outcome of a successful generation
type ReadyResult struct {
	Content     *entities.Content
	PDFURL      *string
	GeneratedBy string
	Method      entities.GenerationMethod
	GeneratedAt time.Time
}
