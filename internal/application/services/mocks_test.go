package services_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/providers"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
)

// Mocks

type MockPacketRepository struct {
	mock.Mock
}

func (m *MockPacketRepository) Create(ctx context.Context, packet *entities.Packet) error {
	args := m.Called(ctx, packet)
	return args.Error(0)
}

func (m *MockPacketRepository) GetByID(ctx context.Context, id string) (*entities.Packet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Packet), args.Error(1)
}

func (m *MockPacketRepository) ListByClient(ctx context.Context, clientID string) ([]*entities.Packet, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Packet), args.Error(1)
}

func (m *MockPacketRepository) ListDue(ctx context.Context, now time.Time, maxRetries, limit int) ([]*entities.Packet, error) {
	args := m.Called(ctx, now, maxRetries, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Packet), args.Error(1)
}

func (m *MockPacketRepository) Claim(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockPacketRepository) MarkReady(ctx context.Context, id string, result repositories.ReadyResult) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *MockPacketRepository) MarkFailed(ctx context.Context, id string, message string, kind entities.ErrorKind) (bool, error) {
	args := m.Called(ctx, id, message, kind)
	return args.Bool(0), args.Error(1)
}

func (m *MockPacketRepository) ScheduleRetry(ctx context.Context, id string, nextRetryAt time.Time) (bool, error) {
	args := m.Called(ctx, id, nextRetryAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockPacketRepository) ResetForRetry(ctx context.Context, id string, resetCount bool) error {
	args := m.Called(ctx, id, resetCount)
	return args.Error(0)
}

func (m *MockPacketRepository) UpdateContent(ctx context.Context, id string, content *entities.Content, editedBy string) (*entities.Packet, error) {
	args := m.Called(ctx, id, content, editedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Packet), args.Error(1)
}

func (m *MockPacketRepository) RequeueForRegeneration(ctx context.Context, id string) (*entities.Packet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Packet), args.Error(1)
}

func (m *MockPacketRepository) ListFailed(ctx context.Context, maxRetries, limit int) ([]*entities.Packet, error) {
	args := m.Called(ctx, maxRetries, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Packet), args.Error(1)
}

func (m *MockPacketRepository) MarkAdminNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	args := m.Called(ctx, id, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockPacketRepository) ResetStale(ctx context.Context, claimedBefore time.Time) (int64, error) {
	args := m.Called(ctx, claimedBefore)
	return args.Get(0).(int64), args.Error(1)
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Record(ctx context.Context, entry *entities.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) ListByResource(ctx context.Context, resourceID string, limit int) ([]*entities.AuditEntry, error) {
	args := m.Called(ctx, resourceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AuditEntry), args.Error(1)
}

type MockPDFExporter struct {
	mock.Mock
}

func (m *MockPDFExporter) Export(ctx context.Context, req providers.ExportRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// RecordingChannel collects delivered notifications
type RecordingChannel struct {
	mu        sync.Mutex
	audiences []entities.NotificationAudience
	sent      []*entities.Notification
	err       error
}

func (c *RecordingChannel) Name() string { return "recording" }

func (c *RecordingChannel) Supports(audience entities.NotificationAudience) bool {
	if len(c.audiences) == 0 {
		return true
	}
	for _, a := range c.audiences {
		if a == audience {
			return true
		}
	}
	return false
}

func (c *RecordingChannel) Send(ctx context.Context, n *entities.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
	return c.err
}

func (c *RecordingChannel) Sent(t entities.NotificationType) []*entities.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*entities.Notification
	for _, n := range c.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// RecordingEventBus collects published packet events
type RecordingEventBus struct {
	mu     sync.Mutex
	events map[string][]*entities.PacketEvent
}

func NewRecordingEventBus() *RecordingEventBus {
	return &RecordingEventBus{events: make(map[string][]*entities.PacketEvent)}
}

func (b *RecordingEventBus) Publish(ctx context.Context, channel string, event *entities.PacketEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[channel] = append(b.events[channel], event)
	return nil
}

func (b *RecordingEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.PacketEvent, error) {
	return make(chan *entities.PacketEvent), nil
}

func (b *RecordingEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *RecordingEventBus) Close() error { return nil }

func (b *RecordingEventBus) Statuses(channel string) []entities.PacketStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []entities.PacketStatus
	for _, e := range b.events[channel] {
		out = append(out, e.Status)
	}
	return out
}
