package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

func newPending(t *testing.T, s *PacketStore, id string, created time.Time) {
	t.Helper()
	require.NoError(t, s.Create(context.Background(), &entities.Packet{
		ID:           id,
		ClientID:     "client-1",
		DocumentType: entities.DocumentTypeNutrition,
		Status:       entities.PacketStatusPending,
		Version:      1,
		CreatedAt:    created,
	}))
}

func TestPacketStore_ClaimIsExclusive(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	newPending(t, s, "p1", time.Now())

	first, err := s.Claim(ctx, "p1", time.Now())
	require.NoError(t, err)
	second, err := s.Claim(ctx, "p1", time.Now())
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestPacketStore_ListDue(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)
	newPending(t, s, "later", base.Add(time.Minute))
	newPending(t, s, "older", base)
	newPending(t, s, "backoff", base)

	_, _ = s.Claim(ctx, "backoff", time.Now())
	_, _ = s.MarkFailed(ctx, "backoff", "boom", entities.ErrorKindUnknown)
	_, _ = s.ScheduleRetry(ctx, "backoff", time.Now().Add(time.Minute))

	due, err := s.ListDue(ctx, time.Now(), 3, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "older", due[0].ID)
	assert.Equal(t, "later", due[1].ID)

	due, err = s.ListDue(ctx, time.Now().Add(2*time.Minute), 3, 10)
	require.NoError(t, err)
	assert.Len(t, due, 3)
}

func TestPacketStore_FailedTransitionsRequireGenerating(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	newPending(t, s, "p1", time.Now())

	ok, err := s.MarkFailed(ctx, "p1", "boom", entities.ErrorKindUnknown)
	require.NoError(t, err)
	assert.False(t, ok)

	_, _ = s.Claim(ctx, "p1", time.Now())
	ok, _ = s.MarkFailed(ctx, "p1", "boom", entities.ErrorKindUnknown)
	assert.True(t, ok)
	ok, _ = s.MarkFailed(ctx, "p1", "boom again", entities.ErrorKindUnknown)
	assert.False(t, ok)

	p, _ := s.GetByID(ctx, "p1")
	assert.Equal(t, 1, p.RetryCount)
	assert.Equal(t, "boom", *p.LastError)

	err = s.MarkReady(ctx, "p1", repositories.ReadyResult{Content: &entities.Content{}, GeneratedAt: time.Now()})
	assert.True(t, apperrors.IsConflict(err))
}

func TestPacketStore_AdminNotifiedOncePerEpisode(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	newPending(t, s, "p1", time.Now())
	_, _ = s.Claim(ctx, "p1", time.Now())
	_, _ = s.MarkFailed(ctx, "p1", "boom", entities.ErrorKindTemplate)

	first, _ := s.MarkAdminNotified(ctx, "p1", time.Now())
	second, _ := s.MarkAdminNotified(ctx, "p1", time.Now())
	assert.True(t, first)
	assert.False(t, second)

	require.NoError(t, s.ResetForRetry(ctx, "p1", false))
	_, _ = s.Claim(ctx, "p1", time.Now())
	time.Sleep(time.Millisecond)
	_, _ = s.MarkFailed(ctx, "p1", "boom", entities.ErrorKindTemplate)

	third, _ := s.MarkAdminNotified(ctx, "p1", time.Now())
	assert.True(t, third)
}

func TestPacketStore_RegenerationBumpsVersion(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	newPending(t, s, "p1", time.Now())

	_, err := s.RequeueForRegeneration(ctx, "p1")
	assert.True(t, apperrors.IsConflict(err))

	_, _ = s.Claim(ctx, "p1", time.Now())
	require.NoError(t, s.MarkReady(ctx, "p1", repositories.ReadyResult{Content: &entities.Content{Title: "v1"}, GeneratedAt: time.Now()}))

	p, err := s.RequeueForRegeneration(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Version)
	assert.Equal(t, entities.PacketStatusPending, p.Status)
	assert.Equal(t, 0, p.RetryCount)
}

func TestPacketStore_RegenerationRestoresRetryBudget(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	newPending(t, s, "p1", time.Now())

	for i := 0; i < 3; i++ {
		if i > 0 {
			require.NoError(t, s.ResetForRetry(ctx, "p1", false))
		}
		_, _ = s.Claim(ctx, "p1", time.Now())
		_, _ = s.MarkFailed(ctx, "p1", "template missing", entities.ErrorKindTemplate)
	}
	p, _ := s.GetByID(ctx, "p1")
	require.Equal(t, 3, p.RetryCount)

	p, err := s.RequeueForRegeneration(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.RetryCount)
	assert.Nil(t, p.LastError)

	due, err := s.ListDue(ctx, time.Now(), 3, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "p1", due[0].ID)
}

func TestPacketStore_ListFailedIncludesTerminalKindsBelowBudget(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	for _, id := range []string{"template", "data", "database"} {
		newPending(t, s, id, time.Now())
		_, _ = s.Claim(ctx, id, time.Now())
	}
	_, _ = s.MarkFailed(ctx, "template", "Template not found", entities.ErrorKindTemplate)
	_, _ = s.MarkFailed(ctx, "data", "Client not found", entities.ErrorKindData)
	_, _ = s.MarkFailed(ctx, "database", "pq: connection reset", entities.ErrorKindDatabase)

	failed, err := s.ListFailed(ctx, 3, 10)
	require.NoError(t, err)

	ids := make([]string, 0, len(failed))
	for _, p := range failed {
		assert.Equal(t, 1, p.RetryCount)
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"template", "data"}, ids)
}

func TestPacketStore_ResetStale(t *testing.T) {
	s := NewPacketStore()
	ctx := context.Background()
	newPending(t, s, "stale", time.Now())
	newPending(t, s, "fresh", time.Now())
	_, _ = s.Claim(ctx, "stale", time.Now().Add(-time.Hour))
	_, _ = s.Claim(ctx, "fresh", time.Now())

	n, err := s.ResetStale(ctx, time.Now().Add(-10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	p, _ := s.GetByID(ctx, "stale")
	assert.Equal(t, entities.PacketStatusPending, p.Status)
	p, _ = s.GetByID(ctx, "fresh")
	assert.Equal(t, entities.PacketStatusGenerating, p.Status)
}

func TestClientStore_UpsertByOwner(t *testing.T) {
	s := NewClientStore()
	ctx := context.Background()

	c1, err := s.UpsertByOwner(ctx, &entities.Client{OwnerID: "owner-1", Name: "Jane"})
	require.NoError(t, err)
	c2, err := s.UpsertByOwner(ctx, &entities.Client{OwnerID: "owner-1", Name: "Jane Doe"})
	require.NoError(t, err)

	assert.Equal(t, c1.ID, c2.ID)
	assert.Equal(t, "Jane Doe", c2.Name)

	_, err = s.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, entities.ErrorKindData, entities.ClassifyError(err))
}
