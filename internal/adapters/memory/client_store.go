package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
	"github.com/zatekoja/coachpackets/internal/domain/repositories"
	apperrors "github.com/zatekoja/coachpackets/pkg/errors"
)

// ClientStore is an in-process ClientRepository
type ClientStore struct {
	mu      sync.RWMutex
	clients map[string]*entities.Client
}

// NewClientStore creates an empty store
func NewClientStore() *ClientStore {
	return &ClientStore{clients: make(map[string]*entities.Client)}
}

func copyClient(c *entities.Client) *entities.Client {
	out := *c
	return &out
}

func (s *ClientStore) GetByID(ctx context.Context, id string) (*entities.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, entities.ErrClientNotFound(id)
	}
	return copyClient(c), nil
}

func (s *ClientStore) GetByOwner(ctx context.Context, ownerID string) (*entities.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.clients {
		if c.OwnerID == ownerID {
			return copyClient(c), nil
		}
	}
	return nil, entities.ErrClientNotFound(ownerID)
}

func (s *ClientStore) UpsertByOwner(ctx context.Context, client *entities.Client) (*entities.Client, error) {
	if client.OwnerID == "" {
		return nil, apperrors.NewValidationError("client owner_id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, existing := range s.clients {
		if existing.OwnerID == client.OwnerID {
			existing.Name = client.Name
			existing.Email = client.Email
			existing.Phone = client.Phone
			existing.Classification = client.Classification
			existing.Attributes = client.Attributes
			existing.Answers = client.Answers
			existing.UpdatedAt = now
			return copyClient(existing), nil
		}
	}

	stored := copyClient(client)
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.clients[stored.ID] = stored
	return copyClient(stored), nil
}

// Put stores a client as given, replacing any with the same ID
func (s *ClientStore) Put(client *entities.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[client.ID] = copyClient(client)
}

var _ repositories.ClientRepository = (*ClientStore)(nil)
