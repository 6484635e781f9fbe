package repositories

import (
	"context"

	"github.com/zatekoja/coachpackets/internal/domain/entities"
)

// ClientRepository defines the interface for client profile storage
type ClientRepository interface {
	// GetByID retrieves a client by ID
	GetByID(ctx context.Context, id string) (*entities.Client, error)

	// GetByOwner retrieves the client belonging to a user account
	GetByOwner(ctx context.Context, ownerID string) (*entities.Client, error)

	// UpsertByOwner creates the owner's client or replaces its profile data.
	// The stored client, with ID and timestamps set, is returned.
	UpsertByOwner(ctx context.Context, client *entities.Client) (*entities.Client, error)
}
