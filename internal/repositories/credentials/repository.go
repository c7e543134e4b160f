// Package credentials persists users and their encrypted vault items.
//
// Two implementations share one contract: FileRepository keeps two JSON
// documents in a directory, SQLRepository runs against PostgreSQL (pgx) or
// SQLite (modernc). Both return common.ErrorConflict for a taken username and
// common.ErrorNotFound for absent or foreign records.
package credentials

import (
	"context"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/models"
	"github.com/google/uuid"
)

// Repository is the credential store used by the services.
type Repository interface {
	// CreateUser stores a new user. The username check and the insert are
	// atomic; a taken username yields common.ErrorConflict.
	CreateUser(ctx context.Context, username, passwordHash string, kdfSalt []byte, kdfParams models.KDFParams) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// DeleteUser removes the user and every item it owns. Deleting an absent
	// user is not an error.
	DeleteUser(ctx context.Context, id string) error

	// CreateItem stores an item for an existing owner, otherwise
	// common.ErrorNotFound.
	CreateItem(ctx context.Context, ownerID, title string, blob []byte) (*models.VaultItem, error)
	// ListItems returns the owner's items oldest first, ties broken by id.
	ListItems(ctx context.Context, ownerID string) ([]*models.VaultItem, error)
	// GetItem returns common.ErrorNotFound for absent items and for items
	// owned by someone else.
	GetItem(ctx context.Context, ownerID, itemID string) (*models.VaultItem, error)
	// DeleteItem is idempotent and never touches foreign items.
	DeleteItem(ctx context.Context, ownerID, itemID string) error

	Close() error
}

// newID returns a time-ordered UUIDv7 string.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// timestamp normalizes t to the precision and zone every backend round-trips.
func timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// compareItems is the canonical item order, usable with slices.SortFunc.
func compareItems(a, b *models.VaultItem) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
