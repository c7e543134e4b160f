package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/config"
	"github.com/dmitrijs2005/blockpass/internal/logging"
	"github.com/dmitrijs2005/blockpass/internal/models"
	"github.com/dmitrijs2005/blockpass/internal/repositories/credentials"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Backend:                     config.BackendFile,
		SecretKey:                   "k",
		SigningAlgorithm:            "HS256",
		AccessTokenValidityDuration: time.Hour,
		KDFMemoryKiB:                64,
		KDFTimeCost:                 1,
		KDFParallelism:              1,
		KDFSaltLength:               16,
		BcryptCost:                  bcrypt.MinCost,
	}
}

func newFileStore(t *testing.T) *credentials.FileRepository {
	t.Helper()
	r, err := credentials.NewFileRepository(t.TempDir())
	require.NoError(t, err)
	return r
}

func newServices(t *testing.T, repo credentials.Repository) (*UserService, *VaultService) {
	t.Helper()
	log := logging.NewNopLogger()
	us, err := NewUserService(repo, testConfig(), log)
	require.NoError(t, err)
	return us, NewVaultService(repo, log)
}

// fakeRepo lets a test replace single Repository methods; the rest fall
// through to an embedded real store.
type fakeRepo struct {
	credentials.Repository

	getByUsername func(ctx context.Context, username string) (*models.User, error)
	getByID       func(ctx context.Context, id string) (*models.User, error)
	createUser    func(ctx context.Context, username, hash string, salt []byte, p models.KDFParams) (*models.User, error)
	createItem    func(ctx context.Context, ownerID, title string, blob []byte) (*models.VaultItem, error)
	deleteItem    func(ctx context.Context, ownerID, itemID string) error
}

func (f *fakeRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getByUsername != nil {
		return f.getByUsername(ctx, username)
	}
	return f.Repository.GetByUsername(ctx, username)
}

func (f *fakeRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.getByID != nil {
		return f.getByID(ctx, id)
	}
	return f.Repository.GetByID(ctx, id)
}

func (f *fakeRepo) CreateUser(ctx context.Context, username, hash string, salt []byte, p models.KDFParams) (*models.User, error) {
	if f.createUser != nil {
		return f.createUser(ctx, username, hash, salt, p)
	}
	return f.Repository.CreateUser(ctx, username, hash, salt, p)
}

func (f *fakeRepo) CreateItem(ctx context.Context, ownerID, title string, blob []byte) (*models.VaultItem, error) {
	if f.createItem != nil {
		return f.createItem(ctx, ownerID, title, blob)
	}
	return f.Repository.CreateItem(ctx, ownerID, title, blob)
}

func (f *fakeRepo) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	if f.deleteItem != nil {
		return f.deleteItem(ctx, ownerID, itemID)
	}
	return f.Repository.DeleteItem(ctx, ownerID, itemID)
}
