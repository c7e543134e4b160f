package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerAndAuthenticate(t *testing.T, us *UserService, username, password string) *models.User {
	t.Helper()
	ctx := context.Background()
	_, err := us.Register(ctx, username, password)
	require.NoError(t, err)
	token, err := us.Login(ctx, username, password)
	require.NoError(t, err)
	u, err := us.Authenticate(ctx, token)
	require.NoError(t, err)
	return u
}

func TestScenario_BobStoresAndRevealsSecret(t *testing.T) {
	repo := newFileStore(t)
	us, vs := newServices(t, repo)
	ctx := context.Background()

	_, err := us.Register(ctx, "bob", "pw1")
	require.NoError(t, err)

	_, err = us.Login(ctx, "bob", "pw2")
	require.Equal(t, common.ErrorUnauthenticated, err)

	token, err := us.Login(ctx, "bob", "pw1")
	require.NoError(t, err)
	bob, err := us.Authenticate(ctx, token)
	require.NoError(t, err)

	item, err := vs.Create(ctx, bob, "email", "s3cret", "master-pw")
	require.NoError(t, err)
	assert.Equal(t, "email", item.Title)

	stored, err := repo.GetItem(ctx, bob.ID, item.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(stored.CiphertextBlob), "s3cret")

	got, err := vs.Reveal(ctx, bob, item.ID, "master-pw")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.Secret)
	assert.Equal(t, "email", got.Title)

	_, err = vs.Reveal(ctx, bob, item.ID, "wrong-master")
	assert.Equal(t, common.ErrorAuthenticationFailure, err)
}

func TestVault_NilUser(t *testing.T) {
	_, vs := newServices(t, newFileStore(t))
	ctx := context.Background()

	_, err := vs.Create(ctx, nil, "t", "s", "m")
	assert.Equal(t, common.ErrorUnauthenticated, err)
	_, err = vs.List(ctx, nil)
	assert.Equal(t, common.ErrorUnauthenticated, err)
	_, err = vs.Reveal(ctx, nil, "id", "m")
	assert.Equal(t, common.ErrorUnauthenticated, err)
	_, err = vs.Edit(ctx, nil, "id", "t", "s", "m")
	assert.Equal(t, common.ErrorUnauthenticated, err)
	assert.Equal(t, common.ErrorUnauthenticated, vs.Delete(ctx, nil, "id"))
}

func TestVault_CreateValidatesInput(t *testing.T) {
	us, vs := newServices(t, newFileStore(t))
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	_, err := vs.Create(ctx, u, " ", "s", "m")
	assert.ErrorIs(t, err, common.ErrorInvalidInput)

	_, err = vs.Create(ctx, u, "t", "s", "")
	assert.ErrorIs(t, err, common.ErrorInvalidInput)
}

func TestVault_ListIsMetadataOnlyAndOrdered(t *testing.T) {
	us, vs := newServices(t, newFileStore(t))
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	var want []string
	for _, title := range []string{"a", "b", "c"} {
		it, err := vs.Create(ctx, u, title, "secret-"+title, "m")
		require.NoError(t, err)
		want = append(want, it.ID)
	}

	items, err := vs.List(ctx, u)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for i, it := range items {
		assert.Equal(t, want[i], it.ID)
	}
}

func TestVault_ForeignItemsAreNotFound(t *testing.T) {
	us, vs := newServices(t, newFileStore(t))
	bob := registerAndAuthenticate(t, us, "bob", "pw1")
	eve := registerAndAuthenticate(t, us, "eve", "pw2")
	ctx := context.Background()

	it, err := vs.Create(ctx, bob, "email", "s3cret", "m")
	require.NoError(t, err)

	_, err = vs.Reveal(ctx, eve, it.ID, "m")
	assert.Equal(t, common.ErrorNotFound, err)
	_, err = vs.Edit(ctx, eve, it.ID, "x", "y", "m")
	assert.Equal(t, common.ErrorNotFound, err)

	require.NoError(t, vs.Delete(ctx, eve, it.ID))
	_, err = vs.Reveal(ctx, bob, it.ID, "m")
	assert.NoError(t, err)

	items, err := vs.List(ctx, eve)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestVault_TitleIsBoundToCiphertext(t *testing.T) {
	repo := newFileStore(t)
	us, vs := newServices(t, repo)
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	it, err := vs.Create(ctx, u, "bank", "1234", "m")
	require.NoError(t, err)
	stored, err := repo.GetItem(ctx, u.ID, it.ID)
	require.NoError(t, err)

	// same blob stored under another title must not decrypt
	moved, err := repo.CreateItem(ctx, u.ID, "email", stored.CiphertextBlob)
	require.NoError(t, err)
	_, err = vs.Reveal(ctx, u, moved.ID, "m")
	assert.Equal(t, common.ErrorAuthenticationFailure, err)
}

func TestVault_Edit(t *testing.T) {
	repo := newFileStore(t)
	us, vs := newServices(t, repo)
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	old, err := vs.Create(ctx, u, "email", "s3cret", "m")
	require.NoError(t, err)

	_, err = vs.Edit(ctx, u, old.ID, "email", "new", "wrong")
	assert.Equal(t, common.ErrorAuthenticationFailure, err)

	edited, err := vs.Edit(ctx, u, old.ID, "mail", "new", "m")
	require.NoError(t, err)
	assert.NotEqual(t, old.ID, edited.ID)

	_, err = vs.Reveal(ctx, u, old.ID, "m")
	assert.Equal(t, common.ErrorNotFound, err)

	got, err := vs.Reveal(ctx, u, edited.ID, "m")
	require.NoError(t, err)
	assert.Equal(t, "mail", got.Title)
	assert.Equal(t, "new", got.Secret)

	items, err := vs.List(ctx, u)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestVault_EditKeepsOldItemWhenStoreFails(t *testing.T) {
	store := newFileStore(t)
	repo := &fakeRepo{Repository: store}
	us, vs := newServices(t, repo)
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	old, err := vs.Create(ctx, u, "email", "s3cret", "m")
	require.NoError(t, err)

	repo.createItem = func(context.Context, string, string, []byte) (*models.VaultItem, error) {
		return nil, errors.New("disk full")
	}
	_, err = vs.Edit(ctx, u, old.ID, "email", "new", "m")
	require.Error(t, err)

	got, err := vs.Reveal(ctx, u, old.ID, "m")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got.Secret)
}

func TestVault_EditReportsFailedDelete(t *testing.T) {
	store := newFileStore(t)
	repo := &fakeRepo{Repository: store}
	us, vs := newServices(t, repo)
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	old, err := vs.Create(ctx, u, "email", "s3cret", "m")
	require.NoError(t, err)

	repo.deleteItem = func(context.Context, string, string) error { return errors.New("io error") }
	_, err = vs.Edit(ctx, u, old.ID, "email", "new", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "io error")
}

func TestVault_CreateForDeletedUser(t *testing.T) {
	repo := newFileStore(t)
	us, vs := newServices(t, repo)
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	require.NoError(t, repo.DeleteUser(ctx, u.ID))

	_, err := vs.Create(ctx, u, "t", "s", "m")
	assert.Equal(t, common.ErrorUnauthenticated, err)
}

func TestVault_DeleteIdempotent(t *testing.T) {
	us, vs := newServices(t, newFileStore(t))
	u := registerAndAuthenticate(t, us, "bob", "pw1")
	ctx := context.Background()

	it, err := vs.Create(ctx, u, "t", "s", "m")
	require.NoError(t, err)

	require.NoError(t, vs.Delete(ctx, u, it.ID))
	require.NoError(t, vs.Delete(ctx, u, it.ID))
}
