package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKDF = models.KDFParams{MemoryKiB: 64, TimeCost: 1, Parallelism: 1}

func newFileRepo(t *testing.T) (*FileRepository, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := NewFileRepository(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, dir
}

// steppingClock returns strictly increasing instants one millisecond apart.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	cur := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		cur = cur.Add(time.Millisecond)
		return cur
	}
}

func TestFileRepository_CreateAndGetUser(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx := context.Background()

	salt := []byte("0123456789abcdef")
	u, err := r.CreateUser(ctx, "alice", "$2a$04$hash", salt, testKDF)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice", u.UserName)
	assert.Equal(t, salt, u.KDFSalt)
	assert.Equal(t, testKDF, u.KDFParams)
	assert.Equal(t, time.UTC, u.CreatedAt.Location())

	byName, err := r.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u, byName)

	byID, err := r.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, byID)
}

func TestFileRepository_UsernamesAreCaseSensitive(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx := context.Background()

	_, err := r.CreateUser(ctx, "bob", "h", []byte("s"), testKDF)
	require.NoError(t, err)
	_, err = r.CreateUser(ctx, "Bob", "h", []byte("s"), testKDF)
	require.NoError(t, err)

	_, err = r.GetByUsername(ctx, "BOB")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFileRepository_DuplicateUsername(t *testing.T) {
	r, dir := newFileRepo(t)
	ctx := context.Background()

	_, err := r.CreateUser(ctx, "alice", "h1", []byte("s1"), testKDF)
	require.NoError(t, err)

	_, err = r.CreateUser(ctx, "alice", "h2", []byte("s2"), testKDF)
	assert.ErrorIs(t, err, common.ErrorConflict)

	var users []userRecord
	data, err := os.ReadFile(filepath.Join(dir, usersFileName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "h1", users[0].PasswordHash)
}

func TestFileRepository_ConcurrentDuplicateUsername(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.CreateUser(ctx, "carol", "h", []byte("s"), testKDF)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, common.ErrorConflict)
	}
	assert.Equal(t, 1, ok)
}

func TestFileRepository_GetUser_NotFound(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx := context.Background()

	_, err := r.GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFileRepository_CreateItem_UnknownOwner(t *testing.T) {
	r, _ := newFileRepo(t)

	_, err := r.CreateItem(context.Background(), "nobody", "t", []byte("blob"))
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFileRepository_ItemsOrderAndOwnership(t *testing.T) {
	r, _ := newFileRepo(t)
	r.now = steppingClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	ctx := context.Background()

	alice, err := r.CreateUser(ctx, "alice", "h", []byte("s"), testKDF)
	require.NoError(t, err)
	bob, err := r.CreateUser(ctx, "bob", "h", []byte("s"), testKDF)
	require.NoError(t, err)

	first, err := r.CreateItem(ctx, alice.ID, "first", []byte("b1"))
	require.NoError(t, err)
	_, err = r.CreateItem(ctx, bob.ID, "bobs", []byte("b2"))
	require.NoError(t, err)
	second, err := r.CreateItem(ctx, alice.ID, "second", []byte("b3"))
	require.NoError(t, err)

	items, err := r.ListItems(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, first.ID, items[0].ID)
	assert.Equal(t, second.ID, items[1].ID)
	assert.Equal(t, []byte("b3"), items[1].CiphertextBlob)

	got, err := r.GetItem(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = r.GetItem(ctx, bob.ID, first.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// a foreign delete is a no-op
	require.NoError(t, r.DeleteItem(ctx, bob.ID, first.ID))
	_, err = r.GetItem(ctx, alice.ID, first.ID)
	require.NoError(t, err)
}

func TestFileRepository_ListItems_Empty(t *testing.T) {
	r, _ := newFileRepo(t)

	items, err := r.ListItems(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFileRepository_DeleteItem_Idempotent(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, "alice", "h", []byte("s"), testKDF)
	require.NoError(t, err)
	it, err := r.CreateItem(ctx, u.ID, "t", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, r.DeleteItem(ctx, u.ID, it.ID))
	require.NoError(t, r.DeleteItem(ctx, u.ID, it.ID))

	_, err = r.GetItem(ctx, u.ID, it.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFileRepository_DeleteUser_Cascades(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx := context.Background()

	alice, err := r.CreateUser(ctx, "alice", "h", []byte("s"), testKDF)
	require.NoError(t, err)
	bob, err := r.CreateUser(ctx, "bob", "h", []byte("s"), testKDF)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = r.CreateItem(ctx, alice.ID, fmt.Sprintf("a%d", i), []byte("b"))
		require.NoError(t, err)
	}
	kept, err := r.CreateItem(ctx, bob.ID, "b", []byte("b"))
	require.NoError(t, err)

	require.NoError(t, r.DeleteUser(ctx, alice.ID))
	require.NoError(t, r.DeleteUser(ctx, alice.ID))

	_, err = r.GetByID(ctx, alice.ID)
	assert.ErrorIs(t, err, common.ErrorNotFound)
	items, err := r.ListItems(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	bobItems, err := r.ListItems(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobItems, 1)
	assert.Equal(t, kept.ID, bobItems[0].ID)

	// the username is free again
	_, err = r.CreateUser(ctx, "alice", "h", []byte("s"), testKDF)
	assert.NoError(t, err)
}

func TestFileRepository_ConcurrentCreateItem(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, "alice", "h", []byte("s"), testKDF)
	require.NoError(t, err)

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.CreateItem(ctx, u.ID, fmt.Sprintf("item-%d", i), []byte("b"))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := r.ListItems(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, items, n)

	ids := map[string]struct{}{}
	for _, it := range items {
		ids[it.ID] = struct{}{}
	}
	assert.Len(t, ids, n)
}

func TestFileRepository_PersistsAcrossReopen(t *testing.T) {
	r, dir := newFileRepo(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, "alice", "h", []byte{0, 1, 2, 255}, testKDF)
	require.NoError(t, err)
	it, err := r.CreateItem(ctx, u.ID, "t", []byte(`{"v":1}`))
	require.NoError(t, err)
	require.NoError(t, r.Close())

	reopened, err := NewFileRepository(dir)
	require.NoError(t, err)

	gotUser, err := reopened.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u, gotUser)

	gotItem, err := reopened.GetItem(ctx, u.ID, it.ID)
	require.NoError(t, err)
	assert.Equal(t, it, gotItem)
}

func TestFileRepository_DocumentLayout(t *testing.T) {
	r, dir := newFileRepo(t)
	ctx := context.Background()

	u, err := r.CreateUser(ctx, "alice", "h", []byte("salt"), testKDF)
	require.NoError(t, err)
	_, err = r.CreateItem(ctx, u.ID, "t", []byte("blob"))
	require.NoError(t, err)

	var users []map[string]any
	data, err := os.ReadFile(filepath.Join(dir, usersFileName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &users))
	require.Len(t, users, 1)
	for _, k := range []string{"id", "username", "password_hash", "kdf_salt", "kdf_mem_kib", "kdf_time_cost", "kdf_lanes", "created_at"} {
		assert.Contains(t, users[0], k)
	}
	assert.Equal(t, "c2FsdA==", users[0]["kdf_salt"])

	var items []map[string]any
	data, err = os.ReadFile(filepath.Join(dir, itemsFileName))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 1)
	for _, k := range []string{"id", "owner_id", "title", "ciphertext_blob", "created_at"} {
		assert.Contains(t, items[0], k)
	}
	assert.Equal(t, "YmxvYg==", items[0]["ciphertext_blob"])
}

func TestFileRepository_CorruptDocument(t *testing.T) {
	r, dir := newFileRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, usersFileName), []byte("{nope"), 0o600))

	_, err := r.GetByUsername(context.Background(), "alice")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestFileRepository_CanceledContext(t *testing.T) {
	r, _ := newFileRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.CreateUser(ctx, "alice", "h", []byte("s"), testKDF)
	assert.ErrorIs(t, err, context.Canceled)
}
