package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/filex"
	"github.com/dmitrijs2005/blockpass/internal/models"
)

const (
	usersFileName = "users.json"
	itemsFileName = "items.json"
)

type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	KDFSalt      []byte    `json:"kdf_salt"`
	KDFMemoryKiB int       `json:"kdf_mem_kib"`
	KDFTimeCost  int       `json:"kdf_time_cost"`
	KDFLanes     int       `json:"kdf_lanes"`
	CreatedAt    time.Time `json:"created_at"`
}

func (r *userRecord) toModel() *models.User {
	return &models.User{
		ID:           r.ID,
		UserName:     r.Username,
		PasswordHash: r.PasswordHash,
		KDFSalt:      append([]byte(nil), r.KDFSalt...),
		KDFParams: models.KDFParams{
			MemoryKiB:   r.KDFMemoryKiB,
			TimeCost:    r.KDFTimeCost,
			Parallelism: r.KDFLanes,
		},
		CreatedAt: r.CreatedAt,
	}
}

type itemRecord struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	CiphertextBlob []byte    `json:"ciphertext_blob"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *itemRecord) toModel() *models.VaultItem {
	return &models.VaultItem{
		ID:             r.ID,
		OwnerID:        r.OwnerID,
		Title:          r.Title,
		CiphertextBlob: append([]byte(nil), r.CiphertextBlob...),
		CreatedAt:      r.CreatedAt,
	}
}

// FileRepository stores users and items as two JSON documents in one
// directory. Each document has its own mutex; every access locks it, reads
// the whole document and, for mutations, rewrites it atomically before
// unlocking. When both are needed the users lock is taken first.
//
// The locks are in-process only: two processes sharing a directory will
// lose updates.
type FileRepository struct {
	usersPath string
	itemsPath string

	usersMu sync.Mutex
	itemsMu sync.Mutex

	now func() time.Time
}

// NewFileRepository opens (creating if needed) the store in dir.
func NewFileRepository(dir string) (*FileRepository, error) {
	abs, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}
	return &FileRepository{
		usersPath: filepath.Join(abs, usersFileName),
		itemsPath: filepath.Join(abs, itemsFileName),
		now:       time.Now,
	}, nil
}

// readDocument loads a JSON array; a missing or empty file is an empty document.
func readDocument[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

func writeDocument[T any](path string, records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return filex.WriteFileAtomic(path, data, 0o600)
}

func (r *FileRepository) CreateUser(ctx context.Context, username, passwordHash string, kdfSalt []byte, kdfParams models.KDFParams) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	users, err := readDocument[userRecord](r.usersPath)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return nil, common.ErrorConflict
		}
	}

	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	rec := userRecord{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		KDFSalt:      append([]byte(nil), kdfSalt...),
		KDFMemoryKiB: kdfParams.MemoryKiB,
		KDFTimeCost:  kdfParams.TimeCost,
		KDFLanes:     kdfParams.Parallelism,
		CreatedAt:    timestamp(r.now()),
	}

	if err := writeDocument(r.usersPath, append(users, rec)); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *FileRepository) findUser(match func(*userRecord) bool) (*models.User, error) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	users, err := readDocument[userRecord](r.usersPath)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if match(&users[i]) {
			return users[i].toModel(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *FileRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.findUser(func(u *userRecord) bool { return u.Username == username })
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.findUser(func(u *userRecord) bool { return u.ID == id })
}

func (r *FileRepository) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	r.itemsMu.Lock()
	defer r.itemsMu.Unlock()

	users, err := readDocument[userRecord](r.usersPath)
	if err != nil {
		return err
	}
	found := slices.ContainsFunc(users, func(u userRecord) bool { return u.ID == id })

	// items are swept even for an absent user, finishing an interrupted delete
	items, err := readDocument[itemRecord](r.itemsPath)
	if err != nil {
		return err
	}
	before := len(items)
	items = slices.DeleteFunc(items, func(it itemRecord) bool { return it.OwnerID == id })
	if len(items) != before {
		if err := writeDocument(r.itemsPath, items); err != nil {
			return err
		}
	}

	if !found {
		return nil
	}
	users = slices.DeleteFunc(users, func(u userRecord) bool { return u.ID == id })
	return writeDocument(r.usersPath, users)
}

func (r *FileRepository) CreateItem(ctx context.Context, ownerID, title string, blob []byte) (*models.VaultItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// holding the users lock keeps the owner alive until the item is written
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	users, err := readDocument[userRecord](r.usersPath)
	if err != nil {
		return nil, err
	}
	if !slices.ContainsFunc(users, func(u userRecord) bool { return u.ID == ownerID }) {
		return nil, common.ErrorNotFound
	}

	r.itemsMu.Lock()
	defer r.itemsMu.Unlock()

	items, err := readDocument[itemRecord](r.itemsPath)
	if err != nil {
		return nil, err
	}

	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	rec := itemRecord{
		ID:             id,
		OwnerID:        ownerID,
		Title:          title,
		CiphertextBlob: append([]byte(nil), blob...),
		CreatedAt:      timestamp(r.now()),
	}

	if err := writeDocument(r.itemsPath, append(items, rec)); err != nil {
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *FileRepository) ListItems(ctx context.Context, ownerID string) ([]*models.VaultItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.itemsMu.Lock()
	defer r.itemsMu.Unlock()

	items, err := readDocument[itemRecord](r.itemsPath)
	if err != nil {
		return nil, err
	}

	result := []*models.VaultItem{}
	for i := range items {
		if items[i].OwnerID == ownerID {
			result = append(result, items[i].toModel())
		}
	}
	slices.SortFunc(result, compareItems)
	return result, nil
}

func (r *FileRepository) GetItem(ctx context.Context, ownerID, itemID string) (*models.VaultItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.itemsMu.Lock()
	defer r.itemsMu.Unlock()

	items, err := readDocument[itemRecord](r.itemsPath)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == itemID && items[i].OwnerID == ownerID {
			return items[i].toModel(), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *FileRepository) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.itemsMu.Lock()
	defer r.itemsMu.Unlock()

	items, err := readDocument[itemRecord](r.itemsPath)
	if err != nil {
		return err
	}
	before := len(items)
	items = slices.DeleteFunc(items, func(it itemRecord) bool {
		return it.ID == itemID && it.OwnerID == ownerID
	})
	if len(items) == before {
		return nil
	}
	return writeDocument(r.itemsPath, items)
}

// Close is a no-op; every operation leaves the documents on disk.
func (r *FileRepository) Close() error {
	return nil
}
