package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/dmitrijs2005/blockpass/internal/dbx"
	"github.com/dmitrijs2005/blockpass/internal/models"
)

// Dialect selects placeholder syntax and constraint error mapping.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const (
	insertUserQuery = `INSERT INTO users (id, username, password_hash, kdf_salt, kdf_mem_kib, kdf_time_cost, kdf_lanes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	selectUserColumns = `SELECT id, username, password_hash, kdf_salt, kdf_mem_kib, kdf_time_cost, kdf_lanes, created_at FROM users`

	selectUserByUsernameQuery = selectUserColumns + ` WHERE username = ?`
	selectUserByIDQuery       = selectUserColumns + ` WHERE id = ?`

	ownerExistsQuery = `SELECT 1 FROM users WHERE id = ?`

	deleteUserItemsQuery = `DELETE FROM vault_items WHERE owner_id = ?`
	deleteUserQuery      = `DELETE FROM users WHERE id = ?`

	insertItemQuery = `INSERT INTO vault_items (id, owner_id, title, ciphertext_blob, created_at)
		 VALUES (?, ?, ?, ?, ?)`

	selectItemColumns = `SELECT id, owner_id, title, ciphertext_blob, created_at FROM vault_items`

	listItemsQuery  = selectItemColumns + ` WHERE owner_id = ? ORDER BY created_at ASC, id ASC`
	selectItemQuery = selectItemColumns + ` WHERE owner_id = ? AND id = ?`

	deleteItemQuery = `DELETE FROM vault_items WHERE owner_id = ? AND id = ?`
)

// SQLRepository is the relational credential store. Every public method runs
// in its own transaction; uniqueness and ownership are enforced by the schema
// in internal/migrations.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLRepository wraps an open database. The schema must already be
// migrated.
func NewSQLRepository(db *sql.DB, dialect Dialect) (*SQLRepository, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, fmt.Errorf("%w: unsupported dialect %q", common.ErrorInvalidInput, dialect)
	}
	return &SQLRepository{db: db, dialect: dialect, now: time.Now}, nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL. Queries in this file
// contain no literal question marks.
func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.UserName, &u.PasswordHash, &u.KDFSalt,
		&u.KDFParams.MemoryKiB, &u.KDFParams.TimeCost, &u.KDFParams.Parallelism, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func scanItem(row rowScanner) (*models.VaultItem, error) {
	it := &models.VaultItem{}
	if err := row.Scan(&it.ID, &it.OwnerID, &it.Title, &it.CiphertextBlob, &it.CreatedAt); err != nil {
		return nil, err
	}
	it.CreatedAt = it.CreatedAt.UTC()
	return it, nil
}

func (r *SQLRepository) CreateUser(ctx context.Context, username, passwordHash string, kdfSalt []byte, kdfParams models.KDFParams) (*models.User, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	u := &models.User{
		ID:           id,
		UserName:     username,
		PasswordHash: passwordHash,
		KDFSalt:      append([]byte(nil), kdfSalt...),
		KDFParams:    kdfParams,
		CreatedAt:    timestamp(r.now()),
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, r.rebind(insertUserQuery),
			u.ID, u.UserName, u.PasswordHash, u.KDFSalt,
			u.KDFParams.MemoryKiB, u.KDFParams.TimeCost, u.KDFParams.Parallelism, u.CreatedAt)
		return err
	})
	if err != nil {
		if kind := constraintKind(err); kind != nil {
			return nil, kind
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) getUser(ctx context.Context, query string, arg string) (*models.User, error) {
	u, err := dbx.InTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.User, error) {
		return scanUser(tx.QueryRowContext(ctx, r.rebind(query), arg))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *SQLRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, selectUserByUsernameQuery, username)
}

func (r *SQLRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getUser(ctx, selectUserByIDQuery, id)
}

// DeleteUser removes items explicitly before the user, so the cascade does
// not depend on SQLite's foreign_keys pragma.
func (r *SQLRepository) DeleteUser(ctx context.Context, id string) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, r.rebind(deleteUserItemsQuery), id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, r.rebind(deleteUserQuery), id)
		return err
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) CreateItem(ctx context.Context, ownerID, title string, blob []byte) (*models.VaultItem, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("generate id: %w", err)
	}
	it := &models.VaultItem{
		ID:             id,
		OwnerID:        ownerID,
		Title:          title,
		CiphertextBlob: append([]byte(nil), blob...),
		CreatedAt:      timestamp(r.now()),
	}

	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var one int
		if err := tx.QueryRowContext(ctx, r.rebind(ownerExistsQuery), ownerID).Scan(&one); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, r.rebind(insertItemQuery),
			it.ID, it.OwnerID, it.Title, it.CiphertextBlob, it.CreatedAt)
		return err
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(constraintKind(err), common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return it, nil
}

func (r *SQLRepository) ListItems(ctx context.Context, ownerID string) ([]*models.VaultItem, error) {
	items, err := dbx.InTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) ([]*models.VaultItem, error) {
		rows, err := tx.QueryContext(ctx, r.rebind(listItemsQuery), ownerID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		result := []*models.VaultItem{}
		for rows.Next() {
			it, err := scanItem(rows)
			if err != nil {
				return nil, err
			}
			result = append(result, it)
		}
		return result, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return items, nil
}

func (r *SQLRepository) GetItem(ctx context.Context, ownerID, itemID string) (*models.VaultItem, error) {
	it, err := dbx.InTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.VaultItem, error) {
		return scanItem(tx.QueryRowContext(ctx, r.rebind(selectItemQuery), ownerID, itemID))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return it, nil
}

func (r *SQLRepository) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, r.rebind(deleteItemQuery), ownerID, itemID)
		return err
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}
