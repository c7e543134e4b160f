package credentials

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/blockpass/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// constraintKind maps a driver constraint error to common.ErrorConflict
// (unique or primary key) or common.ErrorNotFound (missing referenced row).
// It returns nil for anything else.
func constraintKind(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return common.ErrorConflict
		case pgForeignKeyViolation:
			return common.ErrorNotFound
		}
		return nil
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return common.ErrorConflict
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return common.ErrorNotFound
		case sqlite3.SQLITE_CONSTRAINT:
			// primary result code only; fall back to the message
			msg := liteErr.Error()
			if strings.Contains(msg, "UNIQUE") {
				return common.ErrorConflict
			}
			if strings.Contains(msg, "FOREIGN KEY") {
				return common.ErrorNotFound
			}
		}
	}
	return nil
}
