// Package repomanager selects and opens the credential store named by the
// configuration, applying the embedded goose migrations for SQL backends.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/dmitrijs2005/blockpass/internal/config"
	"github.com/dmitrijs2005/blockpass/internal/logging"
	"github.com/dmitrijs2005/blockpass/internal/migrations"
	"github.com/dmitrijs2005/blockpass/internal/repositories/credentials"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// sqlOpen and gooseUpContext are seams for tests.
var (
	sqlOpen = sql.Open

	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return goose.UpContext(ctx, db, dir, opts...)
	}
)

type dialectSetup struct {
	driver      string
	gooseDriver string
	fsys        fs.FS
	dir         string
}

var dialects = map[credentials.Dialect]dialectSetup{
	credentials.DialectPostgres: {driver: "pgx", gooseDriver: "pgx", fsys: migrations.Postgres, dir: "postgres"},
	credentials.DialectSQLite:   {driver: "sqlite", gooseDriver: "sqlite3", fsys: migrations.SQLite, dir: "sqlite"},
}

// Open returns the repository for cfg.Backend. The choice is made once here;
// callers only see credentials.Repository.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (credentials.Repository, error) {
	switch cfg.Backend {
	case config.BackendFile:
		log.Info(ctx, "opening file credential store", "dir", cfg.FileDir)
		return credentials.NewFileRepository(cfg.FileDir)
	case config.BackendPostgres:
		log.Info(ctx, "opening postgres credential store")
		return openSQL(ctx, cfg.DatabaseDSN, credentials.DialectPostgres, log)
	case config.BackendSQLite:
		log.Info(ctx, "opening sqlite credential store")
		return openSQL(ctx, SQLiteDSN(cfg.DatabaseDSN), credentials.DialectSQLite, log)
	}
	return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
}

func openSQL(ctx context.Context, dsn string, dialect credentials.Dialect, log logging.Logger) (credentials.Repository, error) {
	setup := dialects[dialect]

	db, err := sqlOpen(setup.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == credentials.DialectSQLite {
		// one writer at a time avoids SQLITE_BUSY between pooled connections
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	if err := RunMigrations(ctx, db, dialect, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate %s: %w", dialect, err)
	}

	repo, err := credentials.NewSQLRepository(db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// RunMigrations applies the embedded migrations of dialect to db.
func RunMigrations(ctx context.Context, db *sql.DB, dialect credentials.Dialect, log logging.Logger) error {
	setup, ok := dialects[dialect]
	if !ok {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	goose.SetBaseFS(setup.fsys)
	goose.SetLogger(&gooseLogger{ctx: ctx, log: log})
	if err := goose.SetDialect(setup.gooseDriver); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, setup.dir)
}

// SQLiteDSN enables foreign key enforcement unless the DSN sets it already.
func SQLiteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// gooseLogger routes goose progress output to the structured logger.
type gooseLogger struct {
	ctx context.Context
	log logging.Logger
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.log.Debug(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	g.log.Error(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "goose")
}
