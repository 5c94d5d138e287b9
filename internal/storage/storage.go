// Package storage opens the local store, applies embedded goose migrations,
// and vends kv repositories bound either to the pool or to a transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/taskboard/internal/dbx"
	"github.com/dmitrijs2005/taskboard/internal/migrations"
	"github.com/dmitrijs2005/taskboard/internal/repositories/kv"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Store is the opened local database.
type Store struct {
	db      *sql.DB
	dialect dbx.Dialect
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// ParseDialect maps a configured driver name onto a supported dialect.
func ParseDialect(driver string) (dbx.Dialect, error) {
	switch driver {
	case "", "sqlite", "sqlite3":
		return dbx.DialectSQLite, nil
	case "pgx", "postgres", "postgresql":
		return dbx.DialectPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// RunMigrations applies the embedded migrations for the given dialect.
func RunMigrations(ctx context.Context, db *sql.DB, dialect dbx.Dialect) error {
	goose.SetBaseFS(migrations.Migrations)
	// stdout belongs to the REPL
	goose.SetLogger(goose.NopLogger())

	var gooseDialect, dir string
	switch dialect {
	case dbx.DialectPostgres:
		gooseDialect, dir = "postgres", "postgres"
	default:
		gooseDialect, dir = "sqlite3", "sqlite"
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, dir)
}

// Open connects to the database behind dsn and migrates it.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == dbx.DialectSQLite {
		// one writer, and transactions never wait on a second connection
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}

	if err := RunMigrations(ctx, db, dialect); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &Store{db: db, dialect: dialect}, nil
}

// New wraps an already migrated database.
func New(db *sql.DB, dialect dbx.Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// KV returns a repository bound to the connection pool.
func (s *Store) KV() kv.Repository {
	return kv.NewSQLRepository(s.db, s.dialect)
}

// Update runs fn with a repository bound to a single transaction; every
// write fn makes is committed together or not at all.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, repo kv.Repository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, kv.NewSQLRepository(tx, s.dialect))
	})
}

// Dialect reports the SQL dialect of the store.
func (s *Store) Dialect() dbx.Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}
