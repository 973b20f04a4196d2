package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
	_ "modernc.org/sqlite"

	"pdf-rag/internal/config"
)

// Connect opens the registry database for the configured driver. The SQLite
// file lives at path and is created with its parent directory when missing.
func Connect(dbConfig *config.DatabaseConfig, path string) (*bun.DB, error) {
	switch dbConfig.Driver {
	case config.DriverSQLite, "":
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create registry folder: %v", err)
		}
		sqldb, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite registry: %v", err)
		}
		// one writer at a time, sqlite would return SQLITE_BUSY otherwise
		sqldb.SetMaxOpenConns(1)
		return NewDB(sqldb, sqlitedialect.New(), dbConfig.Debug), nil
	case config.DriverPgDriver:
		opts := []pgdriver.Option{pgdriver.WithDSN(dbConfig.DSN)}
		if dbConfig.Password != "" {
			opts = append(opts, pgdriver.WithPassword(dbConfig.Password))
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
		return NewDB(sqldb, pgdialect.New(), dbConfig.Debug), nil
	case config.DriverPq:
		sqldb, err := sql.Open("postgres", dbConfig.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %v", err)
		}
		return NewDB(sqldb, pgdialect.New(), dbConfig.Debug), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", dbConfig.Driver)
	}
}

func NewDB(sqldb *sql.DB, dialect schema.Dialect, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, dialect)
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// InitDB creates the registry table, and the pgvector chunk table when withVectors is set
func InitDB(ctx context.Context, db *bun.DB, withVectors bool) error {
	if _, err := db.NewCreateTable().Model((*DocumentRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create documents table: %v", err)
	}
	if !withVectors {
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to enable pgvector: %v", err)
	}
	if _, err := db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create chunks table: %v", err)
	}
	_, err := db.NewCreateIndex().
		Model((*ChunkRecord)(nil)).
		Index("chunks_document_id_idx").
		IfNotExists().
		Column("document_id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create chunks index: %v", err)
	}
	return nil
}

// DropTables removes everything InitDB created
func DropTables(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*ChunkRecord)(nil), (*DocumentRecord)(nil)} {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// BackupSQLite writes a consistent copy of a SQLite database to dest
func BackupSQLite(ctx context.Context, db *bun.DB, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("failed to create backup folder: %v", err)
	}
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("failed to back up registry: %v", err)
	}
	return nil
}
