// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"embed"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

// Supported database types
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMemory   = "memory"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

// Open connects to the database of the given type.
// PostgreSQL goes through lib/pq, SQLite through the pure-Go modernc driver.
func Open(dbType, url string) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch dbType {
	case TypePostgres:
		gdb, err := gorm.Open(postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        url,
		}), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		return gdb, nil

	case TypeSQLite:
		gdb, err := gorm.Open(sqlite.Dialector{
			DriverName: "sqlite",
			DSN:        sqliteDSN(url),
		}, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		// SQLite has a single writer; one connection avoids SQLITE_BUSY under concurrent votes
		sqlDB.SetMaxOpenConns(1)
		return gdb, nil
	}

	return nil, fmt.Errorf("unsupported database type %q", dbType)
}

// sqliteDSN enables foreign keys and a busy timeout on the connection.
func sqliteDSN(path string) string {
	if path == "" {
		path = "councilvote.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func dialect(dbType string) (string, error) {
	switch dbType {
	case TypePostgres:
		return "postgres", nil
	case TypeSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported database type %q", dbType)
}

// Migrate applies all pending migrations for the database type.
// Safe to call on every start.
func Migrate(ctx context.Context, gdb *gorm.DB, dbType string) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	d, err := dialect(dbType)
	if err != nil {
		return err
	}

	if err := goose.SetDialect(d); err != nil {
		return err
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.UpContext(ctx, sqlDB, "migrations/"+dbType); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Version returns the current schema version.
func Version(ctx context.Context, gdb *gorm.DB, dbType string) (int64, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return 0, err
	}
	d, err := dialect(dbType)
	if err != nil {
		return 0, err
	}
	if err := goose.SetDialect(d); err != nil {
		return 0, err
	}
	return goose.GetDBVersionContext(ctx, sqlDB)
}

// Close releases the underlying connection pool.
func Close(gdb *gorm.DB) error {
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
