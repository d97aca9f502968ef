// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens database connections and manages the schema.

# Connections

Open returns a *gorm.DB for either backend:

	gdb, err := db.Open(db.TypePostgres, "postgres://...")  // lib/pq
	gdb, err := db.Open(db.TypeSQLite, "councilvote.db")    // modernc.org/sqlite

SQLite connections always enable foreign keys and a busy timeout, and are
limited to one open connection.

# Migrations

Migrations are embedded SQL files run by goose, one directory per dialect:

	migrations/postgres/*.sql
	migrations/sqlite/*.sql

Migrate is safe to call on every start:

	if err := db.Migrate(ctx, gdb, db.TypeSQLite); err != nil {
		log.Fatal(err)
	}

# Tables

  - sessions: one row per session, keyed by its six-digit code
  - agenda_items: ordered questions per session
  - votes: one row per (agenda item, user)
  - participants: one row per (session, user)
  - council_info: per-admin organization profile
  - name_forms: per-admin genitive name cache

# Relationships

	sessions 1──* agenda_items
	agenda_items 1──* votes
	sessions 1──* participants

All foreign keys use ON DELETE CASCADE.
*/
package db
