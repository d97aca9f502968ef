// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store defines the persistence contract for sessions, agenda items,
votes, participants, and admin metadata.

Two implementations exist:

  - store/memory: maps guarded by a sync.RWMutex, used by tests and DATABASE_TYPE=memory
  - store/sqlstore: gorm over PostgreSQL or SQLite, schema managed by package db

# Invariants

Both implementations guarantee:

  - One vote per (agenda item, user); UpsertVote overwrites
  - One participant row per (session, user); AddParticipant is insert-or-ignore
  - ReplaceAgenda drops the previous items and their votes
  - DeleteSession cascades to agenda, votes, and participants
  - CreateSession deactivates the admin's other active sessions

Missing records are reported as ErrNotFound; everything else is a raw driver
error for the caller to wrap.
*/
package store
