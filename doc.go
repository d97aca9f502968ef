// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Command councilvote runs voting sessions for youth council meetings over Telegram.

An admin creates a session, sets the agenda and opens questions one at a time.
Participants join with the session code and password and vote For, Against or
Abstain. A question closes when every participant has voted or the admin
closes it; it is adopted when more than half of all participants voted For.
At the end the admin receives the protocol and the attendance list.

# Commands

	councilvote serve [--no-bot]       bot and HTTP API
	councilvote migrate                apply migrations, print schema version
	councilvote sessions list          recent sessions with their admin keys
	councilvote sessions delete <code> remove a session
	councilvote stats <user-id>        participation statistics

Every command reads configuration from .env, the environment and flags; see
package cliparse. The global --debug flag lowers the log level.

# Starting the Server

	TELEGRAM_TOKEN=... ADMIN_KEY_SALT=... DATABASE_URL=council.db councilvote serve

With DATABASE_TYPE=postgres the URL is a PostgreSQL connection string. With
DATABASE_TYPE=memory nothing is persisted.

# Architecture

  - session: lifecycle controller and participant registry
  - tally: counts and decisions
  - store: persistence contract with memory and sqlstore (gorm) implementations
  - db: connections and goose migrations
  - bot: chat events, wizards and the Telegram transport
  - report: protocol and attendance documents
  - aitext: announcement drafts for /post
  - handlers, router, middleware: read and cleanup HTTP API
  - auth: session codes, passwords and admin keys
  - cliparse: configuration
*/
package main
