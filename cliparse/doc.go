// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from the environment and command-line flags.

# Sources

Settings are resolved in this order, later sources winning:

 1. a .env file in the working directory (optional)
 2. environment variables
 3. flags set on the command line

Commands in main.go attach Flags and call FromCommand:

	cfg, err := cliparse.FromCommand(cmd)

ParseFlags does the same for a bare argument list.

# Environment Variables

	PORT              -p                 HTTP port (default 3318)
	DATABASE_URL      -d                 connection string or SQLite file
	DATABASE_TYPE     -t                 sqlite (default), postgres or memory
	ADMIN_KEY_SALT    --admin-salt       secret for admin key HMAC (required)
	TELEGRAM_TOKEN    --telegram-token   bot token
	REQUIRE_PROPOSER  --require-proposer default true
	AI_API_KEY                           enables /post
	AI_MODEL          --ai-model
	AI_URL

# Validation

DATABASE_URL is required unless DATABASE_TYPE is memory. ADMIN_KEY_SALT is
always required. The bot token is checked by the serve command only.
*/
package cliparse
