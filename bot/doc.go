// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package bot is the chat front end of councilvote.

Each inbound message is decoded once into an Event (a slash command, a menu
button, a vote button, or free text). Commands always start fresh; other input
answers the user's pending wizard step if there is one:

	/create_session   name → password → agenda
	/join             code → password → name
	/council          name → city → region → chair → secretary
	/protocol         number → meeting type
	/post             notes for the announcement

Outside a wizard, free text from an admin whose question is waiting for a
proposer is taken as the proposer's name.

Telegram is the only transport. It queues updates per user, so one user's
messages are handled in the order they were sent while different users run
concurrently, and it recovers panics. Bot also holds a per-user lock so wizard
state stays consistent for callers that invoke Handle directly.

Controller errors are mapped to chat replies in errorText. Operation failures
are logged and shown as a generic retry message.
*/
package bot
