// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package session implements the voting session state machine.

A Controller owns every phase and cursor change of a session; a Registry
handles participants joining and leaving. Both share one keyed mutex per
session code, so a vote, its completion check, and the resulting close happen
as one step.

# Phases

	created ──SetAgenda──▶ agenda_set ──StartVoting──▶ voting
	                           ▲                        │
	                           │                 last vote / ForceClose
	                      SetAgenda                     ▼
	                           └───────────────── question_closed
	                                                    │ SupplyProposer
	                                   voting ◀─────────┤
	                                                    ▼
	                                           all_questions_done
	any phase ──EndSession──▶ closed

With the proposer gate disabled (WithProposerGate(false)) a closed question
advances straight to the next one.

# Completion

A question closes when every current participant has a vote on it. Votes by
users who have since left stay in the tally but do not count toward
completion. Leaving during a vote re-runs the check.

# Errors

Every returned error matches one class with errors.Is: ErrNotFound,
ErrUnauthorized, ErrInvalidState, ErrValidation, or ErrOperationFailed.
Store failures are logged and surface only as ErrOperationFailed.

# Notifications

Outbound messages go through a Notifier. Delivery is best-effort; failures
are logged and never roll back a transition.
*/
package session
