// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the domain, tally, and API response types shared by
every other package.

# Domain Types

  - Session: one voting meeting with its lifecycle phase and agenda cursor
  - AgendaItem: one question, 1-indexed position, optional proposer
  - Vote: a participant's choice on one agenda item (last write wins)
  - Participant: a joined user and their display name
  - CouncilInfo: the admin's organization profile used on protocols
  - NameForm: cached genitive form of a name
  - UserStats: derived participation statistics

# Tally Types

  - Counts: for, against, abstain, not_voted, participants
  - QuestionTally: counts plus decision for one agenda item
  - FinalTally: ordered per-question results for a session

# Response Types

  - SessionInfoResponse: session, agenda, participant_count
  - ParticipantsResponse: session_code, participants
  - DeleteSessionResponse: session_code, message
  - ErrorResponse: error, message

# Constants

Phases:

	PhaseCreated          = "created"
	PhaseAgendaSet        = "agenda_set"
	PhaseVoting           = "voting"
	PhaseQuestionClosed   = "question_closed"
	PhaseAllQuestionsDone = "all_questions_done"
	PhaseClosed           = "closed"

Choices:

	ChoiceFor     = "for"
	ChoiceAgainst = "against"
	ChoiceAbstain = "abstain"

Decisions:

	DecisionAdopted    = "adopted"
	DecisionNotAdopted = "not_adopted"
*/
package models
