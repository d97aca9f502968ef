// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"

	"github.com/danielhkuo/councilvote/models"
)

// ErrNotFound is returned when a session, agenda item, or metadata record does not exist.
var ErrNotFound = errors.New("not found")

// SessionRepository persists sessions.
type SessionRepository interface {
	// CreateSession stores s, replacing (with cascade) any session that already has
	// s.Code and deactivating the admin's other active sessions. It returns the codes
	// of the sessions that were deactivated.
	CreateSession(ctx context.Context, s models.Session) (superseded []int, err error)
	GetSession(ctx context.Context, code int) (models.Session, error)
	// GetAdminSession returns the admin's active session.
	GetAdminSession(ctx context.Context, adminID int64) (models.Session, error)
	UpdateSession(ctx context.Context, s models.Session) error
	DeleteSession(ctx context.Context, code int) error
	// ListSessions returns the most recently created sessions first.
	ListSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// AgendaRepository persists agenda items.
type AgendaRepository interface {
	// ReplaceAgenda deletes every existing item of the session and its votes, then
	// inserts descriptions at positions 1..n.
	ReplaceAgenda(ctx context.Context, code int, descriptions []string) ([]models.AgendaItem, error)
	ListAgenda(ctx context.Context, code int) ([]models.AgendaItem, error)
	SetProposer(ctx context.Context, code, position int, proposer string) error
	// ProposerNames lists distinct proposers already entered for the session.
	ProposerNames(ctx context.Context, code int) ([]string, error)
}

// VoteRepository persists votes, one per (agenda item, user).
type VoteRepository interface {
	// UpsertVote inserts or overwrites the user's vote and reports whether a
	// previous vote was replaced.
	UpsertVote(ctx context.Context, v models.Vote) (replaced bool, err error)
	ListVotes(ctx context.Context, agendaItemID int64) ([]models.Vote, error)
	// ListSessionVotes groups all votes of a session by agenda item id.
	ListSessionVotes(ctx context.Context, code int) (map[int64][]models.Vote, error)
}

// ParticipantRepository persists session membership.
type ParticipantRepository interface {
	// AddParticipant inserts p unless the user already joined, in which case the
	// existing row (and name) is kept and added is false.
	AddParticipant(ctx context.Context, p models.Participant) (added bool, err error)
	RemoveParticipant(ctx context.Context, code int, userID int64) (removed bool, err error)
	ListParticipants(ctx context.Context, code int) ([]models.Participant, error)
	CountParticipants(ctx context.Context, code int) (int, error)
	IsParticipant(ctx context.Context, code int, userID int64) (bool, error)
}

// MetadataRepository persists per-admin profile data and derived statistics.
type MetadataRepository interface {
	SaveCouncilInfo(ctx context.Context, info models.CouncilInfo) error
	GetCouncilInfo(ctx context.Context, adminID int64) (models.CouncilInfo, error)
	SaveNameForm(ctx context.Context, nf models.NameForm) error
	GetNameForm(ctx context.Context, adminID int64, name string) (models.NameForm, error)
	UserStats(ctx context.Context, userID int64) (models.UserStats, error)
}

// Store is the full persistence contract used by the session controller.
type Store interface {
	SessionRepository
	AgendaRepository
	VoteRepository
	ParticipantRepository
	MetadataRepository
}
