// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"sync"

	"github.com/danielhkuo/councilvote/models"
)

// step is the next free-text answer a user's conversation expects.
type step int

const (
	stepNone step = iota

	stepSessionName
	stepSessionPassword
	stepAgenda

	stepJoinCode
	stepJoinPassword
	stepJoinName

	stepGenitive

	stepCouncilName
	stepCouncilCity
	stepCouncilRegion
	stepCouncilChair
	stepCouncilSecretary

	stepProtocolNumber
	stepProtocolType

	stepPostNote
)

// consumesVotes reports whether a vote button pressed during s is read as the
// answer. Only steps that ask for free text about the session do.
func (s step) consumesVotes() bool {
	switch s {
	case stepNone, stepGenitive:
		return false
	}
	return true
}

// conversation is the per-user wizard state plus the session the user last
// created or joined.
type conversation struct {
	step step

	session int // current session code, 0 when none

	// Wizard scratch values.
	name     string
	code     int
	proposer string
	council  models.CouncilInfo
	protocol string
}

// reset clears the wizard and keeps the current session.
func (c *conversation) reset() {
	*c = conversation{session: c.session}
}

type conversations struct {
	mu    sync.Mutex
	users map[int64]*conversation
}

func newConversations() *conversations {
	return &conversations{users: make(map[int64]*conversation)}
}

// with runs fn on the user's conversation while holding the table lock.
func (cs *conversations) with(userID int64, fn func(c *conversation)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	c, ok := cs.users[userID]
	if !ok {
		c = &conversation{}
		cs.users[userID] = c
	}
	fn(c)
}

// get returns a copy of the user's conversation.
func (cs *conversations) get(userID int64) conversation {
	var out conversation
	cs.with(userID, func(c *conversation) { out = *c })
	return out
}

func (cs *conversations) set(userID int64, c conversation) {
	cs.with(userID, func(cur *conversation) { *cur = c })
}
