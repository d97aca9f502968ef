// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"strings"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/store"
)

// Info is the session overview shown by /info and the HTTP API.
type Info struct {
	Session          models.Session
	Agenda           []models.AgendaItem
	ParticipantCount int
}

// OpenQuestion returns the question currently accepting votes, if any.
func (i Info) OpenQuestion() (models.AgendaItem, bool) {
	if i.Session.Phase != models.PhaseVoting || i.Session.CurrentQuestion >= len(i.Agenda) {
		return models.AgendaItem{}, false
	}
	return i.Agenda[i.Session.CurrentQuestion], true
}

func (c *Controller) GetSession(ctx context.Context, code int) (models.Session, error) {
	return c.load(ctx, code)
}

func (c *Controller) SessionInfo(ctx context.Context, code int) (Info, error) {
	sess, err := c.load(ctx, code)
	if err != nil {
		return Info{}, err
	}
	agenda, err := c.agenda(ctx, code)
	if err != nil {
		return Info{}, err
	}
	n, err := c.store.CountParticipants(ctx, code)
	if err != nil {
		return Info{}, c.storeErr(ctx, "count participants", err, code)
	}
	return Info{Session: sess, Agenda: agenda, ParticipantCount: n}, nil
}

// AdminSession returns the admin's active session.
func (c *Controller) AdminSession(ctx context.Context, adminID int64) (models.Session, error) {
	sess, err := c.store.GetAdminSession(ctx, adminID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, c.fail(ctx, "get admin session", err, "admin_id", adminID)
	}
	return sess, nil
}

// GetFinalTally computes the tally of every agenda item with the live
// participant count. It does not change the session.
func (c *Controller) GetFinalTally(ctx context.Context, code int) (models.FinalTally, error) {
	if _, err := c.load(ctx, code); err != nil {
		return models.FinalTally{}, err
	}
	return c.finalTally(ctx, code)
}

func (c *Controller) GetAgenda(ctx context.Context, code int) ([]models.AgendaItem, error) {
	if _, err := c.load(ctx, code); err != nil {
		return nil, err
	}
	return c.agenda(ctx, code)
}

func (c *Controller) GetParticipantsWithNames(ctx context.Context, code int) ([]models.Participant, error) {
	if _, err := c.load(ctx, code); err != nil {
		return nil, err
	}
	list, err := c.store.ListParticipants(ctx, code)
	if err != nil {
		return nil, c.storeErr(ctx, "list participants", err, code)
	}
	return list, nil
}

func (c *Controller) RecentSessions(ctx context.Context, limit int) ([]models.Session, error) {
	list, err := c.store.ListSessions(ctx, limit)
	if err != nil {
		return nil, c.fail(ctx, "list sessions", err)
	}
	return list, nil
}

func (c *Controller) UserStats(ctx context.Context, userID int64) (models.UserStats, error) {
	stats, err := c.store.UserStats(ctx, userID)
	if err != nil {
		return models.UserStats{}, c.fail(ctx, "load user stats", err, "user_id", userID)
	}
	return stats, nil
}

// DeleteSession removes a session with its agenda, votes and participants.
func (c *Controller) DeleteSession(ctx context.Context, code int) error {
	unlock := c.locks.lock(code)
	defer unlock()

	err := c.store.DeleteSession(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return c.fail(ctx, "delete session", err, "session_code", code)
	}
	c.logger.Info("session deleted", "session_code", code)
	return nil
}

// Metadata

// UpdateSessionDetails sets the protocol number and session type printed on
// the protocol.
func (c *Controller) UpdateSessionDetails(ctx context.Context, actorID int64, code int, protocolNumber, sessionType string) error {
	unlock := c.locks.lock(code)
	defer unlock()

	sess, err := c.adminSession(ctx, actorID, code)
	if err != nil {
		return err
	}
	sess.ProtocolNumber = strings.TrimSpace(protocolNumber)
	sess.SessionType = strings.TrimSpace(sessionType)
	return c.update(ctx, sess)
}

func (c *Controller) SaveCouncilInfo(ctx context.Context, info models.CouncilInfo) error {
	if strings.TrimSpace(info.Name) == "" {
		return validationf("council name is required")
	}
	if err := c.store.SaveCouncilInfo(ctx, info); err != nil {
		return c.fail(ctx, "save council info", err, "admin_id", info.AdminID)
	}
	return nil
}

func (c *Controller) GetCouncilInfo(ctx context.Context, adminID int64) (models.CouncilInfo, error) {
	info, err := c.store.GetCouncilInfo(ctx, adminID)
	if errors.Is(err, store.ErrNotFound) {
		return models.CouncilInfo{}, ErrNotFound
	}
	if err != nil {
		return models.CouncilInfo{}, c.fail(ctx, "get council info", err, "admin_id", adminID)
	}
	return info, nil
}

func (c *Controller) SaveNameForm(ctx context.Context, nf models.NameForm) error {
	nf.Name = strings.TrimSpace(nf.Name)
	nf.Genitive = strings.TrimSpace(nf.Genitive)
	if nf.Name == "" || nf.Genitive == "" {
		return validationf("name and genitive form are required")
	}
	if err := c.store.SaveNameForm(ctx, nf); err != nil {
		return c.fail(ctx, "save name form", err, "admin_id", nf.AdminID)
	}
	return nil
}

// GetNameForm returns the cached genitive form of name, or ErrNotFound.
func (c *Controller) GetNameForm(ctx context.Context, adminID int64, name string) (models.NameForm, error) {
	nf, err := c.store.GetNameForm(ctx, adminID, strings.TrimSpace(name))
	if errors.Is(err, store.ErrNotFound) {
		return models.NameForm{}, ErrNotFound
	}
	if err != nil {
		return models.NameForm{}, c.fail(ctx, "get name form", err, "admin_id", adminID)
	}
	return nf, nil
}
