// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/councilvote/auth"
	"github.com/danielhkuo/councilvote/models"
)

// MaxParticipantName bounds display names typed by participants.
const MaxParticipantName = 100

// Registry handles session membership. It shares the controller's locks so
// joins and leaves are ordered with vote counting.
type Registry struct {
	c *Controller
}

func NewRegistry(c *Controller) *Registry {
	return &Registry{c: c}
}

type JoinResult struct {
	Session models.Session
	// Added is false when the user was already a participant.
	Added bool
}

// LeaveResult reports what a leave did. Ended is set when the admin left and
// the session was closed instead.
type LeaveResult struct {
	Removed bool
	Ended   bool
	Final   *models.FinalTally
}

// VerifyPassword checks the shared session password.
func (r *Registry) VerifyPassword(ctx context.Context, code int, password string) (models.Session, error) {
	sess, err := r.c.load(ctx, code)
	if err != nil {
		return models.Session{}, err
	}
	if sess.Phase == models.PhaseClosed {
		return models.Session{}, ErrSessionClosed
	}
	if err := auth.CheckPassword(sess.Password, strings.TrimSpace(password)); err != nil {
		return models.Session{}, ErrWrongPassword
	}
	return sess, nil
}

// Join registers userID under name. Joining twice keeps the first name. A user
// joining while a question is open receives that question.
func (r *Registry) Join(ctx context.Context, code int, userID int64, name string) (JoinResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return JoinResult{}, validationf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxParticipantName {
		return JoinResult{}, validationf("name must be at most %d characters", MaxParticipantName)
	}

	unlock := r.c.locks.lock(code)
	defer unlock()

	sess, err := r.c.load(ctx, code)
	if err != nil {
		return JoinResult{}, err
	}
	if sess.Phase == models.PhaseClosed {
		return JoinResult{}, ErrSessionClosed
	}

	added, err := r.c.store.AddParticipant(ctx, models.Participant{
		SessionCode: code,
		UserID:      userID,
		Name:        name,
		JoinedAt:    r.c.now().UTC(),
	})
	if err != nil {
		return JoinResult{}, r.c.storeErr(ctx, "add participant", err, code)
	}

	if added {
		r.c.logger.Info("participant joined", "session_code", code, "user_id", userID)
		if sess.Phase == models.PhaseVoting && userID != sess.AdminID {
			r.sendOpenQuestion(ctx, sess, userID)
		}
	}
	return JoinResult{Session: sess, Added: added}, nil
}

func (r *Registry) sendOpenQuestion(ctx context.Context, sess models.Session, userID int64) {
	agenda, err := r.c.store.ListAgenda(ctx, sess.Code)
	if err != nil {
		r.c.logger.Error("failed to list agenda", "session_code", sess.Code, "error", err)
		return
	}
	if sess.CurrentQuestion >= len(agenda) {
		return
	}
	item := agenda[sess.CurrentQuestion]
	r.c.send(ctx, Notification{
		Recipient: userID,
		Text:      questionText(item, len(agenda)),
		Options:   VoteOptions(item.Position),
	})
}

// Leave removes userID from the session. The admin cannot leave: their leave
// ends the session. If a question is open, it closes when everyone left has
// already voted.
func (r *Registry) Leave(ctx context.Context, code int, userID int64) (LeaveResult, error) {
	unlock := r.c.locks.lock(code)
	defer unlock()

	sess, err := r.c.load(ctx, code)
	if err != nil {
		return LeaveResult{}, err
	}

	if sess.IsAdmin(userID) {
		final, err := r.c.endLocked(ctx, sess)
		if err != nil {
			return LeaveResult{}, err
		}
		return LeaveResult{Ended: true, Final: &final}, nil
	}

	removed, err := r.c.store.RemoveParticipant(ctx, code, userID)
	if err != nil {
		return LeaveResult{}, r.c.storeErr(ctx, "remove participant", err, code)
	}
	if !removed {
		return LeaveResult{}, ErrNotParticipant
	}
	r.c.logger.Info("participant left", "session_code", code, "user_id", userID)

	if sess.Phase != models.PhaseVoting {
		return LeaveResult{Removed: true}, nil
	}
	agenda, err := r.c.agenda(ctx, code)
	if err != nil || sess.CurrentQuestion >= len(agenda) {
		return LeaveResult{Removed: true}, err
	}
	done, err := r.c.allVotesCollected(ctx, code, agenda[sess.CurrentQuestion])
	if err != nil {
		return LeaveResult{Removed: true}, err
	}
	if done {
		if _, err := r.c.closeQuestion(ctx, sess, agenda); err != nil {
			return LeaveResult{Removed: true}, err
		}
	}
	return LeaveResult{Removed: true}, nil
}

// Count returns the live participant count.
func (r *Registry) Count(ctx context.Context, code int) (int, error) {
	if _, err := r.c.load(ctx, code); err != nil {
		return 0, err
	}
	n, err := r.c.store.CountParticipants(ctx, code)
	if err != nil {
		return 0, r.c.storeErr(ctx, "count participants", err, code)
	}
	return n, nil
}
