// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/danielhkuo/councilvote/auth"
	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/store"
	"github.com/danielhkuo/councilvote/tally"
)

// Field limits, matching the sessions table.
const (
	MaxNameLength     = 100
	MaxPasswordLength = 21
)

// Occupied codes are regenerated this many times before the old session is replaced.
const maxCodeAttempts = 5

// Controller owns the session state machine. All phase and cursor mutations
// for one session code are serialized.
type Controller struct {
	store           store.Store
	notifier        Notifier
	logger          *slog.Logger
	locks           *codeLocks
	newCode         func() (int, error)
	now             func() time.Time
	requireProposer bool
}

type Option func(*Controller)

func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCodeGenerator replaces auth.GenerateSessionCode.
func WithCodeGenerator(fn func() (int, error)) Option {
	return func(c *Controller) { c.newCode = fn }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithProposerGate controls whether the admin must name a proposer before the
// next question opens. Enabled by default.
func WithProposerGate(required bool) Option {
	return func(c *Controller) { c.requireProposer = required }
}

func NewController(st store.Store, opts ...Option) *Controller {
	c := &Controller{
		store:           st,
		notifier:        nopNotifier{},
		logger:          slog.Default(),
		locks:           newCodeLocks(),
		newCode:         auth.GenerateSessionCode,
		now:             time.Now,
		requireProposer: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type CreateResult struct {
	Session models.Session
	// Superseded lists the admin's sessions that were deactivated.
	Superseded []int
}

type VoteOutcome struct {
	Replaced bool // an earlier vote by the same user was overwritten
	Closed   bool // this vote completed the question
	Tally    *models.QuestionTally
}

// CreateSession stores a new session owned by adminID and makes it the admin's
// active session.
func (c *Controller) CreateSession(ctx context.Context, name, password string, adminID int64) (CreateResult, error) {
	name = strings.TrimSpace(name)
	password = strings.TrimSpace(password)
	switch {
	case name == "":
		return CreateResult{}, validationf("session name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		return CreateResult{}, validationf("session name must be at most %d characters", MaxNameLength)
	case password == "":
		return CreateResult{}, validationf("password is required")
	case utf8.RuneCountInString(password) > MaxPasswordLength:
		return CreateResult{}, validationf("password must be at most %d characters", MaxPasswordLength)
	}

	code, err := c.pickCode(ctx)
	if err != nil {
		return CreateResult{}, err
	}

	unlock := c.locks.lock(code)
	defer unlock()

	sess := models.Session{
		Code:      code,
		Name:      name,
		Password:  password,
		AdminID:   adminID,
		Active:    true,
		Phase:     models.PhaseCreated,
		CreatedAt: c.now().UTC(),
	}
	superseded, err := c.store.CreateSession(ctx, sess)
	if err != nil {
		return CreateResult{}, c.fail(ctx, "create session", err, "session_code", code)
	}

	c.logger.Info("session created", "session_code", code, "admin_id", adminID, "superseded", superseded)
	return CreateResult{Session: sess, Superseded: superseded}, nil
}

// pickCode draws codes until one is free. After maxCodeAttempts the last draw
// is used and the store replaces whatever holds it.
func (c *Controller) pickCode(ctx context.Context) (int, error) {
	var code int
	for i := 0; i < maxCodeAttempts; i++ {
		next, err := c.newCode()
		if err != nil {
			return 0, c.fail(ctx, "generate session code", err)
		}
		code = next

		_, err = c.store.GetSession(ctx, code)
		if errors.Is(err, store.ErrNotFound) {
			return code, nil
		}
		if err != nil {
			return 0, c.fail(ctx, "check session code", err, "session_code", code)
		}
	}
	c.logger.Warn("session code occupied, replacing", "session_code", code)
	return code, nil
}

// SetAgenda replaces the agenda of a session. Blank lines are dropped and
// surrounding space trimmed. Votes on the previous agenda are discarded and the
// session goes back to agenda_set.
func (c *Controller) SetAgenda(ctx context.Context, actorID int64, code int, lines []string) ([]models.AgendaItem, error) {
	unlock := c.locks.lock(code)
	defer unlock()

	sess, err := c.adminSession(ctx, actorID, code)
	if err != nil {
		return nil, err
	}
	if sess.Phase == models.PhaseClosed {
		return nil, ErrSessionClosed
	}

	items := normalizeAgenda(lines)
	if len(items) == 0 {
		return nil, ErrAgendaEmpty
	}
	if dupes := duplicates(items); len(dupes) > 0 {
		return nil, &DuplicateAgendaError{Duplicates: dupes}
	}

	agenda, err := c.store.ReplaceAgenda(ctx, code, items)
	if err != nil {
		return nil, c.storeErr(ctx, "replace agenda", err, code)
	}

	wasVoting := sess.Phase == models.PhaseVoting || sess.Phase == models.PhaseQuestionClosed
	sess.Phase = models.PhaseAgendaSet
	sess.CurrentQuestion = 0
	if err := c.update(ctx, sess); err != nil {
		return nil, err
	}

	if wasVoting {
		c.broadcast(ctx, sess, Notification{Text: agendaChangedText, RemoveKeyboard: true})
	}

	c.logger.Info("agenda set", "session_code", code, "items", len(agenda))
	return agenda, nil
}

func normalizeAgenda(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		for _, part := range strings.Split(l, "\n") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// duplicates returns each repeated line once, in order of first repetition.
func duplicates(items []string) []string {
	seen := make(map[string]int, len(items))
	var dupes []string
	for _, it := range items {
		seen[it]++
		if seen[it] == 2 {
			dupes = append(dupes, it)
		}
	}
	return dupes
}

// StartVoting opens the first question and sends it to every participant.
func (c *Controller) StartVoting(ctx context.Context, actorID int64, code int) (models.AgendaItem, error) {
	unlock := c.locks.lock(code)
	defer unlock()

	sess, err := c.adminSession(ctx, actorID, code)
	if err != nil {
		return models.AgendaItem{}, err
	}
	switch sess.Phase {
	case models.PhaseClosed:
		return models.AgendaItem{}, ErrSessionClosed
	case models.PhaseCreated:
		return models.AgendaItem{}, ErrAgendaEmpty
	case models.PhaseAgendaSet:
	default:
		return models.AgendaItem{}, invalidStatef("voting already started")
	}

	agenda, err := c.agenda(ctx, code)
	if err != nil {
		return models.AgendaItem{}, err
	}
	if len(agenda) == 0 {
		return models.AgendaItem{}, ErrAgendaEmpty
	}

	sess.CurrentQuestion = 0
	sess.Phase = models.PhaseVoting
	if err := c.update(ctx, sess); err != nil {
		return models.AgendaItem{}, err
	}

	c.logger.Info("voting started", "session_code", code, "questions", len(agenda))
	c.openQuestion(ctx, sess, agenda)
	return agenda[0], nil
}

// RecordVote stores the user's choice on the open question and closes the
// question once every live participant has voted.
func (c *Controller) RecordVote(ctx context.Context, code int, userID int64, questionIndex int, choice models.Choice) (VoteOutcome, error) {
	parsed, ok := models.ParseChoice(string(choice))
	if !ok {
		return VoteOutcome{}, validationf("unknown choice %q", choice)
	}
	choice = parsed

	unlock := c.locks.lock(code)
	defer unlock()

	sess, err := c.load(ctx, code)
	if err != nil {
		return VoteOutcome{}, err
	}
	if sess.Phase == models.PhaseClosed {
		return VoteOutcome{}, ErrSessionClosed
	}
	if sess.Phase != models.PhaseVoting {
		return VoteOutcome{}, ErrVotingNotOpen
	}
	if questionIndex != sess.CurrentQuestion {
		return VoteOutcome{}, ErrQuestionIndexOutOfRange
	}

	ok, err = c.store.IsParticipant(ctx, code, userID)
	if err != nil {
		return VoteOutcome{}, c.storeErr(ctx, "check participant", err, code)
	}
	if !ok {
		return VoteOutcome{}, ErrNotParticipant
	}

	agenda, err := c.agenda(ctx, code)
	if err != nil {
		return VoteOutcome{}, err
	}
	if sess.CurrentQuestion >= len(agenda) {
		return VoteOutcome{}, ErrQuestionIndexOutOfRange
	}
	item := agenda[sess.CurrentQuestion]

	replaced, err := c.store.UpsertVote(ctx, models.Vote{
		AgendaItemID: item.ID,
		UserID:       userID,
		Choice:       choice,
		UpdatedAt:    c.now().UTC(),
	})
	if err != nil {
		return VoteOutcome{}, c.storeErr(ctx, "record vote", err, code)
	}
	c.logger.Info("vote recorded", "session_code", code, "user_id", userID, "question", item.Position, "replaced", replaced)

	out := VoteOutcome{Replaced: replaced}
	done, err := c.allVotesCollected(ctx, code, item)
	if err != nil {
		return out, err
	}
	if done {
		q, err := c.closeQuestion(ctx, sess, agenda)
		if err != nil {
			return out, err
		}
		out.Closed = true
		out.Tally = &q
	}
	return out, nil
}

// ForceClose closes the open question without waiting for the remaining votes.
// questionIndex is the 0-based question the admin meant to close; a stale
// request for an earlier question fails with ErrQuestionIndexOutOfRange.
func (c *Controller) ForceClose(ctx context.Context, actorID int64, code int, questionIndex int) (models.QuestionTally, error) {
	unlock := c.locks.lock(code)
	defer unlock()

	sess, err := c.adminSession(ctx, actorID, code)
	if err != nil {
		return models.QuestionTally{}, err
	}
	if sess.Phase != models.PhaseVoting {
		return models.QuestionTally{}, ErrVotingNotOpen
	}
	if questionIndex != sess.CurrentQuestion {
		return models.QuestionTally{}, ErrQuestionIndexOutOfRange
	}
	agenda, err := c.agenda(ctx, code)
	if err != nil {
		return models.QuestionTally{}, err
	}
	if sess.CurrentQuestion >= len(agenda) {
		return models.QuestionTally{}, ErrQuestionIndexOutOfRange
	}

	c.logger.Info("question force-closed", "session_code", code, "question", sess.CurrentQuestion+1)
	return c.closeQuestion(ctx, sess, agenda)
}

// SupplyProposer records who proposed the just-closed question and opens the
// next one. After the last question the session moves to all_questions_done
// and nil is returned.
func (c *Controller) SupplyProposer(ctx context.Context, actorID int64, code int, name string) (*models.AgendaItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationf("proposer name is required")
	}

	unlock := c.locks.lock(code)
	defer unlock()

	sess, err := c.adminSession(ctx, actorID, code)
	if err != nil {
		return nil, err
	}
	if sess.Phase != models.PhaseQuestionClosed {
		return nil, ErrNoProposerPending
	}

	if err := c.store.SetProposer(ctx, code, sess.CurrentQuestion+1, name); err != nil {
		return nil, c.storeErr(ctx, "set proposer", err, code)
	}
	agenda, err := c.agenda(ctx, code)
	if err != nil {
		return nil, err
	}
	return c.advance(ctx, sess, agenda)
}

// SetProposer sets or corrects the proposer of any agenda item.
func (c *Controller) SetProposer(ctx context.Context, actorID int64, code, position int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validationf("proposer name is required")
	}

	unlock := c.locks.lock(code)
	defer unlock()

	if _, err := c.adminSession(ctx, actorID, code); err != nil {
		return err
	}
	err := c.store.SetProposer(ctx, code, position, name)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: agenda item %d", ErrNotFound, position)
	}
	if err != nil {
		return c.fail(ctx, "set proposer", err, "session_code", code)
	}
	return nil
}

// EndSession closes the session and returns the final tally. Ending an already
// closed session returns the tally again without notifying anyone.
func (c *Controller) EndSession(ctx context.Context, actorID int64, code int) (models.FinalTally, error) {
	unlock := c.locks.lock(code)
	defer unlock()

	sess, err := c.adminSession(ctx, actorID, code)
	if err != nil {
		return models.FinalTally{}, err
	}
	return c.endLocked(ctx, sess)
}

func (c *Controller) endLocked(ctx context.Context, sess models.Session) (models.FinalTally, error) {
	if sess.Phase == models.PhaseClosed {
		return c.finalTally(ctx, sess.Code)
	}

	sess.Active = false
	sess.Phase = models.PhaseClosed
	if err := c.update(ctx, sess); err != nil {
		return models.FinalTally{}, err
	}

	final, err := c.finalTally(ctx, sess.Code)
	if err != nil {
		return models.FinalTally{}, err
	}

	summary := SummaryText(sess.Name, final)
	c.broadcast(ctx, sess, Notification{
		Text:           endedText(sess.Name) + "\n\n" + summary,
		RemoveKeyboard: true,
	})
	c.send(ctx, Notification{Recipient: sess.AdminID, Text: summary, RemoveKeyboard: true})

	c.logger.Info("session ended", "session_code", sess.Code, "questions", len(final.Questions), "participants", final.Participants)
	return final, nil
}

// Internal transitions. Callers hold the code lock.

// allVotesCollected reports whether every live participant has voted on item.
// Votes left behind by participants who already left do not count.
func (c *Controller) allVotesCollected(ctx context.Context, code int, item models.AgendaItem) (bool, error) {
	participants, err := c.store.ListParticipants(ctx, code)
	if err != nil {
		return false, c.storeErr(ctx, "list participants", err, code)
	}
	if len(participants) == 0 {
		return false, nil
	}
	votes, err := c.store.ListVotes(ctx, item.ID)
	if err != nil {
		return false, c.storeErr(ctx, "list votes", err, code)
	}

	live := make(map[int64]bool, len(participants))
	for _, p := range participants {
		live[p.UserID] = true
	}
	voted := 0
	for _, v := range votes {
		if live[v.UserID] {
			voted++
		}
	}
	return voted >= len(participants), nil
}

// closeQuestion tallies the current question, announces the result and either
// waits for a proposer or opens the next question.
func (c *Controller) closeQuestion(ctx context.Context, sess models.Session, agenda []models.AgendaItem) (models.QuestionTally, error) {
	item := agenda[sess.CurrentQuestion]

	votes, err := c.store.ListVotes(ctx, item.ID)
	if err != nil {
		return models.QuestionTally{}, c.storeErr(ctx, "list votes", err, sess.Code)
	}
	participants, err := c.store.CountParticipants(ctx, sess.Code)
	if err != nil {
		return models.QuestionTally{}, c.storeErr(ctx, "count participants", err, sess.Code)
	}
	q := tally.Question(item, votes, participants)

	if c.requireProposer {
		sess.Phase = models.PhaseQuestionClosed
		if err := c.update(ctx, sess); err != nil {
			return q, err
		}
	}

	results := ResultsText(q)
	c.broadcast(ctx, sess, Notification{Text: results, RemoveKeyboard: true})
	c.logger.Info("question closed", "session_code", sess.Code, "question", item.Position, "decision", q.Decision)

	if c.requireProposer {
		names, err := c.store.ProposerNames(ctx, sess.Code)
		if err != nil {
			c.logger.Warn("failed to load proposer names", "session_code", sess.Code, "error", err)
		}
		c.send(ctx, Notification{
			Recipient: sess.AdminID,
			Text:      results + "\n\n" + proposerPrompt(item),
			Options:   names,
		})
		return q, nil
	}

	c.send(ctx, Notification{Recipient: sess.AdminID, Text: results})
	if _, err := c.advance(ctx, sess, agenda); err != nil {
		return q, err
	}
	return q, nil
}

// advance moves the cursor past the closed question.
func (c *Controller) advance(ctx context.Context, sess models.Session, agenda []models.AgendaItem) (*models.AgendaItem, error) {
	sess.CurrentQuestion++
	if sess.CurrentQuestion < len(agenda) {
		sess.Phase = models.PhaseVoting
		if err := c.update(ctx, sess); err != nil {
			return nil, err
		}
		c.openQuestion(ctx, sess, agenda)
		next := agenda[sess.CurrentQuestion]
		return &next, nil
	}

	sess.Phase = models.PhaseAllQuestionsDone
	if err := c.update(ctx, sess); err != nil {
		return nil, err
	}
	c.send(ctx, Notification{Recipient: sess.AdminID, Text: allDoneText, Options: []string{ButtonEndSession}})
	c.logger.Info("all questions done", "session_code", sess.Code)
	return nil, nil
}

// openQuestion sends the current question to participants and the admin.
func (c *Controller) openQuestion(ctx context.Context, sess models.Session, agenda []models.AgendaItem) {
	item := agenda[sess.CurrentQuestion]
	text := questionText(item, len(agenda))

	adminVotes := false
	participants, err := c.store.ListParticipants(ctx, sess.Code)
	if err != nil {
		c.logger.Error("failed to list participants", "session_code", sess.Code, "error", err)
	}
	for _, p := range participants {
		if p.UserID == sess.AdminID {
			adminVotes = true
			continue
		}
		c.send(ctx, Notification{Recipient: p.UserID, Text: text, Options: VoteOptions(item.Position)})
	}

	controls := []string{ForceCloseButton(item.Position), ButtonEndSession}
	if adminVotes {
		controls = append(VoteOptions(item.Position), controls...)
	}
	c.send(ctx, Notification{Recipient: sess.AdminID, Text: text, Options: controls})
}

// Helpers

func (c *Controller) load(ctx context.Context, code int) (models.Session, error) {
	sess, err := c.store.GetSession(ctx, code)
	if errors.Is(err, store.ErrNotFound) {
		return models.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return models.Session{}, c.fail(ctx, "get session", err, "session_code", code)
	}
	return sess, nil
}

func (c *Controller) adminSession(ctx context.Context, actorID int64, code int) (models.Session, error) {
	sess, err := c.load(ctx, code)
	if err != nil {
		return sess, err
	}
	if !sess.IsAdmin(actorID) {
		return sess, ErrNotAdmin
	}
	return sess, nil
}

func (c *Controller) agenda(ctx context.Context, code int) ([]models.AgendaItem, error) {
	agenda, err := c.store.ListAgenda(ctx, code)
	if err != nil {
		return nil, c.storeErr(ctx, "list agenda", err, code)
	}
	return agenda, nil
}

func (c *Controller) update(ctx context.Context, sess models.Session) error {
	if err := c.store.UpdateSession(ctx, sess); err != nil {
		return c.storeErr(ctx, "update session", err, sess.Code)
	}
	return nil
}

func (c *Controller) finalTally(ctx context.Context, code int) (models.FinalTally, error) {
	agenda, err := c.agenda(ctx, code)
	if err != nil {
		return models.FinalTally{}, err
	}
	votes, err := c.store.ListSessionVotes(ctx, code)
	if err != nil {
		return models.FinalTally{}, c.storeErr(ctx, "list session votes", err, code)
	}
	participants, err := c.store.CountParticipants(ctx, code)
	if err != nil {
		return models.FinalTally{}, c.storeErr(ctx, "count participants", err, code)
	}
	return tally.Final(code, agenda, votes, participants), nil
}

// storeErr maps store.ErrNotFound to a missing session and wraps anything else.
func (c *Controller) storeErr(ctx context.Context, op string, err error, code int) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return c.fail(ctx, op, err, "session_code", code)
}

// fail logs the cause and hides it behind ErrOperationFailed.
func (c *Controller) fail(ctx context.Context, op string, err error, attrs ...any) error {
	c.logger.ErrorContext(ctx, "failed to "+op, append(attrs, "error", err)...)
	return fmt.Errorf("%w: %s", ErrOperationFailed, op)
}

func (c *Controller) send(ctx context.Context, n Notification) {
	if err := c.notifier.Notify(ctx, n); err != nil {
		c.logger.Warn("failed to deliver notification", "recipient", n.Recipient, "error", err)
	}
}

// broadcast sends n to every current participant except the admin, who gets
// their own message.
func (c *Controller) broadcast(ctx context.Context, sess models.Session, n Notification) {
	participants, err := c.store.ListParticipants(ctx, sess.Code)
	if err != nil {
		c.logger.Error("failed to list participants", "session_code", sess.Code, "error", err)
		return
	}
	for _, p := range participants {
		if p.UserID == sess.AdminID {
			continue
		}
		n.Recipient = p.UserID
		c.send(ctx, n)
	}
}
