// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/danielhkuo/councilvote/aitext"
	"github.com/danielhkuo/councilvote/auth"
	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/report"
	"github.com/danielhkuo/councilvote/session"
)

// Sender delivers outbound messages. Telegram implements it.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, options []string, removeKeyboard bool) error
	SendDocument(ctx context.Context, chatID int64, doc report.Artifact) error
}

// NotifierFor adapts a Sender to session.Notifier. Users are addressed by
// their private chat, whose ID equals the user ID.
func NotifierFor(s Sender) session.Notifier {
	return session.NotifierFunc(func(ctx context.Context, n session.Notification) error {
		return s.Send(ctx, n.Recipient, n.Text, n.Options, n.RemoveKeyboard)
	})
}

type Deps struct {
	Controller   *session.Controller
	Registry     *session.Registry
	Reports      *report.Compiler
	AI           *aitext.Helper
	Sender       Sender
	AdminKeySalt string
	Logger       *slog.Logger
}

// Bot turns chat updates into controller calls. Handle is safe for concurrent
// use: updates from one user are mutually exclusive, but arrival order is the
// transport's job (Telegram.Run queues them per user).
type Bot struct {
	ctrl    *session.Controller
	reg     *session.Registry
	reports *report.Compiler
	ai      *aitext.Helper
	sender  Sender
	salt    string
	logger  *slog.Logger

	convs     *conversations
	userLocks sync.Map // int64 -> *sync.Mutex
}

func New(d Deps) *Bot {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		ctrl:    d.Controller,
		reg:     d.Registry,
		reports: d.Reports,
		ai:      d.AI,
		sender:  d.Sender,
		salt:    d.AdminKeySalt,
		logger:  logger,
		convs:   newConversations(),
	}
}

func (b *Bot) lockUser(userID int64) func() {
	v, _ := b.userLocks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Handle processes one update. Commands abort any unfinished wizard; other
// input answers the wizard when one is waiting.
func (b *Bot) Handle(ctx context.Context, u Update) {
	unlock := b.lockUser(u.UserID)
	defer unlock()

	ev := Decode(u.Text)
	c := b.convs.get(u.UserID)
	defer func() { b.convs.set(u.UserID, c) }()

	if isCommand(ev) {
		c.reset()
	} else if c.step != stepNone {
		if _, isVote := ev.(Vote); !isVote || c.step.consumesVotes() {
			b.answer(ctx, u, &c, strings.TrimSpace(u.Text))
			return
		}
	}
	b.dispatch(ctx, u, &c, ev)
}

func (b *Bot) dispatch(ctx context.Context, u Update, c *conversation, ev Event) {
	switch e := ev.(type) {
	case Start:
		b.reply(ctx, u, welcomeText, startMenu...)
	case Help:
		b.reply(ctx, u, helpText)
	case Cancel:
		b.replyRemove(ctx, u, "Cancelled.")
	case CreateSession:
		c.step = stepSessionName
		b.replyRemove(ctx, u, "Enter the session name:")
	case JoinSession:
		if e.Code != "" {
			b.answerJoinCode(ctx, u, c, e.Code)
			return
		}
		c.step = stepJoinCode
		b.replyRemove(ctx, u, "Enter the session code:")
	case StartVoting:
		b.onStartVoting(ctx, u, c)
	case Vote:
		b.onVote(ctx, u, c, e)
	case ForceClose:
		b.onForceClose(ctx, u, c, e.Question)
	case ChangeAgenda:
		b.onChangeAgenda(ctx, u, c)
	case EndSession:
		b.onEnd(ctx, u, c)
	case Leave:
		b.onLeave(ctx, u, c)
	case Info:
		b.onInfo(ctx, u, c)
	case Report:
		b.onReport(ctx, u, c)
	case Post:
		b.onPost(ctx, u, c)
	case Stats:
		b.onStats(ctx, u)
	case Council:
		c.step = stepCouncilName
		b.replyRemove(ctx, u, "Enter the council name as it should appear on protocols:")
	case Protocol:
		b.onProtocol(ctx, u, c)
	case Unknown:
		b.reply(ctx, u, fmt.Sprintf("Unknown command /%s. Use /help to see what I can do.", e.Command))
	case Text:
		b.onText(ctx, u, c, e.Body)
	}
}

// answer routes free text to the waiting wizard step.
func (b *Bot) answer(ctx context.Context, u Update, c *conversation, text string) {
	switch c.step {
	case stepSessionName:
		if text == "" || utf8.RuneCountInString(text) > session.MaxNameLength {
			b.reply(ctx, u, fmt.Sprintf("The name must be 1 to %d characters. Enter the session name:", session.MaxNameLength))
			return
		}
		c.name = text
		c.step = stepSessionPassword
		b.reply(ctx, u, "Enter a password participants will use to join:")
	case stepSessionPassword:
		b.answerPassword(ctx, u, c, text)
	case stepAgenda:
		b.answerAgenda(ctx, u, c, text)
	case stepJoinCode:
		b.answerJoinCode(ctx, u, c, text)
	case stepJoinPassword:
		if _, err := b.reg.VerifyPassword(ctx, c.code, text); err != nil {
			b.replyErr(ctx, u, err)
			if !errors.Is(err, session.ErrWrongPassword) {
				c.reset()
			}
			return
		}
		c.step = stepJoinName
		b.reply(ctx, u, "Enter your name as it should appear in the protocol:")
	case stepJoinName:
		b.answerJoinName(ctx, u, c, text)
	case stepGenitive:
		b.answerGenitive(ctx, u, c, text)
	case stepCouncilName, stepCouncilCity, stepCouncilRegion, stepCouncilChair, stepCouncilSecretary:
		b.answerCouncil(ctx, u, c, text)
	case stepProtocolNumber:
		c.protocol = text
		c.step = stepProtocolType
		b.reply(ctx, u, "Enter the meeting type (for example: regular, extraordinary):")
	case stepProtocolType:
		err := b.ctrl.UpdateSessionDetails(ctx, u.UserID, c.code, c.protocol, text)
		c.reset()
		if err != nil {
			b.replyErr(ctx, u, err)
			return
		}
		b.reply(ctx, u, "Protocol details saved.")
	case stepPostNote:
		b.answerPost(ctx, u, c, text)
	}
}

func (b *Bot) answerPassword(ctx context.Context, u Update, c *conversation, password string) {
	res, err := b.ctrl.CreateSession(ctx, c.name, password, u.UserID)
	if err != nil {
		b.replyErr(ctx, u, err)
		if !errors.Is(err, session.ErrValidation) {
			c.reset()
		}
		return
	}
	c.session = res.Session.Code
	c.code = res.Session.Code
	c.step = stepAgenda
	key := auth.GenerateAdminKey(res.Session.Code, b.salt)
	b.reply(ctx, u, createdText(res.Session, key, res.Superseded))
}

func (b *Bot) answerAgenda(ctx context.Context, u Update, c *conversation, text string) {
	items, err := b.ctrl.SetAgenda(ctx, u.UserID, c.code, []string{text})
	if err != nil {
		b.replyErr(ctx, u, err)
		var dup *session.DuplicateAgendaError
		if !errors.As(err, &dup) && !errors.Is(err, session.ErrAgendaEmpty) {
			c.reset()
		}
		return
	}
	c.reset()
	b.reply(ctx, u, agendaText(items), adminMenu...)
}

func (b *Bot) answerJoinCode(ctx context.Context, u Update, c *conversation, text string) {
	code, err := auth.ParseSessionCode(text)
	if err != nil {
		c.step = stepJoinCode
		b.reply(ctx, u, "A session code is 6 digits. Enter it again:")
		return
	}
	sess, err := b.ctrl.GetSession(ctx, code)
	if errors.Is(err, session.ErrSessionNotFound) {
		c.step = stepJoinCode
		b.reply(ctx, u, "Session not found. Check the code and enter it again:")
		return
	}
	if err != nil {
		c.reset()
		b.replyErr(ctx, u, err)
		return
	}
	if sess.Phase == models.PhaseClosed {
		c.reset()
		b.replyErr(ctx, u, session.ErrSessionClosed)
		return
	}
	c.code = code
	c.step = stepJoinPassword
	b.replyRemove(ctx, u, "Enter the session password:")
}

func (b *Bot) answerJoinName(ctx context.Context, u Update, c *conversation, name string) {
	code := c.code
	res, err := b.reg.Join(ctx, code, u.UserID, name)
	if err != nil {
		b.replyErr(ctx, u, err)
		if !errors.Is(err, session.ErrValidation) {
			c.reset()
		}
		return
	}
	c.reset()
	c.session = code
	if !res.Added {
		b.reply(ctx, u, "You are already registered in this session.", ButtonInfo)
		return
	}
	b.logger.Info("user joined via chat", "session_code", code, "user_id", u.UserID)
	if res.Session.Phase == models.PhaseVoting {
		// The open question was already sent by the registry.
		return
	}
	b.reply(ctx, u, fmt.Sprintf("You joined %q. Wait for the voting to start.", res.Session.Name), ButtonInfo)
}

// current resolves the session the user works with: the one they last created
// or joined, else the session they own.
func (b *Bot) current(ctx context.Context, u Update, c *conversation) (models.Session, error) {
	if c.session != 0 {
		sess, err := b.ctrl.GetSession(ctx, c.session)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return models.Session{}, err
		}
		c.session = 0
	}
	sess, err := b.ctrl.AdminSession(ctx, u.UserID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return models.Session{}, errNoSession
	}
	if err != nil {
		return models.Session{}, err
	}
	c.session = sess.Code
	return sess, nil
}

func (b *Bot) currentAdmin(ctx context.Context, u Update, c *conversation) (models.Session, error) {
	sess, err := b.current(ctx, u, c)
	if err != nil {
		return sess, err
	}
	if !sess.IsAdmin(u.UserID) {
		return sess, session.ErrNotAdmin
	}
	return sess, nil
}

func (b *Bot) onStartVoting(ctx context.Context, u Update, c *conversation) {
	sess, err := b.currentAdmin(ctx, u, c)
	if err == nil {
		_, err = b.ctrl.StartVoting(ctx, u.UserID, sess.Code)
	}
	if err != nil {
		b.replyErr(ctx, u, err)
	}
}

func (b *Bot) onVote(ctx context.Context, u Update, c *conversation, v Vote) {
	sess, err := b.current(ctx, u, c)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	index := questionIndex(v.Question, sess)
	out, err := b.ctrl.RecordVote(ctx, sess.Code, u.UserID, index, v.Choice)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	if !out.Closed {
		b.reply(ctx, u, voteText(v.Choice, out.Replaced), session.VoteOptions(index+1)...)
	}
}

func (b *Bot) onForceClose(ctx context.Context, u Update, c *conversation, question int) {
	sess, err := b.currentAdmin(ctx, u, c)
	if err == nil {
		_, err = b.ctrl.ForceClose(ctx, u.UserID, sess.Code, questionIndex(question, sess))
	}
	if err != nil {
		b.replyErr(ctx, u, err)
	}
}

// questionIndex maps a 1-based number from a button to a 0-based index. A
// bare label targets whatever question is open.
func questionIndex(question int, sess models.Session) int {
	if question > 0 {
		return question - 1
	}
	return sess.CurrentQuestion
}

func (b *Bot) onChangeAgenda(ctx context.Context, u Update, c *conversation) {
	sess, err := b.currentAdmin(ctx, u, c)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	if sess.Phase == models.PhaseClosed {
		b.replyErr(ctx, u, session.ErrSessionClosed)
		return
	}
	c.code = sess.Code
	c.step = stepAgenda
	msg := "Send the new agenda, one item per line."
	if sess.Phase != models.PhaseCreated && sess.Phase != models.PhaseAgendaSet {
		msg += " Votes on the current agenda will be discarded."
	}
	b.replyRemove(ctx, u, msg)
}

func (b *Bot) onEnd(ctx context.Context, u Update, c *conversation) {
	sess, err := b.currentAdmin(ctx, u, c)
	if err == nil {
		_, err = b.ctrl.EndSession(ctx, u.UserID, sess.Code)
	}
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	b.sendReports(ctx, u, sess.Code)
}

func (b *Bot) onLeave(ctx context.Context, u Update, c *conversation) {
	sess, err := b.current(ctx, u, c)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	res, err := b.reg.Leave(ctx, sess.Code, u.UserID)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	if res.Ended {
		b.sendReports(ctx, u, sess.Code)
		return
	}
	c.session = 0
	b.replyRemove(ctx, u, fmt.Sprintf("You left %q.", sess.Name))
}

func (b *Bot) onInfo(ctx context.Context, u Update, c *conversation) {
	sess, err := b.current(ctx, u, c)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	info, err := b.ctrl.SessionInfo(ctx, sess.Code)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	b.reply(ctx, u, infoText(info, sess.IsAdmin(u.UserID)))
}

func (b *Bot) onReport(ctx context.Context, u Update, c *conversation) {
	sess, err := b.currentAdmin(ctx, u, c)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	b.sendReports(ctx, u, sess.Code)
}

func (b *Bot) onPost(ctx context.Context, u Update, c *conversation) {
	sess, err := b.currentAdmin(ctx, u, c)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	if !b.ai.Enabled() {
		b.reply(ctx, u, "Post drafting is not configured on this bot.")
		return
	}
	c.code = sess.Code
	c.step = stepPostNote
	b.replyRemove(ctx, u, "Send anything the post should mention, or - to skip:")
}

func (b *Bot) answerPost(ctx context.Context, u Update, c *conversation, note string) {
	code := c.code
	c.reset()
	if note == skip {
		note = ""
	}

	sess, err := b.ctrl.GetSession(ctx, code)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	agenda, err := b.ctrl.GetAgenda(ctx, code)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}

	b.reply(ctx, u, "Drafting the post...")
	text, err := b.ai.Generate(ctx, aitext.AnnouncementPrompt(sess, agenda, note))
	if err != nil {
		b.logger.Error("failed to generate post", "session_code", code, "error", err)
		b.reply(ctx, u, "Could not draft the post. Try again later.")
		return
	}
	b.reply(ctx, u, text)
}

func (b *Bot) onStats(ctx context.Context, u Update) {
	stats, err := b.ctrl.UserStats(ctx, u.UserID)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	b.reply(ctx, u, statsText(stats))
}

func (b *Bot) onProtocol(ctx context.Context, u Update, c *conversation) {
	sess, err := b.currentAdmin(ctx, u, c)
	if err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	c.code = sess.Code
	c.step = stepProtocolNumber
	b.replyRemove(ctx, u, "Enter the protocol number:")
}

func (b *Bot) answerCouncil(ctx context.Context, u Update, c *conversation, text string) {
	value := text
	if value == skip {
		value = ""
	}
	switch c.step {
	case stepCouncilName:
		if value == "" {
			b.reply(ctx, u, "The council name is required. Enter it:")
			return
		}
		c.council = models.CouncilInfo{AdminID: u.UserID, Name: value}
		c.step = stepCouncilCity
		b.reply(ctx, u, "Enter the city (or - to skip):")
	case stepCouncilCity:
		c.council.City = value
		c.step = stepCouncilRegion
		b.reply(ctx, u, "Enter the region (or - to skip):")
	case stepCouncilRegion:
		c.council.Region = value
		c.step = stepCouncilChair
		b.reply(ctx, u, "Enter the chair's name (or - to skip):")
	case stepCouncilChair:
		c.council.Chair = value
		c.step = stepCouncilSecretary
		b.reply(ctx, u, "Enter the secretary's name (or - to skip):")
	case stepCouncilSecretary:
		c.council.Secretary = value
		info := c.council
		c.reset()
		if err := b.ctrl.SaveCouncilInfo(ctx, info); err != nil {
			b.replyErr(ctx, u, err)
			return
		}
		b.reply(ctx, u, "Council details saved. They will appear on your protocols.")
	}
}

// onText handles free text outside a wizard. For an admin whose question is
// waiting for a proposer, the text is the proposer's name.
func (b *Bot) onText(ctx context.Context, u Update, c *conversation, text string) {
	sess, err := b.current(ctx, u, c)
	if err != nil || !sess.IsAdmin(u.UserID) || sess.Phase != models.PhaseQuestionClosed {
		b.reply(ctx, u, "I did not understand that. Use /help to see what I can do.")
		return
	}
	b.supplyProposer(ctx, u, c, sess, text)
}

func (b *Bot) supplyProposer(ctx context.Context, u Update, c *conversation, sess models.Session, name string) {
	if _, err := b.ctrl.SupplyProposer(ctx, u.UserID, sess.Code, name); err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	name = strings.TrimSpace(name)

	_, err := b.ctrl.GetNameForm(ctx, u.UserID, name)
	if err == nil {
		return
	}
	if !errors.Is(err, session.ErrNotFound) {
		b.logger.Warn("failed to look up name form", "admin_id", u.UserID, "error", err)
		return
	}
	c.step = stepGenitive
	c.proposer = name
	b.reply(ctx, u, fmt.Sprintf("How should %q read in the protocol after \"proposed by\"? Send the form, or - to keep it as is.", name))
}

// answerGenitive stores the name form. If another question closed meanwhile,
// the text is taken as that question's proposer instead.
func (b *Bot) answerGenitive(ctx context.Context, u Update, c *conversation, text string) {
	proposer := c.proposer
	c.reset()

	if sess, err := b.current(ctx, u, c); err == nil && sess.IsAdmin(u.UserID) && sess.Phase == models.PhaseQuestionClosed {
		b.supplyProposer(ctx, u, c, sess, text)
		return
	}
	if text == skip {
		return
	}
	if err := b.ctrl.SaveNameForm(ctx, models.NameForm{AdminID: u.UserID, Name: proposer, Genitive: text}); err != nil {
		b.replyErr(ctx, u, err)
		return
	}
	b.reply(ctx, u, "Saved.")
}

func (b *Bot) sendReports(ctx context.Context, u Update, code int) {
	docs, err := b.reports.CompileAll(ctx, code)
	if err != nil {
		b.logger.Error("failed to compile reports", "session_code", code, "error", err)
		b.reply(ctx, u, "Could not build the protocol. Try /report later.")
		return
	}
	for _, d := range docs {
		if err := b.sender.SendDocument(ctx, u.ChatID, d); err != nil {
			b.logger.Warn("failed to send document", "session_code", code, "name", d.Name, "error", err)
		}
	}
}

func (b *Bot) reply(ctx context.Context, u Update, text string, options ...string) {
	if err := b.sender.Send(ctx, u.ChatID, text, options, false); err != nil {
		b.logger.Warn("failed to send reply", "chat_id", u.ChatID, "error", err)
	}
}

func (b *Bot) replyRemove(ctx context.Context, u Update, text string) {
	if err := b.sender.Send(ctx, u.ChatID, text, nil, true); err != nil {
		b.logger.Warn("failed to send reply", "chat_id", u.ChatID, "error", err)
	}
}

func (b *Bot) replyErr(ctx context.Context, u Update, err error) {
	if errors.Is(err, session.ErrOperationFailed) {
		b.logger.Warn("request failed", "user_id", u.UserID, "error", err)
	}
	b.reply(ctx, u, errorText(err))
}
