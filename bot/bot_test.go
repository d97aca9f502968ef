// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/councilvote/aitext"
	"github.com/danielhkuo/councilvote/auth"
	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/report"
	"github.com/danielhkuo/councilvote/session"
	"github.com/danielhkuo/councilvote/store/memory"
)

const (
	admin int64 = 1
	alice int64 = 10
	bob   int64 = 11
	salt        = "test-salt"
)

type message struct {
	text    string
	options []string
	remove  bool
}

// fakeSender records everything the bot sends, per chat.
type fakeSender struct {
	mu   sync.Mutex
	msgs map[int64][]message
	docs map[int64][]report.Artifact
}

func newFakeSender() *fakeSender {
	return &fakeSender{msgs: map[int64][]message{}, docs: map[int64][]report.Artifact{}}
}

func (f *fakeSender) Send(_ context.Context, chatID int64, text string, options []string, remove bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs[chatID] = append(f.msgs[chatID], message{text: text, options: options, remove: remove})
	return nil
}

func (f *fakeSender) SendDocument(_ context.Context, chatID int64, doc report.Artifact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[chatID] = append(f.docs[chatID], doc)
	return nil
}

func (f *fakeSender) last(chatID int64) message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.msgs[chatID]
	if len(msgs) == 0 {
		return message{}
	}
	return msgs[len(msgs)-1]
}

func (f *fakeSender) received(chatID int64, substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.msgs[chatID] {
		if strings.Contains(m.text, substr) {
			return true
		}
	}
	return false
}

type harness struct {
	bot    *Bot
	ctrl   *session.Controller
	sender *fakeSender
}

func newHarness(t *testing.T, ai *aitext.Helper, opts ...session.Option) *harness {
	t.Helper()
	sender := newFakeSender()
	opts = append([]session.Option{
		session.WithNotifier(NotifierFor(sender)),
		session.WithCodeGenerator(func() (int, error) { return 483920, nil }),
	}, opts...)
	ctrl := session.NewController(memory.New(), opts...)
	if ai == nil {
		ai = aitext.New(aitext.Config{})
	}
	b := New(Deps{
		Controller:   ctrl,
		Registry:     session.NewRegistry(ctrl),
		Reports:      report.NewCompiler(ctrl, nil),
		AI:           ai,
		Sender:       sender,
		AdminKeySalt: salt,
	})
	return &harness{bot: b, ctrl: ctrl, sender: sender}
}

// say delivers text from user in their private chat.
func (h *harness) say(user int64, texts ...string) {
	for _, text := range texts {
		h.bot.Handle(context.Background(), Update{UserID: user, ChatID: user, Text: text})
	}
}

// setup creates "Board Q1" with two agenda items and two joined participants.
func (h *harness) setup(t *testing.T) {
	t.Helper()
	h.say(admin, "/create_session", "Board Q1", "p1", "Budget\nElections")
	h.say(alice, "/join", "483920", "p1", "Alice")
	h.say(bob, "/join 483920", "p1", "Bob")
	require.True(t, h.sender.received(alice, "You joined"))
	require.True(t, h.sender.received(bob, "You joined"))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		in   string
		want Event
	}{
		{"/start", Start{}},
		{"/help@CouncilVoteBot", Help{}},
		{"/join 483920", JoinSession{Code: "483920"}},
		{"/join", JoinSession{}},
		{"/END", EndSession{}},
		{"/frobnicate", Unknown{Command: "frobnicate"}},
		{"For", Vote{Choice: models.ChoiceFor}},
		{"За", Vote{Choice: models.ChoiceFor}},
		{"Проти", Vote{Choice: models.ChoiceAgainst}},
		{"Утримаюсь", Vote{Choice: models.ChoiceAbstain}},
		{"Утримався", Vote{Choice: models.ChoiceAbstain}},
		{"For #2", Vote{Choice: models.ChoiceFor, Question: 2}},
		{"Проти #3", Vote{Choice: models.ChoiceAgainst, Question: 3}},
		{"For #x", Text{Body: "For #x"}},
		{session.ButtonForceClose, ForceClose{}},
		{"Close voting on question 2", ForceClose{Question: 2}},
		{"/close 3", ForceClose{Question: 3}},
		{"/close", ForceClose{}},
		{session.ButtonEndSession, EndSession{}},
		{ButtonStartVoting, StartVoting{}},
		{ButtonJoinSession, JoinSession{}},
		{"  Carol  ", Text{Body: "Carol"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.in))
		})
	}
}

func TestFullMeeting(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	h.say(admin, "/create_session", "Board Q1", "p1")
	created := h.sender.last(admin).text
	assert.Contains(t, created, "Code: 483920")
	assert.Contains(t, created, "Password: p1")
	assert.Contains(t, created, auth.GenerateAdminKey(483920, salt))

	h.say(admin, "Budget\nElections")
	agenda := h.sender.last(admin)
	assert.Contains(t, agenda.text, "1. Budget\n2. Elections")
	assert.Equal(t, adminMenu, agenda.options)

	h.say(alice, "/join", "483920", "p1", "Alice")
	assert.Contains(t, h.sender.last(alice).text, `You joined "Board Q1"`)

	h.say(bob, "/join 483920", "wrong")
	assert.Equal(t, "Wrong password. Try again.", h.sender.last(bob).text)
	h.say(bob, "p1", "Bob")
	assert.Contains(t, h.sender.last(bob).text, "You joined")

	h.say(admin, ButtonStartVoting)
	q1 := h.sender.last(alice)
	assert.Contains(t, q1.text, "Question 1 of 2:\nBudget")
	assert.Equal(t, session.VoteOptions(1), q1.options)

	h.say(alice, "For")
	assert.Equal(t, "Your vote is recorded: For.", h.sender.last(alice).text)
	h.say(alice, "Against")
	assert.Equal(t, "Your vote was changed to: Against.", h.sender.last(alice).text)
	h.say(alice, "За")

	h.say(bob, "Проти")
	assert.Contains(t, h.sender.last(bob).text, "Voting on question 1 is closed")
	assert.Contains(t, h.sender.last(admin).text, "Who proposed question 1")

	h.say(admin, "Carol")
	assert.Contains(t, h.sender.last(alice).text, "Question 2 of 2:\nElections")
	assert.Contains(t, h.sender.last(admin).text, `How should "Carol" read`)

	h.say(admin, "Carol S.")
	assert.Equal(t, "Saved.", h.sender.last(admin).text)
	nf, err := h.ctrl.GetNameForm(ctx, admin, "Carol")
	require.NoError(t, err)
	assert.Equal(t, "Carol S.", nf.Genitive)

	h.say(admin, session.ButtonEndSession)
	assert.Contains(t, h.sender.last(alice).text, `Session "Board Q1" has ended`)
	require.Len(t, h.sender.docs[admin], 2)
	assert.Contains(t, string(h.sender.docs[admin][0].Body), "Carol S., who proposed: Budget")

	sess, err := h.ctrl.GetSession(ctx, 483920)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseClosed, sess.Phase)
}

func TestStaleButtonsAfterAdvance(t *testing.T) {
	h := newHarness(t, nil, session.WithProposerGate(false))
	ctx := context.Background()
	h.setup(t)
	h.say(admin, ButtonStartVoting)
	require.Contains(t, h.sender.last(admin).options, "Close voting on question 1")

	h.say(alice, "For #1")
	h.say(admin, "Close voting on question 1")
	require.Contains(t, h.sender.last(alice).text, "Question 2 of 2:\nElections")
	assert.Equal(t, session.VoteOptions(2), h.sender.last(alice).options)

	// A second tap on the old close button leaves question 2 open
	h.say(admin, "Close voting on question 1")
	assert.Equal(t, "Voting on this question is not open.", h.sender.last(admin).text)
	sess, err := h.ctrl.GetSession(ctx, 483920)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseVoting, sess.Phase)
	assert.Equal(t, 1, sess.CurrentQuestion)

	// So does a vote from the old keyboard
	h.say(bob, "Against #1")
	assert.Equal(t, "Voting on this question is not open.", h.sender.last(bob).text)

	h.say(bob, "Against #2")
	assert.Equal(t, "Your vote is recorded: Against.", h.sender.last(bob).text)
	assert.Equal(t, session.VoteOptions(2), h.sender.last(bob).options)

	tally, err := h.ctrl.GetFinalTally(ctx, 483920)
	require.NoError(t, err)
	assert.Equal(t, models.Counts{For: 1, NotVoted: 1, Participants: 2}, tally.Questions[0].Counts)
	assert.Equal(t, 1, tally.Questions[1].Counts.Against)
}

func TestJoinCodeRetries(t *testing.T) {
	h := newHarness(t, nil)
	h.say(admin, "/create_session", "Board", "pw", "A")

	h.say(alice, "/join", "12")
	assert.Contains(t, h.sender.last(alice).text, "6 digits")
	h.say(alice, "999998")
	assert.Contains(t, h.sender.last(alice).text, "Session not found")
	h.say(alice, "483920")
	assert.Equal(t, "Enter the session password:", h.sender.last(alice).text)
}

func TestDuplicateAgendaRetry(t *testing.T) {
	h := newHarness(t, nil)
	h.say(admin, "/create_session", "Board", "pw", "Budget\nBudget")
	assert.Contains(t, h.sender.last(admin).text, "These agenda items are repeated: Budget")

	h.say(admin, "Budget\nElections")
	assert.Contains(t, h.sender.last(admin).text, "2. Elections")
}

func TestErrorReplies(t *testing.T) {
	h := newHarness(t, nil)

	h.say(alice, "For")
	assert.Equal(t, "You are not in a session. Use /create_session or /join.", h.sender.last(alice).text)

	h.setup(t)
	h.say(alice, session.ButtonForceClose)
	assert.Equal(t, "Only the session admin can do this.", h.sender.last(alice).text)

	h.say(alice, "For")
	assert.Equal(t, "Voting on this question is not open.", h.sender.last(alice).text)

	h.say(admin, session.ButtonForceClose)
	assert.Equal(t, "Voting on this question is not open.", h.sender.last(admin).text)

	h.say(alice, "/frobnicate")
	assert.Contains(t, h.sender.last(alice).text, "Unknown command /frobnicate")
}

func TestCancelAbortsWizard(t *testing.T) {
	h := newHarness(t, nil)
	h.say(admin, "/create_session", "/cancel")
	assert.Equal(t, "Cancelled.", h.sender.last(admin).text)

	h.say(admin, "Board")
	assert.Contains(t, h.sender.last(admin).text, "I did not understand")
}

func TestVoteDuringGenitivePrompt(t *testing.T) {
	h := newHarness(t, nil)
	h.say(admin, "/create_session", "Board", "pw", "A\nB")
	h.say(admin, "/join 483920", "pw", "Chair")
	h.say(admin, ButtonStartVoting, "For")
	require.Contains(t, h.sender.last(admin).text, "Who proposed question 1")

	h.say(admin, "Olena")
	require.Contains(t, h.sender.last(admin).text, `How should "Olena" read`)

	// A vote button still counts as a vote while the name form is pending
	h.say(admin, "For")
	assert.Contains(t, h.sender.last(admin).text, "Who proposed question 2")

	// The pending answer is now the next proposer
	h.say(admin, "Taras")
	agenda, err := h.ctrl.GetAgenda(context.Background(), 483920)
	require.NoError(t, err)
	assert.Equal(t, "Olena", agenda[0].Proposer)
	assert.Equal(t, "Taras", agenda[1].Proposer)
}

func TestLeave(t *testing.T) {
	h := newHarness(t, nil)
	h.setup(t)

	h.say(bob, "/leave")
	assert.Equal(t, `You left "Board Q1".`, h.sender.last(bob).text)
	h.say(bob, "/info")
	assert.Equal(t, "You are not in a session. Use /create_session or /join.", h.sender.last(bob).text)

	h.say(admin, "/leave")
	require.Len(t, h.sender.docs[admin], 2)
	assert.Contains(t, h.sender.last(alice).text, "has ended")
}

func TestInfo(t *testing.T) {
	h := newHarness(t, nil)
	h.setup(t)
	h.say(admin, ButtonStartVoting)

	h.say(alice, "/info")
	info := h.sender.last(alice).text
	assert.Contains(t, info, `Session "Board Q1" (code 483920)`)
	assert.Contains(t, info, "Participants: 2")
	assert.Contains(t, info, "Open question: 1. Budget")
	assert.NotContains(t, info, "You are the admin")

	h.say(admin, ButtonInfo)
	assert.Contains(t, h.sender.last(admin).text, "You are the admin")
}

func TestCouncilAndProtocolWizards(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.say(admin, "/council", "Youth Council", "Lviv", "-", "Maria", "Petro")
	assert.Contains(t, h.sender.last(admin).text, "Council details saved")

	info, err := h.ctrl.GetCouncilInfo(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, models.CouncilInfo{AdminID: admin, Name: "Youth Council", City: "Lviv", Chair: "Maria", Secretary: "Petro"}, info)

	h.say(admin, "/protocol")
	assert.Contains(t, h.sender.last(admin).text, "You are not in a session")

	h.say(admin, "/create_session", "Board", "pw", "A")
	h.say(admin, "/protocol", "7", "extraordinary")
	assert.Equal(t, "Protocol details saved.", h.sender.last(admin).text)
	sess, err := h.ctrl.GetSession(ctx, 483920)
	require.NoError(t, err)
	assert.Equal(t, "7", sess.ProtocolNumber)
	assert.Equal(t, "extraordinary", sess.SessionType)
}

func TestPost(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, nil)
		h.say(admin, "/create_session", "Board", "pw", "A", "/post")
		assert.Equal(t, "Post drafting is not configured on this bot.", h.sender.last(admin).text)
	})

	t.Run("generated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"output_text":"The council met today."}`))
		}))
		defer srv.Close()

		h := newHarness(t, aitext.New(aitext.Config{APIKey: "k", URL: srv.URL}))
		h.say(admin, "/create_session", "Board", "pw", "A", "/post", "-")
		assert.Equal(t, "The council met today.", h.sender.last(admin).text)
	})
}

func TestStats(t *testing.T) {
	h := newHarness(t, nil)
	h.say(alice, "/stats")
	assert.Contains(t, h.sender.last(alice).text, "No statistics yet")

	h.setup(t)
	h.say(alice, "/stats")
	stats := h.sender.last(alice).text
	assert.Contains(t, stats, "Name: Alice")
	assert.Contains(t, stats, "Sessions joined: 1")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Equal(t, []string{"line one\n", "line two"}, splitMessage("line one\nline two", 10))
	assert.Equal(t, []string{"abcdefghij", "klm"}, splitMessage("abcdefghijklm", 10))

	long := strings.Repeat("я", 25)
	parts := splitMessage(long, 10)
	assert.Len(t, parts, 3)
	assert.Equal(t, long, strings.Join(parts, ""))
}
