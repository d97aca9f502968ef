// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/session"
)

const welcomeText = "Hi! I run votes for council meetings.\n\n" +
	"Create a session if you are chairing a meeting, or join one with the code and password you were given."

const helpText = `Participants:
/join - join a session with its code and password
/info - show the current session
/leave - leave the session
/stats - your statistics

Admins:
/create_session - create a session and set its agenda
/start_voting - open the first question
/agenda - replace the agenda
/close - close the open question now
/end - end the session and get the protocol
/report - send the protocol and attendance list again
/protocol - set the protocol number and meeting type
/council - set the council details printed on protocols
/post - draft an announcement of the results

/cancel - stop the current step
/help - this message`

const skip = "-"

// adminMenu is the keyboard shown to an admin between questions.
var adminMenu = []string{ButtonStartVoting, ButtonChangeAgenda, ButtonInfo, session.ButtonEndSession}

var startMenu = []string{ButtonCreateSession, ButtonJoinSession}

// errNoSession is returned when the user has neither created nor joined a session.
var errNoSession = fmt.Errorf("%w: no current session", session.ErrNotFound)

// errorText maps controller errors to chat replies.
func errorText(err error) string {
	var dup *session.DuplicateAgendaError
	switch {
	case errors.As(err, &dup):
		return fmt.Sprintf("These agenda items are repeated: %s. Send the agenda again without duplicates.", strings.Join(dup.Duplicates, ", "))
	case errors.Is(err, errNoSession):
		return "You are not in a session. Use /create_session or /join."
	case errors.Is(err, session.ErrSessionNotFound):
		return "Session not found."
	case errors.Is(err, session.ErrWrongPassword):
		return "Wrong password. Try again."
	case errors.Is(err, session.ErrNotAdmin):
		return "Only the session admin can do this."
	case errors.Is(err, session.ErrNotParticipant):
		return "You are not a participant of this session. Use /join first."
	case errors.Is(err, session.ErrSessionClosed):
		return "This session has ended."
	case errors.Is(err, session.ErrAgendaEmpty):
		return "The agenda is empty. Send at least one item, one per line."
	case errors.Is(err, session.ErrNoProposerPending):
		return "No question is waiting for a proposer."
	case errors.Is(err, session.ErrVotingNotOpen), errors.Is(err, session.ErrQuestionIndexOutOfRange):
		return "Voting on this question is not open."
	case errors.Is(err, session.ErrValidation):
		return capitalizeFirst(strings.TrimPrefix(err.Error(), session.ErrValidation.Error()+": ")) + "."
	case errors.Is(err, session.ErrNotFound):
		return "Not found."
	case errors.Is(err, session.ErrInvalidState):
		return "That is not possible right now."
	}
	return "Something went wrong. Please try again later."
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func createdText(sess models.Session, adminKey string, superseded []int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %q created.\nCode: %d\nPassword: %s\n", sess.Name, sess.Code, sess.Password)
	fmt.Fprintf(&b, "Admin key for the HTTP API: %s\n", adminKey)
	if len(superseded) > 0 {
		fmt.Fprintf(&b, "Your previous session %d is no longer active.\n", superseded[0])
	}
	b.WriteString("\nNow send the agenda, one item per line.")
	return b.String()
}

func agendaText(items []models.AgendaItem) string {
	var b strings.Builder
	b.WriteString("Agenda:\n")
	for _, it := range items {
		fmt.Fprintf(&b, "%d. %s\n", it.Position, it.Description)
	}
	b.WriteString("\nShare the code and password with participants. Press Start voting when everyone has joined.")
	return b.String()
}

func infoText(info session.Info, isAdmin bool) string {
	var b strings.Builder
	s := info.Session
	fmt.Fprintf(&b, "Session %q (code %d)\n", s.Name, s.Code)
	fmt.Fprintf(&b, "Status: %s\n", phaseText(s.Phase))
	fmt.Fprintf(&b, "Participants: %d\n", info.ParticipantCount)
	if q, ok := info.OpenQuestion(); ok {
		fmt.Fprintf(&b, "Open question: %d. %s\n", q.Position, q.Description)
	}
	if len(info.Agenda) > 0 {
		b.WriteString("\nAgenda:\n")
		for _, it := range info.Agenda {
			fmt.Fprintf(&b, "%d. %s", it.Position, it.Description)
			if it.Proposer != "" {
				fmt.Fprintf(&b, " (proposed by %s)", it.Proposer)
			}
			b.WriteString("\n")
		}
	}
	if isAdmin {
		b.WriteString("\nYou are the admin of this session.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func phaseText(p models.Phase) string {
	switch p {
	case models.PhaseCreated:
		return "waiting for the agenda"
	case models.PhaseAgendaSet:
		return "waiting for voting to start"
	case models.PhaseVoting:
		return "voting"
	case models.PhaseQuestionClosed:
		return "question closed, waiting for the admin"
	case models.PhaseAllQuestionsDone:
		return "all questions voted"
	case models.PhaseClosed:
		return "ended"
	}
	return string(p)
}

func statsText(s models.UserStats) string {
	if s.ParticipationCount == 0 && s.AdminCount == 0 {
		return "No statistics yet. Join or create a session first."
	}
	var b strings.Builder
	if s.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", s.Name)
	}
	fmt.Fprintf(&b, "Sessions joined: %d\n", s.ParticipationCount)
	fmt.Fprintf(&b, "Sessions created: %d", s.AdminCount)
	return b.String()
}

func voteText(c models.Choice, replaced bool) string {
	if replaced {
		return fmt.Sprintf("Your vote was changed to: %s.", c.Label())
	}
	return fmt.Sprintf("Your vote is recorded: %s.", c.Label())
}
