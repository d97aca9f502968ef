// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package bot

import (
	"strconv"
	"strings"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/session"
)

// Menu buttons. Vote and admin control labels come from package session.
const (
	ButtonCreateSession = "Create session"
	ButtonJoinSession   = "Join session"
	ButtonStartVoting   = "Start voting"
	ButtonChangeAgenda  = "Change agenda"
	ButtonInfo          = "Session info"
)

// Update is one inbound chat message, independent of the transport.
type Update struct {
	UserID int64
	ChatID int64
	Text   string
}

// Event is the decoded intent of an Update.
type Event interface {
	isEvent()
}

type (
	Start         struct{}
	Help          struct{}
	CreateSession struct{}
	// JoinSession carries the code when it was given inline: /join 483920.
	JoinSession struct{ Code string }
	StartVoting struct{}
	// Vote and ForceClose carry the 1-based question number printed on the
	// button, or 0 when the user typed a bare label.
	Vote struct {
		Choice   models.Choice
		Question int
	}
	ForceClose   struct{ Question int }
	ChangeAgenda struct{}
	EndSession   struct{}
	Leave        struct{}
	Info         struct{}
	Report       struct{}
	Post         struct{}
	Stats        struct{}
	Council      struct{}
	Protocol     struct{}
	Cancel       struct{}
	// Unknown is a slash command the bot does not know.
	Unknown struct{ Command string }
	Text    struct{ Body string }
)

func (Start) isEvent()         {}
func (Help) isEvent()          {}
func (CreateSession) isEvent() {}
func (JoinSession) isEvent()   {}
func (StartVoting) isEvent()   {}
func (Vote) isEvent()          {}
func (ForceClose) isEvent()    {}
func (ChangeAgenda) isEvent()  {}
func (EndSession) isEvent()    {}
func (Leave) isEvent()         {}
func (Info) isEvent()          {}
func (Report) isEvent()        {}
func (Post) isEvent()          {}
func (Stats) isEvent()         {}
func (Council) isEvent()       {}
func (Protocol) isEvent()      {}
func (Cancel) isEvent()        {}
func (Unknown) isEvent()       {}
func (Text) isEvent()          {}

var commands = map[string]func(args string) Event{
	"start":          func(string) Event { return Start{} },
	"help":           func(string) Event { return Help{} },
	"create_session": func(string) Event { return CreateSession{} },
	"join":           func(args string) Event { return JoinSession{Code: args} },
	"start_voting":   func(string) Event { return StartVoting{} },
	"close":          func(args string) Event { return ForceClose{Question: questionNumber(args)} },
	"agenda":         func(string) Event { return ChangeAgenda{} },
	"end":            func(string) Event { return EndSession{} },
	"leave":          func(string) Event { return Leave{} },
	"info":           func(string) Event { return Info{} },
	"report":         func(string) Event { return Report{} },
	"post":           func(string) Event { return Post{} },
	"stats":          func(string) Event { return Stats{} },
	"council":        func(string) Event { return Council{} },
	"protocol":       func(string) Event { return Protocol{} },
	"cancel":         func(string) Event { return Cancel{} },
}

var buttons = map[string]Event{
	ButtonCreateSession:      CreateSession{},
	ButtonJoinSession:        JoinSession{},
	ButtonStartVoting:        StartVoting{},
	ButtonChangeAgenda:       ChangeAgenda{},
	ButtonInfo:               Info{},
	session.ButtonForceClose: ForceClose{},
	session.ButtonEndSession: EndSession{},
}

// Decode turns message text into an Event. Commands may carry a @botname
// suffix. Vote buttons are matched in English and Ukrainian, with or without
// the "#N" question suffix.
func Decode(text string) Event {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "/") {
		cmd, args, _ := strings.Cut(text[1:], " ")
		cmd, _, _ = strings.Cut(cmd, "@")
		cmd = strings.ToLower(cmd)
		if fn, ok := commands[cmd]; ok {
			return fn(strings.TrimSpace(args))
		}
		return Unknown{Command: cmd}
	}

	if ev, ok := buttons[text]; ok {
		return ev
	}
	if rest, ok := strings.CutPrefix(text, session.ButtonForceClose+" on question "); ok {
		if n := questionNumber(rest); n > 0 {
			return ForceClose{Question: n}
		}
	}

	label, n := text, 0
	if i := strings.LastIndex(text, " #"); i > 0 {
		if n = questionNumber(text[i+2:]); n > 0 {
			label = text[:i]
		}
	}
	if c, ok := models.ParseChoice(label); ok {
		return Vote{Choice: c, Question: n}
	}
	return Text{Body: text}
}

// questionNumber parses a positive question number, or returns 0.
func questionNumber(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// isCommand reports whether ev came from a slash command or menu button rather
// than free text or a vote button.
func isCommand(ev Event) bool {
	switch ev.(type) {
	case Text, Vote:
		return false
	}
	return true
}
