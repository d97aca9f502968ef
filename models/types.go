package models

import (
	"strings"
	"time"
)

// Phase is the position of a session in its voting lifecycle.
type Phase string

// Session phase constants
const (
	PhaseCreated          Phase = "created"
	PhaseAgendaSet        Phase = "agenda_set"
	PhaseVoting           Phase = "voting"
	PhaseQuestionClosed   Phase = "question_closed"
	PhaseAllQuestionsDone Phase = "all_questions_done"
	PhaseClosed           Phase = "closed"
)

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseCreated, PhaseAgendaSet, PhaseVoting, PhaseQuestionClosed, PhaseAllQuestionsDone, PhaseClosed:
		return true
	}
	return false
}

// Choice is a single vote value.
type Choice string

// Vote choice constants
const (
	ChoiceFor     Choice = "for"
	ChoiceAgainst Choice = "against"
	ChoiceAbstain Choice = "abstain"
)

// Choices lists the vote options in the order they are offered to voters.
var Choices = []Choice{ChoiceFor, ChoiceAgainst, ChoiceAbstain}

// ParseChoice maps a stored value or a button label to a Choice.
// Ukrainian labels are accepted for sessions created from the legacy keyboards.
func ParseChoice(s string) (Choice, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "for", "yes", "за":
		return ChoiceFor, true
	case "against", "no", "проти":
		return ChoiceAgainst, true
	case "abstain", "утримаюсь", "утримався":
		return ChoiceAbstain, true
	}
	return "", false
}

// Label is the button text shown to voters.
func (c Choice) Label() string {
	switch c {
	case ChoiceFor:
		return "For"
	case ChoiceAgainst:
		return "Against"
	case ChoiceAbstain:
		return "Abstain"
	}
	return string(c)
}

// Decision is the outcome of a closed question.
type Decision string

// Decision constants
const (
	DecisionAdopted    Decision = "adopted"
	DecisionNotAdopted Decision = "not_adopted"
)

// Domain types

// Session is one voting meeting. Active marks the owner's current session and is
// independent of Phase.
type Session struct {
	Code            int       `json:"code"`
	Name            string    `json:"name"`
	Password        string    `json:"-"` // Never expose in JSON
	AdminID         int64     `json:"admin_id"`
	Active          bool      `json:"active"`
	Phase           Phase     `json:"phase"`
	CurrentQuestion int       `json:"current_question"`
	ProtocolNumber  string    `json:"protocol_number,omitempty"`
	SessionType     string    `json:"session_type,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// IsAdmin reports whether userID owns the session.
func (s Session) IsAdmin(userID int64) bool {
	return s.AdminID == userID
}

type AgendaItem struct {
	ID          int64  `json:"id"`
	SessionCode int    `json:"session_code"`
	Description string `json:"description"`
	Position    int    `json:"position"` // 1-indexed
	Proposer    string `json:"proposer,omitempty"`
	Manual      string `json:"manual,omitempty"`
}

type Vote struct {
	AgendaItemID int64     `json:"agenda_item_id"`
	UserID       int64     `json:"user_id"`
	Choice       Choice    `json:"choice"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Participant struct {
	SessionCode int       `json:"session_code"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	JoinedAt    time.Time `json:"joined_at"`
}

// CouncilInfo is the organizational profile an admin attaches to their protocols.
type CouncilInfo struct {
	AdminID   int64  `json:"admin_id"`
	Name      string `json:"name"`
	City      string `json:"city"`
	Region    string `json:"region"`
	Chair     string `json:"chair"`
	Secretary string `json:"secretary"`
}

// NameForm caches the genitive form of a person's name per admin.
type NameForm struct {
	AdminID  int64  `json:"admin_id"`
	Name     string `json:"name"`
	Genitive string `json:"genitive"`
}

type UserStats struct {
	UserID             int64  `json:"user_id"`
	Name               string `json:"name"`
	ParticipationCount int    `json:"participation_count"`
	AdminCount         int    `json:"admin_count"`
}

// Tally types

type Counts struct {
	For          int `json:"for"`
	Against      int `json:"against"`
	Abstain      int `json:"abstain"`
	NotVoted     int `json:"not_voted"`
	Participants int `json:"participants"`
}

type QuestionTally struct {
	Position    int      `json:"position"`
	Description string   `json:"description"`
	Proposer    string   `json:"proposer,omitempty"`
	Counts      Counts   `json:"counts"`
	Decision    Decision `json:"decision"`
}

type FinalTally struct {
	SessionCode  int             `json:"session_code"`
	Participants int             `json:"participants"`
	Questions    []QuestionTally `json:"questions"`
}

// ByDescription indexes the tally by question text.
func (t FinalTally) ByDescription() map[string]Counts {
	out := make(map[string]Counts, len(t.Questions))
	for _, q := range t.Questions {
		out[q.Description] = q.Counts
	}
	return out
}
