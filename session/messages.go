// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"fmt"
	"strings"

	"github.com/danielhkuo/councilvote/models"
)

// Admin control buttons attached to controller notifications.
// ButtonForceClose is the bare form; the keyboard carries ForceCloseButton.
const (
	ButtonForceClose = "Close voting"
	ButtonEndSession = "End session"
)

// VoteOptions are the reply buttons offered with question position. Each
// label ends in "#position" so a tap on an old keyboard cannot count toward
// a later question.
func VoteOptions(position int) []string {
	opts := make([]string, len(models.Choices))
	for i, c := range models.Choices {
		opts[i] = VoteButton(c, position)
	}
	return opts
}

// VoteButton labels the button for choice on question position.
func VoteButton(c models.Choice, position int) string {
	return fmt.Sprintf("%s #%d", c.Label(), position)
}

// ForceCloseButton labels the admin's close button for question position.
func ForceCloseButton(position int) string {
	return fmt.Sprintf("%s on question %d", ButtonForceClose, position)
}

func questionText(item models.AgendaItem, total int) string {
	return fmt.Sprintf("Question %d of %d:\n%s", item.Position, total, item.Description)
}

func decisionText(d models.Decision) string {
	if d == models.DecisionAdopted {
		return "ADOPTED"
	}
	return "NOT ADOPTED"
}

// ResultsText renders one closed question.
func ResultsText(q models.QuestionTally) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Voting on question %d is closed: %s\n", q.Position, q.Description)
	fmt.Fprintf(&b, "For: %d\n", q.Counts.For)
	fmt.Fprintf(&b, "Against: %d\n", q.Counts.Against)
	fmt.Fprintf(&b, "Abstain: %d\n", q.Counts.Abstain)
	fmt.Fprintf(&b, "Did not vote: %d\n", q.Counts.NotVoted)
	fmt.Fprintf(&b, "Decision: %s", decisionText(q.Decision))
	return b.String()
}

// SummaryText renders the whole session result.
func SummaryText(name string, t models.FinalTally) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %q results (%d participants)\n", name, t.Participants)
	if len(t.Questions) == 0 {
		b.WriteString("No agenda items.")
		return b.String()
	}
	for _, q := range t.Questions {
		fmt.Fprintf(&b, "\n%d. %s\n   for %d, against %d, abstain %d, did not vote %d: %s",
			q.Position, q.Description,
			q.Counts.For, q.Counts.Against, q.Counts.Abstain, q.Counts.NotVoted,
			decisionText(q.Decision))
	}
	return b.String()
}

func proposerPrompt(item models.AgendaItem) string {
	return fmt.Sprintf("Who proposed question %d (%s)? Send the name or pick one below.", item.Position, item.Description)
}

const (
	allDoneText       = "All questions have been voted on. Press End session to close the session and get the protocol."
	agendaChangedText = "The agenda was changed. Voting will restart when the admin starts it again."
)

func endedText(name string) string {
	return fmt.Sprintf("Session %q has ended. Thank you for taking part.", name)
}
