// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"github.com/danielhkuo/councilvote/models"
)

// Count tallies votes for a single agenda item against the live participant count.
// Votes are expected to be unique per user; if a caller passes duplicates each one is
// counted in its bucket but the voter is only subtracted from NotVoted once.
func Count(votes []models.Vote, participants int) models.Counts {
	c := models.Counts{Participants: participants}
	voters := make(map[int64]struct{}, len(votes))

	for _, v := range votes {
		switch v.Choice {
		case models.ChoiceFor:
			c.For++
		case models.ChoiceAgainst:
			c.Against++
		case models.ChoiceAbstain:
			c.Abstain++
		default:
			continue
		}
		voters[v.UserID] = struct{}{}
	}

	// Participants who left after voting still count as voters, so clamp at zero
	c.NotVoted = max(0, participants-len(voters))
	return c
}

// Decide applies the majority rule: adopted iff strictly more than half of the
// registered participants voted for. Abstentions and absences count against.
func Decide(c models.Counts) models.Decision {
	if c.For*2 > c.Participants {
		return models.DecisionAdopted
	}
	return models.DecisionNotAdopted
}

// Question computes counts and decision for one agenda item.
func Question(item models.AgendaItem, votes []models.Vote, participants int) models.QuestionTally {
	c := Count(votes, participants)
	return models.QuestionTally{
		Position:    item.Position,
		Description: item.Description,
		Proposer:    item.Proposer,
		Counts:      c,
		Decision:    Decide(c),
	}
}

// Final assembles the session-level tally in agenda order. Items without votes
// get zero counts and NotVoted equal to the participant count.
func Final(code int, items []models.AgendaItem, votesByItem map[int64][]models.Vote, participants int) models.FinalTally {
	out := models.FinalTally{
		SessionCode:  code,
		Participants: participants,
		Questions:    make([]models.QuestionTally, 0, len(items)),
	}
	for _, item := range items {
		out.Questions = append(out.Questions, Question(item, votesByItem[item.ID], participants))
	}
	return out
}
