// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielhkuo/councilvote/models"
)

func votes(choices ...models.Choice) []models.Vote {
	out := make([]models.Vote, len(choices))
	for i, c := range choices {
		out[i] = models.Vote{AgendaItemID: 1, UserID: int64(i + 1), Choice: c}
	}
	return out
}

func TestCount(t *testing.T) {
	F, A, S := models.ChoiceFor, models.ChoiceAgainst, models.ChoiceAbstain

	tests := []struct {
		name         string
		votes        []models.Vote
		participants int
		want         models.Counts
	}{
		{
			name:         "no votes",
			votes:        nil,
			participants: 4,
			want:         models.Counts{NotVoted: 4, Participants: 4},
		},
		{
			name:         "mixed",
			votes:        votes(F, F, F, A, S),
			participants: 5,
			want:         models.Counts{For: 3, Against: 1, Abstain: 1, NotVoted: 0, Participants: 5},
		},
		{
			name:         "partial turnout",
			votes:        votes(F, A),
			participants: 5,
			want:         models.Counts{For: 1, Against: 1, NotVoted: 3, Participants: 5},
		},
		{
			name:         "voters left after voting clamps not voted",
			votes:        votes(F, F, A),
			participants: 1,
			want:         models.Counts{For: 2, Against: 1, NotVoted: 0, Participants: 1},
		},
		{
			name:         "unknown choice ignored",
			votes:        []models.Vote{{UserID: 1, Choice: "maybe"}, {UserID: 2, Choice: F}},
			participants: 2,
			want:         models.Counts{For: 1, NotVoted: 1, Participants: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Count(tt.votes, tt.participants))
		})
	}
}

func TestCountSumsWithNotVoted(t *testing.T) {
	c := Count(votes(models.ChoiceFor, models.ChoiceAbstain), 6)
	assert.Equal(t, c.Participants, c.For+c.Against+c.Abstain+c.NotVoted)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		counts models.Counts
		want   models.Decision
	}{
		{"3 of 5 for", models.Counts{For: 3, Against: 1, Abstain: 1, Participants: 5}, models.DecisionAdopted},
		{"2 of 5 for", models.Counts{For: 2, Against: 2, Abstain: 1, Participants: 5}, models.DecisionNotAdopted},
		{"exactly half", models.Counts{For: 2, Against: 2, Participants: 4}, models.DecisionNotAdopted},
		{"absences count against", models.Counts{For: 2, NotVoted: 3, Participants: 5}, models.DecisionNotAdopted},
		{"no participants", models.Counts{}, models.DecisionNotAdopted},
		{"unanimous", models.Counts{For: 1, Participants: 1}, models.DecisionAdopted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.counts))
		})
	}
}

func TestFinal(t *testing.T) {
	items := []models.AgendaItem{
		{ID: 10, Position: 1, Description: "Budget", Proposer: "Olena"},
		{ID: 11, Position: 2, Description: "Elections"},
	}
	byItem := map[int64][]models.Vote{
		10: {
			{AgendaItemID: 10, UserID: 1, Choice: models.ChoiceFor},
			{AgendaItemID: 10, UserID: 2, Choice: models.ChoiceFor},
		},
	}

	got := Final(483920, items, byItem, 3)

	assert.Equal(t, 483920, got.SessionCode)
	assert.Len(t, got.Questions, 2)

	q1 := got.Questions[0]
	assert.Equal(t, "Budget", q1.Description)
	assert.Equal(t, "Olena", q1.Proposer)
	assert.Equal(t, models.Counts{For: 2, NotVoted: 1, Participants: 3}, q1.Counts)
	assert.Equal(t, models.DecisionAdopted, q1.Decision)

	q2 := got.Questions[1]
	assert.Equal(t, models.Counts{NotVoted: 3, Participants: 3}, q2.Counts)
	assert.Equal(t, models.DecisionNotAdopted, q2.Decision)

	byDesc := got.ByDescription()
	assert.Equal(t, 2, byDesc["Budget"].For)
	assert.Equal(t, 3, byDesc["Elections"].NotVoted)
}
