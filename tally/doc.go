// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package tally computes per-question vote counts and decisions.

All functions are pure: they take votes and the live participant count and
return models.Counts, models.QuestionTally, or models.FinalTally.

# Counting

Each choice is counted exactly. NotVoted is the participant count minus the
number of distinct voters, clamped at zero because a participant who voted and
then left is no longer counted as a participant.

# Decision

A question is adopted when strictly more than half of the participants voted
for it:

	adopted = For*2 > Participants

Abstentions and absences therefore count against adoption.
*/
package tally
