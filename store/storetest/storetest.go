// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package storetest holds the conformance suite every store.Store implementation runs.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/store"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the full conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAndGetSession", testCreateAndGetSession},
		{"CreateDeactivatesPreviousActive", testCreateDeactivatesPreviousActive},
		{"CreateReplacesSameCode", testCreateReplacesSameCode},
		{"UpdateSession", testUpdateSession},
		{"DeleteSessionCascades", testDeleteSessionCascades},
		{"ListSessionsNewestFirst", testListSessionsNewestFirst},
		{"ReplaceAgendaDropsVotes", testReplaceAgendaDropsVotes},
		{"ProposerNames", testProposerNames},
		{"UpsertVoteOverwrites", testUpsertVoteOverwrites},
		{"UpsertVoteUnknownItem", testUpsertVoteUnknownItem},
		{"AddParticipantIdempotent", testAddParticipantIdempotent},
		{"AddParticipantConcurrent", testAddParticipantConcurrent},
		{"RemoveParticipant", testRemoveParticipant},
		{"Metadata", testMetadata},
		{"UserStats", testUserStats},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func newSession(code int, admin int64) models.Session {
	return models.Session{
		Code:      code,
		Name:      "Board",
		Password:  "pw",
		AdminID:   admin,
		Active:    true,
		Phase:     models.PhaseCreated,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func seed(t *testing.T, s store.Store, code int, admin int64, agenda ...string) []models.AgendaItem {
	t.Helper()
	ctx := context.Background()

	_, err := s.CreateSession(ctx, newSession(code, admin))
	require.NoError(t, err)
	if len(agenda) == 0 {
		return nil
	}
	items, err := s.ReplaceAgenda(ctx, code, agenda)
	require.NoError(t, err)
	return items
}

func testCreateAndGetSession(t *testing.T, s store.Store) {
	ctx := context.Background()

	superseded, err := s.CreateSession(ctx, newSession(483920, 7))
	require.NoError(t, err)
	assert.Empty(t, superseded)

	got, err := s.GetSession(ctx, 483920)
	require.NoError(t, err)
	assert.Equal(t, "Board", got.Name)
	assert.Equal(t, "pw", got.Password)
	assert.Equal(t, int64(7), got.AdminID)
	assert.True(t, got.Active)
	assert.Equal(t, models.PhaseCreated, got.Phase)

	_, err = s.GetSession(ctx, 111111)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	active, err := s.GetAdminSession(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 483920, active.Code)

	_, err = s.GetAdminSession(ctx, 8)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testCreateDeactivatesPreviousActive(t *testing.T, s store.Store) {
	ctx := context.Background()

	seed(t, s, 100001, 7)
	seed(t, s, 100002, 9)

	superseded, err := s.CreateSession(ctx, newSession(100003, 7))
	require.NoError(t, err)
	assert.Equal(t, []int{100001}, superseded)

	old, err := s.GetSession(ctx, 100001)
	require.NoError(t, err)
	assert.False(t, old.Active)

	other, err := s.GetSession(ctx, 100002)
	require.NoError(t, err)
	assert.True(t, other.Active, "another admin's session must stay active")

	active, err := s.GetAdminSession(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 100003, active.Code)
}

func testCreateReplacesSameCode(t *testing.T, s store.Store) {
	ctx := context.Background()

	items := seed(t, s, 200000, 7, "Old question")
	_, err := s.AddParticipant(ctx, models.Participant{SessionCode: 200000, UserID: 1, Name: "Ann"})
	require.NoError(t, err)
	_, err = s.UpsertVote(ctx, models.Vote{AgendaItemID: items[0].ID, UserID: 1, Choice: models.ChoiceFor})
	require.NoError(t, err)

	replacement := newSession(200000, 9)
	replacement.Name = "New"
	_, err = s.CreateSession(ctx, replacement)
	require.NoError(t, err)

	got, err := s.GetSession(ctx, 200000)
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, int64(9), got.AdminID)

	agenda, err := s.ListAgenda(ctx, 200000)
	require.NoError(t, err)
	assert.Empty(t, agenda)

	n, err := s.CountParticipants(ctx, 200000)
	require.NoError(t, err)
	assert.Zero(t, n)

	votes, err := s.ListVotes(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func testUpdateSession(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, 300000, 7)

	sess, err := s.GetSession(ctx, 300000)
	require.NoError(t, err)
	sess.Phase = models.PhaseVoting
	sess.CurrentQuestion = 2
	sess.ProtocolNumber = "14"
	sess.SessionType = "extraordinary"
	sess.Active = false
	require.NoError(t, s.UpdateSession(ctx, sess))

	got, err := s.GetSession(ctx, 300000)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseVoting, got.Phase)
	assert.Equal(t, 2, got.CurrentQuestion)
	assert.Equal(t, "14", got.ProtocolNumber)
	assert.Equal(t, "extraordinary", got.SessionType)
	assert.False(t, got.Active)

	missing := newSession(300001, 7)
	assert.True(t, errors.Is(s.UpdateSession(ctx, missing), store.ErrNotFound))
}

func testDeleteSessionCascades(t *testing.T, s store.Store) {
	ctx := context.Background()

	items := seed(t, s, 400000, 7, "Q1", "Q2")
	_, err := s.AddParticipant(ctx, models.Participant{SessionCode: 400000, UserID: 1, Name: "Ann"})
	require.NoError(t, err)
	_, err = s.UpsertVote(ctx, models.Vote{AgendaItemID: items[1].ID, UserID: 1, Choice: models.ChoiceAgainst})
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(ctx, 400000))

	_, err = s.GetSession(ctx, 400000)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	agenda, err := s.ListAgenda(ctx, 400000)
	require.NoError(t, err)
	assert.Empty(t, agenda)

	votes, err := s.ListVotes(ctx, items[1].ID)
	require.NoError(t, err)
	assert.Empty(t, votes)

	ok, err := s.IsParticipant(ctx, 400000, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, errors.Is(s.DeleteSession(ctx, 400000), store.ErrNotFound))
}

func testListSessionsNewestFirst(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, code := range []int{500001, 500002, 500003} {
		sess := newSession(code, int64(i+1))
		sess.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := s.CreateSession(ctx, sess)
		require.NoError(t, err)
	}

	got, err := s.ListSessions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 500003, got[0].Code)
	assert.Equal(t, 500002, got[1].Code)
}

func testReplaceAgendaDropsVotes(t *testing.T, s store.Store) {
	ctx := context.Background()

	first := seed(t, s, 600000, 7, "Budget", "Elections")
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].Position)
	assert.Equal(t, 2, first[1].Position)

	_, err := s.UpsertVote(ctx, models.Vote{AgendaItemID: first[0].ID, UserID: 1, Choice: models.ChoiceFor})
	require.NoError(t, err)

	second, err := s.ReplaceAgenda(ctx, 600000, []string{"Only"})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Only", second[0].Description)
	assert.Equal(t, 1, second[0].Position)

	old, err := s.ListVotes(ctx, first[0].ID)
	require.NoError(t, err)
	assert.Empty(t, old)

	byItem, err := s.ListSessionVotes(ctx, 600000)
	require.NoError(t, err)
	assert.Empty(t, byItem)

	agenda, err := s.ListAgenda(ctx, 600000)
	require.NoError(t, err)
	assert.Equal(t, second, agenda)

	_, err = s.ReplaceAgenda(ctx, 600001, []string{"x"})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testProposerNames(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, 700000, 7, "Q1", "Q2", "Q3")

	require.NoError(t, s.SetProposer(ctx, 700000, 1, "Olena"))
	require.NoError(t, s.SetProposer(ctx, 700000, 2, "Taras"))
	require.NoError(t, s.SetProposer(ctx, 700000, 3, "Olena"))

	names, err := s.ProposerNames(ctx, 700000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Olena", "Taras"}, names)

	agenda, err := s.ListAgenda(ctx, 700000)
	require.NoError(t, err)
	assert.Equal(t, "Taras", agenda[1].Proposer)

	assert.True(t, errors.Is(s.SetProposer(ctx, 700000, 9, "x"), store.ErrNotFound))
}

func testUpsertVoteOverwrites(t *testing.T, s store.Store) {
	ctx := context.Background()
	items := seed(t, s, 800000, 7, "Q1")
	id := items[0].ID

	replaced, err := s.UpsertVote(ctx, models.Vote{AgendaItemID: id, UserID: 1, Choice: models.ChoiceFor})
	require.NoError(t, err)
	assert.False(t, replaced)

	replaced, err = s.UpsertVote(ctx, models.Vote{AgendaItemID: id, UserID: 1, Choice: models.ChoiceAgainst})
	require.NoError(t, err)
	assert.True(t, replaced)

	_, err = s.UpsertVote(ctx, models.Vote{AgendaItemID: id, UserID: 2, Choice: models.ChoiceAbstain})
	require.NoError(t, err)

	votes, err := s.ListVotes(ctx, id)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, int64(1), votes[0].UserID)
	assert.Equal(t, models.ChoiceAgainst, votes[0].Choice)
	assert.Equal(t, models.ChoiceAbstain, votes[1].Choice)

	byItem, err := s.ListSessionVotes(ctx, 800000)
	require.NoError(t, err)
	assert.Len(t, byItem[id], 2)
}

func testUpsertVoteUnknownItem(t *testing.T, s store.Store) {
	_, err := s.UpsertVote(context.Background(), models.Vote{AgendaItemID: 424242, UserID: 1, Choice: models.ChoiceFor})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testAddParticipantIdempotent(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, 900000, 7)

	added, err := s.AddParticipant(ctx, models.Participant{SessionCode: 900000, UserID: 1, Name: "Ann"})
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.AddParticipant(ctx, models.Participant{SessionCode: 900000, UserID: 1, Name: "Annie"})
	require.NoError(t, err)
	assert.False(t, added)

	n, err := s.CountParticipants(ctx, 900000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := s.ListParticipants(ctx, 900000)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Ann", list[0].Name, "re-join keeps the original name")

	_, err = s.AddParticipant(ctx, models.Participant{SessionCode: 900001, UserID: 1, Name: "Ann"})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testAddParticipantConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	seed(t, s, 910000, 7)

	const workers = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		added int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.AddParticipant(ctx, models.Participant{SessionCode: 910000, UserID: 5, Name: "Ivan"})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, added)
	n, err := s.CountParticipants(ctx, 910000)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testRemoveParticipant(t *testing.T, s store.Store) {
	ctx := context.Background()
	items := seed(t, s, 920000, 7, "Q1")

	_, err := s.AddParticipant(ctx, models.Participant{SessionCode: 920000, UserID: 1, Name: "Ann"})
	require.NoError(t, err)
	_, err = s.UpsertVote(ctx, models.Vote{AgendaItemID: items[0].ID, UserID: 1, Choice: models.ChoiceFor})
	require.NoError(t, err)

	removed, err := s.RemoveParticipant(ctx, 920000, 1)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.RemoveParticipant(ctx, 920000, 1)
	require.NoError(t, err)
	assert.False(t, removed)

	ok, err := s.IsParticipant(ctx, 920000, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	votes, err := s.ListVotes(ctx, items[0].ID)
	require.NoError(t, err)
	assert.Len(t, votes, 1, "votes stay attributed after leaving")
}

func testMetadata(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetCouncilInfo(ctx, 7)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	info := models.CouncilInfo{AdminID: 7, Name: "Youth Council", City: "Lviv", Region: "Lviv oblast", Chair: "Olena", Secretary: "Taras"}
	require.NoError(t, s.SaveCouncilInfo(ctx, info))
	info.City = "Kyiv"
	require.NoError(t, s.SaveCouncilInfo(ctx, info))

	got, err := s.GetCouncilInfo(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, info, got)

	_, err = s.GetNameForm(ctx, 7, "Olena")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	require.NoError(t, s.SaveNameForm(ctx, models.NameForm{AdminID: 7, Name: "Olena", Genitive: "Oleny"}))
	require.NoError(t, s.SaveNameForm(ctx, models.NameForm{AdminID: 7, Name: "Olena", Genitive: "Olenu"}))

	nf, err := s.GetNameForm(ctx, 7, "Olena")
	require.NoError(t, err)
	assert.Equal(t, "Olenu", nf.Genitive)

	_, err = s.GetNameForm(ctx, 8, "Olena")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testUserStats(t *testing.T, s store.Store) {
	ctx := context.Background()

	seed(t, s, 930001, 42)
	seed(t, s, 930002, 7)
	seed(t, s, 930003, 7)

	for code, name := range map[int]string{930001: "Ivan", 930002: "Ivan P.", 930003: "Ivan P."} {
		_, err := s.AddParticipant(ctx, models.Participant{SessionCode: code, UserID: 42, Name: name})
		require.NoError(t, err)
	}

	stats, err := s.UserStats(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.UserID)
	assert.Equal(t, "Ivan P.", stats.Name)
	assert.Equal(t, 3, stats.ParticipationCount)
	assert.Equal(t, 1, stats.AdminCount)

	empty, err := s.UserStats(ctx, 99)
	require.NoError(t, err)
	assert.Zero(t, empty.ParticipationCount)
	assert.Empty(t, empty.Name)
}
