// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package memory is an in-process store.Store backed by maps.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/store"
)

type voteKey struct {
	item int64
	user int64
}

type nameKey struct {
	admin int64
	name  string
}

type Store struct {
	mu sync.RWMutex

	sessions     map[int]models.Session
	agenda       map[int][]models.AgendaItem // by session code, ordered by position
	votes        map[voteKey]models.Vote
	participants map[int]map[int64]models.Participant
	councils     map[int64]models.CouncilInfo
	nameForms    map[nameKey]models.NameForm

	nextItem int64
	now      func() time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		sessions:     make(map[int]models.Session),
		agenda:       make(map[int][]models.AgendaItem),
		votes:        make(map[voteKey]models.Vote),
		participants: make(map[int]map[int64]models.Participant),
		councils:     make(map[int64]models.CouncilInfo),
		nameForms:    make(map[nameKey]models.NameForm),
		now:          time.Now,
	}
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, sess models.Session) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[sess.Code]; exists {
		s.deleteSessionLocked(sess.Code)
	}

	var superseded []int
	for code, other := range s.sessions {
		if other.AdminID == sess.AdminID && other.Active {
			other.Active = false
			s.sessions[code] = other
			superseded = append(superseded, code)
		}
	}
	sort.Ints(superseded)

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = s.now().UTC()
	}
	s.sessions[sess.Code] = sess
	return superseded, nil
}

func (s *Store) GetSession(ctx context.Context, code int) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[code]
	if !ok {
		return models.Session{}, store.ErrNotFound
	}
	return sess, nil
}

func (s *Store) GetAdminSession(ctx context.Context, adminID int64) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.AdminID == adminID && sess.Active {
			return sess, nil
		}
	}
	return models.Session{}, store.ErrNotFound
}

func (s *Store) UpdateSession(ctx context.Context, sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sess.Code]; !ok {
		return store.ErrNotFound
	}
	s.sessions[sess.Code] = sess
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, code int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[code]; !ok {
		return store.ErrNotFound
	}
	s.deleteSessionLocked(code)
	return nil
}

func (s *Store) deleteSessionLocked(code int) {
	s.dropAgendaLocked(code)
	delete(s.participants, code)
	delete(s.sessions, code)
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code > out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Agenda

func (s *Store) ReplaceAgenda(ctx context.Context, code int, descriptions []string) ([]models.AgendaItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[code]; !ok {
		return nil, store.ErrNotFound
	}
	s.dropAgendaLocked(code)

	items := make([]models.AgendaItem, len(descriptions))
	for i, d := range descriptions {
		s.nextItem++
		items[i] = models.AgendaItem{
			ID:          s.nextItem,
			SessionCode: code,
			Description: d,
			Position:    i + 1,
		}
	}
	s.agenda[code] = items
	return cloneItems(items), nil
}

func (s *Store) dropAgendaLocked(code int) {
	for _, item := range s.agenda[code] {
		for k := range s.votes {
			if k.item == item.ID {
				delete(s.votes, k)
			}
		}
	}
	delete(s.agenda, code)
}

func (s *Store) ListAgenda(ctx context.Context, code int) ([]models.AgendaItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneItems(s.agenda[code]), nil
}

func (s *Store) SetProposer(ctx context.Context, code, position int, proposer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.agenda[code]
	for i := range items {
		if items[i].Position == position {
			items[i].Proposer = proposer
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ProposerNames(ctx context.Context, code int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var names []string
	for _, item := range s.agenda[code] {
		if item.Proposer == "" || seen[item.Proposer] {
			continue
		}
		seen[item.Proposer] = true
		names = append(names, item.Proposer)
	}
	return names, nil
}

// Votes

func (s *Store) UpsertVote(ctx context.Context, v models.Vote) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.itemExistsLocked(v.AgendaItemID) {
		return false, store.ErrNotFound
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = s.now().UTC()
	}
	k := voteKey{item: v.AgendaItemID, user: v.UserID}
	_, replaced := s.votes[k]
	s.votes[k] = v
	return replaced, nil
}

func (s *Store) itemExistsLocked(id int64) bool {
	for _, items := range s.agenda {
		for _, item := range items {
			if item.ID == id {
				return true
			}
		}
	}
	return false
}

func (s *Store) ListVotes(ctx context.Context, agendaItemID int64) ([]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Vote
	for k, v := range s.votes {
		if k.item == agendaItemID {
			out = append(out, v)
		}
	}
	sortVotes(out)
	return out, nil
}

func (s *Store) ListSessionVotes(ctx context.Context, code int) (map[int64][]models.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[int64]bool)
	for _, item := range s.agenda[code] {
		ids[item.ID] = true
	}

	out := make(map[int64][]models.Vote)
	for k, v := range s.votes {
		if ids[k.item] {
			out[k.item] = append(out[k.item], v)
		}
	}
	for id := range out {
		sortVotes(out[id])
	}
	return out, nil
}

// Participants

func (s *Store) AddParticipant(ctx context.Context, p models.Participant) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[p.SessionCode]; !ok {
		return false, store.ErrNotFound
	}
	members := s.participants[p.SessionCode]
	if members == nil {
		members = make(map[int64]models.Participant)
		s.participants[p.SessionCode] = members
	}
	if _, exists := members[p.UserID]; exists {
		return false, nil
	}
	if p.JoinedAt.IsZero() {
		p.JoinedAt = s.now().UTC()
	}
	members[p.UserID] = p
	return true, nil
}

func (s *Store) RemoveParticipant(ctx context.Context, code int, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := s.participants[code]
	if _, ok := members[userID]; !ok {
		return false, nil
	}
	delete(members, userID)
	return true, nil
}

func (s *Store) ListParticipants(ctx context.Context, code int) ([]models.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Participant, 0, len(s.participants[code]))
	for _, p := range s.participants[code] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *Store) CountParticipants(ctx context.Context, code int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.participants[code]), nil
}

func (s *Store) IsParticipant(ctx context.Context, code int, userID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.participants[code][userID]
	return ok, nil
}

// Metadata

func (s *Store) SaveCouncilInfo(ctx context.Context, info models.CouncilInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.councils[info.AdminID] = info
	return nil
}

func (s *Store) GetCouncilInfo(ctx context.Context, adminID int64) (models.CouncilInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.councils[adminID]
	if !ok {
		return models.CouncilInfo{}, store.ErrNotFound
	}
	return info, nil
}

func (s *Store) SaveNameForm(ctx context.Context, nf models.NameForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nameForms[nameKey{admin: nf.AdminID, name: nf.Name}] = nf
	return nil
}

func (s *Store) GetNameForm(ctx context.Context, adminID int64, name string) (models.NameForm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nf, ok := s.nameForms[nameKey{admin: adminID, name: name}]
	if !ok {
		return models.NameForm{}, store.ErrNotFound
	}
	return nf, nil
}

func (s *Store) UserStats(ctx context.Context, userID int64) (models.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.UserStats{UserID: userID}
	names := make(map[string]int)
	for _, members := range s.participants {
		p, ok := members[userID]
		if !ok {
			continue
		}
		stats.ParticipationCount++
		names[p.Name]++
	}
	stats.Name = mostCommon(names)

	for _, sess := range s.sessions {
		if sess.AdminID == userID {
			stats.AdminCount++
		}
	}
	return stats, nil
}

// mostCommon picks the highest count, breaking ties alphabetically.
func mostCommon(counts map[string]int) string {
	best, bestN := "", 0
	for name, n := range counts {
		if n > bestN || (n == bestN && name < best) {
			best, bestN = name, n
		}
	}
	return best
}

func cloneItems(items []models.AgendaItem) []models.AgendaItem {
	if items == nil {
		return nil
	}
	out := make([]models.AgendaItem, len(items))
	copy(out, items)
	return out
}

func sortVotes(votes []models.Vote) {
	sort.Slice(votes, func(i, j int) bool { return votes[i].UserID < votes[j].UserID })
}
