// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package sqlstore implements store.Store with gorm over PostgreSQL or SQLite.
// The schema is created by db.Migrate; this package never auto-migrates.
package sqlstore

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/danielhkuo/councilvote/models"
	"github.com/danielhkuo/councilvote/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, sess models.Session) ([]int, error) {
	var superseded []int

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := deleteSession(tx, sess.Code); err != nil {
			return err
		}

		if err := tx.Model(&sessionRow{}).
			Where("admin_id = ? AND active = ?", sess.AdminID, true).
			Order("code").
			Pluck("code", &superseded).Error; err != nil {
			return err
		}
		if len(superseded) > 0 {
			if err := tx.Model(&sessionRow{}).
				Where("code IN ?", superseded).
				Update("active", false).Error; err != nil {
				return err
			}
		}

		row := toSessionRow(sess)
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return superseded, nil
}

func (s *Store) GetSession(ctx context.Context, code int) (models.Session, error) {
	var row sessionRow
	if err := s.db.WithContext(ctx).First(&row, "code = ?", code).Error; err != nil {
		return models.Session{}, notFound(err)
	}
	return row.model(), nil
}

func (s *Store) GetAdminSession(ctx context.Context, adminID int64) (models.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).
		Where("admin_id = ? AND active = ?", adminID, true).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		return models.Session{}, notFound(err)
	}
	return row.model(), nil
}

func (s *Store) UpdateSession(ctx context.Context, sess models.Session) error {
	res := s.db.WithContext(ctx).Model(&sessionRow{}).
		Where("code = ?", sess.Code).
		Updates(map[string]any{
			"name":             sess.Name,
			"password":         sess.Password,
			"active":           sess.Active,
			"phase":            string(sess.Phase),
			"current_question": sess.CurrentQuestion,
			"protocol_number":  sess.ProtocolNumber,
			"session_type":     sess.SessionType,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, code int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deleted, err := deleteSession(tx, code)
		if err != nil {
			return err
		}
		if !deleted {
			return store.ErrNotFound
		}
		return nil
	})
}

// deleteSession removes a session and everything hanging off it inside tx.
func deleteSession(tx *gorm.DB, code int) (bool, error) {
	if err := deleteAgenda(tx, code); err != nil {
		return false, err
	}
	if err := tx.Where("session_code = ?", code).Delete(&participantRow{}).Error; err != nil {
		return false, err
	}
	res := tx.Where("code = ?", code).Delete(&sessionRow{})
	return res.RowsAffected > 0, res.Error
}

func deleteAgenda(tx *gorm.DB, code int) error {
	items := tx.Model(&agendaRow{}).Select("id").Where("session_code = ?", code)
	if err := tx.Where("agenda_item_id IN (?)", items).Delete(&voteRow{}).Error; err != nil {
		return err
	}
	return tx.Where("session_code = ?", code).Delete(&agendaRow{}).Error
}

func (s *Store) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC, code DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []sessionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

// Agenda

func (s *Store) ReplaceAgenda(ctx context.Context, code int, descriptions []string) ([]models.AgendaItem, error) {
	rows := make([]agendaRow, len(descriptions))
	for i, d := range descriptions {
		rows[i] = agendaRow{SessionCode: code, Description: d, Position: i + 1}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&sessionRow{}).Where("code = ?", code).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		if err := deleteAgenda(tx, code); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.AgendaItem, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) ListAgenda(ctx context.Context, code int) ([]models.AgendaItem, error) {
	var rows []agendaRow
	if err := s.db.WithContext(ctx).Where("session_code = ?", code).Order("position").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]models.AgendaItem, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

func (s *Store) SetProposer(ctx context.Context, code, position int, proposer string) error {
	res := s.db.WithContext(ctx).Model(&agendaRow{}).
		Where("session_code = ? AND position = ?", code, position).
		Update("proposer", proposer)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ProposerNames(ctx context.Context, code int) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Model(&agendaRow{}).
		Where("session_code = ? AND proposer <> ''", code).
		Group("proposer").
		Order("MIN(position)").
		Pluck("proposer", &names).Error
	return names, err
}

// Votes

func (s *Store) UpsertVote(ctx context.Context, v models.Vote) (bool, error) {
	var replaced bool

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items int64
		if err := tx.Model(&agendaRow{}).Where("id = ?", v.AgendaItemID).Count(&items).Error; err != nil {
			return err
		}
		if items == 0 {
			return store.ErrNotFound
		}

		var existing int64
		if err := tx.Model(&voteRow{}).
			Where("agenda_item_id = ? AND user_id = ?", v.AgendaItemID, v.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		replaced = existing > 0

		row := voteRow{AgendaItemID: v.AgendaItemID, UserID: v.UserID, Choice: string(v.Choice), UpdatedAt: v.UpdatedAt}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agenda_item_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"choice", "updated_at"}),
		}).Create(&row).Error
	})
	return replaced, err
}

func (s *Store) ListVotes(ctx context.Context, agendaItemID int64) ([]models.Vote, error) {
	var rows []voteRow
	if err := s.db.WithContext(ctx).Where("agenda_item_id = ?", agendaItemID).Order("user_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Vote, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) ListSessionVotes(ctx context.Context, code int) (map[int64][]models.Vote, error) {
	var rows []voteRow
	err := s.db.WithContext(ctx).
		Select("votes.*").
		Joins("JOIN agenda_items ON agenda_items.id = votes.agenda_item_id").
		Where("agenda_items.session_code = ?", code).
		Order("votes.agenda_item_id, votes.user_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64][]models.Vote)
	for _, r := range rows {
		out[r.AgendaItemID] = append(out[r.AgendaItemID], r.model())
	}
	return out, nil
}

// Participants

func (s *Store) AddParticipant(ctx context.Context, p models.Participant) (bool, error) {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&sessionRow{}).Where("code = ?", p.SessionCode).Count(&n).Error; err != nil {
		return false, err
	}
	if n == 0 {
		return false, store.ErrNotFound
	}

	row := participantRow{SessionCode: p.SessionCode, UserID: p.UserID, Name: p.Name, JoinedAt: p.JoinedAt}
	if row.JoinedAt.IsZero() {
		row.JoinedAt = db.NowFunc()
	}
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) RemoveParticipant(ctx context.Context, code int, userID int64) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("session_code = ? AND user_id = ?", code, userID).
		Delete(&participantRow{})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) ListParticipants(ctx context.Context, code int) ([]models.Participant, error) {
	var rows []participantRow
	if err := s.db.WithContext(ctx).Where("session_code = ?", code).Order("joined_at, user_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.model())
	}
	return out, nil
}

func (s *Store) CountParticipants(ctx context.Context, code int) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&participantRow{}).Where("session_code = ?", code).Count(&n).Error
	return int(n), err
}

func (s *Store) IsParticipant(ctx context.Context, code int, userID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&participantRow{}).
		Where("session_code = ? AND user_id = ?", code, userID).
		Count(&n).Error
	return n > 0, err
}

// Metadata

func (s *Store) SaveCouncilInfo(ctx context.Context, info models.CouncilInfo) error {
	row := councilRow(info)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *Store) GetCouncilInfo(ctx context.Context, adminID int64) (models.CouncilInfo, error) {
	var row councilRow
	if err := s.db.WithContext(ctx).First(&row, "admin_id = ?", adminID).Error; err != nil {
		return models.CouncilInfo{}, notFound(err)
	}
	return models.CouncilInfo(row), nil
}

func (s *Store) SaveNameForm(ctx context.Context, nf models.NameForm) error {
	row := nameFormRow(nf)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "admin_id"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"genitive"}),
	}).Create(&row).Error
}

func (s *Store) GetNameForm(ctx context.Context, adminID int64, name string) (models.NameForm, error) {
	var row nameFormRow
	if err := s.db.WithContext(ctx).First(&row, "admin_id = ? AND name = ?", adminID, name).Error; err != nil {
		return models.NameForm{}, notFound(err)
	}
	return models.NameForm(row), nil
}

func (s *Store) UserStats(ctx context.Context, userID int64) (models.UserStats, error) {
	db := s.db.WithContext(ctx)
	stats := models.UserStats{UserID: userID}

	var joined int64
	if err := db.Model(&participantRow{}).Where("user_id = ?", userID).Count(&joined).Error; err != nil {
		return stats, err
	}
	stats.ParticipationCount = int(joined)

	var names []string
	err := db.Model(&participantRow{}).
		Where("user_id = ?", userID).
		Group("name").
		Order("COUNT(*) DESC, name").
		Limit(1).
		Pluck("name", &names).Error
	if err != nil {
		return stats, err
	}
	if len(names) > 0 {
		stats.Name = names[0]
	}

	var admin int64
	if err := db.Model(&sessionRow{}).Where("admin_id = ?", userID).Count(&admin).Error; err != nil {
		return stats, err
	}
	stats.AdminCount = int(admin)
	return stats, nil
}
