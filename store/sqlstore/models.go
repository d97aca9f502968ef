// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package sqlstore

import (
	"time"

	"github.com/danielhkuo/councilvote/models"
)

type sessionRow struct {
	Code            int    `gorm:"primaryKey;autoIncrement:false"`
	Name            string `gorm:"size:100;not null"`
	Password        string `gorm:"size:21;not null"`
	AdminID         int64  `gorm:"not null;index"`
	Active          bool   `gorm:"not null"`
	Phase           string `gorm:"not null"`
	CurrentQuestion int    `gorm:"not null"`
	ProtocolNumber  string `gorm:"not null"`
	SessionType     string `gorm:"not null"`
	CreatedAt       time.Time
}

func (sessionRow) TableName() string { return "sessions" }

type agendaRow struct {
	ID          int64  `gorm:"primaryKey"`
	SessionCode int    `gorm:"not null;index"`
	Description string `gorm:"not null"`
	Position    int    `gorm:"not null"`
	Proposer    string `gorm:"not null"`
	Manual      string `gorm:"not null"`
}

func (agendaRow) TableName() string { return "agenda_items" }

type voteRow struct {
	AgendaItemID int64  `gorm:"primaryKey;autoIncrement:false"`
	UserID       int64  `gorm:"primaryKey;autoIncrement:false"`
	Choice       string `gorm:"not null"`
	UpdatedAt    time.Time
}

func (voteRow) TableName() string { return "votes" }

type participantRow struct {
	SessionCode int    `gorm:"primaryKey;autoIncrement:false"`
	UserID      int64  `gorm:"primaryKey;autoIncrement:false"`
	Name        string `gorm:"not null"`
	JoinedAt    time.Time
}

func (participantRow) TableName() string { return "participants" }

type councilRow struct {
	AdminID   int64 `gorm:"primaryKey;autoIncrement:false"`
	Name      string
	City      string
	Region    string
	Chair     string
	Secretary string
}

func (councilRow) TableName() string { return "council_info" }

type nameFormRow struct {
	AdminID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Name     string `gorm:"primaryKey"`
	Genitive string `gorm:"not null"`
}

func (nameFormRow) TableName() string { return "name_forms" }

// Conversions

func toSessionRow(s models.Session) sessionRow {
	return sessionRow{
		Code:            s.Code,
		Name:            s.Name,
		Password:        s.Password,
		AdminID:         s.AdminID,
		Active:          s.Active,
		Phase:           string(s.Phase),
		CurrentQuestion: s.CurrentQuestion,
		ProtocolNumber:  s.ProtocolNumber,
		SessionType:     s.SessionType,
		CreatedAt:       s.CreatedAt,
	}
}

func (r sessionRow) model() models.Session {
	return models.Session{
		Code:            r.Code,
		Name:            r.Name,
		Password:        r.Password,
		AdminID:         r.AdminID,
		Active:          r.Active,
		Phase:           models.Phase(r.Phase),
		CurrentQuestion: r.CurrentQuestion,
		ProtocolNumber:  r.ProtocolNumber,
		SessionType:     r.SessionType,
		CreatedAt:       r.CreatedAt.UTC(),
	}
}

func (r agendaRow) model() models.AgendaItem {
	return models.AgendaItem{
		ID:          r.ID,
		SessionCode: r.SessionCode,
		Description: r.Description,
		Position:    r.Position,
		Proposer:    r.Proposer,
		Manual:      r.Manual,
	}
}

func (r voteRow) model() models.Vote {
	return models.Vote{
		AgendaItemID: r.AgendaItemID,
		UserID:       r.UserID,
		Choice:       models.Choice(r.Choice),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func (r participantRow) model() models.Participant {
	return models.Participant{
		SessionCode: r.SessionCode,
		UserID:      r.UserID,
		Name:        r.Name,
		JoinedAt:    r.JoinedAt.UTC(),
	}
}
