// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormMatch 比赛记录表
type GormMatch struct {
	gorm.Model
	LobbyID    string        `gorm:"index;not null"`
	Winner     *string       `gorm:"index"`
	Players    []MatchPlayer `gorm:"type:jsonb;serializer:json;not null"`
	StartedAt  time.Time
	EndedAt    time.Time `gorm:"index"`
	DurationMs int64     `gorm:"default:0"` // 比赛时长(毫秒)
}

func (GormMatch) TableName() string {
	return "matches"
}

func NewGormMatch(r MatchRecord) *GormMatch {
	return &GormMatch{
		LobbyID:    r.LobbyID,
		Winner:     r.Winner,
		Players:    r.Players,
		StartedAt:  r.StartedAt,
		EndedAt:    r.EndedAt,
		DurationMs: r.Duration().Milliseconds(),
	}
}

func (m *GormMatch) Record() MatchRecord {
	return MatchRecord{
		LobbyID:   m.LobbyID,
		Winner:    m.Winner,
		Players:   m.Players,
		StartedAt: m.StartedAt,
		EndedAt:   m.EndedAt,
	}
}
