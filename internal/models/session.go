package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionState is the derived lifecycle state of a session.
type SessionState string

const (
	SessionScheduled SessionState = "SCHEDULED"
	SessionActive    SessionState = "ACTIVE"
	SessionEnded     SessionState = "ENDED"
)

// Session is one scheduled meeting of a sabaq.
type Session struct {
	ID      uint `json:"id" gorm:"primaryKey"`
	SabaqID uint `json:"sabaq_id" gorm:"not null;index"`

	ScheduledAt time.Time  `json:"scheduled_at" gorm:"not null"`
	CutoffTime  time.Time  `json:"cutoff_time" gorm:"not null"`
	StartedAt   *time.Time `json:"started_at"`
	EndedAt     *time.Time `json:"ended_at"`
	IsActive    bool       `json:"is_active" gorm:"not null;default:false;index"`

	QuestionsCount  int `json:"questions_count" gorm:"not null;default:0"`
	AttendanceCount int `json:"attendance_count" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Sabaq       Sabaq        `json:"sabaq,omitempty" gorm:"foreignKey:SabaqID"`
	Attendances []Attendance `json:"attendances,omitempty" gorm:"foreignKey:SessionID"`
}

func (Session) TableName() string {
	return "sessions"
}

// State derives the lifecycle state from the timestamp/flag combination.
// A resumed session has EndedAt cleared, so it reads as ACTIVE again.
func (s *Session) State() SessionState {
	switch {
	case s.IsActive:
		return SessionActive
	case s.EndedAt != nil:
		return SessionEnded
	case s.StartedAt != nil:
		// Ended sessions keep StartedAt; without EndedAt and without the
		// active flag this combination only occurs mid-transition.
		return SessionEnded
	default:
		return SessionScheduled
	}
}
