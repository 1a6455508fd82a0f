package models

import (
	"time"

	"gorm.io/gorm"
)

// Location is a geofence anchor for location-based self-service attendance.
type Location struct {
	ID           uint    `json:"id" gorm:"primaryKey"`
	Name         string  `json:"name" gorm:"not null;size:200" validate:"required,max=200"`
	Latitude     float64 `json:"latitude" gorm:"not null" validate:"latitude"`
	Longitude    float64 `json:"longitude" gorm:"not null" validate:"longitude"`
	RadiusMeters float64 `json:"radius_meters" gorm:"not null;default:100" validate:"min=1,max=10000"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Sabaq is a recurring study-group definition.
//
// ActiveSessionID is a denormalized pointer to the one session with
// IsActive=true; it is only ever written in the same transaction as the
// session flag itself (see session lifecycle transitions).
type Sabaq struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"not null;size:200;index" validate:"required,min=1,max=200"`
	Kitaab string `json:"kitaab" gorm:"not null;size:200" validate:"required,max=200"`
	Level  string `json:"level" gorm:"size:100" validate:"omitempty,max=100"`

	EnrollmentStart time.Time `json:"enrollment_start" gorm:"not null"`
	EnrollmentEnd   time.Time `json:"enrollment_end" gorm:"not null"`

	JanabID    *uint     `json:"janab_id" gorm:"index"`
	LocationID *uint     `json:"location_id"`
	Janab      *User     `json:"janab,omitempty" gorm:"foreignKey:JanabID"`
	Location   *Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`

	AllowLocationAttendance bool  `json:"allow_location_attendance" gorm:"not null;default:false"`
	ActiveSessionID         *uint `json:"active_session_id"`

	MembersCount           int `json:"members_count" gorm:"not null;default:0"`
	ConductedSessionsCount int `json:"conducted_sessions_count" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Sessions    []Session    `json:"sessions,omitempty" gorm:"foreignKey:SabaqID"`
	Enrollments []Enrollment `json:"enrollments,omitempty" gorm:"foreignKey:SabaqID"`
}

func (Sabaq) TableName() string {
	return "sabaqs"
}

// EnrollmentOpen reports whether t falls inside the enrollment window.
func (s *Sabaq) EnrollmentOpen(t time.Time) bool {
	return !t.Before(s.EnrollmentStart) && !t.After(s.EnrollmentEnd)
}

// SabaqAdmin grants a user sabaq-scoped admin rights (distinct from the
// global ADMIN role).
type SabaqAdmin struct {
	ID      uint `json:"id" gorm:"primaryKey"`
	SabaqID uint `json:"sabaq_id" gorm:"not null;uniqueIndex:idx_sabaq_admin"`
	UserID  uint `json:"user_id" gorm:"not null;uniqueIndex:idx_sabaq_admin"`

	CreatedAt time.Time `json:"created_at"`

	Sabaq Sabaq `json:"-" gorm:"foreignKey:SabaqID"`
	User  User  `json:"-" gorm:"foreignKey:UserID"`
}

func (SabaqAdmin) TableName() string {
	return "sabaq_admins"
}
