package models

import (
	"time"
)

type AttendanceMethod string

const (
	MethodManualEntry       AttendanceMethod = "MANUAL_ENTRY"
	MethodLocationBasedSelf AttendanceMethod = "LOCATION_BASED_SELF"
	MethodQRScan            AttendanceMethod = "QR_SCAN"
)

// BulkMarkStatus classifies a single item of a bulk correction.
type BulkMarkStatus string

const (
	BulkPresent BulkMarkStatus = "PRESENT"
	BulkLate    BulkMarkStatus = "LATE"
	BulkAbsent  BulkMarkStatus = "ABSENT"
)

// Attendance records one user's presence at one session.
//
// The (session_id, user_id) unique index is the correctness guarantee against
// double-marking under concurrent submissions; the application-level existence
// check is only a fast path.
type Attendance struct {
	ID        uint `json:"id" gorm:"primaryKey"`
	SessionID uint `json:"session_id" gorm:"not null;uniqueIndex:idx_session_user"`
	UserID    uint `json:"user_id" gorm:"not null;uniqueIndex:idx_session_user"`
	// SabaqID is denormalized for the historical no-show scan at session end.
	SabaqID uint `json:"sabaq_id" gorm:"not null;index"`

	MarkedAt   time.Time        `json:"marked_at" gorm:"not null"`
	MarkedByID uint             `json:"marked_by_id" gorm:"not null"`
	Method     AttendanceMethod `json:"method" gorm:"not null"`

	IsLate      bool `json:"is_late" gorm:"not null;default:false"`
	MinutesLate int  `json:"minutes_late" gorm:"not null;default:0"`

	// Geolocation fields, set only for location-based marks.
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	DistanceMeters *float64 `json:"distance_meters,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Session  Session `json:"-" gorm:"foreignKey:SessionID"`
	User     User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	MarkedBy User    `json:"-" gorm:"foreignKey:MarkedByID"`
}

func (Attendance) TableName() string {
	return "attendances"
}
