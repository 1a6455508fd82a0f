package events

import (
	"context"
	"time"
)

// Topic names for domain events published to Kafka.
const (
	TopicAttendanceMarked   = "attendance.marked"
	TopicSessionStarted     = "session.started"
	TopicSessionEnded       = "session.ended"
	TopicSessionReportReady = "session.report_ready"
	TopicEnrollmentReviewed = "enrollment.reviewed"
)

// Event is the envelope wrapping every published domain event.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EventPublisher publishes domain events to the configured broker.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close() error
}

// AttendanceMarkedEvent is emitted after a mark commits.
type AttendanceMarkedEvent struct {
	SessionID   uint       `json:"session_id"`
	SabaqID     uint       `json:"sabaq_id"`
	UserID      uint       `json:"user_id"`
	Method      string     `json:"method"`
	IsLate      bool       `json:"is_late"`
	MinutesLate int        `json:"minutes_late"`
	MarkedAt    time.Time  `json:"marked_at"`
	MarkedByID  *uint      `json:"marked_by_id,omitempty"`
}

// SessionLifecycleEvent covers session.started and session.ended.
type SessionLifecycleEvent struct {
	SessionID uint      `json:"session_id"`
	SabaqID   uint      `json:"sabaq_id"`
	Name      string    `json:"name"`
	At        time.Time `json:"at"`
}

// SessionReportReadyEvent is emitted when the end-of-session workbook is built.
type SessionReportReadyEvent struct {
	SessionID      uint    `json:"session_id"`
	SabaqID        uint    `json:"sabaq_id"`
	JobID          string  `json:"job_id"`
	PresentCount   int     `json:"present_count"`
	LateCount      int     `json:"late_count"`
	AbsentCount    int     `json:"absent_count"`
	NoShowCount    int     `json:"no_show_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// EnrollmentReviewedEvent is emitted when an admin approves or rejects.
type EnrollmentReviewedEvent struct {
	EnrollmentID uint   `json:"enrollment_id"`
	SabaqID      uint   `json:"sabaq_id"`
	UserID       uint   `json:"user_id"`
	Status       string `json:"status"`
	ReviewedBy   uint   `json:"reviewed_by"`
}
