package models

import (
	"time"

	"gorm.io/datatypes"
)

type EmailStatus string

const (
	EmailPending EmailStatus = "PENDING"
	EmailSent    EmailStatus = "SENT"
	EmailFailed  EmailStatus = "FAILED"
)

// Email template names. The rendering itself lives with the provider; the
// queue only records which template and payload to use.
const (
	TemplateAttendanceMarked   = "attendance-marked"
	TemplateSessionStarted     = "session-started"
	TemplateSessionReport      = "session-report"
	TemplateEnrollmentApproved = "enrollment-approved"
	TemplateEnrollmentRejected = "enrollment-rejected"
)

// EmailLog is a durable queued notification. Workflows insert PENDING rows
// synchronously; the dispatcher drains them on a timer. Retry is by
// resubmission: FAILED rows are reset to PENDING.
type EmailLog struct {
	ID       uint           `json:"id" gorm:"primaryKey"`
	To       string         `json:"to" gorm:"not null;size:255;index" validate:"required,email"`
	Subject  string         `json:"subject" gorm:"not null;size:500"`
	Template string         `json:"template" gorm:"not null;size:100"`
	Data     datatypes.JSON `json:"data" gorm:"type:jsonb"`

	Status   EmailStatus `json:"status" gorm:"not null;default:PENDING;index"`
	Error    *string     `json:"error,omitempty" gorm:"type:text"`
	Attempts int         `json:"attempts" gorm:"not null;default:0"`
	SentAt   *time.Time  `json:"sent_at"`

	// Attachment is an optional file payload (base64 content handled by the
	// mailer); only the session report uses it.
	AttachmentName *string `json:"attachment_name,omitempty" gorm:"size:255"`
	AttachmentData []byte  `json:"-" gorm:"type:bytea"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (EmailLog) TableName() string {
	return "email_logs"
}
