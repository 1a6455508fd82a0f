package validator

import (
	"time"

	"github.com/sabaq-center/sabaq-service/internal/models"
)

// SabaqCreateRequest represents the request structure for creating sabaqs.
type SabaqCreateRequest struct {
	Name                    string     `json:"name" validate:"required,min=1,max=200"`
	Kitaab                  string     `json:"kitaab" validate:"required,max=200"`
	Level                   string     `json:"level" validate:"omitempty,max=100"`
	EnrollmentStart         time.Time  `json:"enrollment_start" validate:"required"`
	EnrollmentEnd           time.Time  `json:"enrollment_end" validate:"required,gtfield=EnrollmentStart"`
	JanabID                 *uint      `json:"janab_id"`
	AllowLocationAttendance bool       `json:"allow_location_attendance"`
	Location                *LocationRequest `json:"location"`
}

// LocationRequest configures the geofence anchor of a sabaq.
type LocationRequest struct {
	Name         string  `json:"name" validate:"required,max=200"`
	Latitude     float64 `json:"latitude" validate:"latitude"`
	Longitude    float64 `json:"longitude" validate:"longitude"`
	RadiusMeters float64 `json:"radius_meters" validate:"required,min=1,max=10000"`
}

// SessionCreateRequest schedules a new session for a sabaq.
type SessionCreateRequest struct {
	SabaqID     uint      `json:"sabaq_id" validate:"required"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	CutoffTime  time.Time `json:"cutoff_time" validate:"required"`
}

// ManualMarkRequest marks attendance on behalf of a user by ITS number.
type ManualMarkRequest struct {
	ITSNumber string `json:"its_number" validate:"required,its_number"`
}

// LocationMarkRequest is a self-service geofenced mark.
type LocationMarkRequest struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// QRMarkRequest carries the signed QR payload token.
type QRMarkRequest struct {
	Token string `json:"token" validate:"required"`
}

// BulkMarkRequest is the bulk-correction payload for one session.
type BulkMarkRequest struct {
	Items []BulkMarkItemRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

type BulkMarkItemRequest struct {
	UserID uint                  `json:"user_id" validate:"required"`
	Status models.BulkMarkStatus `json:"status" validate:"required,oneof=PRESENT LATE ABSENT"`
}

// EnrollmentRequest asks for membership in a sabaq.
type EnrollmentRequest struct {
	SabaqID uint `json:"sabaq_id" validate:"required"`
}

// QuestionSubmitRequest submits a question during a session.
type QuestionSubmitRequest struct {
	SessionID uint   `json:"session_id" validate:"required"`
	Text      string `json:"text" validate:"required,min=1,max=2000"`
}
