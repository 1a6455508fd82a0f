package services

import (
	"context"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Request shapes are validated once in the validator package and reused here.
type CreateSabaqRequest = validator.SabaqCreateRequest
type CreateSessionRequest = validator.SessionCreateRequest
type ManualMarkRequest = validator.ManualMarkRequest
type LocationMarkRequest = validator.LocationMarkRequest
type BulkMarkRequest = validator.BulkMarkRequest
type EnrollRequest = validator.EnrollmentRequest
type SubmitQuestionRequest = validator.QuestionSubmitRequest

type AttendanceResponse struct {
	*models.Attendance
}

type SessionResponse struct {
	*models.Session
	State models.SessionState `json:"state"`
}

type SessionListResponse struct {
	Sessions []*SessionResponse `json:"sessions"`
	Total    int64              `json:"total"`
}

type SabaqResponse struct {
	*models.Sabaq
}

type SabaqListResponse struct {
	Sabaqs []*SabaqResponse `json:"sabaqs"`
	Total  int64            `json:"total"`
}

type EnrollmentListResponse struct {
	Enrollments []*models.Enrollment `json:"enrollments"`
	Total       int64                `json:"total"`
}

// BulkMarkError is one failed item of a bulk correction.
type BulkMarkError struct {
	UserID uint   `json:"user_id"`
	Error  string `json:"error"`
}

// BulkMarkResult accumulates per-item outcomes; one bad item never aborts
// the batch.
type BulkMarkResult struct {
	SuccessCount int             `json:"success_count"`
	FailedCount  int             `json:"failed_count"`
	Errors       []BulkMarkError `json:"errors,omitempty"`
}

// EndSessionOptions tunes the ACTIVE->ENDED transition.
type EndSessionOptions struct {
	// SkipActiveCheck lets the reconciliation flow finalize a session whose
	// active flag was already flipped by the live-store sync.
	SkipActiveCheck bool

	// JobID, when set, is used as the progress job identifier instead of a
	// generated one. Callers running the flow in the background set it so the
	// progress channel is known before the flow completes.
	JobID string
}

// SessionReportResult is the outcome of the reconciliation + report flow.
type SessionReportResult struct {
	Session *SessionResponse           `json:"session"`
	Stats   repositories.SessionStats  `json:"stats"`
	JobID   string                     `json:"job_id"`

	SyncedFromLive int `json:"synced_from_live"`
	SyncFailures   int `json:"sync_failures"`
	QueuedEmails   int `json:"queued_emails"`
}

// ProgressFunc receives advisory progress checkpoints during EndWithReport.
type ProgressFunc func(percent int, stage string)

// QueueRunResult summarizes one drain of the email queue.
type QueueRunResult struct {
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// ===== SERVICE INTERFACES =====

type AttendanceService interface {
	// MarkManual records attendance on behalf of the user with the given ITS
	// number. Marker and attendee differ.
	MarkManual(ctx context.Context, sessionID uint, req *ManualMarkRequest, actorID uint) (*AttendanceResponse, error)

	// MarkByLocation is the geofenced self-service channel.
	MarkByLocation(ctx context.Context, sessionID uint, req *LocationMarkRequest, actorID uint) (*AttendanceResponse, error)

	// MarkByQR is the QR self-service channel; the session identity comes
	// from a verified QR token (verified at the transport layer).
	MarkByQR(ctx context.Context, sessionID uint, actorID uint) (*AttendanceResponse, error)

	// BulkMark applies a list of PRESENT/LATE/ABSENT corrections with
	// per-item failure accumulation.
	BulkMark(ctx context.Context, sessionID uint, req *BulkMarkRequest, actorID uint) (*BulkMarkResult, error)

	ListBySession(ctx context.Context, sessionID uint, actorID uint) ([]*models.Attendance, error)
	Delete(ctx context.Context, sessionID, userID uint, actorID uint) error
}

type SessionService interface {
	Create(ctx context.Context, req *CreateSessionRequest, actorID uint) (*SessionResponse, error)
	GetByID(ctx context.Context, id uint) (*SessionResponse, error)
	List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error)

	// Lifecycle transitions.
	Start(ctx context.Context, id uint, actorID uint) (*SessionResponse, error)
	End(ctx context.Context, id uint, opts EndSessionOptions, actorID uint) (*SessionResponse, error)
	Resume(ctx context.Context, id uint, actorID uint) (*SessionResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error

	// EndWithReport runs the full reconciliation: live-store sync, finalize,
	// aggregate, workbook build, report emails. Progress checkpoints go to
	// onProgress (nil is allowed) and to the job progress channel.
	EndWithReport(ctx context.Context, id uint, opts EndSessionOptions, actorID uint, onProgress ProgressFunc) (*SessionReportResult, error)
}

type SabaqService interface {
	Create(ctx context.Context, req *CreateSabaqRequest, actorID uint) (*SabaqResponse, error)
	GetByID(ctx context.Context, id uint) (*SabaqResponse, error)
	List(ctx context.Context, filters repositories.SabaqFilters) (*SabaqListResponse, error)
	Delete(ctx context.Context, id uint, actorID uint) error

	AddAdmin(ctx context.Context, sabaqID, userID uint, actorID uint) error
	RemoveAdmin(ctx context.Context, sabaqID, userID uint, actorID uint) error
}

type EnrollmentService interface {
	// Request files a PENDING enrollment; fails when the window is closed or
	// a request already exists.
	Request(ctx context.Context, req *EnrollRequest, userID uint) (*models.Enrollment, error)

	// Review approves or rejects a pending request and notifies the user.
	Review(ctx context.Context, enrollmentID uint, approve bool, actorID uint) (*models.Enrollment, error)

	ListBySabaq(ctx context.Context, sabaqID uint, filters repositories.EnrollmentFilters, actorID uint) (*EnrollmentListResponse, error)
}

type QuestionService interface {
	Submit(ctx context.Context, req *SubmitQuestionRequest, userID uint) (*models.Question, error)
	Upvote(ctx context.Context, questionID uint, userID uint) (*models.Question, error)
	RemoveVote(ctx context.Context, questionID uint, userID uint) (*models.Question, error)
	ListBySession(ctx context.Context, sessionID uint) ([]*models.Question, error)
	Delete(ctx context.Context, questionID uint, actorID uint) error
}

type NotificationService interface {
	// QueueEmail inserts a durable PENDING row; it never sends inline.
	QueueEmail(ctx context.Context, to, subject, template string, data map[string]interface{}) error
	QueueEmailWithAttachment(ctx context.Context, to, subject, template string, data map[string]interface{}, attachmentName string, attachmentData []byte) error

	// ProcessEmailQueue drains PENDING rows once.
	ProcessEmailQueue(ctx context.Context) (*QueueRunResult, error)

	// RetryFailedEmails resets FAILED rows to PENDING and returns the count.
	RetryFailedEmails(ctx context.Context) (int64, error)

	// StartDispatcher runs ProcessEmailQueue on a timer until ctx ends.
	StartDispatcher(ctx context.Context)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Attendance() AttendanceService
	Session() SessionService
	Sabaq() SabaqService
	Enrollment() EnrollmentService
	Question() QuestionService
	Notification() NotificationService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
