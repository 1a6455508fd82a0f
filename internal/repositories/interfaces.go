package repositories

import (
	"context"
	"time"

	"github.com/sabaq-center/sabaq-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type SessionFilters struct {
	SabaqID   *uint      `json:"sabaq_id"`
	IsActive  *bool      `json:"is_active"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortBy    string     `json:"sort_by"`    // "scheduled_at", "created_at"
	SortOrder string     `json:"sort_order"` // "asc", "desc"
}

type EnrollmentFilters struct {
	Status *models.EnrollmentStatus `json:"status"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

type SabaqFilters struct {
	JanabID   *uint  `json:"janab_id"`
	Level     *string `json:"level"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

// ===== SHARED STATISTICS STRUCTS =====

// SessionStats is the aggregate computed at session end.
type SessionStats struct {
	TotalEnrolled  int     `json:"total_enrolled"`
	PresentCount   int     `json:"present_count"`
	LateCount      int     `json:"late_count"`
	AbsentCount    int     `json:"absent_count"`
	NoShowCount    int     `json:"no_show_count"`
	AttendanceRate float64 `json:"attendance_rate"`
}

// ===== DOMAIN REPOSITORY INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByITSNumber(ctx context.Context, its string) (*models.User, error)
	GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error

	// IncrementAttendanceCounters bumps attendedCount and, when late,
	// lateCount. Called inside the attendance transaction.
	IncrementAttendanceCounters(ctx context.Context, userID uint, attendedDelta, lateDelta int) error
	IncrementQuestionsCount(ctx context.Context, userID uint, delta int) error
	IncrementManagedSabaqs(ctx context.Context, userID uint, delta int) error
}

type SabaqRepository interface {
	Create(ctx context.Context, sabaq *models.Sabaq) error
	GetByID(ctx context.Context, id uint) (*models.Sabaq, error)
	GetByIDWithDetails(ctx context.Context, id uint) (*models.Sabaq, error)
	Update(ctx context.Context, sabaq *models.Sabaq) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters SabaqFilters) ([]*models.Sabaq, int64, error)

	// SetActiveSession re-points the denormalized active-session pointer.
	// Must only be called inside the same transaction that flips the
	// session's IsActive flag.
	SetActiveSession(ctx context.Context, sabaqID uint, sessionID *uint) error
	IncrementConductedSessions(ctx context.Context, sabaqID uint) error
	IncrementMembers(ctx context.Context, sabaqID uint, delta int) error

	IsSabaqAdmin(ctx context.Context, sabaqID, userID uint) (bool, error)
	AddAdmin(ctx context.Context, sabaqID, userID uint) error
	RemoveAdmin(ctx context.Context, sabaqID, userID uint) error
	// AdminUsers returns the sabaq-scoped admin users (from the sabaq_admins
	// grant table), used for report recipients.
	AdminUsers(ctx context.Context, sabaqID uint) ([]*models.User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetByID(ctx context.Context, id uint) (*models.Session, error)
	GetByIDWithSabaq(ctx context.Context, id uint) (*models.Session, error)
	Update(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filters SessionFilters) ([]*models.Session, int64, error)

	// GetActiveBySabaq returns the currently active session of the sabaq,
	// or ErrNotFound when none is active.
	GetActiveBySabaq(ctx context.Context, sabaqID uint) (*models.Session, error)

	IncrementAttendanceCount(ctx context.Context, sessionID uint, delta int) error
	IncrementQuestionsCount(ctx context.Context, sessionID uint, delta int) error
}

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *models.Enrollment) error
	GetByID(ctx context.Context, id uint) (*models.Enrollment, error)
	GetBySabaqAndUser(ctx context.Context, sabaqID, userID uint) (*models.Enrollment, error)
	Update(ctx context.Context, enrollment *models.Enrollment) error
	ListBySabaq(ctx context.Context, sabaqID uint, filters EnrollmentFilters) ([]*models.Enrollment, int64, error)

	// ApprovedUsers returns the users holding an APPROVED enrollment in the
	// sabaq, for start-session notifications and report aggregates.
	ApprovedUsers(ctx context.Context, sabaqID uint) ([]*models.User, error)
}

type AttendanceRepository interface {
	// Create inserts the attendance row; a (session, user) uniqueness
	// violation surfaces as ErrDuplicate / gorm.ErrDuplicatedKey.
	Create(ctx context.Context, attendance *models.Attendance) error
	GetByID(ctx context.Context, id uint) (*models.Attendance, error)
	GetBySessionAndUser(ctx context.Context, sessionID, userID uint) (*models.Attendance, error)
	Update(ctx context.Context, attendance *models.Attendance) error
	Delete(ctx context.Context, id uint) error

	// DeleteBySessionAndUser removes a mark if present; deleting a missing
	// row is not an error (idempotent bulk-absent). Returns whether a row
	// was deleted.
	DeleteBySessionAndUser(ctx context.Context, sessionID, userID uint) (bool, error)

	ListBySession(ctx context.Context, sessionID uint) ([]*models.Attendance, error)
	CountBySession(ctx context.Context, sessionID uint) (int64, error)

	// AttendedUserIDs returns the distinct user IDs with at least one
	// attendance anywhere in the sabaq's history (the no-show scan).
	AttendedUserIDs(ctx context.Context, sabaqID uint) ([]uint, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, question *models.Question) error
	GetByID(ctx context.Context, id uint) (*models.Question, error)
	Delete(ctx context.Context, id uint) error
	ListBySession(ctx context.Context, sessionID uint) ([]*models.Question, error)

	CreateVote(ctx context.Context, vote *models.QuestionVote) error
	DeleteVote(ctx context.Context, questionID, userID uint) (bool, error)
	IncrementUpvotes(ctx context.Context, questionID uint, delta int) error
	CountVotes(ctx context.Context, questionID uint) (int64, error)
}

type EmailRepository interface {
	Enqueue(ctx context.Context, email *models.EmailLog) error
	GetByID(ctx context.Context, id uint) (*models.EmailLog, error)
	ListPending(ctx context.Context, limit int) ([]*models.EmailLog, error)
	MarkSent(ctx context.Context, id uint) error
	MarkFailed(ctx context.Context, id uint, errMsg string) error

	// ResetFailed flips FAILED rows back to PENDING for redelivery and
	// returns the number of rows reset.
	ResetFailed(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.EmailStatus) (int64, error)
}

type SecurityLogRepository interface {
	Create(ctx context.Context, entry *models.SecurityLog) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]*models.SecurityLog, error)
}
