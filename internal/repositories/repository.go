package repositories

import "context"

// Repository aggregates the domain repositories. WithTransaction yields a
// Repository bound to one transaction; the callback's writes commit or roll
// back together.
type Repository interface {
	User() UserRepository
	Sabaq() SabaqRepository
	Session() SessionRepository
	Enrollment() EnrollmentRepository
	Attendance() AttendanceRepository
	Question() QuestionRepository
	Email() EmailRepository
	SecurityLog() SecurityLogRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
