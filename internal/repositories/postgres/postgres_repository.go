package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/cache"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

// PostgreSQLRepository implements the aggregate Repository interface.
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	user        repositories.UserRepository
	sabaq       repositories.SabaqRepository
	session     repositories.SessionRepository
	enrollment  repositories.EnrollmentRepository
	attendance  repositories.AttendanceRepository
	question    repositories.QuestionRepository
	email       repositories.EmailRepository
	securityLog repositories.SecurityLogRepository
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	DB          *gorm.DB
	RedisClient *redis.Client
}

// NewPostgreSQLRepository creates the repository aggregate with all
// sub-repositories sharing one gorm handle and cache manager.
func NewPostgreSQLRepository(config RepositoryConfig) repositories.Repository {
	return newWithDB(config.DB, config.RedisClient)
}

func newWithDB(db *gorm.DB, redisClient *redis.Client) *PostgreSQLRepository {
	cacheManager := cache.NewCacheManager(redisClient)

	return &PostgreSQLRepository{
		db:           db,
		redisClient:  redisClient,
		cacheManager: cacheManager,
		user:         NewUserPostgreSQL(db),
		sabaq:        NewSabaqPostgreSQL(db, cacheManager),
		session:      NewSessionPostgreSQL(db, cacheManager),
		enrollment:   NewEnrollmentPostgreSQL(db),
		attendance:   NewAttendancePostgreSQL(db, cacheManager),
		question:     NewQuestionPostgreSQL(db),
		email:        NewEmailLogPostgreSQL(db),
		securityLog:  NewSecurityLogPostgreSQL(db),
	}
}

func (r *PostgreSQLRepository) User() repositories.UserRepository             { return r.user }
func (r *PostgreSQLRepository) Sabaq() repositories.SabaqRepository           { return r.sabaq }
func (r *PostgreSQLRepository) Session() repositories.SessionRepository       { return r.session }
func (r *PostgreSQLRepository) Enrollment() repositories.EnrollmentRepository { return r.enrollment }
func (r *PostgreSQLRepository) Attendance() repositories.AttendanceRepository { return r.attendance }
func (r *PostgreSQLRepository) Question() repositories.QuestionRepository     { return r.question }
func (r *PostgreSQLRepository) Email() repositories.EmailRepository           { return r.email }
func (r *PostgreSQLRepository) SecurityLog() repositories.SecurityLogRepository {
	return r.securityLog
}

// WithTransaction runs fn against a Repository bound to one database
// transaction. The redis client is not transactional; cache writes inside a
// transaction are best-effort.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newWithDB(tx, r.redisClient))
	})
}

func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RepositoryManagerImpl manages the repository lifecycle.
type RepositoryManagerImpl struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) *RepositoryManagerImpl {
	return &RepositoryManagerImpl{config: config}
}

func (m *RepositoryManagerImpl) Initialize() error {
	if m.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}
	m.repo = NewPostgreSQLRepository(m.config)
	return nil
}

func (m *RepositoryManagerImpl) GetRepository() repositories.Repository {
	return m.repo
}

func (m *RepositoryManagerImpl) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.repo.Ping(ctx)
}

func (m *RepositoryManagerImpl) Shutdown(ctx context.Context) error {
	if m.repo == nil {
		return nil
	}
	return m.repo.Close()
}
