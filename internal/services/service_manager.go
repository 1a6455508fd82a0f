package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sabaq-center/sabaq-service/internal/events"
	"github.com/sabaq-center/sabaq-service/internal/livestore"
	"github.com/sabaq-center/sabaq-service/internal/mailer"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

// ServiceManagerConfig wires the cross-cutting dependencies into the
// service layer.
type ServiceManagerConfig struct {
	EventPublisher EventPublisherFactory
	Mailer         mailer.Mailer
	Live           *livestore.Store
	Progress       *livestore.ProgressPublisher

	EmailDispatchInterval time.Duration
	DefaultTimeout        time.Duration
}

// EventPublisherFactory defers broker construction to Initialize so a
// missing broker config can fall back to the mock publisher.
type EventPublisherFactory func() (events.EventPublisher, error)

type serviceManager struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	eventPublisher events.EventPublisher

	attendanceService   AttendanceService
	sessionService      SessionService
	sabaqService        SabaqService
	enrollmentService   EnrollmentService
	questionService     QuestionService
	notificationService NotificationService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(repo repositories.Repository, logger *slog.Logger, v *validator.Validator, config ServiceManagerConfig) ServiceManager {
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30 * time.Second
	}
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: v,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.config.EventPublisher != nil {
		publisher, err := sm.config.EventPublisher()
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		sm.eventPublisher = publisher
	} else {
		sm.eventPublisher = events.NewMockEventPublisher(sm.logger)
	}

	m := sm.config.Mailer
	if m == nil {
		m = mailer.NewLogMailer(sm.logger)
	}

	sm.notificationService = NewNotificationService(sm.repo, sm.logger, m, sm.config.EmailDispatchInterval)
	sm.logger.Info("Notification service initialized")

	sm.attendanceService = NewAttendanceService(sm.repo, sm.logger, sm.validator, sm.eventPublisher, sm.config.Live, sm.notificationService)
	sm.logger.Info("Attendance service initialized")

	sm.sessionService = NewSessionService(sm.repo, sm.logger, sm.validator, sm.eventPublisher, sm.config.Live, sm.config.Progress, sm.notificationService)
	sm.logger.Info("Session service initialized")

	sm.sabaqService = NewSabaqService(sm.repo, sm.logger, sm.validator)
	sm.logger.Info("Sabaq service initialized")

	sm.enrollmentService = NewEnrollmentService(sm.repo, sm.logger, sm.validator, sm.eventPublisher, sm.notificationService)
	sm.logger.Info("Enrollment service initialized")

	sm.questionService = NewQuestionService(sm.repo, sm.logger, sm.validator)
	sm.logger.Info("Question service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")
	return nil
}

// Service getters

func (sm *serviceManager) Attendance() AttendanceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attendanceService
}

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sessionService
}

func (sm *serviceManager) Sabaq() SabaqService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.sabaqService
}

func (sm *serviceManager) Enrollment() EnrollmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.enrollmentService
}

func (sm *serviceManager) Question() QuestionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.questionService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.notificationService
}

// Health and lifecycle

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}
	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if err := sm.repo.Close(); err != nil {
		sm.logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")
	return nil
}
