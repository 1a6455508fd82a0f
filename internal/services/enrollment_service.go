package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sabaq-center/sabaq-service/internal/events"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/permissions"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

type enrollmentService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	notifier       NotificationService
}

func NewEnrollmentService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	eventPublisher events.EventPublisher,
	notifier NotificationService,
) EnrollmentService {
	return &enrollmentService{
		repo:           repo,
		logger:         logger,
		validator:      v,
		eventPublisher: eventPublisher,
		notifier:       notifier,
	}
}

// Request files a PENDING enrollment inside the sabaq's enrollment window.
func (s *enrollmentService) Request(ctx context.Context, req *EnrollRequest, userID uint) (*models.Enrollment, error) {
	s.logger.Info("Enrollment requested", "sabaq_id", req.SabaqID, "user_id", userID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	sabaq, err := s.repo.Sabaq().GetByID(ctx, req.SabaqID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSabaqNotFound
		}
		return nil, fmt.Errorf("failed to get sabaq: %w", err)
	}

	if !sabaq.EnrollmentOpen(time.Now()) {
		return nil, ErrEnrollmentClosed
	}

	if _, err := s.repo.Enrollment().GetBySabaqAndUser(ctx, req.SabaqID, userID); err == nil {
		return nil, ErrAlreadyEnrolled
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}

	enrollment := &models.Enrollment{
		SabaqID: req.SabaqID,
		UserID:  userID,
		Status:  models.EnrollmentPending,
	}
	if err := s.repo.Enrollment().Create(ctx, enrollment); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("failed to create enrollment: %w", err)
	}

	s.logger.Info("Enrollment created", "enrollment_id", enrollment.ID, "sabaq_id", req.SabaqID, "user_id", userID)
	return enrollment, nil
}

// Review approves or rejects a pending request. Approval bumps the sabaq
// member counter in the same transaction; the requester is notified either
// way.
func (s *enrollmentService) Review(ctx context.Context, enrollmentID uint, approve bool, actorID uint) (*models.Enrollment, error) {
	s.logger.Info("Reviewing enrollment", "enrollment_id", enrollmentID, "approve", approve, "actor_id", actorID)

	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !permissions.Can(actor.Role, permissions.ResourceEnrollment, permissions.ActionApprove) {
		return nil, NewPermissionError(actorID, "enrollment", "approve", "role not allowed")
	}

	enrollment, err := s.repo.Enrollment().GetByID(ctx, enrollmentID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}

	sabaq, err := s.repo.Sabaq().GetByID(ctx, enrollment.SabaqID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSabaqNotFound
		}
		return nil, fmt.Errorf("failed to get sabaq: %w", err)
	}
	if actor.Role == models.RoleJanab && (sabaq.JanabID == nil || *sabaq.JanabID != actor.ID) {
		return nil, NewPermissionError(actorID, "enrollment", "approve", "not the janab of this sabaq")
	}

	if enrollment.Status != models.EnrollmentPending {
		return nil, ErrEnrollmentReviewed
	}

	now := time.Now()
	status := models.EnrollmentRejected
	if approve {
		status = models.EnrollmentApproved
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		enrollment.Status = status
		enrollment.ReviewedBy = &actorID
		enrollment.ReviewedAt = &now
		if err := tx.Enrollment().Update(ctx, enrollment); err != nil {
			return fmt.Errorf("failed to update enrollment: %w", err)
		}
		if approve {
			return tx.Sabaq().IncrementMembers(ctx, enrollment.SabaqID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyReviewed(ctx, enrollment, sabaq, approve)

	if s.eventPublisher != nil {
		event := events.NewEvent(events.TopicEnrollmentReviewed, events.EnrollmentReviewedEvent{
			EnrollmentID: enrollment.ID,
			SabaqID:      enrollment.SabaqID,
			UserID:       enrollment.UserID,
			Status:       string(status),
			ReviewedBy:   actorID,
		})
		if err := s.eventPublisher.Publish(ctx, events.TopicEnrollmentReviewed, event); err != nil {
			s.logger.Warn("Failed to publish enrollment event", "enrollment_id", enrollment.ID, "error", err)
		}
	}

	s.logger.Info("Enrollment reviewed", "enrollment_id", enrollment.ID, "status", status)
	return enrollment, nil
}

func (s *enrollmentService) ListBySabaq(ctx context.Context, sabaqID uint, filters repositories.EnrollmentFilters, actorID uint) (*EnrollmentListResponse, error) {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !permissions.Can(actor.Role, permissions.ResourceEnrollment, permissions.ActionRead) {
		return nil, NewPermissionError(actorID, "enrollment", "read", "role not allowed")
	}

	enrollments, total, err := s.repo.Enrollment().ListBySabaq(ctx, sabaqID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	return &EnrollmentListResponse{Enrollments: enrollments, Total: total}, nil
}

func (s *enrollmentService) notifyReviewed(ctx context.Context, enrollment *models.Enrollment, sabaq *models.Sabaq, approved bool) {
	if s.notifier == nil {
		return
	}

	user, err := s.repo.User().GetByID(ctx, enrollment.UserID)
	if err != nil || !user.HasEmail() {
		return
	}

	template := models.TemplateEnrollmentRejected
	subject := fmt.Sprintf("Enrollment update for %s", sabaq.Name)
	if approved {
		template = models.TemplateEnrollmentApproved
		subject = fmt.Sprintf("Welcome to %s", sabaq.Name)
	}
	data := map[string]interface{}{
		"name":       user.Name,
		"sabaq_name": sabaq.Name,
	}
	if err := s.notifier.QueueEmail(ctx, *user.Email, subject, template, data); err != nil {
		s.logger.Warn("Failed to queue enrollment email", "user_id", user.ID, "error", err)
	}
}
