package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sabaq-center/sabaq-service/internal/events"
	"github.com/sabaq-center/sabaq-service/internal/livestore"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/permissions"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

type attendanceService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	live           *livestore.Store
	notifier       NotificationService
}

func NewAttendanceService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	eventPublisher events.EventPublisher,
	live *livestore.Store,
	notifier NotificationService,
) AttendanceService {
	return &attendanceService{
		repo:           repo,
		logger:         logger,
		validator:      v,
		eventPublisher: eventPublisher,
		live:           live,
		notifier:       notifier,
	}
}

// ===== MARKING CHANNELS =====

func (s *attendanceService) MarkManual(ctx context.Context, sessionID uint, req *ManualMarkRequest, actorID uint) (*AttendanceResponse, error) {
	s.logger.Info("Marking attendance manually",
		"session_id", sessionID,
		"its_number", req.ITSNumber,
		"actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	target, err := s.repo.User().GetByITSNumber(ctx, req.ITSNumber)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	mc, err := s.resolveMarkContext(ctx, sessionID, target, actor)
	if err != nil {
		return nil, err
	}

	if !permissions.Can(actor.Role, permissions.ResourceAttendance, permissions.ActionMarkManual) {
		return nil, NewPermissionError(actorID, "attendance", "mark_manual", "role not allowed")
	}
	// JANAB may only mark manually within their own sabaq.
	if actor.Role == models.RoleJanab && !s.isJanabOf(mc.sabaq, actor.ID) {
		return nil, NewPermissionError(actorID, "attendance", "mark_manual", "not the janab of this sabaq")
	}

	attendance := s.buildAttendance(mc, target.ID, actor.ID, models.MethodManualEntry, time.Now())
	return s.commitMark(ctx, mc, target, attendance)
}

func (s *attendanceService) MarkByLocation(ctx context.Context, sessionID uint, req *LocationMarkRequest, actorID uint) (*AttendanceResponse, error) {
	s.logger.Info("Marking attendance by location",
		"session_id", sessionID,
		"actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	mc, err := s.resolveMarkContext(ctx, sessionID, actor, actor)
	if err != nil {
		return nil, err
	}

	if !mc.sabaq.AllowLocationAttendance {
		return nil, ErrLocationNotAllowed
	}
	if mc.sabaq.Location == nil {
		return nil, ErrLocationNotSet
	}

	loc := mc.sabaq.Location
	distance := HaversineDistance(req.Latitude, req.Longitude, loc.Latitude, loc.Longitude)
	if distance > loc.RadiusMeters {
		s.logger.Info("Location mark rejected, out of range",
			"session_id", sessionID,
			"actor_id", actorID,
			"distance_m", distance,
			"radius_m", loc.RadiusMeters)
		return nil, ErrOutOfRange
	}

	attendance := s.buildAttendance(mc, actor.ID, actor.ID, models.MethodLocationBasedSelf, time.Now())
	attendance.Latitude = &req.Latitude
	attendance.Longitude = &req.Longitude
	attendance.DistanceMeters = &distance

	return s.commitMark(ctx, mc, actor, attendance)
}

func (s *attendanceService) MarkByQR(ctx context.Context, sessionID uint, actorID uint) (*AttendanceResponse, error) {
	s.logger.Info("Marking attendance by QR scan",
		"session_id", sessionID,
		"actor_id", actorID)

	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	mc, err := s.resolveMarkContext(ctx, sessionID, actor, actor)
	if err != nil {
		return nil, err
	}

	attendance := s.buildAttendance(mc, actor.ID, actor.ID, models.MethodQRScan, time.Now())
	return s.commitMark(ctx, mc, actor, attendance)
}

// ===== BULK CORRECTIONS =====

func (s *attendanceService) BulkMark(ctx context.Context, sessionID uint, req *BulkMarkRequest, actorID uint) (*BulkMarkResult, error) {
	s.logger.Info("Bulk marking attendance",
		"session_id", sessionID,
		"items", len(req.Items),
		"actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	session, err := s.getSessionWithSabaq(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !permissions.Can(actor.Role, permissions.ResourceAttendance, permissions.ActionBulkMark) {
		return nil, NewPermissionError(actorID, "attendance", "bulk_mark", "role not allowed")
	}
	if actor.Role == models.RoleJanab && !s.isJanabOf(&session.Sabaq, actor.ID) {
		return nil, NewPermissionError(actorID, "attendance", "bulk_mark", "not the janab of this sabaq")
	}

	// Each item is processed independently; failures accumulate instead of
	// aborting the batch.
	result := &BulkMarkResult{}
	for _, item := range req.Items {
		if err := s.applyBulkItem(ctx, session, item, actor); err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, BulkMarkError{UserID: item.UserID, Error: err.Error()})
			continue
		}
		result.SuccessCount++
	}

	s.logger.Info("Bulk mark completed",
		"session_id", sessionID,
		"success", result.SuccessCount,
		"failed", result.FailedCount)
	return result, nil
}

// ===== READ / DELETE =====

func (s *attendanceService) ListBySession(ctx context.Context, sessionID uint, actorID uint) ([]*models.Attendance, error) {
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}

	session, err := s.getSessionWithSabaq(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !permissions.Can(actor.Role, permissions.ResourceAttendance, permissions.ActionRead) {
		return nil, NewPermissionError(actorID, "attendance", "read", "role not allowed")
	}
	if actor.Role == models.RoleJanab && !s.isJanabOf(&session.Sabaq, actor.ID) {
		return nil, NewPermissionError(actorID, "attendance", "read", "not the janab of this sabaq")
	}

	return s.repo.Attendance().ListBySession(ctx, sessionID)
}

func (s *attendanceService) Delete(ctx context.Context, sessionID, userID uint, actorID uint) error {
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !permissions.Can(actor.Role, permissions.ResourceAttendance, permissions.ActionDelete) {
		return NewPermissionError(actorID, "attendance", "delete", "role not allowed")
	}

	existing, err := s.repo.Attendance().GetBySessionAndUser(ctx, sessionID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrAttendanceNotFound
		}
		return fmt.Errorf("failed to get attendance: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		deleted, err := tx.Attendance().DeleteBySessionAndUser(ctx, sessionID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete attendance: %w", err)
		}
		if !deleted {
			return ErrAttendanceNotFound
		}
		if err := tx.Session().IncrementAttendanceCount(ctx, sessionID, -1); err != nil {
			return fmt.Errorf("failed to decrement session counter: %w", err)
		}
		lateDelta := 0
		if existing.IsLate {
			lateDelta = -1
		}
		if err := tx.User().IncrementAttendanceCounters(ctx, userID, -1, lateDelta); err != nil {
			return fmt.Errorf("failed to decrement user counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.live != nil {
		if err := s.live.Remove(ctx, sessionID, userID); err != nil {
			s.logger.Warn("Failed to remove live record", "session_id", sessionID, "user_id", userID, "error", err)
		}
	}

	s.auditLog(ctx, actor.ID, "attendance.delete", map[string]interface{}{
		"session_id": sessionID,
		"user_id":    userID,
	})

	s.logger.Info("Attendance deleted", "session_id", sessionID, "user_id", userID, "actor_id", actorID)
	return nil
}
