package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/sabaq-center/sabaq-service/internal/events"
	"github.com/sabaq-center/sabaq-service/internal/livestore"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/permissions"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

// markContext carries the entities resolved by the shared precondition chain.
type markContext struct {
	session *models.Session
	sabaq   *models.Sabaq
}

// resolveMarkContext runs the shared preconditions in order, short-circuiting
// on the first failure: target exists (resolved by the caller), session
// exists, target holds an APPROVED enrollment, session is active unless the
// actor may bypass.
func (s *attendanceService) resolveMarkContext(ctx context.Context, sessionID uint, target, actor *models.User) (*markContext, error) {
	session, err := s.getSessionWithSabaq(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sabaq := &session.Sabaq

	enrollment, err := s.repo.Enrollment().GetBySabaqAndUser(ctx, sabaq.ID, target.ID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrollment.Status != models.EnrollmentApproved {
		return nil, ErrNotEnrolled
	}

	if !session.IsActive && !s.canBypassActiveCheck(ctx, sabaq, actor) {
		return nil, ErrSessionNotActive
	}

	return &markContext{session: session, sabaq: sabaq}, nil
}

// canBypassActiveCheck allows SUPERADMIN globally, and the sabaq's janab or
// a sabaq-scoped admin for that sabaq only.
func (s *attendanceService) canBypassActiveCheck(ctx context.Context, sabaq *models.Sabaq, actor *models.User) bool {
	if permissions.CanBypassActiveCheck(actor.Role) {
		return true
	}
	if s.isJanabOf(sabaq, actor.ID) {
		return true
	}
	isAdmin, err := s.repo.Sabaq().IsSabaqAdmin(ctx, sabaq.ID, actor.ID)
	if err != nil {
		s.logger.Warn("Failed to check sabaq admin grant", "sabaq_id", sabaq.ID, "user_id", actor.ID, "error", err)
		return false
	}
	return isAdmin
}

func (s *attendanceService) isJanabOf(sabaq *models.Sabaq, userID uint) bool {
	return sabaq.JanabID != nil && *sabaq.JanabID == userID
}

func (s *attendanceService) buildAttendance(mc *markContext, userID, markedByID uint, method models.AttendanceMethod, markedAt time.Time) *models.Attendance {
	isLate, minutesLate := CalculateLateness(markedAt, mc.session.CutoffTime)
	return &models.Attendance{
		SessionID:   mc.session.ID,
		SabaqID:     mc.sabaq.ID,
		UserID:      userID,
		MarkedAt:    markedAt,
		MarkedByID:  markedByID,
		Method:      method,
		IsLate:      isLate,
		MinutesLate: minutesLate,
	}
}

// commitMark performs the duplicate fast path, the transactional insert with
// counter updates, and the post-commit side effects (live buffer, email,
// event). Side-effect failures are logged and never roll back the mark.
func (s *attendanceService) commitMark(ctx context.Context, mc *markContext, attendee *models.User, attendance *models.Attendance) (*AttendanceResponse, error) {
	// Fast path; the (session_id, user_id) unique index is the guarantee.
	if _, err := s.repo.Attendance().GetBySessionAndUser(ctx, attendance.SessionID, attendance.UserID); err == nil {
		return nil, ErrAlreadyMarked
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing attendance: %w", err)
	}

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attendance().Create(ctx, attendance); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyMarked
			}
			return fmt.Errorf("failed to create attendance: %w", err)
		}
		if err := tx.Session().IncrementAttendanceCount(ctx, attendance.SessionID, 1); err != nil {
			return fmt.Errorf("failed to increment session counter: %w", err)
		}
		lateDelta := 0
		if attendance.IsLate {
			lateDelta = 1
		}
		if err := tx.User().IncrementAttendanceCounters(ctx, attendance.UserID, 1, lateDelta); err != nil {
			return fmt.Errorf("failed to increment user counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterMark(ctx, mc, attendee, attendance)

	s.logger.Info("Attendance marked",
		"session_id", attendance.SessionID,
		"user_id", attendance.UserID,
		"method", attendance.Method,
		"is_late", attendance.IsLate,
		"minutes_late", attendance.MinutesLate)

	return &AttendanceResponse{Attendance: attendance}, nil
}

func (s *attendanceService) afterMark(ctx context.Context, mc *markContext, attendee *models.User, attendance *models.Attendance) {
	if s.live != nil {
		record := livestore.Record{
			UserID:      attendance.UserID,
			MarkedAt:    attendance.MarkedAt,
			Method:      string(attendance.Method),
			IsLate:      attendance.IsLate,
			MinutesLate: attendance.MinutesLate,
			Latitude:    attendance.Latitude,
			Longitude:   attendance.Longitude,
		}
		if attendance.MarkedByID != attendance.UserID {
			markedBy := attendance.MarkedByID
			record.MarkedByID = &markedBy
		}
		if err := s.live.Add(ctx, attendance.SessionID, record); err != nil {
			s.logger.Warn("Failed to buffer live attendance", "session_id", attendance.SessionID, "error", err)
		}
	}

	if attendee.HasEmail() && s.notifier != nil {
		subject := fmt.Sprintf("Attendance marked for %s", mc.sabaq.Name)
		data := map[string]interface{}{
			"name":         attendee.Name,
			"sabaq_name":   mc.sabaq.Name,
			"session_date": mc.session.ScheduledAt.Format("2006-01-02"),
			"is_late":      attendance.IsLate,
			"minutes_late": attendance.MinutesLate,
		}
		if err := s.notifier.QueueEmail(ctx, *attendee.Email, subject, models.TemplateAttendanceMarked, data); err != nil {
			s.logger.Warn("Failed to queue attendance email", "user_id", attendee.ID, "error", err)
		}
	}

	if s.eventPublisher != nil {
		event := events.NewEvent(events.TopicAttendanceMarked, events.AttendanceMarkedEvent{
			SessionID:   attendance.SessionID,
			SabaqID:     attendance.SabaqID,
			UserID:      attendance.UserID,
			Method:      string(attendance.Method),
			IsLate:      attendance.IsLate,
			MinutesLate: attendance.MinutesLate,
			MarkedAt:    attendance.MarkedAt,
		})
		if err := s.eventPublisher.Publish(ctx, events.TopicAttendanceMarked, event); err != nil {
			s.logger.Warn("Failed to publish attendance event", "session_id", attendance.SessionID, "error", err)
		}
	}
}

// applyBulkItem applies one PRESENT/LATE/ABSENT correction. ABSENT deletes
// idempotently; PRESENT/LATE upserts, trusting the caller's lateness
// classification instead of recomputing from the cutoff.
func (s *attendanceService) applyBulkItem(ctx context.Context, session *models.Session, item validator.BulkMarkItemRequest, actor *models.User) error {
	existing, err := s.repo.Attendance().GetBySessionAndUser(ctx, session.ID, item.UserID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to check existing attendance: %w", err)
	}
	exists := err == nil

	if item.Status == models.BulkAbsent {
		if !exists {
			// Deleting a missing row is not an error.
			return nil
		}
		return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			deleted, err := tx.Attendance().DeleteBySessionAndUser(ctx, session.ID, item.UserID)
			if err != nil {
				return fmt.Errorf("failed to delete attendance: %w", err)
			}
			if !deleted {
				return nil
			}
			if err := tx.Session().IncrementAttendanceCount(ctx, session.ID, -1); err != nil {
				return fmt.Errorf("failed to decrement session counter: %w", err)
			}
			lateDelta := 0
			if existing.IsLate {
				lateDelta = -1
			}
			return tx.User().IncrementAttendanceCounters(ctx, item.UserID, -1, lateDelta)
		})
	}

	isLate := item.Status == models.BulkLate

	if exists {
		if existing.IsLate == isLate {
			// Counters are untouched, but the correction is still attributed
			// to whoever confirmed it.
			if existing.MarkedByID == actor.ID {
				return nil
			}
			existing.MarkedByID = actor.ID
			if err := s.repo.Attendance().Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to update attendance: %w", err)
			}
			return nil
		}
		return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
			existing.IsLate = isLate
			existing.MarkedByID = actor.ID
			if !isLate {
				existing.MinutesLate = 0
			}
			if err := tx.Attendance().Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to update attendance: %w", err)
			}
			lateDelta := 1
			if !isLate {
				lateDelta = -1
			}
			return tx.User().IncrementAttendanceCounters(ctx, item.UserID, 0, lateDelta)
		})
	}

	// Fresh row: user must be an approved member, same as online marking.
	enrollment, err := s.repo.Enrollment().GetBySabaqAndUser(ctx, session.SabaqID, item.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotEnrolled
		}
		return fmt.Errorf("failed to check enrollment: %w", err)
	}
	if enrollment.Status != models.EnrollmentApproved {
		return ErrNotEnrolled
	}

	attendance := &models.Attendance{
		SessionID:  session.ID,
		SabaqID:    session.SabaqID,
		UserID:     item.UserID,
		MarkedAt:   time.Now(),
		MarkedByID: actor.ID,
		Method:     models.MethodManualEntry,
		IsLate:     isLate,
	}

	return s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attendance().Create(ctx, attendance); err != nil {
			if repositories.IsDuplicateError(err) {
				return ErrAlreadyMarked
			}
			return fmt.Errorf("failed to create attendance: %w", err)
		}
		if err := tx.Session().IncrementAttendanceCount(ctx, session.ID, 1); err != nil {
			return fmt.Errorf("failed to increment session counter: %w", err)
		}
		lateDelta := 0
		if isLate {
			lateDelta = 1
		}
		return tx.User().IncrementAttendanceCounters(ctx, item.UserID, 1, lateDelta)
	})
}

// ===== SHARED LOOKUPS =====

func (s *attendanceService) getUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *attendanceService) getSessionWithSabaq(ctx context.Context, sessionID uint) (*models.Session, error) {
	session, err := s.repo.Session().GetByIDWithSabaq(ctx, sessionID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (s *attendanceService) auditLog(ctx context.Context, actorID uint, action string, details map[string]interface{}) {
	payload, err := json.Marshal(details)
	if err != nil {
		return
	}
	entry := &models.SecurityLog{
		UserID:  &actorID,
		Action:  action,
		Details: datatypes.JSON(payload),
	}
	if err := s.repo.SecurityLog().Create(ctx, entry); err != nil {
		s.logger.Warn("Failed to write security log", "action", action, "error", err)
	}
}
