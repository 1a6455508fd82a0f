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

type sessionService struct {
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	live           *livestore.Store
	progress       *livestore.ProgressPublisher
	notifier       NotificationService
}

func NewSessionService(
	repo repositories.Repository,
	logger *slog.Logger,
	v *validator.Validator,
	eventPublisher events.EventPublisher,
	live *livestore.Store,
	progress *livestore.ProgressPublisher,
	notifier NotificationService,
) SessionService {
	return &sessionService{
		repo:           repo,
		logger:         logger,
		validator:      v,
		eventPublisher: eventPublisher,
		live:           live,
		progress:       progress,
		notifier:       notifier,
	}
}

func (s *sessionService) Create(ctx context.Context, req *CreateSessionRequest, actorID uint) (*SessionResponse, error) {
	s.logger.Info("Creating session", "sabaq_id", req.SabaqID, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	if req.CutoffTime.Before(req.ScheduledAt) {
		return nil, NewBusinessRuleError("cutoff_before_schedule", "cutoff time cannot be before the scheduled time")
	}

	actor, sabaq, err := s.authorize(ctx, req.SabaqID, actorID, permissions.ActionCreate)
	if err != nil {
		return nil, err
	}
	_ = actor

	session := &models.Session{
		SabaqID:     sabaq.ID,
		ScheduledAt: req.ScheduledAt,
		CutoffTime:  req.CutoffTime,
	}
	if err := s.repo.Session().Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Session created", "session_id", session.ID, "sabaq_id", sabaq.ID)
	return s.toResponse(session), nil
}

func (s *sessionService) GetByID(ctx context.Context, id uint) (*SessionResponse, error) {
	session, err := s.repo.Session().GetByIDWithSabaq(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s.toResponse(session), nil
}

func (s *sessionService) List(ctx context.Context, filters repositories.SessionFilters) (*SessionListResponse, error) {
	sessions, total, err := s.repo.Session().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	out := make([]*SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, s.toResponse(session))
	}
	return &SessionListResponse{Sessions: out, Total: total}, nil
}

// Start performs SCHEDULED -> ACTIVE. The "no other active session" guard is
// a pre-check query; two Starts racing past it is an accepted limitation
// given human-paced admin usage.
func (s *sessionService) Start(ctx context.Context, id uint, actorID uint) (*SessionResponse, error) {
	s.logger.Info("Starting session", "session_id", id, "actor_id", actorID)

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, session.SabaqID, actorID, permissions.ActionStart); err != nil {
		return nil, err
	}

	if session.IsActive {
		return nil, ErrSessionAlreadyActive
	}
	if session.StartedAt != nil {
		return nil, ErrSessionAlreadyStarted
	}

	if active, err := s.repo.Session().GetActiveBySabaq(ctx, session.SabaqID); err == nil && active.ID != session.ID {
		return nil, ErrSessionAlreadyActive
	} else if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}

	now := time.Now()
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session.StartedAt = &now
		session.IsActive = true
		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return tx.Sabaq().SetActiveSession(ctx, session.SabaqID, &session.ID)
	})
	if err != nil {
		return nil, err
	}

	s.notifyEnrolled(ctx, session)
	s.publishLifecycle(ctx, events.TopicSessionStarted, session, now)

	s.logger.Info("Session started", "session_id", session.ID, "sabaq_id", session.SabaqID)
	return s.toResponse(session), nil
}

// End performs ACTIVE -> ENDED. SkipActiveCheck lets the reconciliation flow
// finalize a session whose flag was already flipped mid-sync.
func (s *sessionService) End(ctx context.Context, id uint, opts EndSessionOptions, actorID uint) (*SessionResponse, error) {
	s.logger.Info("Ending session", "session_id", id, "actor_id", actorID, "skip_active_check", opts.SkipActiveCheck)

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, session.SabaqID, actorID, permissions.ActionEnd); err != nil {
		return nil, err
	}

	if session.EndedAt != nil {
		return nil, ErrSessionAlreadyEnded
	}
	if !session.IsActive && !opts.SkipActiveCheck {
		return nil, ErrSessionNotActive
	}

	now := time.Now()
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session.IsActive = false
		session.EndedAt = &now
		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		if err := tx.Sabaq().SetActiveSession(ctx, session.SabaqID, nil); err != nil {
			return fmt.Errorf("failed to clear active session: %w", err)
		}
		return tx.Sabaq().IncrementConductedSessions(ctx, session.SabaqID)
	})
	if err != nil {
		return nil, err
	}

	s.publishLifecycle(ctx, events.TopicSessionEnded, session, now)

	s.logger.Info("Session ended", "session_id", session.ID, "sabaq_id", session.SabaqID)
	return s.toResponse(session), nil
}

// Resume performs ENDED -> ACTIVE, keeping the original StartedAt.
func (s *sessionService) Resume(ctx context.Context, id uint, actorID uint) (*SessionResponse, error) {
	s.logger.Info("Resuming session", "session_id", id, "actor_id", actorID)

	session, err := s.getSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.authorize(ctx, session.SabaqID, actorID, permissions.ActionResume); err != nil {
		return nil, err
	}

	if session.IsActive {
		return nil, ErrSessionAlreadyActive
	}
	if session.EndedAt == nil {
		return nil, ErrSessionHasNotEnded
	}

	if active, err := s.repo.Session().GetActiveBySabaq(ctx, session.SabaqID); err == nil && active.ID != session.ID {
		return nil, ErrSessionAlreadyActive
	} else if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check active session: %w", err)
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		session.IsActive = true
		session.EndedAt = nil
		if err := tx.Session().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		return tx.Sabaq().SetActiveSession(ctx, session.SabaqID, &session.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session resumed", "session_id", session.ID, "sabaq_id", session.SabaqID)
	return s.toResponse(session), nil
}

// Delete is only permitted before the session has started, to preserve
// attendance-history integrity.
func (s *sessionService) Delete(ctx context.Context, id uint, actorID uint) error {
	s.logger.Info("Deleting session", "session_id", id, "actor_id", actorID)

	session, err := s.getSession(ctx, id)
	if err != nil {
		return err
	}
	if _, _, err := s.authorize(ctx, session.SabaqID, actorID, permissions.ActionDelete); err != nil {
		return err
	}

	if session.StartedAt != nil {
		return ErrSessionNotDeletable
	}

	if err := s.repo.Session().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.logger.Info("Session deleted", "session_id", id)
	return nil
}

// ===== HELPERS =====

func (s *sessionService) getSession(ctx context.Context, id uint) (*models.Session, error) {
	session, err := s.repo.Session().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// authorize checks the capability table plus JANAB sabaq scoping for session
// lifecycle actions.
func (s *sessionService) authorize(ctx context.Context, sabaqID, actorID uint, action permissions.Action) (*models.User, *models.Sabaq, error) {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to get user: %w", err)
	}

	sabaq, err := s.repo.Sabaq().GetByID(ctx, sabaqID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, nil, ErrSabaqNotFound
		}
		return nil, nil, fmt.Errorf("failed to get sabaq: %w", err)
	}

	if !permissions.Can(actor.Role, permissions.ResourceSession, action) {
		return nil, nil, NewPermissionError(actorID, "session", string(action), "role not allowed")
	}
	if actor.Role == models.RoleJanab && (sabaq.JanabID == nil || *sabaq.JanabID != actor.ID) {
		return nil, nil, NewPermissionError(actorID, "session", string(action), "not the janab of this sabaq")
	}

	return actor, sabaq, nil
}

func (s *sessionService) toResponse(session *models.Session) *SessionResponse {
	return &SessionResponse{Session: session, State: session.State()}
}

// notifyEnrolled queues a session-started email for every approved member
// with an email address. Failures are logged, never propagated.
func (s *sessionService) notifyEnrolled(ctx context.Context, session *models.Session) {
	if s.notifier == nil {
		return
	}

	sabaq, err := s.repo.Sabaq().GetByID(ctx, session.SabaqID)
	if err != nil {
		s.logger.Warn("Failed to load sabaq for notifications", "sabaq_id", session.SabaqID, "error", err)
		return
	}

	members, err := s.repo.Enrollment().ApprovedUsers(ctx, session.SabaqID)
	if err != nil {
		s.logger.Warn("Failed to list members for notifications", "sabaq_id", session.SabaqID, "error", err)
		return
	}

	subject := fmt.Sprintf("%s session has started", sabaq.Name)
	for _, member := range members {
		if !member.HasEmail() {
			continue
		}
		data := map[string]interface{}{
			"name":       member.Name,
			"sabaq_name": sabaq.Name,
			"kitaab":     sabaq.Kitaab,
		}
		if err := s.notifier.QueueEmail(ctx, *member.Email, subject, models.TemplateSessionStarted, data); err != nil {
			s.logger.Warn("Failed to queue session-started email", "user_id", member.ID, "error", err)
		}
	}
}

func (s *sessionService) publishLifecycle(ctx context.Context, topic string, session *models.Session, at time.Time) {
	if s.eventPublisher == nil {
		return
	}
	event := events.NewEvent(topic, events.SessionLifecycleEvent{
		SessionID: session.ID,
		SabaqID:   session.SabaqID,
		At:        at,
	})
	if err := s.eventPublisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("Failed to publish session event", "topic", topic, "session_id", session.ID, "error", err)
	}
}
