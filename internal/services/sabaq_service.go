package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/permissions"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
	"github.com/sabaq-center/sabaq-service/internal/validator"
)

type sabaqService struct {
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
}

func NewSabaqService(repo repositories.Repository, logger *slog.Logger, v *validator.Validator) SabaqService {
	return &sabaqService{repo: repo, logger: logger, validator: v}
}

func (s *sabaqService) Create(ctx context.Context, req *CreateSabaqRequest, actorID uint) (*SabaqResponse, error) {
	s.logger.Info("Creating sabaq", "name", req.Name, "actor_id", actorID)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !permissions.Can(actor.Role, permissions.ResourceSabaq, permissions.ActionCreate) {
		return nil, NewPermissionError(actorID, "sabaq", "create", "role not allowed")
	}

	if req.JanabID != nil {
		if _, err := s.repo.User().GetByID(ctx, *req.JanabID); err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to look up janab: %w", err)
		}
	}
	if req.AllowLocationAttendance && req.Location == nil {
		return nil, NewBusinessRuleError("location_required",
			"a location must be configured to enable location-based attendance")
	}

	sabaq := &models.Sabaq{
		Name:                    req.Name,
		Kitaab:                  req.Kitaab,
		Level:                   req.Level,
		EnrollmentStart:         req.EnrollmentStart,
		EnrollmentEnd:           req.EnrollmentEnd,
		JanabID:                 req.JanabID,
		AllowLocationAttendance: req.AllowLocationAttendance,
	}
	if req.Location != nil {
		sabaq.Location = &models.Location{
			Name:         req.Location.Name,
			Latitude:     req.Location.Latitude,
			Longitude:    req.Location.Longitude,
			RadiusMeters: req.Location.RadiusMeters,
		}
	}

	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Sabaq().Create(ctx, sabaq); err != nil {
			return fmt.Errorf("failed to create sabaq: %w", err)
		}
		if sabaq.JanabID != nil {
			return tx.User().IncrementManagedSabaqs(ctx, *sabaq.JanabID, 1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sabaq created", "sabaq_id", sabaq.ID, "name", sabaq.Name)
	return &SabaqResponse{Sabaq: sabaq}, nil
}

func (s *sabaqService) GetByID(ctx context.Context, id uint) (*SabaqResponse, error) {
	sabaq, err := s.repo.Sabaq().GetByIDWithDetails(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSabaqNotFound
		}
		return nil, fmt.Errorf("failed to get sabaq: %w", err)
	}
	return &SabaqResponse{Sabaq: sabaq}, nil
}

func (s *sabaqService) List(ctx context.Context, filters repositories.SabaqFilters) (*SabaqListResponse, error) {
	sabaqs, total, err := s.repo.Sabaq().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list sabaqs: %w", err)
	}

	out := make([]*SabaqResponse, 0, len(sabaqs))
	for _, sabaq := range sabaqs {
		out = append(out, &SabaqResponse{Sabaq: sabaq})
	}
	return &SabaqListResponse{Sabaqs: out, Total: total}, nil
}

func (s *sabaqService) Delete(ctx context.Context, id uint, actorID uint) error {
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !permissions.Can(actor.Role, permissions.ResourceSabaq, permissions.ActionDelete) {
		return NewPermissionError(actorID, "sabaq", "delete", "role not allowed")
	}

	if _, err := s.repo.Sabaq().GetByID(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSabaqNotFound
		}
		return fmt.Errorf("failed to get sabaq: %w", err)
	}

	if err := s.repo.Sabaq().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete sabaq: %w", err)
	}

	s.logger.Info("Sabaq deleted", "sabaq_id", id, "actor_id", actorID)
	return nil
}

// AddAdmin grants sabaq-scoped admin rights; the grant feeds both the
// active-check bypass and the report recipient set.
func (s *sabaqService) AddAdmin(ctx context.Context, sabaqID, userID uint, actorID uint) error {
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !permissions.Can(actor.Role, permissions.ResourceSabaq, permissions.ActionUpdate) {
		return NewPermissionError(actorID, "sabaq", "update", "role not allowed")
	}

	sabaq, err := s.repo.Sabaq().GetByID(ctx, sabaqID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrSabaqNotFound
		}
		return fmt.Errorf("failed to get sabaq: %w", err)
	}
	if actor.Role == models.RoleJanab && (sabaq.JanabID == nil || *sabaq.JanabID != actor.ID) {
		return NewPermissionError(actorID, "sabaq", "update", "not the janab of this sabaq")
	}

	if _, err := s.getUser(ctx, userID); err != nil {
		return err
	}

	if err := s.repo.Sabaq().AddAdmin(ctx, sabaqID, userID); err != nil {
		if repositories.IsDuplicateError(err) {
			return nil
		}
		return fmt.Errorf("failed to add sabaq admin: %w", err)
	}

	s.logger.Info("Sabaq admin added", "sabaq_id", sabaqID, "user_id", userID, "actor_id", actorID)
	return nil
}

func (s *sabaqService) RemoveAdmin(ctx context.Context, sabaqID, userID uint, actorID uint) error {
	actor, err := s.getUser(ctx, actorID)
	if err != nil {
		return err
	}
	if !permissions.Can(actor.Role, permissions.ResourceSabaq, permissions.ActionUpdate) {
		return NewPermissionError(actorID, "sabaq", "update", "role not allowed")
	}

	if err := s.repo.Sabaq().RemoveAdmin(ctx, sabaqID, userID); err != nil {
		return fmt.Errorf("failed to remove sabaq admin: %w", err)
	}

	s.logger.Info("Sabaq admin removed", "sabaq_id", sabaqID, "user_id", userID, "actor_id", actorID)
	return nil
}

func (s *sabaqService) getUser(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
