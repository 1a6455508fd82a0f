package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/cache"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type SessionPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSessionPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SessionRepository {
	return &SessionPostgreSQL{db: db, cacheManager: cacheManager}
}

func (s *SessionPostgreSQL) Create(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

// GetByID deliberately bypasses the cache: lifecycle transitions re-read
// current state and must not act on a stale view.
func (s *SessionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) GetByIDWithSabaq(ctx context.Context, id uint) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).
		Preload("Sabaq").
		Preload("Sabaq.Janab").
		Preload("Sabaq.Location").
		First(&session, id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) Update(ctx context.Context, session *models.Session) error {
	if err := s.db.WithContext(ctx).Save(session).Error; err != nil {
		return err
	}
	cache.InvalidateSessionCache(ctx, s.cacheManager, session.ID, session.SabaqID)
	return nil
}

func (s *SessionPostgreSQL) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&models.Session{}, id).Error
}

func (s *SessionPostgreSQL) List(ctx context.Context, filters repositories.SessionFilters) ([]*models.Session, int64, error) {
	var sessions []*models.Session
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Session{})
	if filters.SabaqID != nil {
		query = query.Where("sabaq_id = ?", *filters.SabaqID)
	}
	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.DateFrom != nil {
		query = query.Where("scheduled_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("scheduled_at <= ?", *filters.DateTo)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "scheduled_at")

	if err := query.Find(&sessions).Error; err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (s *SessionPostgreSQL) GetActiveBySabaq(ctx context.Context, sabaqID uint) (*models.Session, error) {
	var session models.Session
	err := s.db.WithContext(ctx).
		Where("sabaq_id = ? AND is_active = ?", sabaqID, true).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionPostgreSQL) IncrementAttendanceCount(ctx context.Context, sessionID uint, delta int) error {
	err := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("attendance_count", gorm.Expr("attendance_count + ?", delta)).Error
	if err != nil {
		return err
	}
	cache.SafeDelete(ctx, s.cacheManager.Session, fmt.Sprintf("id:%d", sessionID))
	return nil
}

func (s *SessionPostgreSQL) IncrementQuestionsCount(ctx context.Context, sessionID uint, delta int) error {
	return s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", sessionID).
		Update("questions_count", gorm.Expr("questions_count + ?", delta)).Error
}
