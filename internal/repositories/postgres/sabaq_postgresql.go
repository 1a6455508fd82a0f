package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/cache"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type SabaqPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewSabaqPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.SabaqRepository {
	return &SabaqPostgreSQL{db: db, cacheManager: cacheManager}
}

func (s *SabaqPostgreSQL) Create(ctx context.Context, sabaq *models.Sabaq) error {
	return s.db.WithContext(ctx).Create(sabaq).Error
}

func (s *SabaqPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Sabaq, error) {
	var sabaq models.Sabaq
	cacheKey := fmt.Sprintf("id:%d", id)

	err := s.cacheManager.Sabaq.CacheOrExecute(ctx, cacheKey, &sabaq, cache.SabaqCacheConfig.TTL, func() (interface{}, error) {
		var dbSabaq models.Sabaq
		if err := s.db.WithContext(ctx).First(&dbSabaq, id).Error; err != nil {
			return nil, err
		}
		return &dbSabaq, nil
	})
	if err != nil {
		return nil, err
	}
	return &sabaq, nil
}

func (s *SabaqPostgreSQL) GetByIDWithDetails(ctx context.Context, id uint) (*models.Sabaq, error) {
	var sabaq models.Sabaq
	if err := s.db.WithContext(ctx).
		Preload("Janab").
		Preload("Location").
		First(&sabaq, id).Error; err != nil {
		return nil, err
	}
	return &sabaq, nil
}

func (s *SabaqPostgreSQL) Update(ctx context.Context, sabaq *models.Sabaq) error {
	if err := s.db.WithContext(ctx).Save(sabaq).Error; err != nil {
		return err
	}
	cache.InvalidateSabaqCache(ctx, s.cacheManager, sabaq.ID)
	return nil
}

func (s *SabaqPostgreSQL) Delete(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Sabaq{}, id).Error; err != nil {
		return err
	}
	cache.InvalidateSabaqCache(ctx, s.cacheManager, id)
	return nil
}

func (s *SabaqPostgreSQL) List(ctx context.Context, filters repositories.SabaqFilters) ([]*models.Sabaq, int64, error) {
	var sabaqs []*models.Sabaq
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Sabaq{})
	if filters.JanabID != nil {
		query = query.Where("janab_id = ?", *filters.JanabID)
	}
	if filters.Level != nil {
		query = query.Where("level = ?", *filters.Level)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPaginationAndSort(query, filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder, "name")

	if err := query.Preload("Janab").Preload("Location").Find(&sabaqs).Error; err != nil {
		return nil, 0, err
	}

	return sabaqs, total, nil
}

func (s *SabaqPostgreSQL) SetActiveSession(ctx context.Context, sabaqID uint, sessionID *uint) error {
	err := s.db.WithContext(ctx).
		Model(&models.Sabaq{}).
		Where("id = ?", sabaqID).
		Update("active_session_id", sessionID).Error
	if err != nil {
		return err
	}
	cache.InvalidateSabaqCache(ctx, s.cacheManager, sabaqID)
	return nil
}

func (s *SabaqPostgreSQL) IncrementConductedSessions(ctx context.Context, sabaqID uint) error {
	return s.db.WithContext(ctx).
		Model(&models.Sabaq{}).
		Where("id = ?", sabaqID).
		Update("conducted_sessions_count", gorm.Expr("conducted_sessions_count + 1")).Error
}

func (s *SabaqPostgreSQL) IncrementMembers(ctx context.Context, sabaqID uint, delta int) error {
	return s.db.WithContext(ctx).
		Model(&models.Sabaq{}).
		Where("id = ?", sabaqID).
		Update("members_count", gorm.Expr("members_count + ?", delta)).Error
}

func (s *SabaqPostgreSQL) IsSabaqAdmin(ctx context.Context, sabaqID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.SabaqAdmin{}).
		Where("sabaq_id = ? AND user_id = ?", sabaqID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *SabaqPostgreSQL) AddAdmin(ctx context.Context, sabaqID, userID uint) error {
	return s.db.WithContext(ctx).Create(&models.SabaqAdmin{SabaqID: sabaqID, UserID: userID}).Error
}

func (s *SabaqPostgreSQL) RemoveAdmin(ctx context.Context, sabaqID, userID uint) error {
	return s.db.WithContext(ctx).
		Where("sabaq_id = ? AND user_id = ?", sabaqID, userID).
		Delete(&models.SabaqAdmin{}).Error
}

func (s *SabaqPostgreSQL) AdminUsers(ctx context.Context, sabaqID uint) ([]*models.User, error) {
	var users []*models.User
	err := s.db.WithContext(ctx).
		Joins("JOIN sabaq_admins ON sabaq_admins.user_id = users.id").
		Where("sabaq_admins.sabaq_id = ?", sabaqID).
		Find(&users).Error
	return users, err
}
