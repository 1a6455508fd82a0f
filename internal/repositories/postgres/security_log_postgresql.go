package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type SecurityLogPostgreSQL struct {
	db *gorm.DB
}

func NewSecurityLogPostgreSQL(db *gorm.DB) repositories.SecurityLogRepository {
	return &SecurityLogPostgreSQL{db: db}
}

func (s *SecurityLogPostgreSQL) Create(ctx context.Context, entry *models.SecurityLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *SecurityLogPostgreSQL) ListByUser(ctx context.Context, userID uint, limit int) ([]*models.SecurityLog, error) {
	var entries []*models.SecurityLog
	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&entries).Error
	return entries, err
}
