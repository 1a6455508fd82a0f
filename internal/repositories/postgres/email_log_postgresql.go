package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type EmailLogPostgreSQL struct {
	db *gorm.DB
}

func NewEmailLogPostgreSQL(db *gorm.DB) repositories.EmailRepository {
	return &EmailLogPostgreSQL{db: db}
}

func (e *EmailLogPostgreSQL) Enqueue(ctx context.Context, email *models.EmailLog) error {
	email.Status = models.EmailPending
	return e.db.WithContext(ctx).Create(email).Error
}

func (e *EmailLogPostgreSQL) GetByID(ctx context.Context, id uint) (*models.EmailLog, error) {
	var email models.EmailLog
	if err := e.db.WithContext(ctx).First(&email, id).Error; err != nil {
		return nil, err
	}
	return &email, nil
}

func (e *EmailLogPostgreSQL) ListPending(ctx context.Context, limit int) ([]*models.EmailLog, error) {
	var emails []*models.EmailLog
	query := e.db.WithContext(ctx).
		Where("status = ?", models.EmailPending).
		Order("created_at asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&emails).Error
	return emails, err
}

func (e *EmailLogPostgreSQL) MarkSent(ctx context.Context, id uint) error {
	now := time.Now()
	return e.db.WithContext(ctx).
		Model(&models.EmailLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   models.EmailSent,
			"sent_at":  &now,
			"error":    nil,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (e *EmailLogPostgreSQL) MarkFailed(ctx context.Context, id uint, errMsg string) error {
	return e.db.WithContext(ctx).
		Model(&models.EmailLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   models.EmailFailed,
			"error":    errMsg,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (e *EmailLogPostgreSQL) ResetFailed(ctx context.Context) (int64, error) {
	result := e.db.WithContext(ctx).
		Model(&models.EmailLog{}).
		Where("status = ?", models.EmailFailed).
		Updates(map[string]interface{}{
			"status": models.EmailPending,
			"error":  nil,
		})
	return result.RowsAffected, result.Error
}

func (e *EmailLogPostgreSQL) CountByStatus(ctx context.Context, status models.EmailStatus) (int64, error) {
	var count int64
	err := e.db.WithContext(ctx).
		Model(&models.EmailLog{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
