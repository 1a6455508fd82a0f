package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type EnrollmentPostgreSQL struct {
	db *gorm.DB
}

func NewEnrollmentPostgreSQL(db *gorm.DB) repositories.EnrollmentRepository {
	return &EnrollmentPostgreSQL{db: db}
}

func (e *EnrollmentPostgreSQL) Create(ctx context.Context, enrollment *models.Enrollment) error {
	return e.db.WithContext(ctx).Create(enrollment).Error
}

func (e *EnrollmentPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	if err := e.db.WithContext(ctx).Preload("User").First(&enrollment, id).Error; err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) GetBySabaqAndUser(ctx context.Context, sabaqID, userID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := e.db.WithContext(ctx).
		Where("sabaq_id = ? AND user_id = ?", sabaqID, userID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (e *EnrollmentPostgreSQL) Update(ctx context.Context, enrollment *models.Enrollment) error {
	return e.db.WithContext(ctx).Save(enrollment).Error
}

func (e *EnrollmentPostgreSQL) ListBySabaq(ctx context.Context, sabaqID uint, filters repositories.EnrollmentFilters) ([]*models.Enrollment, int64, error) {
	var enrollments []*models.Enrollment
	var total int64

	query := e.db.WithContext(ctx).Model(&models.Enrollment{}).Where("sabaq_id = ?", sabaqID)
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	if err := query.Preload("User").Order("created_at asc").Find(&enrollments).Error; err != nil {
		return nil, 0, err
	}

	return enrollments, total, nil
}

func (e *EnrollmentPostgreSQL) ApprovedUsers(ctx context.Context, sabaqID uint) ([]*models.User, error) {
	var users []*models.User
	err := e.db.WithContext(ctx).
		Joins("JOIN enrollments ON enrollments.user_id = users.id").
		Where("enrollments.sabaq_id = ? AND enrollments.status = ? AND enrollments.deleted_at IS NULL",
			sabaqID, models.EnrollmentApproved).
		Find(&users).Error
	return users, err
}
