package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByITSNumber(ctx context.Context, its string) (*models.User, error) {
	var user models.User
	if err := u.db.WithContext(ctx).Where("its_number = ?", its).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *UserPostgreSQL) GetByRole(ctx context.Context, role models.UserRole) ([]*models.User, error) {
	var users []*models.User
	if err := u.db.WithContext(ctx).Where("role = ?", role).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Save(user).Error
}

func (u *UserPostgreSQL) IncrementAttendanceCounters(ctx context.Context, userID uint, attendedDelta, lateDelta int) error {
	updates := map[string]interface{}{
		"attended_count": gorm.Expr("attended_count + ?", attendedDelta),
	}
	if lateDelta != 0 {
		updates["late_count"] = gorm.Expr("late_count + ?", lateDelta)
	}
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

func (u *UserPostgreSQL) IncrementQuestionsCount(ctx context.Context, userID uint, delta int) error {
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("questions_count", gorm.Expr("questions_count + ?", delta)).Error
}

func (u *UserPostgreSQL) IncrementManagedSabaqs(ctx context.Context, userID uint, delta int) error {
	return u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("managed_sabaqs_count", gorm.Expr("managed_sabaqs_count + ?", delta)).Error
}
