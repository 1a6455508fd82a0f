package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/cache"
	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type AttendancePostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewAttendancePostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.AttendanceRepository {
	return &AttendancePostgreSQL{db: db, cacheManager: cacheManager}
}

// Create inserts the attendance row. The (session_id, user_id) unique index
// rejects concurrent double-marks; gorm translates the constraint violation
// to gorm.ErrDuplicatedKey, which callers map to their conflict error.
func (a *AttendancePostgreSQL) Create(ctx context.Context, attendance *models.Attendance) error {
	if err := a.db.WithContext(ctx).Create(attendance).Error; err != nil {
		return err
	}
	cache.SafeDelete(ctx, a.cacheManager.Attendance, fmt.Sprintf("session:%d", attendance.SessionID))
	return nil
}

func (a *AttendancePostgreSQL) GetByID(ctx context.Context, id uint) (*models.Attendance, error) {
	var attendance models.Attendance
	if err := a.db.WithContext(ctx).First(&attendance, id).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (a *AttendancePostgreSQL) GetBySessionAndUser(ctx context.Context, sessionID, userID uint) (*models.Attendance, error) {
	var attendance models.Attendance
	err := a.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&attendance).Error
	if err != nil {
		return nil, err
	}
	return &attendance, nil
}

func (a *AttendancePostgreSQL) Update(ctx context.Context, attendance *models.Attendance) error {
	if err := a.db.WithContext(ctx).Save(attendance).Error; err != nil {
		return err
	}
	cache.SafeDelete(ctx, a.cacheManager.Attendance, fmt.Sprintf("session:%d", attendance.SessionID))
	return nil
}

func (a *AttendancePostgreSQL) Delete(ctx context.Context, id uint) error {
	return a.db.WithContext(ctx).Delete(&models.Attendance{}, id).Error
}

func (a *AttendancePostgreSQL) DeleteBySessionAndUser(ctx context.Context, sessionID, userID uint) (bool, error) {
	result := a.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Delete(&models.Attendance{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		cache.SafeDelete(ctx, a.cacheManager.Attendance, fmt.Sprintf("session:%d", sessionID))
	}
	return result.RowsAffected > 0, nil
}

func (a *AttendancePostgreSQL) ListBySession(ctx context.Context, sessionID uint) ([]*models.Attendance, error) {
	var attendances []*models.Attendance
	cacheKey := fmt.Sprintf("session:%d", sessionID)

	err := a.cacheManager.Attendance.CacheOrExecute(ctx, cacheKey, &attendances, cache.AttendanceCacheConfig.TTL, func() (interface{}, error) {
		var rows []*models.Attendance
		if err := a.db.WithContext(ctx).
			Preload("User").
			Where("session_id = ?", sessionID).
			Order("marked_at asc").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return attendances, nil
}

func (a *AttendancePostgreSQL) CountBySession(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := a.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count, err
}

func (a *AttendancePostgreSQL) AttendedUserIDs(ctx context.Context, sabaqID uint) ([]uint, error) {
	var ids []uint
	err := a.db.WithContext(ctx).
		Model(&models.Attendance{}).
		Distinct("user_id").
		Where("sabaq_id = ?", sabaqID).
		Pluck("user_id", &ids).Error
	return ids, err
}
