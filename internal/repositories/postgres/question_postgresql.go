package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/sabaq-center/sabaq-service/internal/models"
	"github.com/sabaq-center/sabaq-service/internal/repositories"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

func (q *QuestionPostgreSQL) Create(ctx context.Context, question *models.Question) error {
	return q.db.WithContext(ctx).Create(question).Error
}

func (q *QuestionPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Question, error) {
	var question models.Question
	if err := q.db.WithContext(ctx).Preload("User").First(&question, id).Error; err != nil {
		return nil, err
	}
	return &question, nil
}

func (q *QuestionPostgreSQL) Delete(ctx context.Context, id uint) error {
	return q.db.WithContext(ctx).Delete(&models.Question{}, id).Error
}

func (q *QuestionPostgreSQL) ListBySession(ctx context.Context, sessionID uint) ([]*models.Question, error) {
	var questions []*models.Question
	err := q.db.WithContext(ctx).
		Preload("User").
		Where("session_id = ?", sessionID).
		Order("upvote_count desc, created_at asc").
		Find(&questions).Error
	return questions, err
}

func (q *QuestionPostgreSQL) CreateVote(ctx context.Context, vote *models.QuestionVote) error {
	return q.db.WithContext(ctx).Create(vote).Error
}

func (q *QuestionPostgreSQL) DeleteVote(ctx context.Context, questionID, userID uint) (bool, error) {
	result := q.db.WithContext(ctx).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Delete(&models.QuestionVote{})
	return result.RowsAffected > 0, result.Error
}

func (q *QuestionPostgreSQL) IncrementUpvotes(ctx context.Context, questionID uint, delta int) error {
	return q.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("id = ?", questionID).
		Update("upvote_count", gorm.Expr("upvote_count + ?", delta)).Error
}

func (q *QuestionPostgreSQL) CountVotes(ctx context.Context, questionID uint) (int64, error) {
	var count int64
	err := q.db.WithContext(ctx).
		Model(&models.QuestionVote{}).
		Where("question_id = ?", questionID).
		Count(&count).Error
	return count, err
}
