package models

import (
	"time"

	"gorm.io/gorm"
)

// Question is a study question raised during a session.
//
// UpvoteCount must equal the number of QuestionVote rows referencing the
// question; both sides are written in one transaction.
type Question struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	SessionID uint   `json:"session_id" gorm:"not null;index"`
	SabaqID   uint   `json:"sabaq_id" gorm:"not null;index"`
	UserID    uint   `json:"user_id" gorm:"not null;index"`
	Text      string `json:"text" gorm:"not null;type:text" validate:"required,min=1,max=2000"`

	UpvoteCount int  `json:"upvote_count" gorm:"not null;default:0"`
	IsAnswered  bool `json:"is_answered" gorm:"not null;default:false"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Session Session        `json:"-" gorm:"foreignKey:SessionID"`
	User    User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Votes   []QuestionVote `json:"-" gorm:"foreignKey:QuestionID"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionVote is one user's upvote, unique per (question, user).
type QuestionVote struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_question_user"`
	UserID     uint `json:"user_id" gorm:"not null;uniqueIndex:idx_question_user"`

	CreatedAt time.Time `json:"created_at"`

	Question Question `json:"-" gorm:"foreignKey:QuestionID"`
	User     User     `json:"-" gorm:"foreignKey:UserID"`
}

func (QuestionVote) TableName() string {
	return "question_votes"
}
