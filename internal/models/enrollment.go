package models

import (
	"time"

	"gorm.io/gorm"
)

type EnrollmentStatus string

const (
	EnrollmentPending  EnrollmentStatus = "PENDING"
	EnrollmentApproved EnrollmentStatus = "APPROVED"
	EnrollmentRejected EnrollmentStatus = "REJECTED"
)

// Enrollment is a membership request/grant, unique per (sabaq, user).
// Only APPROVED enrollees may mark attendance or submit questions.
type Enrollment struct {
	ID      uint             `json:"id" gorm:"primaryKey"`
	SabaqID uint             `json:"sabaq_id" gorm:"not null;uniqueIndex:idx_sabaq_user"`
	UserID  uint             `json:"user_id" gorm:"not null;uniqueIndex:idx_sabaq_user"`
	Status  EnrollmentStatus `json:"status" gorm:"not null;default:PENDING;index"`

	ReviewedBy *uint      `json:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewed_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Sabaq Sabaq `json:"sabaq,omitempty" gorm:"foreignKey:SabaqID"`
	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
