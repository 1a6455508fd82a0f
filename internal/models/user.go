package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleSuperAdmin         UserRole = "SUPERADMIN"
	RoleAdmin              UserRole = "ADMIN"
	RoleManager            UserRole = "MANAGER"
	RoleAttendanceIncharge UserRole = "ATTENDANCE_INCHARGE"
	RoleJanab              UserRole = "JANAB"
	RoleMumin              UserRole = "MUMIN"
)

// User is an identity record keyed by the institutional ITS number.
// Users are provisioned once and never hard-deleted; role changes go through
// the privileged promote/demote actions only.
type User struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	ITSNumber string   `json:"its_number" gorm:"not null;uniqueIndex;size:8" validate:"required,its_number"`
	Name      string   `json:"name" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Email     *string  `json:"email" gorm:"size:255;index" validate:"omitempty,email"`
	Role      UserRole `json:"role" gorm:"not null;default:MUMIN;index" validate:"omitempty,oneof=SUPERADMIN ADMIN MANAGER ATTENDANCE_INCHARGE JANAB MUMIN"`

	// Running counters, maintained transactionally alongside the rows they count.
	QuestionsCount     int `json:"questions_count" gorm:"not null;default:0"`
	AttendedCount      int `json:"attended_count" gorm:"not null;default:0"`
	LateCount          int `json:"late_count" gorm:"not null;default:0"`
	ManagedSabaqsCount int `json:"managed_sabaqs_count" gorm:"not null;default:0"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// HasEmail reports whether the user can receive notification emails.
func (u *User) HasEmail() bool {
	return u.Email != nil && *u.Email != ""
}
