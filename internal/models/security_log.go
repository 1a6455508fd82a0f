package models

import (
	"time"

	"gorm.io/datatypes"
)

// SecurityLog is an audit record for privileged actions (role changes,
// attendance deletions, forced session transitions).
type SecurityLog struct {
	ID      uint           `json:"id" gorm:"primaryKey"`
	UserID  *uint          `json:"user_id" gorm:"index"`
	Action  string         `json:"action" gorm:"not null;size:100;index"`
	Details datatypes.JSON `json:"details" gorm:"type:jsonb"`
	IP      string         `json:"ip" gorm:"size:45"`

	CreatedAt time.Time `json:"created_at"`
}

func (SecurityLog) TableName() string {
	return "security_logs"
}
