package models

import "time"

// UserExclusion hides a directory user from student listings.
// It has no effect on reconciliation.
type UserExclusion struct {
	ID         uint      `gorm:"primaryKey"`
	StudentID  string    `gorm:"size:64;not null;uniqueIndex"`
	Reason     string    `gorm:"size:255"`
	ExcludedAt time.Time `gorm:"autoCreateTime"`
}

// TableName specifies the database table name for the UserExclusion model.
func (UserExclusion) TableName() string {
	return "user_exclusions"
}
