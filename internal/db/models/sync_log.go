package models

import "time"

// SyncAction is the kind of a sync log entry.
type SyncAction string

const (
	// ActionAddUser records an attempt to add a student to a group.
	ActionAddUser SyncAction = "add_user"
	// ActionRemoveUser records an attempt to remove a student from a group.
	ActionRemoveUser SyncAction = "remove_user"
	// ActionError records a failure that is not tied to a single mutation.
	ActionError SyncAction = "error"
)

// SyncLog is one append only audit entry written by the reconciler.
type SyncLog struct {
	ID        uint       `gorm:"primaryKey"                 json:"id"`
	Timestamp time.Time  `gorm:"not null;index"             json:"timestamp"`
	Action    SyncAction `gorm:"type:varchar(20);not null"  json:"action"`
	StudentID string     `gorm:"size:64"                    json:"studentId,omitempty"`
	GroupName string     `gorm:"size:100"                   json:"groupName,omitempty"`
	Details   string     `gorm:"type:text"                  json:"details"`
	Success   bool       `gorm:"not null"                   json:"success"`
}

// TableName specifies the database table name for the SyncLog model.
func (SyncLog) TableName() string {
	return "sync_logs"
}
