// Package models contains database model definitions.
package models

import "time"

// Setting is a named JSON blob, used for state that outlives a process.
type Setting struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"size:100;unique;not null"`
	Value     []byte
	UpdatedAt time.Time
}

// All lists every model the schema is migrated for, parents first.
func All() []any {
	return []any{
		&Setting{},
		&ClassGroup{},
		&ClassGroupMember{},
		&ScheduleAssignment{},
		&UserExclusion{},
		&SyncLog{},
	}
}
