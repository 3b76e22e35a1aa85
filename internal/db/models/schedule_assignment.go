package models

import "time"

// ScheduleAssignment binds either a student or a class group to a weekly slot.
// Exactly one of StudentID and ClassGroupID is set.
type ScheduleAssignment struct {
	// ID is the unique identifier for the assignment.
	ID uint `gorm:"primaryKey"`
	// DayOfWeek is the school day, Monday=0 ... Friday=4.
	DayOfWeek int `gorm:"not null;index:idx_slot"`
	// BlockNumber is the zero based lesson block of the day.
	BlockNumber int `gorm:"not null;index:idx_slot"`
	// StudentID references a single student in the directory.
	StudentID *string `gorm:"size:64"`
	// ClassGroupID references a class group; its members are resolved at sync time.
	ClassGroupID *uint `gorm:"index"`
	// ClassGroup is the referenced group. Deleting it removes the assignment (CASCADE).
	ClassGroup *ClassGroup `gorm:"foreignKey:ClassGroupID;constraint:OnDelete:CASCADE" json:"-"`
	// CreatedAt is the timestamp when the assignment was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the ScheduleAssignment model.
func (ScheduleAssignment) TableName() string {
	return "schedule_assignments"
}

// Valid reports whether exactly one reference is set.
func (a ScheduleAssignment) Valid() bool {
	hasStudent := a.StudentID != nil && *a.StudentID != ""
	hasGroup := a.ClassGroupID != nil && *a.ClassGroupID != 0

	return hasStudent != hasGroup
}
