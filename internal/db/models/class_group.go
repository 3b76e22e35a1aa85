package models

import "time"

// ClassGroup is a named collection of students that can be assigned to slots as a whole.
type ClassGroup struct {
	// ID is the unique identifier for the class group.
	ID uint `gorm:"primaryKey"`
	// Name is the display name, unique across class groups.
	Name string `gorm:"size:100;not null;uniqueIndex"`
	// Description is free text shown in listings.
	Description string `gorm:"size:255"`
	// CreatedAt is the timestamp when the group was created (managed by GORM).
	CreatedAt time.Time
}

// TableName specifies the database table name for the ClassGroup model.
func (ClassGroup) TableName() string {
	return "class_groups"
}

// ClassGroupMember binds a student to a class group.
// A student appears at most once per group.
type ClassGroupMember struct {
	ID           uint        `gorm:"primaryKey"`
	ClassGroupID uint        `gorm:"not null;uniqueIndex:idx_group_student"`
	ClassGroup   *ClassGroup `gorm:"foreignKey:ClassGroupID;constraint:OnDelete:CASCADE" json:"-"`
	StudentID    string      `gorm:"size:64;not null;uniqueIndex:idx_group_student"`
	AddedAt      time.Time   `gorm:"autoCreateTime"`
}

// TableName specifies the database table name for the ClassGroupMember model.
func (ClassGroupMember) TableName() string {
	return "class_group_members"
}
