// Package exclusion manages students hidden from directory listings.
package exclusion

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

var (
	// ErrStudentIDEmpty is returned when no student id is given.
	ErrStudentIDEmpty = errors.New("student id cannot be empty")
	// ErrAlreadyExcluded is returned when the student is excluded already.
	ErrAlreadyExcluded = errors.New("student is already excluded")
	// ErrExclusionNotFound is returned when removing a student that is not excluded.
	ErrExclusionNotFound = errors.New("exclusion not found")
)

// Add excludes a student.
func Add(ctx context.Context, db *gorm.DB, studentID, reason string) (*models.UserExclusion, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	if studentID == "" {
		return nil, ErrStudentIDEmpty
	}

	e := &models.UserExclusion{StudentID: studentID, Reason: reason}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.UserExclusion{}).Where("student_id = ?", studentID).Count(&n).Error; err != nil {
			return err
		}

		if n > 0 {
			return ErrAlreadyExcluded
		}

		return tx.Create(e).Error
	})
	if err != nil {
		return nil, err
	}

	return e, nil
}

// Remove deletes the exclusion of a student.
func Remove(ctx context.Context, db *gorm.DB, studentID string) error {
	if db == nil {
		return controller.ErrDBNil
	}

	result := db.WithContext(ctx).Where("student_id = ?", studentID).Delete(&models.UserExclusion{})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrExclusionNotFound
	}

	return nil
}

// GetAll lists all exclusions, newest first.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.UserExclusion, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var exclusions []models.UserExclusion

	return exclusions, db.WithContext(ctx).Order("excluded_at DESC").Order("id DESC").Find(&exclusions).Error
}
