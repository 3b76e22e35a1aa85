// Package classgroup provides operations on class groups and their members.
package classgroup

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

var (
	// ErrClassGroupNotFound is returned when a class group is not found.
	ErrClassGroupNotFound = errors.New("class group not found")
	// ErrClassGroupAlreadyExists is returned when the name is taken.
	ErrClassGroupAlreadyExists = errors.New("class group already exists")
	// ErrInvalidClassGroup is returned when the input fails validation.
	ErrInvalidClassGroup = errors.New("invalid class group")
	// ErrStudentIDEmpty is returned when a member operation has no student id.
	ErrStudentIDEmpty = errors.New("student id cannot be empty")

	validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals
)

// Input describes a new class group.
type Input struct {
	Name        string `json:"name"        validate:"required,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// Create stores a new class group.
func Create(ctx context.Context, db *gorm.DB, in Input) (*models.ClassGroup, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidClassGroup, err)
	}

	g := &models.ClassGroup{Name: in.Name, Description: in.Description}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ClassGroup{}).Where("name = ?", in.Name).Count(&n).Error; err != nil {
			return err
		}

		if n > 0 {
			return ErrClassGroupAlreadyExists
		}

		return tx.Create(g).Error
	})
	if err != nil {
		return nil, err
	}

	return g, nil
}

// Get retrieves a class group by ID.
func Get(ctx context.Context, db *gorm.DB, id uint) (*models.ClassGroup, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var g models.ClassGroup

	if err := db.WithContext(ctx).First(&g, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassGroupNotFound
		}

		return nil, err
	}

	return &g, nil
}

// GetAll retrieves all class groups ordered by name.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.ClassGroup, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var groups []models.ClassGroup

	return groups, db.WithContext(ctx).Order("name").Find(&groups).Error
}

// Delete removes a class group together with its members and assignments.
func Delete(ctx context.Context, db *gorm.DB, id uint) error {
	if db == nil {
		return controller.ErrDBNil
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_group_id = ?", id).Delete(&models.ScheduleAssignment{}).Error; err != nil {
			return err
		}

		if err := tx.Where("class_group_id = ?", id).Delete(&models.ClassGroupMember{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.ClassGroup{}, id)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return ErrClassGroupNotFound
		}

		return nil
	})
}

// AddMember adds a student to a class group. Adding an existing member is a no-op.
func AddMember(ctx context.Context, db *gorm.DB, groupID uint, studentID string) error {
	if db == nil {
		return controller.ErrDBNil
	}

	if studentID == "" {
		return ErrStudentIDEmpty
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.ClassGroup{}).Where("id = ?", groupID).Count(&n).Error; err != nil {
			return err
		}

		if n == 0 {
			return ErrClassGroupNotFound
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ClassGroupMember{ClassGroupID: groupID, StudentID: studentID}).Error
	})
}

// RemoveMember removes a student from a class group. Removing a non member is a no-op.
func RemoveMember(ctx context.Context, db *gorm.DB, groupID uint, studentID string) error {
	if db == nil {
		return controller.ErrDBNil
	}

	return db.WithContext(ctx).
		Where("class_group_id = ? AND student_id = ?", groupID, studentID).
		Delete(&models.ClassGroupMember{}).Error
}

// MemberIDs returns the current student ids of a class group in insertion order.
func MemberIDs(ctx context.Context, db *gorm.DB, groupID uint) ([]string, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var ids []string

	result := db.WithContext(ctx).
		Model(&models.ClassGroupMember{}).
		Where("class_group_id = ?", groupID).
		Order("id").
		Pluck("student_id", &ids)

	return ids, result.Error
}

// Count returns the number of class groups.
func Count(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, controller.ErrDBNil
	}

	var n int64

	return n, db.WithContext(ctx).Model(&models.ClassGroup{}).Count(&n).Error
}
