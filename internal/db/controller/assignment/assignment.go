// Package assignment provides CRUD operations for schedule assignments.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

var (
	// ErrAssignmentNotFound is returned when an assignment is not found.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrInvalidAssignment is returned when the input violates the assignment invariants.
	ErrInvalidAssignment = errors.New("invalid assignment")
	// ErrClassGroupNotFound is returned when the referenced class group does not exist.
	ErrClassGroupNotFound = errors.New("class group not found")
	// ErrUnknownBlock is returned for a block number the timetable does not define.
	ErrUnknownBlock = errors.New("unknown lesson block")

	validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals
)

// defaultBlocks is the number of blocks of the default timetable.
const defaultBlocks = 4

// Input describes a new assignment. Exactly one of StudentID and ClassGroupID is set.
type Input struct {
	DayOfWeek    int    `json:"dayOfWeek"    validate:"min=0,max=4"`
	BlockNumber  int    `json:"blockNumber"  validate:"min=0"`
	StudentID    string `json:"studentId"    validate:"required_without=ClassGroupID,excluded_with=ClassGroupID,max=64"`
	ClassGroupID uint   `json:"classGroupId" validate:"required_without=StudentID,excluded_with=StudentID"`

	// Blocks are the block numbers of the configured timetable.
	// Empty means the default timetable, blocks 0 to 3.
	Blocks []int `json:"-" validate:"-"`
}

func (in Input) knownBlock() bool {
	if len(in.Blocks) == 0 {
		return in.BlockNumber < defaultBlocks
	}

	return slices.Contains(in.Blocks, in.BlockNumber)
}

// Create validates in and stores a new assignment.
func Create(ctx context.Context, db *gorm.DB, in Input) (*models.ScheduleAssignment, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAssignment, err)
	}

	if !in.knownBlock() {
		return nil, fmt.Errorf("%w: %w %d", ErrInvalidAssignment, ErrUnknownBlock, in.BlockNumber)
	}

	a := &models.ScheduleAssignment{
		DayOfWeek:   in.DayOfWeek,
		BlockNumber: in.BlockNumber,
	}

	if in.StudentID != "" {
		a.StudentID = &in.StudentID
	} else {
		a.ClassGroupID = &in.ClassGroupID
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.ClassGroupID != nil {
			var n int64
			if err := tx.Model(&models.ClassGroup{}).Where("id = ?", *a.ClassGroupID).Count(&n).Error; err != nil {
				return err
			}

			if n == 0 {
				return ErrClassGroupNotFound
			}
		}

		return tx.Create(a).Error
	})
	if err != nil {
		return nil, err
	}

	return a, nil
}

// GetAll retrieves all assignments ordered by slot.
func GetAll(ctx context.Context, db *gorm.DB) ([]models.ScheduleAssignment, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var assignments []models.ScheduleAssignment

	result := db.WithContext(ctx).
		Order("day_of_week").
		Order("block_number").
		Order("id").
		Find(&assignments)
	if result.Error != nil {
		return nil, result.Error
	}

	return assignments, nil
}

// Delete deletes an assignment by ID.
func Delete(ctx context.Context, db *gorm.DB, id uint) error {
	if db == nil {
		return controller.ErrDBNil
	}

	result := db.WithContext(ctx).Delete(&models.ScheduleAssignment{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAssignmentNotFound
	}

	return nil
}

// Count returns the number of stored assignments.
func Count(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, controller.ErrDBNil
	}

	var n int64

	return n, db.WithContext(ctx).Model(&models.ScheduleAssignment{}).Count(&n).Error
}
