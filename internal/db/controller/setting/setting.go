// Package setting stores named blobs in the settings table.
package setting

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

const (
	nameQueryPattern = "name = ?"
)

var (
	// ErrSettingNotFound is returned when a setting is not found.
	ErrSettingNotFound = errors.New("setting not found")
	// ErrSettingNameEmpty is returned when attempting to read or write a setting with an empty name.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
)

// Get retrieves a setting by its name.
func Get(ctx context.Context, db *gorm.DB, name string) (*models.Setting, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var s models.Setting

	result := db.WithContext(ctx).Where(nameQueryPattern, name).First(&s)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}

		return nil, result.Error
	}

	return &s, nil
}

// Set creates or updates a setting by name (upsert operation).
func Set(ctx context.Context, db *gorm.DB, name string, value []byte) (*models.Setting, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var s models.Setting

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where(nameQueryPattern, name).First(&s)

		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			s = models.Setting{Name: name, Value: value}

			return tx.Create(&s).Error
		case result.Error != nil:
			return result.Error
		}

		s.Value = value

		return tx.Save(&s).Error
	})
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// Delete removes a setting by name. Deleting a missing setting is not an error.
func Delete(ctx context.Context, db *gorm.DB, name string) error {
	if db == nil {
		return controller.ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	return db.WithContext(ctx).Where(nameQueryPattern, name).Delete(&models.Setting{}).Error
}
