// Package synclog appends to and reads the reconciliation audit log.
package synclog

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

// ErrInvalidAction is returned for entries without a known action.
var ErrInvalidAction = errors.New("invalid sync log action")

// Append stores a new entry. A zero timestamp is set to now.
func Append(ctx context.Context, db *gorm.DB, entry *models.SyncLog) error {
	if db == nil {
		return controller.ErrDBNil
	}

	switch entry.Action {
	case models.ActionAddUser, models.ActionRemoveUser, models.ActionError:
	default:
		return ErrInvalidAction
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	// stored in UTC, sqlite compares timestamps as text
	entry.Timestamp = entry.Timestamp.UTC()

	return db.WithContext(ctx).Create(entry).Error
}

// Recent returns up to limit entries, most recent first.
// Entries sharing a timestamp are ordered by insertion, newest first.
func Recent(ctx context.Context, db *gorm.DB, limit int) ([]models.SyncLog, error) {
	if db == nil {
		return nil, controller.ErrDBNil
	}

	var entries []models.SyncLog

	result := db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries)

	return entries, result.Error
}

// Stats counts entries since a point in time.
type Stats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// CountSince returns entry counts with a timestamp at or after since.
func CountSince(ctx context.Context, db *gorm.DB, since time.Time) (Stats, error) {
	var st Stats

	if db == nil {
		return st, controller.ErrDBNil
	}

	q := db.WithContext(ctx).Model(&models.SyncLog{}).Where("timestamp >= ?", since.UTC())

	if err := q.Session(&gorm.Session{}).Count(&st.Total).Error; err != nil {
		return st, err
	}

	if err := q.Session(&gorm.Session{}).Where("success = ?", true).Count(&st.Succeeded).Error; err != nil {
		return st, err
	}

	st.Failed = st.Total - st.Succeeded

	return st, nil
}
