// Package syncstate persists a summary of the last reconciliation cycles.
package syncstate

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/setting"
)

// SettingKey is the key used to store the sync state in the settings table.
const SettingKey = "sync_state"

const (
	// KindIncremental marks a cycle diffed against the membership cache.
	KindIncremental = "incremental"
	// KindFull marks a cycle diffed against the provider.
	KindFull = "full"
)

type (
	// Cycle summarises one finished reconciliation cycle.
	Cycle struct {
		ID         string    `json:"id"`
		Kind       string    `json:"kind"`
		StartedAt  time.Time `json:"startedAt"`
		FinishedAt time.Time `json:"finishedAt"`
		Groups     int       `json:"groups"`
		Added      int       `json:"added"`
		Removed    int       `json:"removed"`
		Failed     int       `json:"failed"`
		Error      string    `json:"error,omitempty"`
	}

	// State holds the most recent cycle of each kind.
	State struct {
		LastIncremental *Cycle `json:"lastIncremental,omitempty"`
		LastFull        *Cycle `json:"lastFull,omitempty"`
	}
)

// Load reads the state. A missing state is returned as zero value.
func Load(ctx context.Context, db *gorm.DB) (State, error) {
	var st State

	s, err := setting.Get(ctx, db, SettingKey)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return st, nil
	}

	if err != nil {
		return st, err
	}

	return st, json.Unmarshal(s.Value, &st)
}

// Record stores c as the latest cycle of its kind.
func Record(ctx context.Context, db *gorm.DB, c Cycle) error {
	st, err := Load(ctx, db)
	if err != nil {
		return err
	}

	if c.Kind == KindFull {
		st.LastFull = &c
	} else {
		st.LastIncremental = &c
	}

	data, err := json.Marshal(st)
	if err != nil {
		return err
	}

	_, err = setting.Set(ctx, db, SettingKey, data)

	return err
}
