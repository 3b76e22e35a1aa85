package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

func TestOpenSqlite(t *testing.T) {
	cfg := config.Config{DB: config.DB{
		GormEngine: "sqlite",
		Name:       filepath.Join(t.TempDir(), "hms.db"),
		LogLevel:   "trace",
	}}

	db, err := Open(&cfg)
	require.NoError(t, err)

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m), "table for %T", m)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	require.NoError(t, sqlDB.Close())
}

func TestOpenUnknownEngine(t *testing.T) {
	_, err := Open(&config.Config{DB: config.DB{GormEngine: "oracle"}})
	require.ErrorIs(t, err, config.ErrUnknownGormEngine)
}
