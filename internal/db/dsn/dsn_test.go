package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
)

func TestCreate(t *testing.T) {
	base := config.DB{
		Host:     "db",
		Port:     3306,
		User:     "hms",
		Password: "secret",
		Name:     "hms",
		Extras:   "parseTime=true",
	}

	testCases := []struct {
		name   string
		mutate func(db *config.DB)
		want   string
	}{
		{
			name:   "mysql",
			mutate: func(db *config.DB) { db.GormEngine = "mysql" },
			want:   "hms:secret@tcp(db:3306)/hms?parseTime=true",
		},
		{
			name: "postgres",
			mutate: func(db *config.DB) {
				db.GormEngine = "postgres"
				db.Port = 5432
				db.Extras = "sslmode=disable"
			},
			want: "host=db port=5432 user=hms password=secret dbname=hms sslmode=disable",
		},
		{
			name: "sqlite file",
			mutate: func(db *config.DB) {
				db.GormEngine = "sqlite"
				db.Name = "hms.db"
				db.Extras = ""
			},
			want: "hms.db",
		},
		{
			name: "sqlite with pragmas",
			mutate: func(db *config.DB) {
				db.GormEngine = "sqlite"
				db.Name = "hms.db"
				db.Extras = "_pragma=foreign_keys(1)"
			},
			want: "hms.db?_pragma=foreign_keys(1)",
		},
		{
			name: "url wins",
			mutate: func(db *config.DB) {
				db.GormEngine = "postgres"
				db.URL = "postgres://hms@db/hms"
			},
			want: "postgres://hms@db/hms",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Config{DB: base}
			tc.mutate(&cfg.DB)

			assert.Equal(t, tc.want, Create(&cfg))
		})
	}
}
