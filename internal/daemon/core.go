package daemon

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/directory"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/directory/authentik"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/directory/ldap"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/logger"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/reconciler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/store"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/timetable"
)

const (
	// ProviderAuthentik selects the Authentik REST API.
	ProviderAuthentik = "authentik"
	// ProviderLDAP selects an LDAP directory.
	ProviderLDAP = "ldap"
)

// Core holds the components shared by the daemon and the one shot commands.
type Core struct {
	DB         *gorm.DB
	Store      *store.Store
	Directory  *directory.Client
	Calendar   *timetable.Calculator
	Namer      timetable.SlotNamer
	Reconciler *reconciler.Reconciler
}

// NewProvider returns the identity provider transport selected by cfg.Provider.
func NewProvider(ctx context.Context, cfg config.Directory) (directory.Provider, error) {
	switch cfg.Provider {
	case ProviderAuthentik, "":
		return authentik.New(ctx, cfg.Authentik), nil
	case ProviderLDAP:
		return ldap.New(cfg.LDAP), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDirectoryProvider, cfg.Provider)
	}
}

// Build wires store, directory client, timetable and reconciler. The database
// is opened last so a configuration error never leaves a pool behind.
// ctx bounds the lifetime of the provider's token source.
func Build(ctx context.Context, cfg *config.Config) (*Core, error) {
	provider, err := NewProvider(ctx, cfg.Directory)
	if err != nil {
		return nil, err
	}

	cal, err := timetable.New(cfg.Schedule)
	if err != nil {
		return nil, err
	}

	namer, fixed, err := timetable.NewNamer(cfg.Schedule, cal)
	if err != nil {
		return nil, err
	}

	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}

	if fixed {
		log.Warn().
			Str("group", namer.SlotGroupName(0, 0)).
			Msg("every slot maps onto one group, overlapping or adjacent slots will revoke each other's access")
	}

	c := &Core{
		DB:        gdb,
		Store:     store.New(gdb),
		Directory: directory.New(provider, cfg.Directory, logger.Component("directory")),
		Calendar:  cal,
		Namer:     namer,
	}

	c.Reconciler = reconciler.New(c.Store, c.Directory, cal, namer,
		reconciler.WithConcurrency(cfg.Sync.Concurrency),
		reconciler.WithLogger(logger.Component("reconciler")),
	)

	return c, nil
}

// Close releases the database pool.
func (c *Core) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
