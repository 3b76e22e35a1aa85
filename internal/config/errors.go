package config

import (
	"errors"
)

var (
	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownGormEngine error if config db.gormengine is not supported.
	ErrUnknownGormEngine = errors.New("toml config db.gormengine must be mysql, postgres or sqlite")

	// ErrUnknownDirectoryProvider error if config directory.provider is not supported.
	ErrUnknownDirectoryProvider = errors.New("toml config directory.provider must be authentik or ldap")

	// ErrAuthentikURLEmpty error if the authentik api url is missing.
	ErrAuthentikURLEmpty = errors.New("toml config directory.authentik.url can not be empty")

	// ErrAuthentikCredentialsEmpty error if neither token nor client credentials are set.
	ErrAuthentikCredentialsEmpty = errors.New("toml config directory.authentik needs a token or client credentials")

	// ErrLDAPURLEmpty error if the ldap url is missing.
	ErrLDAPURLEmpty = errors.New("toml config directory.ldap.url can not be empty")

	// ErrInvalidLocation error if schedule.location is not a known time zone.
	ErrInvalidLocation = errors.New("toml config schedule.location is not a valid time zone")

	// ErrNegativePadding error if schedule.paddingminutes is below zero.
	ErrNegativePadding = errors.New("toml config schedule.paddingminutes can not be negative")

	// ErrConcurrencyTooLow error if sync.concurrency is below one.
	ErrConcurrencyTooLow = errors.New("toml config sync.concurrency must be at least 1")
)
