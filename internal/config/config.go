// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // schedule.location must resolve in minimal containers

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// EnvConfigJSON holds a JSON document merged over main.toml.
const EnvConfigJSON = "HMS_CONFIG_JSON"

const (
	defaultShutDownTime = 5
	defaultConcurrency  = 4
	defaultPadding      = 15
)

// secretEnv maps config keys to the environment variables overriding them.
var secretEnv = map[string]string{ //nolint:gochecknoglobals
	"db.url":                           "DATABASE_URL",
	"directory.authentik.url":          "AUTHENTIK_API_URL",
	"directory.authentik.token":        "AUTHENTIK_API_TOKEN",
	"directory.authentik.clientsecret": "AUTHENTIK_CLIENT_SECRET",
	"directory.ldap.bindpassword":      "LDAP_BIND_PASSWORD",
}

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var c Config

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	loadDotEnv()

	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path + "main.toml")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	if jsonConfig := os.Getenv(EnvConfigJSON); jsonConfig != "" {
		v.SetConfigType("json")

		if err := v.MergeConfig(strings.NewReader(jsonConfig)); err != nil {
			return Config{}, errors.Wrap(err, "failed to merge config from "+EnvConfigJSON)
		}
	}

	for key, env := range secretEnv {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, errors.Wrap(err, "failed to bind "+env)
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	return c, validate(&c)
}

// loadDotEnv reads an optional .env file from the working directory.
func loadDotEnv() {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return
	}

	log.Warn().Err(err).Msg("ignoring unreadable .env file")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("title", "Hausmeistersteuerung User Sync")
	v.SetDefault("db.gormengine", "sqlite")
	v.SetDefault("db.name", "hms.db")
	v.SetDefault("db.loglevel", "debug")
	v.SetDefault("webserver.shutdowntime", defaultShutDownTime)
	v.SetDefault("directory.provider", "authentik")
	v.SetDefault("directory.calltimeout", 10*time.Second)
	v.SetDefault("directory.retry.maxattempts", 3)
	v.SetDefault("directory.retry.initialinterval", 250*time.Millisecond)
	v.SetDefault("directory.retry.maxinterval", 2*time.Second)
	v.SetDefault("directory.retry.maxelapsedtime", 30*time.Second)
	v.SetDefault("directory.authentik.pagesize", 100)
	v.SetDefault("directory.ldap.userattribute", "uid")
	v.SetDefault("directory.ldap.nameattribute", "cn")
	v.SetDefault("directory.ldap.userfilter", "(objectClass=inetOrgPerson)")
	v.SetDefault("directory.ldap.groupobjectclass", "groupOfNames")
	v.SetDefault("directory.ldap.memberattribute", "member")
	v.SetDefault("schedule.location", "Europe/Berlin")
	v.SetDefault("schedule.paddingminutes", defaultPadding)
	v.SetDefault("schedule.groupnametemplate", "Lesson-{day}-{block}")
	v.SetDefault("sync.incrementalspec", "* * * * *")
	v.SetDefault("sync.fullspec", "0 * * * *")
	v.SetDefault("sync.concurrency", defaultConcurrency)
	v.SetDefault("sync.runonstart", true)
}

// DumpConfig config as TOML String.
func DumpConfig(c *Config) (string, error) {
	var buffer bytes.Buffer

	if err := toml.NewEncoder(&buffer).Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c *Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate the settings the daemon can not start without
// and fill in the defaults a zero value can not express.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	if c.Webserver.Enabled && c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	switch c.DB.GormEngine {
	case "mysql", "postgres", "sqlite":
	default:
		return errors.Wrap(ErrUnknownGormEngine, invalidErrMessage)
	}

	switch c.Directory.Provider {
	case "authentik":
		if c.Directory.Authentik.URL == "" {
			return errors.Wrap(ErrAuthentikURLEmpty, invalidErrMessage)
		}

		if c.Directory.Authentik.Token == "" &&
			(c.Directory.Authentik.ClientID == "" || c.Directory.Authentik.ClientSecret == "") {
			return errors.Wrap(ErrAuthentikCredentialsEmpty, invalidErrMessage)
		}
	case "ldap":
		if c.Directory.LDAP.URL == "" {
			return errors.Wrap(ErrLDAPURLEmpty, invalidErrMessage)
		}
	default:
		return errors.Wrap(ErrUnknownDirectoryProvider, invalidErrMessage)
	}

	if _, err := time.LoadLocation(c.Schedule.Location); err != nil {
		return errors.Wrap(ErrInvalidLocation, err.Error())
	}

	if c.Schedule.PaddingMinutes < 0 {
		return errors.Wrap(ErrNegativePadding, invalidErrMessage)
	}

	if c.Sync.Concurrency < 1 {
		return errors.Wrap(ErrConcurrencyTooLow, invalidErrMessage)
	}

	return nil
}
