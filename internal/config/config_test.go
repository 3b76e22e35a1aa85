package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func configDir(t *testing.T) string {
	t.Helper()

	// Get the project root by going up from internal/config
	projectRoot, err := filepath.Abs("../../")
	if err != nil {
		t.Fatalf("failed to get project root: %v", err)
	}

	return filepath.Join(projectRoot, "etc") + string(filepath.Separator)
}

func validConfig() Config {
	return Config{
		DB: DB{GormEngine: "sqlite"},
		Webserver: Webserver{
			Enabled: true,
			Port:    8080,
		},
		Directory: Directory{
			Provider:  "authentik",
			Authentik: Authentik{URL: "http://localhost:9000", Token: "token"},
		},
		Schedule: Schedule{Location: "UTC", PaddingMinutes: 15},
		Sync:     Sync{Concurrency: 1},
	}
}

func TestReadConfig(t *testing.T) {
	cfg, err := ReadConfig(configDir(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title == "" {
		t.Error("Config.Title should not be empty")
	}

	if cfg.Webserver.Port != 8080 {
		t.Errorf("Webserver.Port = %d, want 8080", cfg.Webserver.Port)
	}

	if cfg.Directory.CallTimeout != 10*time.Second {
		t.Errorf("Directory.CallTimeout = %v, want 10s", cfg.Directory.CallTimeout)
	}

	if cfg.Directory.Retry.InitialInterval != 250*time.Millisecond {
		t.Errorf("Directory.Retry.InitialInterval = %v, want 250ms", cfg.Directory.Retry.InitialInterval)
	}

	if len(cfg.Schedule.Blocks) != 4 {
		t.Fatalf("Schedule.Blocks has %d entries, want 4", len(cfg.Schedule.Blocks))
	}

	if b := cfg.Schedule.Blocks[0]; b.Start != "08:00" || b.End != "09:40" {
		t.Errorf("first block = %+v, want 08:00-09:40", b)
	}

	if cfg.Sync.IncrementalSpec != "* * * * *" || cfg.Sync.FullSpec != "0 * * * *" {
		t.Errorf("unexpected cron specs %q / %q", cfg.Sync.IncrementalSpec, cfg.Sync.FullSpec)
	}
}

func TestReadConfigSecretEnv(t *testing.T) {
	t.Setenv("AUTHENTIK_API_TOKEN", "from-env")
	t.Setenv("DATABASE_URL", "postgres://hms@db/hms")

	cfg, err := ReadConfig(configDir(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Directory.Authentik.Token != "from-env" {
		t.Errorf("Authentik.Token = %q, want from-env", cfg.Directory.Authentik.Token)
	}

	if cfg.DB.URL != "postgres://hms@db/hms" {
		t.Errorf("DB.URL = %q, want the DATABASE_URL value", cfg.DB.URL)
	}
}

func TestReadConfigMissingFile(t *testing.T) {
	if _, err := ReadConfig(t.TempDir() + string(filepath.Separator)); err == nil {
		t.Error("ReadConfig() on an empty directory should fail")
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid config",
			mutate: func(*Config) {},
		},
		{
			name:    "missing port",
			mutate:  func(c *Config) { c.Webserver.Port = 0 },
			wantErr: ErrWebServerPortCanNotBeZero,
		},
		{
			name: "port not needed without webserver",
			mutate: func(c *Config) {
				c.Webserver.Enabled = false
				c.Webserver.Port = 0
			},
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.DB.GormEngine = "oracle" },
			wantErr: ErrUnknownGormEngine,
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Directory.Provider = "keycloak" },
			wantErr: ErrUnknownDirectoryProvider,
		},
		{
			name:    "authentik without url",
			mutate:  func(c *Config) { c.Directory.Authentik.URL = "" },
			wantErr: ErrAuthentikURLEmpty,
		},
		{
			name:    "authentik without credentials",
			mutate:  func(c *Config) { c.Directory.Authentik.Token = "" },
			wantErr: ErrAuthentikCredentialsEmpty,
		},
		{
			name: "authentik with client credentials",
			mutate: func(c *Config) {
				c.Directory.Authentik.Token = ""
				c.Directory.Authentik.ClientID = "hms"
				c.Directory.Authentik.ClientSecret = "secret"
			},
		},
		{
			name:    "ldap without url",
			mutate:  func(c *Config) { c.Directory.Provider = "ldap" },
			wantErr: ErrLDAPURLEmpty,
		},
		{
			name:    "invalid location",
			mutate:  func(c *Config) { c.Schedule.Location = "Mars/Olympus" },
			wantErr: ErrInvalidLocation,
		},
		{
			name:    "negative padding",
			mutate:  func(c *Config) { c.Schedule.PaddingMinutes = -1 },
			wantErr: ErrNegativePadding,
		},
		{
			name:    "no workers",
			mutate:  func(c *Config) { c.Sync.Concurrency = 0 },
			wantErr: ErrConcurrencyTooLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := validate(&cfg)
			if tt.wantErr == nil && err != nil {
				t.Errorf("validate() error = %v, want nil", err)
			}

			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDefaultsShutDownTime(t *testing.T) {
	cfg := validConfig()

	if err := validate(&cfg); err != nil {
		t.Fatalf("validate() error = %v", err)
	}

	if cfg.Webserver.ShutDownTime != defaultShutDownTime {
		t.Errorf("ShutDownTime = %d, want %d", cfg.Webserver.ShutDownTime, defaultShutDownTime)
	}
}

func TestReadConfigWithJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":"Test Override","Webserver":{"Port":9090},"Sync":{"Concurrency":2}}`)

	cfg, err := ReadConfig(configDir(t))
	if err != nil {
		t.Fatalf("ReadConfig() error = %v", err)
	}

	if cfg.Title != "Test Override" {
		t.Errorf("Title = %v, want %v", cfg.Title, "Test Override")
	}

	if cfg.Webserver.Port != 9090 {
		t.Errorf("Webserver.Port = %v, want %v", cfg.Webserver.Port, 9090)
	}

	if cfg.Sync.Concurrency != 2 {
		t.Errorf("Sync.Concurrency = %v, want 2", cfg.Sync.Concurrency)
	}

	// untouched keys survive the merge
	if cfg.Webserver.URL == "" {
		t.Error("Webserver.URL should still be read from main.toml")
	}
}

func TestReadConfigWithBrokenJSONOverride(t *testing.T) {
	t.Setenv(EnvConfigJSON, `{"Title":`)

	if _, err := ReadConfig(configDir(t)); err == nil {
		t.Error("ReadConfig() should reject malformed JSON overrides")
	}
}

func TestDumpConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Title = "Test"

	tomlStr, err := DumpConfig(&cfg)
	if err != nil {
		t.Fatalf("DumpConfig() error = %v", err)
	}

	if !strings.Contains(tomlStr, "Test") {
		t.Error("DumpConfig() output should contain Title")
	}

	if !strings.Contains(tomlStr, "[Directory.Authentik]") {
		t.Error("DumpConfig() output should contain the authentik table")
	}
}

func TestDumpConfigJSON(t *testing.T) {
	cfg := validConfig()
	cfg.Title = "Test"

	jsonStr, err := DumpConfigJSON(&cfg)
	if err != nil {
		t.Fatalf("DumpConfigJSON() error = %v", err)
	}

	if !strings.Contains(jsonStr, `"Title": "Test"`) {
		t.Errorf("DumpConfigJSON() output should contain Title, got %s", jsonStr)
	}
}
