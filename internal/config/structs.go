package config

import (
	"time"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Directory Directory
	Schedule  Schedule
	Sync      Sync
}

// DB holds the database configuration settings.
// URL takes precedence over the discrete fields when set.
type DB struct {
	Extras     string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	GormEngine string // mysql, postgres or sqlite
	URL        string
	LogLevel   string // gorm statements are logged at this zerolog level
}

// Webserver implement webserver settings.
type Webserver struct {
	Enabled        bool   // serve the status API
	DisableRecover bool   // disable recover middleware
	Port           int    // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown in seconds
	URL            string // base url for the webserver
}

// Directory selects and configures the identity provider.
type Directory struct {
	Provider    string        // authentik or ldap
	CallTimeout time.Duration // bound of a single provider request
	Retry       Retry
	Authentik   Authentik
	LDAP        LDAP
}

// Retry bounds the exponential backoff around provider calls.
type Retry struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// Authentik api settings. Either Token or the client credentials are required.
type Authentik struct {
	URL          string
	Token        string
	ClientID     string
	ClientSecret string
	TokenURL     string
	PageSize     int
}

// LDAP directory settings.
type LDAP struct {
	URL              string
	StartTLS         bool
	BindDN           string
	BindPassword     string
	UserBaseDN       string
	UserFilter       string
	UserAttribute    string // attribute holding the student id, e.g. uid
	NameAttribute    string
	GroupBaseDN      string
	GroupObjectClass string
	MemberAttribute  string
}

// Schedule describes the weekly timetable.
type Schedule struct {
	Location          string // IANA time zone the timetable is defined in
	PaddingMinutes    int    // access window opens and closes this many minutes around a block
	GroupNameTemplate string // placeholders {day}, {block}, {dayName}, {blockLabel}
	FixedGroupName    string // collapses every slot onto one group, testing only
	Days              []string
	Blocks            []Block
}

// Block is one lesson block, times as HH:MM.
type Block struct {
	Number int
	Start  string
	End    string
	Label  string
}

// Sync controls the reconciliation cadence.
type Sync struct {
	IncrementalSpec string
	FullSpec        string
	Concurrency     int
	RunOnStart      bool
}
