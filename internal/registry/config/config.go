// Package config holds the configuration for the registry server. The
// configuration is loaded from a TOML file, with selected secrets
// overridable through the environment (optionally supplied via a .env file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Version is the supported config file format version.
const Version = "0.1"

// SessionConfig holds user-session related configuration.
type SessionConfig struct {
	ExpirationTime string `toml:"expiration_time"` // inactivity window before a session is reaped
	ReaperInterval string `toml:"reaper_interval"` // how often the reaper sweeps
}

// GetExpirationTime returns the session expiration time as a time.Duration.
func (s *SessionConfig) GetExpirationTime() (time.Duration, error) {
	return ParseDuration(s.ExpirationTime)
}

// GetExpirationTimeOrDefault returns the session expiration time or panics
// if the configured value is invalid.
func (s *SessionConfig) GetExpirationTimeOrDefault() time.Duration {
	duration, err := s.GetExpirationTime()
	if err != nil {
		panic(fmt.Sprintf("invalid session expiration time: %v", err))
	}
	return duration
}

// GetReaperInterval returns the reaper sweep interval as a time.Duration.
func (s *SessionConfig) GetReaperInterval() (time.Duration, error) {
	return ParseDuration(s.ReaperInterval)
}

// GetReaperIntervalOrDefault returns the reaper sweep interval or panics if
// the configured value is invalid.
func (s *SessionConfig) GetReaperIntervalOrDefault() time.Duration {
	duration, err := s.GetReaperInterval()
	if err != nil {
		panic(fmt.Sprintf("invalid session reaper interval: %v", err))
	}
	return duration
}

// UpstreamConfig holds configuration for an optional upstream registry that
// read queries fall through to when the local registry has no match.
type UpstreamConfig struct {
	URL            string `toml:"url"`             // base URL of the upstream registry; empty disables the upstream
	ConnectTimeout string `toml:"connect_timeout"` // dial timeout
	ReadTimeout    string `toml:"read_timeout"`    // full request timeout
}

// GetConnectTimeoutOrDefault returns the connect timeout, defaulting to 10 s.
func (u *UpstreamConfig) GetConnectTimeoutOrDefault() time.Duration {
	if u.ConnectTimeout == "" {
		return 10 * time.Second
	}
	d, err := ParseDuration(u.ConnectTimeout)
	if err != nil {
		panic(fmt.Sprintf("invalid upstream connect timeout: %v", err))
	}
	return d
}

// GetReadTimeoutOrDefault returns the read timeout, defaulting to 30 s.
func (u *UpstreamConfig) GetReadTimeoutOrDefault() time.Duration {
	if u.ReadTimeout == "" {
		return 30 * time.Second
	}
	d, err := ParseDuration(u.ReadTimeout)
	if err != nil {
		panic(fmt.Sprintf("invalid upstream read timeout: %v", err))
	}
	return d
}

// AuthConfig holds single-user login configuration. The password hash is an
// argon2id encoded string and is supplied through the environment rather
// than the config file.
type AuthConfig struct {
	UserName     string `toml:"user_name"` // user allowed to log in and review
	PasswordHash string `toml:"-"`         // argon2id hash, from EXTREG_USER_PASSWORD_HASH
}

// ConfigParam holds all configuration parameters for the registry server.
type ConfigParam struct {
	FormatVersion string `toml:"format_version"` // version of this configuration file format

	// Server configuration
	ServerHostName     string   `toml:"server_hostname"`       // hostname the server binds to
	ServerPort         string   `toml:"server_port"`           // port the server listens on
	ServerURL          string   `toml:"server_url"`            // externally visible base URL used to build API URLs
	HandleCORS         bool     `toml:"handle_cors"`           // whether to handle CORS
	AllowedOrigins     []string `toml:"allowed_origins"`       // CORS origins when handle_cors is set
	MaxRequestBodySize int64    `toml:"max_request_body_size"` // maximum size of request body in bytes

	// Search index configuration
	InitSearchIndex bool `toml:"init_search_index"` // rebuild the search index on startup

	// Session configuration
	Session SessionConfig `toml:"session"`

	// Upstream registry configuration
	Upstream UpstreamConfig `toml:"upstream"`

	// Auth configuration
	Auth AuthConfig `toml:"auth"`

	// Database configuration
	DB struct {
		Host     string `toml:"host"`     // database host
		Port     int    `toml:"port"`     // database port
		DBName   string `toml:"dbname"`   // database name
		User     string `toml:"user"`     // database user
		Password string `toml:"password"` // database password; EXTREG_DB_PASSWORD overrides
		SSLMode  string `toml:"sslmode"`  // SSL mode for database connection
	} `toml:"db"`
}

var cfg *ConfigParam

// Config returns the current configuration.
func Config() *ConfigParam {
	return cfg
}

// DSN returns the database connection string.
func (c *ConfigParam) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode)
}

// RegistryDSN returns the DSN for the registry database.
func RegistryDSN() string {
	return cfg.DSN()
}

// ParseDuration parses a duration string in the format "<number><unit>" where
// unit is one of s (seconds), m (minutes), h (hours), d (days), y (years).
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	var duration time.Duration
	switch unit {
	case "s":
		duration = time.Duration(value) * time.Second
	case "m":
		duration = time.Duration(value) * time.Minute
	case "h":
		duration = time.Duration(value) * time.Hour
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "y":
		duration = time.Duration(value) * 365 * 24 * time.Hour
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidateConfig checks if all required configuration values are present and valid.
func ValidateConfig(cfg *ConfigParam) error {
	if cfg.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://" + cfg.ServerHostName + ":" + cfg.ServerPort
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 512 * 1024 * 1024
	}
	if err := validateSessionConfig(cfg); err != nil {
		return err
	}
	if err := validateDBConfig(cfg); err != nil {
		return err
	}
	return nil
}

func validateSessionConfig(cfg *ConfigParam) error {
	if cfg.Session.ExpirationTime == "" {
		cfg.Session.ExpirationTime = "6d"
	}
	if _, err := ParseDuration(cfg.Session.ExpirationTime); err != nil {
		return fmt.Errorf("invalid session.expiration_time: %v", err)
	}
	if cfg.Session.ReaperInterval == "" {
		cfg.Session.ReaperInterval = "30s"
	}
	if _, err := ParseDuration(cfg.Session.ReaperInterval); err != nil {
		return fmt.Errorf("invalid session.reaper_interval: %v", err)
	}
	return nil
}

func validateDBConfig(cfg *ConfigParam) error {
	if cfg.DB.Host == "" {
		return fmt.Errorf("db.host is required")
	}
	if cfg.DB.Port <= 0 {
		return fmt.Errorf("db.port must be positive")
	}
	if cfg.DB.DBName == "" {
		return fmt.Errorf("db.dbname is required")
	}
	if cfg.DB.User == "" {
		return fmt.Errorf("db.user is required")
	}
	if cfg.DB.SSLMode == "" {
		return fmt.Errorf("db.sslmode is required")
	}
	return nil
}

// LoadConfig loads configuration from a file. Environment variables, with a
// .env file loaded first if present, override the DB password and the login
// password hash so that secrets stay out of the config file.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	cfg = &ConfigParam{}
	if _, err := toml.Decode(string(content), cfg); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	// .env is optional; ignore absence
	_ = godotenv.Load()
	if v := os.Getenv("EXTREG_DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}
	if v := os.Getenv("EXTREG_USER_PASSWORD_HASH"); v != "" {
		cfg.Auth.PasswordHash = v
	}

	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	return nil
}

var isTest = false

// IsTest reports whether the server is running in test mode.
func IsTest() bool {
	return isTest
}

// TestInit loads the config file from the project root and switches to test
// mode. It panics on failure; tests cannot proceed without configuration.
func TestInit() {
	isTest = true
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}
	if err := LoadConfig(filepath.Join(projectRoot, "extregsrv.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
