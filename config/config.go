// Package config loads the migrator settings.
//
// Values are resolved with the precedence environment variables, then the
// dotenv file, then the YAML file, then the defaults. Command line flags are
// applied on top by the caller.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultHomeserverURL = "http://localhost:8008"
	DefaultDatabasePath  = "db.sqlite"
	DefaultInputDir      = "inputs"
	DefaultConcurrency   = 50
	DefaultLogLevel      = "info"
	DefaultEnvFile       = ".env"
)

// Environment variable names.
const (
	EnvHomeserverURL            = "HOMESERVER_URL"
	EnvServerName               = "SERVER_NAME"
	EnvAdminUsername            = "ADMIN_USERNAME"
	EnvAdminAccessToken         = "ADMIN_ACCESS_TOKEN"
	EnvASToken                  = "AS_TOKEN"
	EnvRegistrationSharedSecret = "REGISTRATION_SHARED_SECRET"
	EnvDatabase                 = "DATABASE"
	EnvInputDir                 = "INPUT_DIR"
	EnvConcurrency              = "CONCURRENCY"
	EnvExcludedUsers            = "EXCLUDED_USERS"
	EnvLogLevel                 = "LOG_LEVEL"
	EnvLogDir                   = "LOG_DIR"
	EnvRateLimit                = "RATE_LIMIT"
)

// Config captures the settings of one migration run.
type Config struct {
	HomeserverURL string `yaml:"homeserver_url"`
	// ServerName is discovered from the homeserver when empty.
	ServerName string `yaml:"server_name"`

	// AdminUsername is the Rocket.Chat handle that maps onto the homeserver
	// admin account instead of being registered.
	AdminUsername            string `yaml:"admin_username"`
	AdminAccessToken         string `yaml:"admin_access_token"`
	ASToken                  string `yaml:"as_token"`
	RegistrationSharedSecret string `yaml:"registration_shared_secret"`

	DatabasePath  string   `yaml:"database_path"`
	InputDir      string   `yaml:"input_dir"`
	Concurrency   int      `yaml:"concurrency"`
	ExcludedUsers []string `yaml:"excluded_users"`

	LogLevel  string `yaml:"log_level"`
	LogDir    string `yaml:"log_dir"`
	RateLimit bool   `yaml:"rate_limit"`
}

// Default returns a configuration holding only the defaults.
func Default() *Config {
	return &Config{
		HomeserverURL: DefaultHomeserverURL,
		DatabasePath:  DefaultDatabasePath,
		InputDir:      DefaultInputDir,
		Concurrency:   DefaultConcurrency,
		LogLevel:      DefaultLogLevel,
	}
}

// Load builds the configuration. configPath names an optional YAML file and
// envFile an optional dotenv file; a missing dotenv file is ignored, a missing
// YAML file is an error since it was asked for explicitly.
func Load(configPath, envFile string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadYAML(configPath); err != nil {
			return nil, err
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		if err != nil && !os.IsNotExist(errors.Cause(err)) {
			return nil, errors.Wrapf(err, "failed to read %s", envFile)
		}
		if values != nil {
			dotenv = values
		}
	}

	lookup := func(key string) (string, bool) {
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := dotenv[key]
		return value, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return nil
}

// applyEnv overrides fields with the variables lookup reports as set.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	stringFields := map[string]*string{
		EnvHomeserverURL:            &c.HomeserverURL,
		EnvServerName:               &c.ServerName,
		EnvAdminUsername:            &c.AdminUsername,
		EnvAdminAccessToken:         &c.AdminAccessToken,
		EnvASToken:                  &c.ASToken,
		EnvRegistrationSharedSecret: &c.RegistrationSharedSecret,
		EnvDatabase:                 &c.DatabasePath,
		EnvInputDir:                 &c.InputDir,
		EnvLogLevel:                 &c.LogLevel,
		EnvLogDir:                   &c.LogDir,
	}
	for key, field := range stringFields {
		if value, ok := lookup(key); ok && value != "" {
			*field = value
		}
	}

	if value, ok := lookup(EnvConcurrency); ok && value != "" {
		concurrency, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvConcurrency)
		}
		c.Concurrency = concurrency
	}
	if value, ok := lookup(EnvRateLimit); ok && value != "" {
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvRateLimit)
		}
		c.RateLimit = enabled
	}
	if value, ok := lookup(EnvExcludedUsers); ok {
		c.ExcludedUsers = SplitList(value)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blank entries.
func SplitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Clone deep copies the configuration.
func (c *Config) Clone() *Config {
	var clone = *c
	if c.ExcludedUsers != nil {
		clone.ExcludedUsers = append([]string(nil), c.ExcludedUsers...)
	}
	return &clone
}

// Validate reports the first missing or invalid setting.
func (c *Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{EnvHomeserverURL, c.HomeserverURL},
		{EnvAdminAccessToken, c.AdminAccessToken},
		{EnvASToken, c.ASToken},
		{EnvRegistrationSharedSecret, c.RegistrationSharedSecret},
		{EnvDatabase, c.DatabasePath},
		{EnvInputDir, c.InputDir},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return errors.Errorf("%s is required", field.name)
		}
	}

	if c.Concurrency <= 0 {
		return errors.Errorf("%s must be positive, got %d", EnvConcurrency, c.Concurrency)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Errorf("%s must be one of debug, info, warn, error, got %q", EnvLogLevel, c.LogLevel)
	}
	return nil
}
