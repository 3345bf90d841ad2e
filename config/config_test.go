package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnv = []string{
	EnvHomeserverURL, EnvServerName, EnvAdminUsername, EnvAdminAccessToken, EnvASToken,
	EnvRegistrationSharedSecret, EnvDatabase, EnvInputDir, EnvConcurrency, EnvExcludedUsers,
	EnvLogLevel, EnvLogDir, EnvRateLimit,
}

// clearEnv blanks every variable Load reads, so the host environment does not
// leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnv {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, DefaultHomeserverURL, cfg.HomeserverURL)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "config.yaml", `
homeserver_url: https://yaml.example.com
server_name: yaml.example.com
admin_access_token: yaml_token
as_token: yaml_as
database_path: yaml.sqlite
concurrency: 10
excluded_users:
  - rocket.cat
`)
	envPath := writeFile(t, dir, ".env", `
HOMESERVER_URL=https://dotenv.example.com
AS_TOKEN=dotenv_as
CONCURRENCY=20
`)
	t.Setenv(EnvHomeserverURL, "https://env.example.com")
	t.Setenv(EnvRateLimit, "true")

	cfg, err := Load(yamlPath, envPath)
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.HomeserverURL, "environment wins over dotenv and yaml")
	assert.Equal(t, "dotenv_as", cfg.ASToken, "dotenv wins over yaml")
	assert.Equal(t, 20, cfg.Concurrency)
	assert.Equal(t, "yaml_token", cfg.AdminAccessToken, "yaml wins over defaults")
	assert.Equal(t, "yaml.example.com", cfg.ServerName)
	assert.Equal(t, "yaml.sqlite", cfg.DatabasePath)
	assert.Equal(t, []string{"rocket.cat"}, cfg.ExcludedUsers)
	assert.Equal(t, DefaultInputDir, cfg.InputDir, "unset values keep defaults")
	assert.True(t, cfg.RateLimit)
}

func TestLoadExcludedUsersFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvExcludedUsers, " alice, ,bob ")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, cfg.ExcludedUsers)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(dir, "nope.yaml"), "")
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(writeFile(t, dir, "bad.yaml", "concurrency: [oops"), "")
		require.Error(t, err)
	})

	t.Run("invalid concurrency", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvConcurrency, "many")
		_, err := Load("", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvConcurrency)
	})

	t.Run("invalid rate limit", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvRateLimit, "sometimes")
		_, err := Load("", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), EnvRateLimit)
	})
}

func validConfig() *Config {
	cfg := Default()
	cfg.AdminAccessToken = "admin_token"
	cfg.ASToken = "as_token"
	cfg.RegistrationSharedSecret = "secret"
	return cfg
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{name: "homeserver", modify: func(c *Config) { c.HomeserverURL = "" }, errMsg: EnvHomeserverURL},
		{name: "admin token", modify: func(c *Config) { c.AdminAccessToken = " " }, errMsg: EnvAdminAccessToken},
		{name: "as token", modify: func(c *Config) { c.ASToken = "" }, errMsg: EnvASToken},
		{name: "shared secret", modify: func(c *Config) { c.RegistrationSharedSecret = "" }, errMsg: EnvRegistrationSharedSecret},
		{name: "database", modify: func(c *Config) { c.DatabasePath = "" }, errMsg: EnvDatabase},
		{name: "concurrency", modify: func(c *Config) { c.Concurrency = 0 }, errMsg: EnvConcurrency},
		{name: "log level", modify: func(c *Config) { c.LogLevel = "verbose" }, errMsg: EnvLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestClone(t *testing.T) {
	cfg := validConfig()
	cfg.ExcludedUsers = []string{"alice"}

	clone := cfg.Clone()
	assert.Equal(t, cfg, clone)

	clone.ExcludedUsers[0] = "bob"
	clone.ASToken = "changed"
	assert.Equal(t, "alice", cfg.ExcludedUsers[0])
	assert.Equal(t, "as_token", cfg.ASToken)
}
