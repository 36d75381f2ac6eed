package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load looks at, so the developer's shell
// cannot leak into the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"USERHOBBIES_SERVER_PORT",
		"USERHOBBIES_SERVER_LOG_LEVEL",
		"USERHOBBIES_SERVER_LOG_FORMAT",
		"USERHOBBIES_DATABASE_DRIVER",
		"USERHOBBIES_DATABASE_DSN",
		"USERHOBBIES_AUTH_JWT_SECRET",
		"USERHOBBIES_AUTH_TOKEN_TTL",
		"USERHOBBIES_AUTH_BCRYPT_COST",
		"USERHOBBIES_AUTH_REALM",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "text", cfg.Server.LogFormat)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/users.db", cfg.Database.DSN)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "user-hobbies", cfg.Auth.Realm)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("USERHOBBIES_SERVER_PORT", "9090")
	t.Setenv("USERHOBBIES_SERVER_LOG_FORMAT", "json")
	t.Setenv("USERHOBBIES_DATABASE_DRIVER", "pgx")
	t.Setenv("USERHOBBIES_DATABASE_DSN", "postgres://u:p@localhost:5432/users")
	t.Setenv("USERHOBBIES_AUTH_JWT_SECRET", "thisisasecretkeythatis32charslong")
	t.Setenv("USERHOBBIES_AUTH_TOKEN_TTL", "1h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Server.LogFormat)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://u:p@localhost:5432/users", cfg.Database.DSN)
	assert.Equal(t, "thisisasecretkeythatis32charslong", cfg.Auth.JWTSecret)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadFromFile_EnvWins(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`
server:
  port: 7000
  log_level: debug
database:
  dsn: ":memory:"
auth:
  bcrypt_cost: 4
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("USERHOBBIES_SERVER_PORT", "7001")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7001, cfg.Server.Port, "environment overrides the file")
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, 4, cfg.Auth.BcryptCost)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port out of range", "USERHOBBIES_SERVER_PORT", "70000"},
		{"unknown log level", "USERHOBBIES_SERVER_LOG_LEVEL", "verbose"},
		{"unknown log format", "USERHOBBIES_SERVER_LOG_FORMAT", "xml"},
		{"unknown driver", "USERHOBBIES_DATABASE_DRIVER", "mysql"},
		{"short jwt secret", "USERHOBBIES_AUTH_JWT_SECRET", "short"},
		{"bcrypt cost too low", "USERHOBBIES_AUTH_BCRYPT_COST", "3"},
		{"zero token ttl", "USERHOBBIES_AUTH_TOKEN_TTL", "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := ServerConfig{LogLevel: "warn", LogFormat: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
