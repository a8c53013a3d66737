package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aland-weather/pkg/database"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "weather_normalized.db", cfg.Database.Path)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1000, cfg.Query.DefaultLimit)
	assert.Equal(t, 10000, cfg.Query.MaxLimit)
	assert.Equal(t, 500, cfg.Ingestion.ProgressEvery)
	assert.Equal(t, 100, cfg.Ingestion.MaxErrorMessages)
}

func TestLoadConfig_CustomEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "aland")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("QUERY_DEFAULT_LIMIT", "50")
	t.Setenv("INGEST_PROGRESS_EVERY", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Query.DefaultLimit)
	assert.Equal(t, 10, cfg.Ingestion.ProgressEvery)

	dbCfg := cfg.Database.ToDatabaseConfig()
	assert.Equal(t, database.Postgres, dbCfg.Driver)
	assert.Equal(t, "db.internal", dbCfg.Host)
	assert.Equal(t, "aland", dbCfg.Database)
}

func TestLoadConfig_UnparseableFallsBackToDefault(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}},
		{"unknown log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"default limit above max", map[string]string{"QUERY_DEFAULT_LIMIT": "500", "QUERY_MAX_LIMIT": "100"}},
		{"zero progress interval", map[string]string{"INGEST_PROGRESS_EVERY": "0"}},
		{"zero error message cap", map[string]string{"INGEST_MAX_ERROR_MESSAGES": "0"}},
		{"bad ssl mode", map[string]string{"DB_SSLMODE": "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := LoadConfig()
			require.NoError(t, err)
			assert.Error(t, cfg.Validate())
		})
	}
}
