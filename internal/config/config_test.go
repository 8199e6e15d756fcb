package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"^GSPC", "^VIX"}, cfg.Pipeline.Indices)
	assert.Equal(t, "5y", cfg.Pipeline.TrainingPeriod)
	assert.Equal(t, "2y", cfg.Pipeline.InferencePeriod)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 30*time.Second, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, 45*time.Minute, cfg.Pipeline.RunTimeout)
	assert.Equal(t, 50, cfg.Pipeline.ProgressEvery)
	assert.Equal(t, uint64(0), cfg.Pipeline.Seed)
	assert.Equal(t, []string{"^VIX-volume"}, cfg.Pipeline.DropColumns)
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.Zero(t, cfg.Database.Retention)
	assert.Equal(t, "@daily", cfg.Database.RetentionSchedule)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PIPELINE_INDICES", "^GSPC, ^DJI ,")
	t.Setenv("PIPELINE_WORKERS", "8")
	t.Setenv("PIPELINE_FETCH_TIMEOUT", "5s")
	t.Setenv("PIPELINE_SEED", "1234")
	t.Setenv("PIPELINE_SCHEDULE", "0 30 6 * * MON-FRI")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_UNIVERSE_TTL", "1h")
	t.Setenv("RUNS_RETENTION", "720h")
	t.Setenv("RUNS_RETENTION_SCHEDULE", "0 0 3 * * *")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"^GSPC", "^DJI"}, cfg.Pipeline.Indices)
	assert.Equal(t, 8, cfg.Pipeline.Workers)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, uint64(1234), cfg.Pipeline.Seed)
	assert.Equal(t, "0 30 6 * * MON-FRI", cfg.Pipeline.Schedule)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, 720*time.Hour, cfg.Database.Retention)
	assert.Equal(t, "0 0 3 * * *", cfg.Database.RetentionSchedule)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PIPELINE_WORKERS", "many")
	t.Setenv("PIPELINE_RUN_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 45*time.Minute, cfg.Pipeline.RunTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"zero workers", map[string]string{"PIPELINE_WORKERS": "0"}},
		{"bad schedule", map[string]string{"PIPELINE_SCHEDULE": "every tuesday"}},
		{"negative timeout", map[string]string{"PIPELINE_FETCH_TIMEOUT": "-1s"}},
		{"negative retention", map[string]string{"RUNS_RETENTION": "-24h"}},
		{"bad retention schedule", map[string]string{"RUNS_RETENTION": "24h", "RUNS_RETENTION_SCHEDULE": "nightly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: "5432", DBName: "datasets", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/datasets?sslmode=disable", d.ConnectionString())
}
