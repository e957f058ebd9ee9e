package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"ENV", "SERVICE_NAME", "LOG_LEVEL", "SERVER_PORT", "SERVER_LISTEN_BACKLOG", "LOTTERY_AGENCIES",
		"LOTTERY_WINNER_NUMBER", "STORE_BACKEND", "BETS_FILE", "REDIS_ADDR", "REDIS_WINNERS_TTL",
		"KAFKA_BROKERS", "KAFKA_TOPIC_DRAW", "METRICS_PORT",
	} {
		t.Setenv(key, "") // restaura o valor original no fim do teste
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "lottery-server", cfg.ServiceName)
	assert.Equal(t, "12345", cfg.Port)
	assert.Equal(t, 5, cfg.ListenBacklog)
	assert.Equal(t, 5, cfg.Agencies)
	assert.Equal(t, 7574, cfg.LuckyNumber)
	assert.Equal(t, StoreCSV, cfg.StoreBackend)
	assert.Equal(t, "./bets.csv", cfg.BetsFile)
	assert.Equal(t, 24*time.Hour, cfg.RedisWinnersTTL)
	assert.Equal(t, "lottery_draw_completed", cfg.TopicDraw)
	assert.Equal(t, "9095", cfg.MetricsPort)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "4000")
	t.Setenv("SERVER_LISTEN_BACKLOG", "64")
	t.Setenv("LOTTERY_AGENCIES", "2")
	t.Setenv("LOTTERY_WINNER_NUMBER", "7")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("REDIS_WINNERS_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Port)
	assert.Equal(t, 64, cfg.ListenBacklog)
	assert.Equal(t, 2, cfg.Agencies)
	assert.Equal(t, 7, cfg.LuckyNumber)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 90*time.Second, cfg.RedisWinnersTTL)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("LOTTERY_AGENCIES", "five")
	t.Setenv("REDIS_WINNERS_TTL", "forever")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOTTERY_AGENCIES")
	assert.Contains(t, err.Error(), "REDIS_WINNERS_TTL")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := Config{Port: "12345", ListenBacklog: 5, Agencies: 5, StoreBackend: StoreCSV, BetsFile: "bets.csv"}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "no port", mutate: func(c *Config) { c.Port = "" }},
		{name: "zero backlog", mutate: func(c *Config) { c.ListenBacklog = 0 }},
		{name: "zero agencies", mutate: func(c *Config) { c.Agencies = 0 }},
		{name: "csv without file", mutate: func(c *Config) { c.BetsFile = "" }},
		{name: "postgres without dsn", mutate: func(c *Config) { c.StoreBackend = StorePostgres }},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "sqlite" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
