package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadOverDefaults(t *testing.T) {
	p := writeConfig(t, `
environment: test
models:
  dir: /tmp/models
  symbols: [AAPL]
  profiles:
    - {name: swing, horizon_days: 5, return_threshold: 0.02}
calendar:
  extra_closures: ["2025-01-09"]
`)
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, "/tmp/models", c.Models.Dir)
	assert.Equal(t, 1000, c.Models.Lookback, "default kept")
	assert.Equal(t, 15*time.Minute, c.Cache.PredictionTTL)
	assert.Equal(t, "stockpred.predictions", c.Kafka.Topics.Predictions)
	require.Len(t, c.Models.Profiles, 1)
	assert.Equal(t, 5, c.Models.Profiles[0].HorizonDays)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty environment": func(c *Config) { c.Environment = "" },
		"short lookback":    func(c *Config) { c.Models.Lookback = 100 },
		"no workers":        func(c *Config) { c.Models.Workers = 0 },
		"bad profile":       func(c *Config) { c.Models.Profiles = []ProfileConfig{{Name: "x"}} },
		"redis without host": func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Host = ""
		},
		"bad closure": func(c *Config) { c.Calendar.ExtraClosures = []string{"01/09/2025"} },
	}
	for name, mutate := range cases {
		mutate := mutate
		t.Run(name, func(t *testing.T) {
			c := Default()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"STOCKPRED_SYMBOLS": "AAPL, MSFT,,NVDA",
		"KAFKA_BROKERS":     "k1:9092,k2:9092",
		"REDIS_ADDR":        "cache:6380",
		"MODEL_DIR":         "/var/lib/stockpred",
		"LOG_LEVEL":         "debug",
	}
	c := Default()
	c.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, []string{"AAPL", "MSFT", "NVDA"}, c.Models.Symbols)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.Equal(t, "/var/lib/stockpred", c.Models.Dir)
	assert.Equal(t, "debug", c.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
