package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: storefront-functions
  env: dev
  port: 9090
platform:
  url: https://project.example.co
  anonKey: anon
  serviceRoleKey: service
  timeout: 3s
store:
  driver: rest
infra:
  kafka:
    brokers: [kafka-1:9092]
functions:
  rateLimit:
    limit: 5
    window: 30s
  delivery:
    defaultFee: 25
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.Platform.Timeout)
	assert.Equal(t, []string{"kafka-1:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, "storefront-events", cfg.Infra.Kafka.EventsTopic)
	assert.Equal(t, 5, cfg.Functions.RateLimit.Limit)
	assert.Equal(t, 30*time.Second, cfg.Functions.RateLimit.Window)
	assert.Equal(t, 0, cfg.Functions.RateLimit.TrustedProxies)
	assert.Equal(t, 3, cfg.Functions.Redeem.MaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Functions.Redeem.IdempotencyTTL)
	assert.Equal(t, 25.0, cfg.Functions.Delivery.DefaultFee)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PLATFORM_URL", "https://other.example.co")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
	t.Setenv("HTTP_PORT", "7000")
	t.Setenv("STORE_DRIVER", "mysql")
	t.Setenv("MYSQL_DSN", "root:secret@tcp(127.0.0.1:3306)/shop?parseTime=true")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "https://other.example.co", cfg.Platform.URL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Infra.Kafka.Brokers)
	assert.Equal(t, 7000, cfg.App.Port)
	assert.Equal(t, StoreDriverMySQL, cfg.Store.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_MissingFileUsesEnv(t *testing.T) {
	t.Setenv("PLATFORM_URL", "https://project.example.co")
	t.Setenv("PLATFORM_ANON_KEY", "anon")
	t.Setenv("PLATFORM_SERVICE_ROLE_KEY", "service")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, StoreDriverREST, cfg.Store.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_InvalidPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	_, err := LoadConfig(writeConfig(t, sampleConfig))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, sampleConfig))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing platform url", func(c *Config) { c.Platform.URL = "" }},
		{"relative platform url", func(c *Config) { c.Platform.URL = "project.example.co" }},
		{"missing anon key", func(c *Config) { c.Platform.AnonKey = "" }},
		{"rest driver without service key", func(c *Config) { c.Platform.ServiceRoleKey = "" }},
		{"mysql driver without dsn", func(c *Config) { c.Store.Driver = StoreDriverMySQL }},
		{"mysql driver with bad dsn", func(c *Config) {
			c.Store.Driver = StoreDriverMySQL
			c.Store.MySQLDSN = "not a dsn"
		}},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }},
		{"negative default fee", func(c *Config) { c.Functions.Delivery.DefaultFee = -1 }},
		{"negative trusted proxies", func(c *Config) { c.Functions.RateLimit.TrustedProxies = -1 }},
		{"nacos without servers", func(c *Config) { c.Infra.Nacos.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
