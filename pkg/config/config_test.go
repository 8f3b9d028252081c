package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgaunet/hcconsole/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err, "Failed to create test file")
	return tmpFile
}

func TestReadYamlCnxFile_ValidFile(t *testing.T) {
	tmpFile := writeConfig(t, `
listen: ":9000"
publicurl: https://console.example.com
gatewayurl: https://gateway.example.com
authlogin: https://login.example.com/login
redirectonunauthorized: true
requesttimeout: 5s
loglevel: debug
logformat: json
session:
  backend: redis
  cookiename: my_session
  securecookie: true
  ttl: 1h
  redisaddr: localhost:6379
  redisdb: 2
s3:
  endpoint: http://minio:9000
  region: eu-west-1
`)

	cfg, err := config.ReadYamlCnxFile(tmpFile)
	require.NoError(t, err, "ReadYamlCnxFile should not return an error for valid YAML")

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "https://console.example.com", cfg.PublicURL)
	assert.Equal(t, "https://gateway.example.com", cfg.GatewayURL)
	assert.Equal(t, "https://login.example.com/login", cfg.AuthLogin)
	assert.True(t, cfg.RedirectOnUnauthorized)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, config.BackendRedis, cfg.Session.Backend)
	assert.Equal(t, "my_session", cfg.Session.CookieName)
	assert.True(t, cfg.Session.SecureCookie)
	assert.Equal(t, time.Hour, cfg.Session.TTL)
	assert.Equal(t, "localhost:6379", cfg.Session.RedisAddr)
	assert.Equal(t, 2, cfg.Session.RedisDB)
	assert.Equal(t, "http://minio:9000", cfg.S3.Endpoint)
	assert.Equal(t, "eu-west-1", cfg.S3.Region)
}

func TestReadYamlCnxFile_InvalidYaml(t *testing.T) {
	tmpFile := writeConfig(t, `
gatewayurl: https://gateway.example.com
requesttimeout: not-a-duration
`)

	_, err := config.ReadYamlCnxFile(tmpFile)
	assert.Error(t, err, "ReadYamlCnxFile should return an error for invalid YAML")
}

func TestReadYamlCnxFile_NonExistentFile(t *testing.T) {
	_, err := config.ReadYamlCnxFile("/path/to/non-existent/file.yaml")
	assert.Error(t, err, "ReadYamlCnxFile should return an error for non-existent file")
}

func TestReadYamlCnxFile_EmptyFile(t *testing.T) {
	tmpFile := writeConfig(t, "")

	cfg, err := config.ReadYamlCnxFile(tmpFile)
	require.NoError(t, err, "ReadYamlCnxFile should not return an error for empty file")
	assert.Equal(t, config.Config{}, cfg)
}

func TestSetDefaults(t *testing.T) {
	cfg := config.Config{
		GatewayURL: "https://gateway.example.com/",
		PublicURL:  "https://console.example.com/",
	}
	cfg.SetDefaults()

	assert.Equal(t, ":8081", cfg.Listen)
	assert.Equal(t, "/api/v1/storage", cfg.APIPrefix)
	assert.Equal(t, "https://gateway.example.com", cfg.GatewayURL)
	assert.Equal(t, "https://console.example.com", cfg.PublicURL)
	assert.Equal(t, "https://gateway.example.com/api/v1/storage", cfg.APIBaseURL())
	assert.Equal(t, config.BackendMemory, cfg.Session.Backend)
	assert.Equal(t, "hc_session", cfg.Session.CookieName)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "@every 10m", cfg.Session.PurgeSchedule)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.False(t, cfg.RedirectOnUnauthorized, "redirect on 401 must stay opt-in")
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		cfg := config.Config{
			GatewayURL: "https://gateway.example.com",
			AuthLogin:  "https://login.example.com/login",
		}
		cfg.SetDefaults()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{name: "valid", mutate: func(*config.Config) {}},
		{name: "missing gateway", mutate: func(c *config.Config) { c.GatewayURL = "" }, wantErr: config.ErrMissingGatewayURL},
		{name: "missing login", mutate: func(c *config.Config) { c.AuthLogin = "" }, wantErr: config.ErrMissingLoginURL},
		{name: "unknown backend", mutate: func(c *config.Config) { c.Session.Backend = "etcd" }, wantErr: config.ErrUnknownBackend},
		{name: "redis without addr", mutate: func(c *config.Config) { c.Session.Backend = config.BackendRedis }, wantErr: config.ErrMissingRedisAddr},
		{name: "postgres without url", mutate: func(c *config.Config) { c.Session.Backend = config.BackendPostgres }, wantErr: config.ErrMissingDatabaseURL},
		{
			name: "postgres with url",
			mutate: func(c *config.Config) {
				c.Session.Backend = config.BackendPostgres
				c.Session.DatabaseURL = "postgres://localhost/console"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
