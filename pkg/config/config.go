// Package config loads the console configuration from a YAML file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

// Session store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

const (
	defaultListen        = ":8081"
	defaultAPIPrefix     = "/api/v1/storage"
	defaultCookieName    = "hc_session"
	defaultSessionTTL    = 12 * time.Hour
	defaultPurgeSchedule = "@every 10m"
	defaultTimeout       = 30 * time.Second
	defaultHealthEvery   = 30 * time.Second
	defaultS3Region      = "us-east-1"
)

var (
	// ErrMissingGatewayURL is returned when no backend gateway is configured.
	ErrMissingGatewayURL = errors.New("gatewayurl is required")
	// ErrMissingLoginURL is returned when no identity provider login address is configured.
	ErrMissingLoginURL = errors.New("authlogin is required")
	// ErrUnknownBackend is returned for an unsupported session backend.
	ErrUnknownBackend = errors.New("unknown session backend")
	// ErrMissingDatabaseURL is returned when the postgres backend has no database URL.
	ErrMissingDatabaseURL = errors.New("session.databaseurl is required for the postgres backend")
	// ErrMissingRedisAddr is returned when the redis backend has no address.
	ErrMissingRedisAddr = errors.New("session.redisaddr is required for the redis backend")
)

// Config is the struct for the configuration
type Config struct {
	Listen    string `yaml:"listen"`
	PublicURL string `yaml:"publicurl"`
	// GatewayURL is the origin of the backend storage gateway.
	GatewayURL string `yaml:"gatewayurl"`
	APIPrefix  string `yaml:"apiprefix"`
	// AuthLogin is the external identity provider login address.
	AuthLogin string `yaml:"authlogin"`
	// RedirectOnUnauthorized sends the operator to the login page as soon
	// as the backend answers 401 instead of showing the error.
	RedirectOnUnauthorized bool          `yaml:"redirectonunauthorized"`
	RequestTimeout         time.Duration `yaml:"requesttimeout"`
	HealthInterval         time.Duration `yaml:"healthinterval"`
	LogLevel               string        `yaml:"loglevel"`
	LogFormat              string        `yaml:"logformat"`
	Session                SessionConfig `yaml:"session"`
	S3                     S3Config      `yaml:"s3"`
}

// SessionConfig configures where per-browser session state lives.
type SessionConfig struct {
	Backend       string        `yaml:"backend"`
	CookieName    string        `yaml:"cookiename"`
	SecureCookie  bool          `yaml:"securecookie"`
	TTL           time.Duration `yaml:"ttl"`
	PurgeSchedule string        `yaml:"purgeschedule"`
	RedisAddr     string        `yaml:"redisaddr"`
	RedisPassword string        `yaml:"redispassword"`
	RedisDB       int           `yaml:"redisdb"`
	DatabaseURL   string        `yaml:"databaseurl"`
}

// S3Config configures the connectivity check run before registering AWS_S3 buckets.
type S3Config struct {
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
}

// ReadYamlCnxFile reads a yaml file and returns a Config struct
func ReadYamlCnxFile(filename string) (Config, error) {
	var config Config

	yamlFile, err := os.ReadFile(filename)
	if err != nil {
		return config, fmt.Errorf("error reading YAML file: %w", err)
	}

	err = yaml.Unmarshal(yamlFile, &config)
	if err != nil {
		return config, fmt.Errorf("error parsing YAML file: %w", err)
	}
	return config, nil
}

// SetDefaults fills every unset optional field.
func (c *Config) SetDefaults() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.APIPrefix == "" {
		c.APIPrefix = defaultAPIPrefix
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = defaultTimeout
	}
	if c.HealthInterval == 0 {
		c.HealthInterval = defaultHealthEvery
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Session.Backend == "" {
		c.Session.Backend = BackendMemory
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = defaultCookieName
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = defaultSessionTTL
	}
	if c.Session.PurgeSchedule == "" {
		c.Session.PurgeSchedule = defaultPurgeSchedule
	}
	if c.S3.Region == "" {
		c.S3.Region = defaultS3Region
	}
	c.GatewayURL = strings.TrimSuffix(c.GatewayURL, "/")
	c.PublicURL = strings.TrimSuffix(c.PublicURL, "/")
}

// Validate checks that the configuration can be used to start the console.
func (c Config) Validate() error {
	if c.GatewayURL == "" {
		return ErrMissingGatewayURL
	}
	if _, err := url.ParseRequestURI(c.GatewayURL); err != nil {
		return fmt.Errorf("invalid gatewayurl: %w", err)
	}
	if c.AuthLogin == "" {
		return ErrMissingLoginURL
	}
	if _, err := url.Parse(c.AuthLogin); err != nil {
		return fmt.Errorf("invalid authlogin: %w", err)
	}
	if c.PublicURL != "" {
		if _, err := url.ParseRequestURI(c.PublicURL); err != nil {
			return fmt.Errorf("invalid publicurl: %w", err)
		}
	}

	switch c.Session.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			return ErrMissingRedisAddr
		}
	case BackendPostgres:
		if c.Session.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, c.Session.Backend)
	}
	return nil
}

// APIBaseURL is the prefix every backend call is scoped under.
func (c Config) APIBaseURL() string {
	return c.GatewayURL + c.APIPrefix
}
