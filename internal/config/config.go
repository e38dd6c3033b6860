package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Endpoint EndpointConfig `yaml:"endpoint"`
	Redis    RedisConfig    `yaml:"redis"`
	Session  SessionConfig  `yaml:"session"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

// DatabaseConfig points at the analytical warehouse where feedback rows
// and session transcripts are stored.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

// EndpointConfig describes the upstream chat-completion endpoint.
type EndpointConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`           // bearer token
	Provider       string `yaml:"provider"`        // "" (raw HTTP streaming), openai, anthropic, ollama, gemini
	Model          string `yaml:"model"`           // only used by SDK providers
	TimeoutSeconds int    `yaml:"timeout_seconds"` // whole-request ceiling
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SessionConfig struct {
	RetentionHours int `yaml:"retention_hours"` // idle sessions older than this are purged
}

type LogConfig struct {
	Level string `yaml:"level"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	var cfg *Config

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg = DefaultConfig()
	} else {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}

		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, err
		}
		cfg = &fileCfg
	}

	cfg.overrideFromEnv()

	if cfg.Endpoint.TimeoutSeconds <= 0 {
		cfg.Endpoint.TimeoutSeconds = 300
	}
	if cfg.Session.RetentionHours <= 0 {
		cfg.Session.RetentionHours = 72
	}

	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "fieldchat.db",
		},
		Endpoint: EndpointConfig{
			TimeoutSeconds: 300,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Session: SessionConfig{
			RetentionHours: 72,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if url := os.Getenv("ENDPOINT_URL"); url != "" {
		c.Endpoint.URL = url
	}
	if provider := os.Getenv("ENDPOINT_PROVIDER"); provider != "" {
		c.Endpoint.Provider = provider
	}
	if model := os.Getenv("ENDPOINT_MODEL"); model != "" {
		c.Endpoint.Model = model
	}
	// The Databricks PAT doubles as the bearer token for the serving endpoint.
	if pat := os.Getenv("DATABRICKS_PAT"); pat != "" {
		c.Endpoint.Token = pat
	}
	if token := os.Getenv("ENDPOINT_TOKEN"); token != "" {
		c.Endpoint.Token = token
	}
	// Warehouse coordinates in the original deployment's secret names. When a
	// DSN is not set explicitly, compose one from them for the configured driver.
	host := os.Getenv("DATABRICKS_SERVER_HOSTNAME")
	path := os.Getenv("DATABRICKS_HTTP_PATH")
	if c.Database.DSN == "" && host != "" {
		c.Database.DSN = warehouseDSN(host, path, c.Endpoint.Token)
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if hours := os.Getenv("SESSION_RETENTION_HOURS"); hours != "" {
		if v, err := strconv.Atoi(hours); err == nil {
			c.Session.RetentionHours = v
		}
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// warehouseDSN builds a driver DSN from the warehouse hostname, HTTP path and
// access token.
func warehouseDSN(host, path, token string) string {
	path = strings.TrimPrefix(path, "/")
	return fmt.Sprintf("token:%s@%s:443/%s", token, host, path)
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// Password format: :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}
