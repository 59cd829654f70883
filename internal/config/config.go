package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config represents the complete service configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Redis      RedisConfig      `toml:"redis"`
	AuditDB    AuditDBConfig    `toml:"audit_db"`
	Extractor  ExtractorConfig  `toml:"extractor"`
	AdminAPI   AdminAPIConfig   `toml:"admin_api"`
	Snapshots  SnapshotsConfig  `toml:"snapshots"`
	Auth       AuthConfig       `toml:"auth"`
	Onboarding OnboardingConfig `toml:"onboarding"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Addr    string `toml:"addr"`
	AgentID string `toml:"agent_id"`
}

// RedisConfig contains KV store settings
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// AuditDBConfig contains the Postgres audit trail settings
type AuditDBConfig struct {
	URL     string `toml:"url"`
	Enabled bool   `toml:"enabled"`
}

// ExtractorConfig contains the text-extraction service endpoint
type ExtractorConfig struct {
	Endpoint       string `toml:"endpoint"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// AdminAPIConfig contains the authoritative tenant-admin source endpoint
type AdminAPIConfig struct {
	Endpoint       string `toml:"endpoint"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// SnapshotsConfig contains object-storage settings for completion snapshots
type SnapshotsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// AuthConfig contains principal authentication settings
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret"`
	JWKSURL   string `toml:"jwks_url"`
}

// OnboardingConfig contains schema and reminder settings
type OnboardingConfig struct {
	SchemaFile      string `toml:"schema_file"`
	ReminderMinutes int    `toml:"reminder_minutes"`
}

// Load reads configuration from a TOML file and applies environment
// overrides for the deployment-sensitive values.
func Load(filename string) (*Config, error) {
	config := defaults()
	if filename != "" {
		if _, err := toml.DecodeFile(filename, config); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	config.applyEnv()
	return config, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:    ":8080",
			AgentID: "quartermaster",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Extractor: ExtractorConfig{
			TimeoutSeconds: 30,
		},
		AdminAPI: AdminAPIConfig{
			TimeoutSeconds: 10,
		},
		Snapshots: SnapshotsConfig{
			Bucket: "quartermaster-snapshots",
		},
		Onboarding: OnboardingConfig{
			SchemaFile:      "schema.yaml",
			ReminderMinutes: 60,
		},
	}
}

func (c *Config) applyEnv() {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.Redis.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}
	if url := os.Getenv("AUDIT_DATABASE_URL"); url != "" {
		c.AuditDB.URL = url
		c.AuditDB.Enabled = true
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if endpoint := os.Getenv("EXTRACTOR_ENDPOINT"); endpoint != "" {
		c.Extractor.Endpoint = endpoint
	}
	if key := os.Getenv("EXTRACTOR_API_KEY"); key != "" {
		c.Extractor.APIKey = key
	}
	if endpoint := os.Getenv("ADMIN_API_ENDPOINT"); endpoint != "" {
		c.AdminAPI.Endpoint = endpoint
	}
}
