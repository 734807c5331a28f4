package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Qdrant    QdrantConfig    `mapstructure:"qdrant"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Replicate ReplicateConfig `mapstructure:"replicate"`
	Search    SearchConfig    `mapstructure:"search"`
	ViewGate  ViewGateConfig  `mapstructure:"view_gate"`
	Site      SiteConfig      `mapstructure:"site"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	Path            string        `mapstructure:"path"`   // sqlite file path
	DSN             string        `mapstructure:"dsn"`    // postgres connection string
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
}

type StorageConfig struct {
	Type      string `mapstructure:"type"` // s3, r2, s3compatible
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
}

// ReplicateConfig holds settings for the hosted embedding platform.
type ReplicateConfig struct {
	APIToken     string        `mapstructure:"api_token"`
	BaseURL      string        `mapstructure:"base_url"`
	ModelVersion string        `mapstructure:"model_version"`
	Dimensions   int           `mapstructure:"dimensions"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts"`
}

type SearchConfig struct {
	ScoreThreshold float32 `mapstructure:"score_threshold"`
	CandidateLimit int     `mapstructure:"candidate_limit"`
	DefaultPerPage int     `mapstructure:"default_per_page"`
	MaxPerPage     int     `mapstructure:"max_per_page"`
}

type ViewGateConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	ScrollLimit int  `mapstructure:"scroll_limit"`
	ModalLimit  int  `mapstructure:"modal_limit"`
}

type SiteConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// DSNString returns the connection string for the configured driver.
func (c *DatabaseConfig) DSNString() string {
	if c.Driver == "postgres" {
		return c.DSN
	}
	return c.Path
}

// Load reads configuration from file and environment.
// Parameters:
//   - configPath: explicit config file path; empty searches ./configs and cwd.
// Returns:
//   - *Config: parsed configuration.
//   - error: non-nil if reading or unmarshaling fails.
func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/adgallery.db")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "ad_images")
	v.SetDefault("storage.type", "s3compatible")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.use_ssl", false)
	v.SetDefault("storage.bucket", "ad-creatives")
	v.SetDefault("replicate.base_url", "https://api.replicate.com/v1")
	v.SetDefault("replicate.model_version", "1c0371070cb827ec3c7f2f28adcdde54b50dcd239aa6faea0bc98b174ef03fb4")
	v.SetDefault("replicate.dimensions", 768)
	v.SetDefault("replicate.poll_interval", 2*time.Second)
	v.SetDefault("replicate.poll_attempts", 30)
	v.SetDefault("search.score_threshold", 0.18)
	v.SetDefault("search.candidate_limit", 100)
	v.SetDefault("search.default_per_page", 20)
	v.SetDefault("search.max_per_page", 100)
	v.SetDefault("view_gate.enabled", false)
	v.SetDefault("view_gate.scroll_limit", 50)
	v.SetDefault("view_gate.modal_limit", 5)
	v.SetDefault("site.base_url", "http://localhost:8080")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.dsn", "DATABASE_DSN")
	v.BindEnv("qdrant.host", "QDRANT_HOST")
	v.BindEnv("qdrant.port", "QDRANT_PORT")
	v.BindEnv("qdrant.api_key", "QDRANT_API_KEY")
	v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	v.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	v.BindEnv("replicate.api_token", "REPLICATE_API_TOKEN")
	v.BindEnv("search.score_threshold", "SEARCH_SCORE_THRESHOLD")
	v.BindEnv("site.base_url", "SITE_BASE_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
