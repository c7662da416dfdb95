package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"pinboard-backend/internal/utils"

	"github.com/goccy/go-yaml"
)

// S3Config holds the settings of the S3 media driver
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`   // optional, for S3-compatible stores
	PublicURL string `yaml:"public_url"` // optional, defaults to the virtual-hosted bucket URL
}

// MediaConfig selects and configures the media store
type MediaConfig struct {
	Driver       string   `yaml:"driver"` // "local" or "s3"
	UploadDir    string   `yaml:"upload_dir"`
	BaseURL      string   `yaml:"base_url"`
	StrictDelete bool     `yaml:"strict_delete"`
	S3           S3Config `yaml:"s3"`
}

// Config represents the application configuration
type Config struct {
	Port           string      `yaml:"port"`
	StoreDriver    string      `yaml:"store_driver"` // "postgres" or "memory"
	DatabaseURL    string      `yaml:"database_url"`
	AutoMigrate    bool        `yaml:"auto_migrate"`
	RedisURL       string      `yaml:"redis_url"`
	JWTSecret      string      `yaml:"jwt_secret"`
	CORSOrigins    []string    `yaml:"cors_origins"`
	AuthRateLimit  int         `yaml:"auth_rate_limit"` // requests per minute per IP
	ShutdownPeriod int         `yaml:"shutdown_period"` // seconds
	Media          MediaConfig `yaml:"media"`
}

// Default returns the configuration used when neither a file nor the environment say otherwise
func Default() Config {
	return Config{
		Port:           "5000",
		StoreDriver:    "postgres",
		AutoMigrate:    true,
		JWTSecret:      "secret",
		CORSOrigins:    []string{"http://localhost:5173", "http://localhost:3000"},
		AuthRateLimit:  20,
		ShutdownPeriod: 10,
		Media: MediaConfig{
			Driver:    "local",
			UploadDir: "uploads",
			S3:        S3Config{Region: "us-east-1"},
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment,
// in that order of precedence (environment wins).
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		log.Printf("[CONFIG] Loaded configuration from %s", path)
	case errors.Is(err, fs.ErrNotExist):
		// file is optional
	default:
		return nil, err
	}

	applyEnv(&cfg)

	log.Printf("[CONFIG] - Port: %s", cfg.Port)
	log.Printf("[CONFIG] - Store driver: %s", cfg.StoreDriver)
	log.Printf("[CONFIG] - Cache: %s", cacheLabel(cfg.RedisURL))
	log.Printf("[CONFIG] - Media driver: %s (strict delete: %t)", cfg.Media.Driver, cfg.Media.StrictDelete)
	log.Printf("[CONFIG] - Auth rate limit: %d/min", cfg.AuthRateLimit)

	return &cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = utils.GetEnv("PORT", cfg.Port)
	cfg.StoreDriver = utils.GetEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURL = utils.GetEnv("DATABASE_URL", cfg.DatabaseURL)
	if cfg.DatabaseURL == "" && cfg.StoreDriver == "postgres" {
		// Fallback to individual vars
		cfg.DatabaseURL = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "pinboard") + "?sslmode=disable"
	}
	cfg.AutoMigrate = utils.GetEnvBool("MIGRATIONS_AUTO", cfg.AutoMigrate)
	cfg.RedisURL = utils.GetEnv("REDIS_URL", cfg.RedisURL)
	cfg.JWTSecret = utils.GetEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.CORSOrigins = utils.GetEnvList("CORS_ORIGINS", cfg.CORSOrigins)
	cfg.AuthRateLimit = utils.GetEnvInt("AUTH_RATE_LIMIT", cfg.AuthRateLimit)
	cfg.ShutdownPeriod = utils.GetEnvInt("SHUTDOWN_PERIOD", cfg.ShutdownPeriod)

	cfg.Media.Driver = utils.GetEnv("MEDIA_DRIVER", cfg.Media.Driver)
	cfg.Media.UploadDir = utils.GetEnv("UPLOAD_DIR", cfg.Media.UploadDir)
	cfg.Media.BaseURL = utils.GetEnv("BASE_URL", cfg.Media.BaseURL)
	cfg.Media.StrictDelete = utils.GetEnvBool("MEDIA_STRICT_DELETE", cfg.Media.StrictDelete)
	cfg.Media.S3.Bucket = utils.GetEnv("S3_BUCKET", cfg.Media.S3.Bucket)
	cfg.Media.S3.Region = utils.GetEnv("S3_REGION", cfg.Media.S3.Region)
	cfg.Media.S3.Endpoint = utils.GetEnv("S3_ENDPOINT", cfg.Media.S3.Endpoint)
	cfg.Media.S3.PublicURL = utils.GetEnv("S3_PUBLIC_URL", cfg.Media.S3.PublicURL)
}

// GetShutdownPeriod returns the graceful shutdown window as a time.Duration
func (c *Config) GetShutdownPeriod() time.Duration {
	return time.Duration(c.ShutdownPeriod) * time.Second
}

func cacheLabel(redisURL string) string {
	if redisURL == "" {
		return "in-memory"
	}
	return "redis"
}
