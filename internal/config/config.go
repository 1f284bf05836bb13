package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Session  SessionConfig  `mapstructure:"session"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReleaseMode    bool          `mapstructure:"release_mode"`
}

// DatabaseConfig selects the backing store for food_analyses and user_profiles.
type DatabaseConfig struct {
	Driver     string `mapstructure:"driver"` // "mongo" or "sqlite"
	URI        string `mapstructure:"uri"`
	Name       string `mapstructure:"name"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

type StorageConfig struct {
	Provider     string        `mapstructure:"provider"` // "s3" or "gcs"
	SignedURLTTL time.Duration `mapstructure:"signed_url_ttl"`
	S3           S3Config      `mapstructure:"s3"`
	GCS          GCSConfig     `mapstructure:"gcs"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// GCSConfig holds the bucket and the service account used for V4 signing.
// SigningPrivateKey may contain literal "\n" sequences (as env vars usually do).
type GCSConfig struct {
	Bucket            string `mapstructure:"bucket"`
	CredentialsFile   string `mapstructure:"credentials_file"`
	SigningEmail      string `mapstructure:"signing_email"`
	SigningPrivateKey string `mapstructure:"signing_private_key"`
}

// SessionConfig defines how session tokens are issued and read back.
type SessionConfig struct {
	Secret       string        `mapstructure:"secret"`
	TTL          time.Duration `mapstructure:"ttl"`
	CookieName   string        `mapstructure:"cookie_name"`
	SecureCookie bool          `mapstructure:"secure_cookie"`
}

// VisionConfig configures the Vertex AI Gemini model. An empty ProjectID leaves
// the vision client unavailable; the analyze endpoint then answers 503.
type VisionConfig struct {
	ProjectID       string  `mapstructure:"project_id"`
	Location        string  `mapstructure:"location"`
	Model           string  `mapstructure:"model"`
	CredentialsFile string  `mapstructure:"credentials_file"`
	Temperature     float32 `mapstructure:"temperature"`
}

type AnalysisConfig struct {
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	MaxImageBytes    int64         `mapstructure:"max_image_bytes"`
	PersistWorkers   int           `mapstructure:"persist_workers"`
	PersistQueueSize int           `mapstructure:"persist_queue_size"`
	PersistTimeout   time.Duration `mapstructure:"persist_timeout"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// storage.s3.bucket_name -> STORAGE_S3_BUCKET_NAME
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil // env vars and defaults are enough
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	if err = config.Validate(); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s") // analyze = fetch (20s) + model call
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.release_mode", false)

	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "nutrition_app")
	v.SetDefault("database.sqlite_path", "nutrition.db")

	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.signed_url_ttl", "1h")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_path_style", true)
	// Unset keys are invisible to AutomaticEnv during Unmarshal, so every
	// credential gets an empty default.
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.bucket_name", "")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.credentials_file", "")
	v.SetDefault("storage.gcs.signing_email", "")
	v.SetDefault("storage.gcs.signing_private_key", "")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.cookie_name", "session")
	v.SetDefault("session.secure_cookie", true)

	v.SetDefault("vision.project_id", "")
	v.SetDefault("vision.location", "us-central1")
	v.SetDefault("vision.model", "gemini-1.5-flash")
	v.SetDefault("vision.credentials_file", "")
	v.SetDefault("vision.temperature", 0.2)

	v.SetDefault("analysis.fetch_timeout", "20s")
	v.SetDefault("analysis.max_image_bytes", 5<<20)
	v.SetDefault("analysis.persist_workers", 2)
	v.SetDefault("analysis.persist_queue_size", 64)
	v.SetDefault("analysis.persist_timeout", "10s")

	v.SetDefault("metrics.enabled", true)
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	if c.Session.Secret == "" {
		return errors.New("session.secret must be set")
	}
	switch c.Database.Driver {
	case "mongo", "sqlite":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	switch c.Storage.Provider {
	case "s3", "gcs":
	default:
		return fmt.Errorf("unsupported storage.provider %q", c.Storage.Provider)
	}
	if c.Storage.SignedURLTTL <= 0 {
		return errors.New("storage.signed_url_ttl must be positive")
	}
	if c.Analysis.FetchTimeout <= 0 {
		return errors.New("analysis.fetch_timeout must be positive")
	}
	return nil
}
