package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DBDriverMemory   = "memory"
	DBDriverPostgres = "postgres"

	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Retention RetentionConfig `mapstructure:"retention"`
	Log       LogConfig       `mapstructure:"log"`
	Upload    UploadConfig    `mapstructure:"upload"`
	AppHost   string          `mapstructure:"host"`
}

type DBConfig struct {
	Driver string `mapstructure:"driver"`
	Source string `mapstructure:"source"`
}

type StorageConfig struct {
	Driver          string   `mapstructure:"driver"`
	Path            string   `mapstructure:"path"`
	PhysicalFolders bool     `mapstructure:"physical_folders"`
	S3              S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	CreateBucket    bool   `mapstructure:"create_bucket"`
}

type RetentionConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Window   time.Duration `mapstructure:"window"`
	Interval time.Duration `mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type UploadConfig struct {
	MaxBytes    int64 `mapstructure:"max_bytes"`
	MemoryBytes int64 `mapstructure:"memory_bytes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", ":10000")
	v.SetDefault("db.driver", DBDriverMemory)
	v.SetDefault("db.source", "")
	v.SetDefault("storage.driver", StorageDriverLocal)
	v.SetDefault("storage.path", "./storage")
	v.SetDefault("storage.physical_folders", true)
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.s3.create_bucket", false)
	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.window", "120h")
	v.SetDefault("retention.interval", "1h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("upload.max_bytes", int64(1<<30))
	v.SetDefault("upload.memory_bytes", int64(32<<20))
}

// Load reads settings.yml from ./configs or /configs, or the file at path
// when it is not empty, and applies environment overrides such as
// STORAGE_PATH. A missing default settings file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./configs")
		v.AddConfigPath("/configs")
		v.SetConfigName("settings")
		v.SetConfigType("yml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.AppHost = ":" + port
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DB.Driver {
	case DBDriverMemory:
	case DBDriverPostgres:
		if c.DB.Source == "" {
			return errors.New("db.source is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}

	switch c.Storage.Driver {
	case StorageDriverLocal:
		if c.Storage.Path == "" {
			return errors.New("storage.path is required for the local driver")
		}
	case StorageDriverS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	if c.Retention.Window <= 0 {
		return fmt.Errorf("retention.window must be positive, got %s", c.Retention.Window)
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("retention.interval must be positive, got %s", c.Retention.Interval)
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.New("upload.max_bytes must be positive")
	}
	if c.Upload.MemoryBytes <= 0 {
		return errors.New("upload.memory_bytes must be positive")
	}
	return nil
}
