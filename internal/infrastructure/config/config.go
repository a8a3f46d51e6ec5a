package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Settings is the full runtime configuration. Values come from an optional
// YAML file overridden by IMMERSION_-prefixed environment variables, e.g.
// IMMERSION_DATABASE_DSN.
type Settings struct {
	ServiceName string   `mapstructure:"service_name" validate:"required"`
	HTTPAddr    string   `mapstructure:"http_addr" validate:"required"`
	Database    Database `mapstructure:"database"`
	Crawler     Crawler  `mapstructure:"crawler"`
}

type Database struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=memory postgres"`
	DSN    string `mapstructure:"dsn" validate:"required_if=Driver postgres"`
}

type Crawler struct {
	Interval                 time.Duration `mapstructure:"interval" validate:"gt=0"`
	BatchSize                int           `mapstructure:"batch_size" validate:"gt=0"`
	MaxAttemptsPerSubscriber int           `mapstructure:"max_attempts_per_subscriber" validate:"gt=0"`
	HandlerTimeout           time.Duration `mapstructure:"handler_timeout" validate:"gt=0"`
	Concurrency              int           `mapstructure:"concurrency" validate:"gt=0"`
}

func (s *Settings) Validate() error {
	return validator.New().Struct(s)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "immersion-core")
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.dsn", "")
	v.SetDefault("crawler.interval", 2*time.Second)
	v.SetDefault("crawler.batch_size", 100)
	v.SetDefault("crawler.max_attempts_per_subscriber", 3)
	v.SetDefault("crawler.handler_timeout", 30*time.Second)
	v.SetDefault("crawler.concurrency", 8)
}

// Load reads the configuration from path (directory holding immersion.yaml,
// optional) and the environment.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("immersion")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	v.SetEnvPrefix("IMMERSION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Settings{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}
