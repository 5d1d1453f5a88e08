// Package config loads spamsift settings: defaults, then an optional YAML file, then
// SPAMSIFT_* environment variables. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SPAMSIFT_"

// Config is the top-level configuration.
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Classify ClassifyConfig `yaml:"classify"`
}

// ModelConfig locates the model bundle. Artifacts may be local paths or http(s) URLs.
type ModelConfig struct {
	Vocabulary         string  `yaml:"vocabulary"`
	Classifier         string  `yaml:"classifier"`
	FallbackConfidence float64 `yaml:"fallbackConfidence"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ClassifyConfig tunes batch classification.
type ClassifyConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides on top of the defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Vocabulary:         "models/vocabulary.json",
			Classifier:         "models/classifier.json",
			FallbackConfidence: 0.99,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Classify: ClassifyConfig{
			Concurrency: 4,
		},
	}
}

// Validate rejects settings that cannot work.
func (c *Config) Validate() error {
	if c.Model.Vocabulary == "" || c.Model.Classifier == "" {
		return fmt.Errorf("model.vocabulary and model.classifier are required")
	}
	if c.Model.FallbackConfidence < 0.5 || c.Model.FallbackConfidence > 1 {
		return fmt.Errorf("model.fallbackConfidence must be in [0.5, 1], got %v", c.Model.FallbackConfidence)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.maxBodyBytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Classify.Concurrency < 1 {
		return fmt.Errorf("classify.concurrency must be at least 1, got %d", c.Classify.Concurrency)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

// applyEnvOverrides reads SPAMSIFT_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) error {
	texts := map[string]*string{
		"MODEL_VOCABULARY": &cfg.Model.Vocabulary,
		"MODEL_CLASSIFIER": &cfg.Model.Classifier,
		"LOGGING_LEVEL":    &cfg.Logging.Level,
		"LOGGING_FORMAT":   &cfg.Logging.Format,
	}
	for key, field := range texts {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*field = v
		}
	}

	ints := map[string]*int{
		"SERVER_PORT":          &cfg.Server.Port,
		"CLASSIFY_CONCURRENCY": &cfg.Classify.Concurrency,
	}
	for key, field := range ints {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
			}
			*field = n
		}
	}

	durations := map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":     &cfg.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT":    &cfg.Server.WriteTimeout,
		"SERVER_SHUTDOWN_TIMEOUT": &cfg.Server.ShutdownTimeout,
	}
	for key, field := range durations {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
			}
			*field = d
		}
	}

	if v := os.Getenv(EnvPrefix + "SERVER_MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %sSERVER_MAX_BODY_BYTES: %w", EnvPrefix, err)
		}
		cfg.Server.MaxBodyBytes = n
	}
	if v := os.Getenv(EnvPrefix + "MODEL_FALLBACK_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sMODEL_FALLBACK_CONFIDENCE: %w", EnvPrefix, err)
		}
		cfg.Model.FallbackConfidence = f
	}
	return nil
}
