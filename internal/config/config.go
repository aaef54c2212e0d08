// Package config loads service configuration from the environment and an optional config.yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Minio     MinioConfig     `mapstructure:"minio"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	LogLevel        string        `mapstructure:"log_level"`
}

type MongoConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	Issuer    string        `mapstructure:"issuer"`
}

type AnthropicConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// RedisConfig is optional; an empty Addr disables token revocation.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
}

// MinioConfig is optional; an empty Endpoint disables transcript archiving.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// envBindings maps config keys to the environment variables that override them.
var envBindings = map[string]string{
	"server.port":             "PORT",
	"server.read_timeout":     "SERVER_READ_TIMEOUT",
	"server.write_timeout":    "SERVER_WRITE_TIMEOUT",
	"server.shutdown_timeout": "SERVER_SHUTDOWN_TIMEOUT",
	"server.cors_origins":     "CORS_ALLOWED_ORIGINS",
	"server.log_level":        "LOG_LEVEL",
	"mongo.uri":               "MONGODB_URI",
	"mongo.database":          "MONGO_DB",
	"mongo.connect_timeout":   "MONGO_CONNECT_TIMEOUT",
	"auth.jwt_secret":         "JWT_SECRET",
	"auth.token_ttl":          "TOKEN_TTL",
	"auth.issuer":             "TOKEN_ISSUER",
	"anthropic.api_key":       "ANTHROPIC_API_KEY",
	"anthropic.base_url":      "ANTHROPIC_BASE_URL",
	"anthropic.model":         "ANTHROPIC_MODEL",
	"anthropic.max_tokens":    "GENERATION_MAX_TOKENS",
	"anthropic.temperature":   "GENERATION_TEMPERATURE",
	"anthropic.timeout":       "GENERATION_TIMEOUT",
	"redis.addr":              "REDIS_ADDR",
	"redis.password":          "REDIS_PASSWORD",
	"minio.endpoint":          "MINIO_ENDPOINT",
	"minio.access_key":        "MINIO_ACCESS_KEY",
	"minio.secret_key":        "MINIO_SECRET_KEY",
	"minio.bucket":            "MINIO_BUCKET",
	"minio.use_ssl":           "MINIO_USE_SSL",
}

// Load reads configuration from config.yaml (optional) and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Server.CORSOrigins = splitOrigins(cfg.Server.CORSOrigins)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "2m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.log_level", "info")

	v.SetDefault("mongo.database", "finance_advisor")
	v.SetDefault("mongo.connect_timeout", "5s")

	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.issuer", "finance-advisor")

	v.SetDefault("anthropic.base_url", "https://api.anthropic.com")
	v.SetDefault("anthropic.model", "claude-3-7-sonnet-20250219")
	v.SetDefault("anthropic.max_tokens", 1000)
	v.SetDefault("anthropic.temperature", 0.7)
	v.SetDefault("anthropic.timeout", "60s")

	v.SetDefault("minio.bucket", "chat-transcripts")
}

// splitOrigins accepts both a YAML list and a comma-separated env value.
func splitOrigins(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("MONGODB_URI is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Anthropic.APIKey == "" {
		errs = append(errs, errors.New("ANTHROPIC_API_KEY is required"))
	}
	if c.Mongo.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("MONGO_CONNECT_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
