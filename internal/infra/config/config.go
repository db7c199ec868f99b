package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Storage        string        `validate:"oneof=postgres memory"`
	DatabaseURL    string        `validate:"required_if=Storage postgres"`
	HTTPAddress    string        `validate:"required"`
	LoginPath      string        `validate:"required,startswith=/api/"`
	TokenTTL       time.Duration `validate:"min=1s"`
	PasswordPepper string

	RedisAddress  string
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	TokenCacheTTL time.Duration `validate:"min=1s"`

	AllowedOrigins   []string
	AllowCredentials bool

	LoginRateLimit int `validate:"gt=0"`
	LoginRateBurst int `validate:"gt=0"`

	LogLevel string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("STORAGE", StoragePostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("LOGIN_PATH", "/api/login")
	v.SetDefault("TOKEN_TTL", "1h")
	v.SetDefault("PASSWORD_PEPPER", "")
	v.SetDefault("REDIS_ADDRESS", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("TOKEN_CACHE_TTL", "1m")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ALLOW_CREDENTIALS", false)
	v.SetDefault("LOGIN_RATE_LIMIT", 5)
	v.SetDefault("LOGIN_RATE_BURST", 10)
	v.SetDefault("LOG_LEVEL", "info")
}

// Load reads config.json from the working directory (optional), a .env file
// (optional) and the environment, in increasing priority.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	setDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	origins, err := stringList(v.Get("ALLOWED_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_ORIGINS: %w", err)
	}
	tokenTTL, err := seconds(v.GetString("TOKEN_TTL"))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_TTL: %w", err)
	}
	cacheTTL, err := seconds(v.GetString("TOKEN_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("TOKEN_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Storage:          strings.ToLower(v.GetString("STORAGE")),
		DatabaseURL:      v.GetString("DATABASE_URL"),
		HTTPAddress:      v.GetString("HTTP_ADDRESS"),
		LoginPath:        v.GetString("LOGIN_PATH"),
		TokenTTL:         tokenTTL,
		PasswordPepper:   v.GetString("PASSWORD_PEPPER"),
		RedisAddress:     v.GetString("REDIS_ADDRESS"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisDB:          v.GetInt("REDIS_DB"),
		TokenCacheTTL:    cacheTTL,
		AllowedOrigins:   origins,
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),
		LoginRateLimit:   v.GetInt("LOGIN_RATE_LIMIT"),
		LoginRateBurst:   v.GetInt("LOGIN_RATE_BURST"),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// CacheEnabled reports whether token lookups go through Redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddress != ""
}

// seconds reads a window given either as a bare number of seconds ("3600")
// or as a Go duration ("1h").
func seconds(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

// stringList accepts a JSON array (from config.json or an env value such as
// `["https://a","https://b"]`) or a comma separated string.
func stringList(raw any) ([]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	case []string:
		return val, nil
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") {
			var out []string
			if err := json.Unmarshal([]byte(s), &out); err != nil {
				return nil, err
			}
			return out, nil
		}
		var out []string
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", raw)
	}
}
