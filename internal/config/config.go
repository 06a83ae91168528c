package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"gofinances/internal/format"
)

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend          string
	DataDirectory        string
	SQLiteDBPath         string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	StorageKey           string
	StorageEncryptionKey string
	StorageReadRetries   int

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Dashboard
	Locale      string
	DisplayName string
	AvatarURL   string
	LoadTimeout time.Duration

	LogLevel string
}

var validBackends = []string{"memory", "jsonfile", "sqlite", "redis"}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:          getEnv("DATA_BACKEND", "memory"),
		DataDirectory:        getEnv("DATA_DIR", "./data"),
		SQLiteDBPath:         getEnv("SQLITE_DB_PATH", "./data/gofinances.db"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("REDIS_PASSWORD", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		StorageKey:           getEnv("STORAGE_KEY", "@gofinances:transactions"),
		StorageEncryptionKey: getEnv("STORAGE_ENCRYPTION_KEY", ""),
		StorageReadRetries:   getEnvInt("STORAGE_READ_RETRIES", 3),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gofinances"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "transactions_changed"),

		Locale:      getEnv("LOCALE", "pt-BR"),
		DisplayName: getEnv("DISPLAY_NAME", ""),
		AvatarURL:   getEnv("AVATAR_URL", ""),
		LoadTimeout: getEnvDuration("LOAD_TIMEOUT", 5*time.Second),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	// Validate data backend
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "jsonfile":
		if c.DataDirectory == "" {
			errors = append(errors, "data directory cannot be empty when using jsonfile backend")
		}
	case "redis":
		if c.RedisAddr == "" {
			errors = append(errors, "Redis address cannot be empty when using redis backend")
		}
		if c.RedisDB < 0 {
			errors = append(errors, fmt.Sprintf("invalid Redis database %d: must not be negative", c.RedisDB))
		}
	}

	if strings.TrimSpace(c.StorageKey) == "" {
		errors = append(errors, "storage key cannot be empty")
	}

	if c.StorageReadRetries < 0 || c.StorageReadRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid storage read retries %d: must be between 0 and 10", c.StorageReadRetries))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errors = append(errors, fmt.Sprintf("invalid locale '%s': %v (supported: %s)", c.Locale, err, strings.Join(format.Supported(), ", ")))
	}

	if c.AvatarURL != "" {
		if u, err := url.Parse(c.AvatarURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid avatar URL '%s': must be an http(s) URL", c.AvatarURL))
		}
	}

	if c.LoadTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be at least 100ms", c.LoadTimeout))
	} else if c.LoadTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid load timeout %v: must be at most 1 minute", c.LoadTimeout))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
