package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DataBackend  string
	SQLiteDBPath string

	// AMQP (optional change-event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker schedules (cron expressions)
	SweepSchedule        string
	NotificationSchedule string

	// Notification thresholds
	DueSoonDays       int
	ClosingWindowDays int
	WarnUsageRatio    float64
	CritUsageRatio    float64
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8082"),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/hogar.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hogar"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		SweepSchedule:        getEnv("SWEEP_SCHEDULE", "30 0 * * *"),
		NotificationSchedule: getEnv("NOTIFICATION_SCHEDULE", "0 9 * * *"),

		DueSoonDays:       getEnvInt("DUE_SOON_DAYS", 7),
		ClosingWindowDays: getEnvInt("CLOSING_WINDOW_DAYS", 3),
		WarnUsageRatio:    getEnvFloat("WARN_USAGE_RATIO", 0.70),
		CritUsageRatio:    getEnvFloat("CRIT_USAGE_RATIO", 0.90),
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sqlite]", c.DataBackend))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SweepSchedule == "" {
		errs = append(errs, "sweep schedule cannot be empty")
	}
	if c.NotificationSchedule == "" {
		errs = append(errs, "notification schedule cannot be empty")
	}

	if c.DueSoonDays < 0 {
		errs = append(errs, fmt.Sprintf("invalid due soon days %d: must not be negative", c.DueSoonDays))
	}
	if c.ClosingWindowDays < 0 {
		errs = append(errs, fmt.Sprintf("invalid closing window days %d: must not be negative", c.ClosingWindowDays))
	}
	if c.WarnUsageRatio <= 0 || c.WarnUsageRatio > 1 {
		errs = append(errs, fmt.Sprintf("invalid warn usage ratio %v: must be in (0, 1]", c.WarnUsageRatio))
	}
	if c.CritUsageRatio <= 0 || c.CritUsageRatio > 1 {
		errs = append(errs, fmt.Sprintf("invalid crit usage ratio %v: must be in (0, 1]", c.CritUsageRatio))
	}
	if c.WarnUsageRatio > c.CritUsageRatio {
		errs = append(errs, fmt.Sprintf("warn usage ratio %v must not exceed crit usage ratio %v", c.WarnUsageRatio, c.CritUsageRatio))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

