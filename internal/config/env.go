// Package config provides functions for reading config settings from ENV.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvStr returns a string environment variable value or a default if not set.
//
// Parameters:
//   - key[string]: Name of the environment variable as a string
//   - defaultValue[string]: The default value to return in-case no environment variable is set
//
// Example:
//
//	s := GetEnvStr("DATABASE_URL", "")
func GetEnvStr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// GetEnvInt returns an int environment variable value or a default if not set.
//
// Parameters:
//   - key[string]: Name of the environment variable as a string
//   - defaultValue[int]: The default value to return in-case no environment variable is set
//
// Example:
//
//	i := GetEnvInt("SYNC_WORKERS", 4)
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// GetEnvBool returns a bool environment variable value or a default if not set.
// Accepts: "true", "1", "yes" as true; "false", "0", "no" as false (case-insensitive).
//
// Parameters:
//   - key[string]: Name of the environment variable as a string
//   - defaultValue[bool]: The default value to return in-case no environment variable is set
//
// Example:
//
//	b := GetEnvBool("SYNC_AUTO_CREATE_PRODUCTS", true)
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
	}

	return defaultValue
}

// GetEnvDuration returns the environment variable value or a default if not set.
//
// Parameters:
//   - key[string]: Name of the environment variable as a string
//   - defaultValue[time.Duration]: The default value to return in-case no environment variable is set
//
// Example:
//
//	d := GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute)
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	return defaultValue
}

// GetEnvLogLevel returns the environment variable value or a default if not set.
//
// Parameters:
//   - key[string]: Name of the environment variable as a string
//   - defaultValue[slog.Level]: The default value to return in-case no environment variable is set
//
// Example:
//
//	l := GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo)
func GetEnvLogLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "debug":
			return slog.LevelDebug
		case "info":
			return slog.LevelInfo
		case "warn", "warning":
			return slog.LevelWarn
		case "error":
			return slog.LevelError
		}
	}

	return defaultValue
}
