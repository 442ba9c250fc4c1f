package config

import (
	"os"
	"strconv"
	"time"
)

func applyEnv(cfg *Config) {
	db := &cfg.Database
	db.Host = getEnvString("SQLQ_DB_HOST", db.Host)
	db.Port = getEnvInt("SQLQ_DB_PORT", db.Port)
	db.Name = getEnvString("SQLQ_DB_NAME", db.Name)
	db.User = getEnvString("SQLQ_DB_USER", db.User)
	db.Password = getEnvString("SQLQ_DB_PASSWORD", db.Password)
	db.MaxOpen = getEnvInt("SQLQ_DB_MAX_OPEN", db.MaxOpen)
	db.MaxIdle = getEnvInt("SQLQ_DB_MAX_IDLE", db.MaxIdle)

	eng := &cfg.Engine
	eng.Workers = getEnvInt("SQLQ_WORKERS", eng.Workers)
	eng.PollInterval = getEnvDuration("SQLQ_POLL_INTERVAL", eng.PollInterval)
	eng.DrainInterval = getEnvDuration("SQLQ_DRAIN_INTERVAL", eng.DrainInterval)
	eng.Assignment = getEnvString("SQLQ_ASSIGNMENT", eng.Assignment)

	cfg.Log.Backend = getEnvString("SQLQ_LOGGER", cfg.Log.Backend)
	cfg.Log.Level = getEnvString("SQLQ_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnvString("SQLQ_LOG_FILE", cfg.Log.File)
	cfg.Log.Development = getEnvBool("SQLQ_DEV", cfg.Log.Development)

	cfg.Telemetry.Enabled = getEnvBool("SQLQ_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.Endpoint)

	cfg.HTTP.Addr = getEnvString("SQLQ_HTTP_ADDR", cfg.HTTP.Addr)
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
