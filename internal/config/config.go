package config

import (
	"os"
	"time"
)

// Config holds the server configuration, loaded from environment
// variables (a .env file is read by main before this).
type Config struct {
	DatabaseURL string
	ServerPort  string

	// Path to the job kind schema file.
	KindsPath string
	// Working directory the collector processes are started in.
	CollectorWorkdir string

	// Wall-clock ceiling for a single job. Safety net against a hung
	// collector blocking the single-flight slot.
	JobTimeout time.Duration
	// Grace window between SIGTERM and SIGKILL on cancel, so the
	// collector can flush partial checkpoint writes.
	CancelGracePeriod time.Duration
	// Poll interval of the log streaming loop.
	StreamPollInterval time.Duration
	// Interval of the stale-job watchdog sweep.
	WatchdogInterval time.Duration
	// Interval at which the job worker refreshes the heartbeat.
	HeartbeatInterval time.Duration
}

// Load reads the configuration from environment variables.
func Load() *Config {
	return &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		KindsPath:          getEnv("KINDS_CONFIG", "kinds.yaml"),
		CollectorWorkdir:   getEnv("COLLECTOR_WORKDIR", "."),
		JobTimeout:         getDuration("JOB_TIMEOUT", time.Hour),
		CancelGracePeriod:  getDuration("CANCEL_GRACE_PERIOD", 5*time.Second),
		StreamPollInterval: getDuration("STREAM_POLL_INTERVAL", 500*time.Millisecond),
		WatchdogInterval:   getDuration("WATCHDOG_INTERVAL", time.Minute),
		HeartbeatInterval:  getDuration("HEARTBEAT_INTERVAL", 15*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
