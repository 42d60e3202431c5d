// Package config loads the core stream processor's configuration from
// environment variables, per spec §6. Defaults match the table there.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable of cmd/geopulse.
type Config struct {
	KafkaBrokers    []string
	IngressTopic    string
	EgressTopic     string
	ConsumerGroup   string
	RedisAddr       string
	RedisKeyPrefix  string
	WorkerCount     int
	MetricsPort     int
	HTTPBind        string
	LogDir          string
	ShutdownTimeout time.Duration

	CBEnabled         bool
	CBFailureThresh   int
	CBResetSeconds    float64
	CBOpTimeoutMs     int
	CBBackoffMs       int
}

// FromEnv loads the configuration, applying spec §6 defaults.
func FromEnv() (*Config, error) {
	c := &Config{
		KafkaBrokers:    split(getenv("KAFKA_BROKERS", "localhost:9092"), ","),
		IngressTopic:    getenv("INGRESS_TOPIC", "raw.zone.events"),
		EgressTopic:     getenv("EGRESS_TOPIC", "zone.alerts"),
		ConsumerGroup:   getenv("CONSUMER_GROUP", "zone-stream-processor"),
		RedisAddr:       getenv("REDIS_ADDR", "localhost:6380"),
		RedisKeyPrefix:  getenv("REDIS_KEY_PREFIX", "geopulse:"),
		WorkerCount:     geti("WORKER_COUNT", 8),
		MetricsPort:     geti("METRICS_PORT", 9090),
		HTTPBind:        getenv("HTTP_BIND", ":8090"),
		LogDir:          getenv("LOG_DIR", "./logs"),
		ShutdownTimeout: time.Duration(geti("SHUTDOWN_TIMEOUT_MS", 10_000)) * time.Millisecond,

		CBEnabled:       getbool("CB_ENABLED", false),
		CBFailureThresh: geti("CB_FAILURE_THRESHOLD", 5),
		CBResetSeconds:  getf("CB_RESET_SECONDS", 30),
		CBOpTimeoutMs:   geti("CB_TIMEOUT_MS", 3000),
		CBBackoffMs:     geti("CB_BACKOFF_MS", 200),
	}
	if len(c.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS required")
	}
	if c.WorkerCount < 1 {
		return nil, errors.New("WORKER_COUNT must be >= 1")
	}
	return c, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func geti(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return d
}

func getf(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return d
}

func getbool(k string, d bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return d
	}
}

func split(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
