// Package config binds service configuration from the environment and
// loads the instance definitions file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration
type Config struct {
	AppName            string
	Port               int
	LogLevel           string
	PrettyLogs         bool
	StartupMaxAttempts int

	// Instance definitions
	InstancesFile string

	// Collection schedule
	ScheduleInterval time.Duration

	// Management API access
	SourceTimeout    time.Duration
	TokenTTL         time.Duration
	TokenSettleDelay time.Duration

	// Redis (token and portal endpoint cache)
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Graph database (snapshot sink)
	GraphDBHost     string
	GraphDBPort     int
	GraphDBUser     string
	GraphDBPassword string

	// Kafka (relation events)
	KafkaBrokers        []string
	KafkaRelationsTopic string
	KafkaBatchSize      int
	KafkaBatchTimeout   time.Duration
	KafkaRequiredAcks   int
	KafkaCompression    string

	// Tracing
	TracingEnabled  bool
	TracingEndpoint string
	TracingProtocol string
	TracingInsecure bool
}

// Load builds the configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		AppName:             getEnvString("APP_NAME", "apic-catalog"),
		LogLevel:            getEnvString("LOG_LEVEL", "info"),
		InstancesFile:       getEnvString("INSTANCES_FILE", "instances.yaml"),
		RedisHost:           getEnvString("REDIS_HOST", "localhost"),
		RedisPassword:       getEnvString("REDIS_PASSWORD", ""),
		GraphDBHost:         getEnvString("GRAPH_DB_HOST", "localhost"),
		GraphDBUser:         getEnvString("GRAPH_DB_USER", ""),
		GraphDBPassword:     getEnvString("GRAPH_DB_PASSWORD", ""),
		KafkaBrokers:        getEnvStrings("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaRelationsTopic: getEnvString("KAFKA_RELATIONS_TOPIC", "apic-relations"),
		KafkaCompression:    getEnvString("KAFKA_COMPRESSION", "snappy"),
		TracingEndpoint:     getEnvString("TRACING_ENDPOINT", "localhost:4317"),
		TracingProtocol:     getEnvString("TRACING_PROTOCOL", "grpc"),
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.PrettyLogs, err = getEnvBool("PRETTY_LOGS", false); err != nil {
		return nil, err
	}
	if cfg.StartupMaxAttempts, err = getEnvInt("STARTUP_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.ScheduleInterval, err = getEnvDuration("SCHEDULE_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SourceTimeout, err = getEnvDuration("SOURCE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", 0); err != nil {
		return nil, err
	}
	if cfg.TokenSettleDelay, err = getEnvDuration("TOKEN_SETTLE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedisPort, err = getEnvInt("REDIS_PORT", 6379); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.GraphDBPort, err = getEnvInt("GRAPH_DB_PORT", 7687); err != nil {
		return nil, err
	}
	if cfg.KafkaBatchSize, err = getEnvInt("KAFKA_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.KafkaBatchTimeout, err = getEnvDuration("KAFKA_BATCH_TIMEOUT", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.KafkaRequiredAcks, err = getEnvInt("KAFKA_REQUIRED_ACKS", 1); err != nil {
		return nil, err
	}
	if cfg.TracingEnabled, err = getEnvBool("TRACING_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.TracingInsecure, err = getEnvBool("TRACING_INSECURE", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvStrings(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		// Cron expressions are rejected up front rather than silently
		// ignored; scheduling is interval-only.
		if strings.Contains(value, " ") {
			return 0, fmt.Errorf("invalid value for %s: cron expressions are not supported, use a duration such as 5m", key)
		}
		return 0, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return parsed, nil
}
