package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Pipeline PipelineConfig
	Sink     SinkConfig
	LogLevel string `validate:"oneof=debug info warn error"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	// DSN is a postgres URL or a sqlite path / file: URI.
	DSN              string `validate:"required"`
	MaxConns         int32  `validate:"gte=1"`
	MinConns         int32  `validate:"gte=0"`
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration `validate:"gt=0"`
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `validate:"required"`
	HTTPAddr string `validate:"required"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Language    string `validate:"required"`
	TessdataDir string
	DPI         int `validate:"gte=72,lte=1200"`
}

// PipelineConfig holds batch processing configuration
type PipelineConfig struct {
	RulesFile      string
	RegistryFile   string
	Workers        int           `validate:"gte=1"`
	QueueSize      int           `validate:"gte=1"`
	ProcessTimeout time.Duration `validate:"gt=0"`
}

// SinkConfig holds the optional result publishers. Empty values disable them.
type SinkConfig struct {
	KafkaBrokers      []string
	KafkaResultsTopic string
	KafkaReviewTopic  string

	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Bucket          string
	S3UseSSL          bool
}

// KafkaEnabled reports whether results should be published to Kafka.
func (s SinkConfig) KafkaEnabled() bool {
	return len(s.KafkaBrokers) > 0 && (s.KafkaResultsTopic != "" || s.KafkaReviewTopic != "")
}

// S3Enabled reports whether results should be archived to object storage.
func (s SinkConfig) S3Enabled() bool {
	return s.S3Endpoint != "" && s.S3Bucket != ""
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", "file:estate-archive.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 1),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		},
		OCR: OCRConfig{
			Language:    getEnv("TESSERACT_LANG", "chi_sim+eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("OCR_DPI", 300),
		},
		Pipeline: PipelineConfig{
			RulesFile:      getEnv("RULES_FILE", ""),
			RegistryFile:   getEnv("REGISTRY_FILE", ""),
			Workers:        getEnvAsInt("WORKERS", 4),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("PROCESS_TIMEOUT", 2*time.Minute),
		},
		Sink: SinkConfig{
			KafkaBrokers:      getEnvAsList("KAFKA_BROKERS"),
			KafkaResultsTopic: getEnv("KAFKA_RESULTS_TOPIC", ""),
			KafkaReviewTopic:  getEnv("KAFKA_REVIEW_TOPIC", ""),
			S3Endpoint:        getEnv("S3_ENDPOINT", ""),
			S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			S3Bucket:          getEnv("S3_BUCKET", ""),
			S3UseSSL:          getEnvAsBool("S3_USE_SSL", true),
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return NewAppError("CONFIG_ERROR", "invalid environment configuration", WrapError(ErrConfig, err.Error()))
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
