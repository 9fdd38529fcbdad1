package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Database
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Kafka
	KafkaBrokers       []string
	KafkaGroupID       string
	GoldenOutputTopic  string
	DecisionTopic      string
	SourceUpdatedTopic string
	DLQTopic           string

	// Tables
	SourceTable string
	GoldenTable string

	// Scoring oracle
	OracleAPIKey    string
	OracleBaseURL   string
	OracleModelName string
	OracleTimeout   time.Duration

	// Matching
	RetainThreshold    float64
	HighlightThreshold float64
	MatcherMaxRecords  int

	// Cache
	CacheTTL time.Duration

	// Field catalog
	FieldCatalogPath string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 30*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 4*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "auscare"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "auscare123"),
		PostgresDB:       getEnv("POSTGRES_DB", "healthcare_mdm"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:       getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "mdm-platform"),
		GoldenOutputTopic:  getEnv("GOLDEN_OUTPUT_TOPIC", "mdm.golden-records"),
		DecisionTopic:      getEnv("DECISION_TOPIC", "mdm.stewardship-decisions"),
		SourceUpdatedTopic: getEnv("SOURCE_UPDATED_TOPIC", "mdm.source-updated"),
		DLQTopic:           getEnv("DLQ_TOPIC", ""),

		SourceTable: getEnv("SOURCE_TABLE", "patients"),
		GoldenTable: getEnv("GOLDEN_TABLE", "patients_gold"),

		OracleAPIKey:    getEnv("ORACLE_API_KEY", ""),
		OracleBaseURL:   getEnv("ORACLE_BASE_URL", "https://api.openai.com/v1"),
		OracleModelName: getEnv("ORACLE_MODEL_NAME", "gpt-4"),
		OracleTimeout:   getDuration("ORACLE_TIMEOUT", 30*time.Second),

		RetainThreshold:    getFloatEnv("MATCH_RETAIN_THRESHOLD", 0.5),
		HighlightThreshold: getFloatEnv("MATCH_HIGHLIGHT_THRESHOLD", 0.7),
		MatcherMaxRecords:  getIntEnv("MATCHER_MAX_RECORDS", 200),

		CacheTTL: getDuration("CACHE_TTL", 300*time.Second),

		FieldCatalogPath: getEnv("FIELD_CATALOG_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return []string{value}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
