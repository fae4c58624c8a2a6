package config

import (
	"os"
	"strconv"
	"strings"
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
	KafkaBrokers    []string
	KafkaAuditTopic string
	KafkaEnabled    bool

	// LLM
	LLMAPIKey         string
	LLMBaseURL        string
	LLMModelName      string
	LLMEmbeddingModel string
	LLMTimeout        time.Duration
	LLMRetryAttempts  int
	LLMRetryBackoff   time.Duration

	// RAG pipeline
	MaxContextTokens    int
	RetrievalTopK       int
	RetrievalPerSource  int
	RetrievalMinScore   float64
	RetrievalYearsBack  int
	FallbackConfidence  float64
	ClassifierRulesPath string
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 60*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1*1024*1024)),

		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "smarthealth"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "smarthealth123"),
		PostgresDB:       getEnv("POSTGRES_DB", "smarthealth"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),

		KafkaBrokers:    getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaAuditTopic: getEnv("KAFKA_AUDIT_TOPIC", "audit.queries"),
		KafkaEnabled:    getBoolEnv("KAFKA_ENABLED", false),

		LLMAPIKey:         getEnv("LLM_API_KEY", ""),
		LLMBaseURL:        getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMModelName:      getEnv("LLM_MODEL_NAME", "gpt-4"),
		LLMEmbeddingModel: getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
		LLMTimeout:        getDuration("LLM_TIMEOUT", 30*time.Second),
		LLMRetryAttempts:  getIntEnv("LLM_RETRY_ATTEMPTS", 2),
		LLMRetryBackoff:   getDuration("LLM_RETRY_BACKOFF", 500*time.Millisecond),

		MaxContextTokens:    getIntEnv("RAG_MAX_CONTEXT_TOKENS", 4000),
		RetrievalTopK:       getIntEnv("RAG_RETRIEVAL_TOP_K", 15),
		RetrievalPerSource:  getIntEnv("RAG_RETRIEVAL_PER_SOURCE", 10),
		RetrievalMinScore:   getFloatEnv("RAG_RETRIEVAL_MIN_SCORE", 0.3),
		RetrievalYearsBack:  getIntEnv("RAG_RETRIEVAL_YEARS_BACK", 5),
		FallbackConfidence:  getFloatEnv("RAG_FALLBACK_CONFIDENCE", 0.65),
		ClassifierRulesPath: getEnv("CLASSIFIER_RULES_PATH", ""),
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

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
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
