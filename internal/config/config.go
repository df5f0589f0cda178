package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL       string
	LLMModelName     string
	LLMAPIKey        string
	LLMAllowDummyKey bool
	LLMTemperature   float32
	LLMMaxTokens     int
	LLMCompletions   int
	EmbeddingBaseURL string
	EmbeddingModel   string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
	QdrantVectorSize int
	DBPath           string
	RetrievalK       int
	TokenCeiling     int
	Tokenizer        string
	SystemPrompt     string
	APIPort          string
	RequestTimeout   time.Duration
	LogLevel         slog.Level
	LogFormat        string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ { // Limit search depth
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		LLMBaseURL:       getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:     getEnv("LLM_MODEL", "gpt-35-turbo"),
		LLMAPIKey:        getEnv("LLM_API_KEY", ""),
		EmbeddingBaseURL: getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL_NAME", "text-embedding-ada-002"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "kbindex"),
		DBPath:           getEnv("DB_PATH", ""),
		Tokenizer:        strings.ToLower(getEnv("TOKENIZER", "tiktoken")),
		SystemPrompt:     getEnv("SYSTEM_PROMPT", ""),
		APIPort:          getEnv("API_PORT", "3000"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.LLMAllowDummyKey, err = getBool("LLM_ALLOW_DUMMY_KEY", false); err != nil {
		return nil, err
	}

	temperature, err := strconv.ParseFloat(getEnv("LLM_TEMPERATURE", "0.7"), 32)
	if err != nil {
		return nil, fmt.Errorf("LLM_TEMPERATURE must be a valid number: %w", err)
	}
	cfg.LLMTemperature = float32(temperature)

	if cfg.LLMMaxTokens, err = getPositiveInt("LLM_MAX_TOKENS", "1024"); err != nil {
		return nil, err
	}
	if cfg.LLMCompletions, err = getPositiveInt("LLM_COMPLETIONS", "1"); err != nil {
		return nil, err
	}
	if cfg.RetrievalK, err = getPositiveInt("RETRIEVAL_K", "3"); err != nil {
		return nil, err
	}
	if cfg.TokenCeiling, err = getPositiveInt("TOKEN_CEILING", "4000"); err != nil {
		return nil, err
	}

	// Must match the output size of the embeddings model used at ingestion time.
	if getEnv("QDRANT_VECTOR_SIZE", "") == "" {
		return nil, fmt.Errorf("QDRANT_VECTOR_SIZE is required")
	}
	if cfg.QdrantVectorSize, err = getPositiveInt("QDRANT_VECTOR_SIZE", ""); err != nil {
		return nil, err
	}

	timeout, err := time.ParseDuration(getEnv("REQUEST_TIMEOUT", "60s"))
	if err != nil {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be a valid duration: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be greater than 0")
	}
	cfg.RequestTimeout = timeout

	if cfg.Tokenizer != "tiktoken" && cfg.Tokenizer != "heuristic" {
		return nil, fmt.Errorf("TOKENIZER must be one of tiktoken, heuristic; got %q", cfg.Tokenizer)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be one of text, json; got %q", cfg.LogFormat)
	}

	level, err := parseLogLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.DBPath != "" {
		dataDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key, defaultValue string) (int, error) {
	n, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return v, nil
}

// parseLogLevel maps LOG_LEVEL values onto slog levels.
func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", s)
	}
}
