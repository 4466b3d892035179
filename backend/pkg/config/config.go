package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string
	Env  string

	// Memgraph (Bolt protocol, Neo4j driver)
	MemgraphURI      string
	MemgraphUser     string
	MemgraphPassword string

	// Connection pool bounds for the Bolt driver
	StoreMaxPoolSize     int
	StoreAcquireTimeout  time.Duration
	StoreMaxConnLifetime time.Duration

	// AI gateway (OpenAI-compatible, e.g. LiteLLM)
	LLMGatewayURL string
	LLMAPIKey     string
	ModelID       string
	EmbedModelID  string

	// Redis context cache; empty disables caching
	RedisURL string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                 getEnv("PORT", "8080"),
		Env:                  getEnv("ENV", "development"),
		MemgraphURI:          getEnv("MEMGRAPH_URI", "bolt://localhost:7687"),
		MemgraphUser:         getEnv("MEMGRAPH_USER", "memgraph"),
		MemgraphPassword:     getEnv("MEMGRAPH_PASSWORD", "memgraph"),
		StoreMaxPoolSize:     getEnvInt("STORE_MAX_POOL_SIZE", 50),
		StoreAcquireTimeout:  time.Duration(getEnvInt("STORE_ACQUIRE_TIMEOUT_MS", 5000)) * time.Millisecond,
		StoreMaxConnLifetime: time.Duration(getEnvInt("STORE_MAX_CONN_LIFETIME_S", 3600)) * time.Second,
		LLMGatewayURL:        getEnv("LLM_GATEWAY_URL", "http://localhost:4000"),
		LLMAPIKey:            getEnv("LLM_API_KEY", ""),
		ModelID:              getEnv("MODEL_ID", "anthropic/claude-sonnet-4"),
		EmbedModelID:         getEnv("EMBED_MODEL_ID", "voyage-3"),
		RedisURL:             getEnv("REDIS_URL", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.MemgraphURI == "" {
		return fmt.Errorf("MEMGRAPH_URI is required")
	}
	if c.MemgraphUser == "" {
		return fmt.Errorf("MEMGRAPH_USER is required")
	}
	if c.LLMGatewayURL == "" {
		return fmt.Errorf("LLM_GATEWAY_URL is required")
	}
	if c.ModelID == "" {
		return fmt.Errorf("MODEL_ID is required")
	}
	if c.EmbedModelID == "" {
		return fmt.Errorf("EMBED_MODEL_ID is required")
	}
	if c.StoreMaxPoolSize < 1 {
		return fmt.Errorf("STORE_MAX_POOL_SIZE must be positive")
	}
	// LLM_API_KEY is optional; gateways like LiteLLM accept a dummy key
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
