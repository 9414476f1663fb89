package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	// Log configuration
	Log LogConfig `mapstructure:"log"`

	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Graph store configuration
	Graph GraphConfig `mapstructure:"graph"`

	// Embedding configuration
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// Compose (language model) configuration
	Compose ComposeConfig `mapstructure:"compose"`

	// Retrieval configuration
	Retrieval RetrievalConfig `mapstructure:"retrieval"`

	// Community configuration
	Community CommunityConfig `mapstructure:"community"`

	// Telemetry configuration
	Telemetry TelemetryConfig `mapstructure:"telemetry"`

	// Alert configuration
	Alert AlertConfig `mapstructure:"alert"`

	// CircuitBreaker configuration
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // gin mode: debug, release, test
}

// GraphConfig holds graph store configuration
type GraphConfig struct {
	Driver      string `mapstructure:"driver"` // neo4j, fixture
	URI         string `mapstructure:"uri"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"database"`
	VectorIndex string `mapstructure:"vector_index"`
}

// EmbeddingConfig holds embedding service configuration
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"` // openai, fixture
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	Dimensions int    `mapstructure:"dimensions"`
}

// ComposeConfig holds language-model composition configuration
type ComposeConfig struct {
	Provider    string  `mapstructure:"provider"` // openai, fixture
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// RetrievalConfig holds the retrieval and orchestration budgets
type RetrievalConfig struct {
	// RequestBudget is the total wall-clock budget per request.
	RequestBudget time.Duration `mapstructure:"request_budget"`
	// AgentBudgetFraction is the fraction of the request budget each
	// agent gets as its sub-timeout.
	AgentBudgetFraction float64 `mapstructure:"agent_budget_fraction"`
	// MinSimilarity is the floor below which vector candidates are
	// dropped by the local agent.
	MinSimilarity float64 `mapstructure:"min_similarity"`
	// CommunityThreshold is the community relevance floor for the
	// global and drift agents.
	CommunityThreshold float64 `mapstructure:"community_threshold"`
	// MaxCommunities caps how many communities the global agent selects.
	MaxCommunities int `mapstructure:"max_communities"`
	// SeedsPerCommunity is the number of traversal seeds the drift
	// agent takes from each anchor community.
	SeedsPerCommunity int `mapstructure:"seeds_per_community"`
	// HopLimit bounds the drift agent's traversal depth.
	HopLimit int `mapstructure:"hop_limit"`
	// RRFConstant is the smoothing constant k of reciprocal rank fusion.
	RRFConstant int `mapstructure:"rrf_constant"`
	// ContextResults is how many fused results are handed to the
	// composer as grounding context.
	ContextResults int `mapstructure:"context_results"`
	// CentroidCachePath enables the persistent centroid cache when set.
	CentroidCachePath string `mapstructure:"centroid_cache_path"`
}

// CommunityConfig holds the derived-layer freshness contract
type CommunityConfig struct {
	// RefreshInterval is how long a clustering (and its cached
	// centroids) stays valid before an out-of-band rebuild is due.
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// TelemetryConfig holds telemetry configuration
type TelemetryConfig struct {
	ParquetPath string `mapstructure:"parquet_path"`
}

// AlertConfig holds configuration for alerting
type AlertConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	SMTPHost string   `mapstructure:"smtp_host"`
	SMTPPort int      `mapstructure:"smtp_port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}

// CircuitBreakerConfig holds configuration for circuit breaking
type CircuitBreakerConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"` // in seconds
	Timeout          int     `mapstructure:"timeout"`  // in seconds
	ReadyToTripRatio float64 `mapstructure:"ready_to_trip_ratio"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	overrideWithEnv(config)

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Log defaults
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")

	// Server defaults
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	// Graph defaults: the fixture store keeps the binary runnable with
	// no database configured.
	viper.SetDefault("graph.driver", "fixture")
	viper.SetDefault("graph.uri", "bolt://localhost:7687")
	viper.SetDefault("graph.database", "neo4j")
	viper.SetDefault("graph.vector_index", "entity_embedding")

	// Embedding defaults
	viper.SetDefault("embedding.provider", "fixture")
	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 1536)

	// Compose defaults
	viper.SetDefault("compose.provider", "fixture")
	viper.SetDefault("compose.model", "gpt-4o-mini")
	viper.SetDefault("compose.temperature", 0.1)
	viper.SetDefault("compose.max_tokens", 1024)

	// Retrieval defaults
	viper.SetDefault("retrieval.request_budget", "30s")
	viper.SetDefault("retrieval.agent_budget_fraction", 0.6)
	viper.SetDefault("retrieval.min_similarity", 0.25)
	viper.SetDefault("retrieval.community_threshold", 0.30)
	viper.SetDefault("retrieval.max_communities", 3)
	viper.SetDefault("retrieval.seeds_per_community", 3)
	viper.SetDefault("retrieval.hop_limit", 2)
	viper.SetDefault("retrieval.rrf_constant", 60)
	viper.SetDefault("retrieval.context_results", 8)

	// Community defaults: clustering is rebuilt out-of-band and treated
	// as read-only for this long.
	viper.SetDefault("community.refresh_interval", "24h")

	// Circuit breaker defaults
	viper.SetDefault("circuit_breaker.enabled", true)
	viper.SetDefault("circuit_breaker.max_requests", 3)
	viper.SetDefault("circuit_breaker.interval", 60)
	viper.SetDefault("circuit_breaker.timeout", 30)
	viper.SetDefault("circuit_breaker.ready_to_trip_ratio", 0.6)
}

// overrideWithEnv overrides config with environment variables
func overrideWithEnv(config *Config) {
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		if config.Embedding.APIKey == "" {
			config.Embedding.APIKey = apiKey
		}
		if config.Compose.APIKey == "" {
			config.Compose.APIKey = apiKey
		}
	}

	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		config.Graph.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		config.Graph.Username = user
	}
	if pass := os.Getenv("NEO4J_PASSWORD"); pass != "" {
		config.Graph.Password = pass
	}
	if driver := os.Getenv("GRAPH_DRIVER"); driver != "" {
		config.Graph.Driver = driver
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if path := os.Getenv("TELEMETRY_PARQUET_PATH"); path != "" {
		config.Telemetry.ParquetPath = path
	}
}
