// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, Embedding, VectorStore, Chunking,
// Retrieval, Scoring, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Redis       RedisConfig       `yaml:"redis"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vectorStore"`
	Chunking    ChunkingConfig    `yaml:"chunking"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Scoring     ScoringConfig     `yaml:"scoring"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of requests per minute allowed per client;
	// zero disables limiting.
	RateLimit       int           `yaml:"rateLimit"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
	// TrustedProxies lists the addresses or CIDR ranges of reverse proxies
	// whose X-Forwarded-For header identifies the client. Empty means the
	// service is reached directly and the header is ignored.
	TrustedProxies  []string      `yaml:"trustedProxies"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ProfileUpdates string `yaml:"profileUpdates"`
	MatchEvents    string `yaml:"matchEvents"`
}

// RedisConfig holds Redis connection and embedding-cache parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// EmbeddingConfig selects and configures the embedding model. Provider is
// "openai" for any OpenAI-compatible endpoint (including a local Ollama
// server's /v1 API) or "hash" for the offline feature-hashing model.
type EmbeddingConfig struct {
	Provider             string        `yaml:"provider"`
	BaseURL              string        `yaml:"baseUrl"`
	Model                string        `yaml:"model"`
	APIKey               string        `yaml:"apiKey"`
	Dimension            int           `yaml:"dimension"`
	Timeout              time.Duration `yaml:"timeout"`
	MaxRetries           int           `yaml:"maxRetries"`
	CacheEnabled         bool          `yaml:"cacheEnabled"`
	SimilarityInputLimit int           `yaml:"similarityInputLimit"`
}

// VectorStoreConfig selects the chunk store backend: "memory", "postgres" or
// "sqlite".
type VectorStoreConfig struct {
	Driver           string        `yaml:"driver"`
	SQLitePath       string        `yaml:"sqlitePath"`
	FailureThreshold int           `yaml:"failureThreshold"`
	ResetTimeout     time.Duration `yaml:"resetTimeout"`
}

// ChunkingConfig controls how profile text is segmented before embedding.
type ChunkingConfig struct {
	Size        int `yaml:"size"`
	Overlap     int `yaml:"overlap"`
	RepoSize    int `yaml:"repoSize"`
	ReadmeLimit int `yaml:"readmeLimit"`
}

// RetrievalConfig controls the default result count and the collection names
// used for each profile source. QueryTimeout bounds each collection query;
// zero leaves queries unbounded.
type RetrievalConfig struct {
	TopK         int               `yaml:"topK"`
	QueryTimeout time.Duration     `yaml:"queryTimeout"`
	Collections  CollectionsConfig `yaml:"collections"`
}

// CollectionsConfig names the vector collections per source kind. The
// profile collection may be shared with other sources.
type CollectionsConfig struct {
	Resume     string `yaml:"resume"`
	Profile    string `yaml:"profile"`
	Repository string `yaml:"repository"`
}

// ScoringConfig controls the ATS scorer's weights and linguistic data.
type ScoringConfig struct {
	KeywordWeight  float64 `yaml:"keywordWeight"`
	SemanticWeight float64 `yaml:"semanticWeight"`
	SkillWeight    float64 `yaml:"skillWeight"`
	FormatWeight   float64 `yaml:"formatWeight"`
	Stemmer        string  `yaml:"stemmer"`
	TaxonomyPath   string  `yaml:"taxonomyPath"`
	LexiconPath    string  `yaml:"lexiconPath"`
	MaxJobLength   int     `yaml:"maxJobLength"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot run with.
func (c *Config) Validate() error {
	switch c.VectorStore.Driver {
	case "memory", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown vector store driver %q", c.VectorStore.Driver)
	}
	switch c.Embedding.Provider {
	case "openai", "hash":
	default:
		return fmt.Errorf("unknown embedding provider %q", c.Embedding.Provider)
	}
	switch c.Scoring.Stemmer {
	case "suffix", "porter":
	default:
		return fmt.Errorf("unknown stemmer %q", c.Scoring.Stemmer)
	}
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	w := c.Scoring
	if w.KeywordWeight < 0 || w.SemanticWeight < 0 || w.SkillWeight < 0 || w.FormatWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit:       120,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "careermatch",
			User:            "careermatch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "careermatch-indexer",
			Topics: KafkaTopics{
				ProfileUpdates: "profile-updates",
				MatchEvents:    "match-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 24 * time.Hour,
		},
		Embedding: EmbeddingConfig{
			Provider:             "openai",
			BaseURL:              "http://localhost:11434/v1",
			Model:                "nomic-embed-text",
			APIKey:               "ollama",
			Dimension:            768,
			Timeout:              60 * time.Second,
			MaxRetries:           3,
			CacheEnabled:         true,
			SimilarityInputLimit: 3000,
		},
		VectorStore: VectorStoreConfig{
			Driver:           "memory",
			SQLitePath:       "data/chunks.db",
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
		},
		Chunking: ChunkingConfig{
			Size:        400,
			Overlap:     80,
			RepoSize:    600,
			ReadmeLimit: 1000,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
			Collections: CollectionsConfig{
				Resume:     "resume_chunks",
				Profile:    "experiences",
				Repository: "github_repos",
			},
		},
		Scoring: ScoringConfig{
			KeywordWeight:  0.40,
			SemanticWeight: 0.30,
			SkillWeight:    0.20,
			FormatWeight:   0.10,
			Stemmer:        "suffix",
			MaxJobLength:   10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads CM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CM_SERVER_TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("CM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("CM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("CM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("CM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("CM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("CM_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("CM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("CM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CM_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("CM_EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("CM_EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("CM_EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("CM_VECTOR_STORE_DRIVER"); v != "" {
		cfg.VectorStore.Driver = v
	}
	if v := os.Getenv("CM_VECTOR_STORE_SQLITE_PATH"); v != "" {
		cfg.VectorStore.SQLitePath = v
	}
	if v := os.Getenv("CM_SCORING_STEMMER"); v != "" {
		cfg.Scoring.Stemmer = v
	}
	if v := os.Getenv("CM_SCORING_TAXONOMY_PATH"); v != "" {
		cfg.Scoring.TaxonomyPath = v
	}
	if v := os.Getenv("CM_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
	if v := os.Getenv("CM_KAFKA_CONSUMER_GROUP"); v != "" {
		cfg.Kafka.ConsumerGroup = v
	}
	if v := os.Getenv("CM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
