package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppInfo holds basic information about the running application.
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // "development" or "production"
}

// LoggerConfig configures the structured logger.
type LoggerConfig struct {
	Level string `yaml:"level"` // "debug", "info", "warn", "error"
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Address string `yaml:"address"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // "gemini", "openai" or "ollama"
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"apiKey"`
	BaseURL     string  `yaml:"baseURL"`
	Temperature float32 `yaml:"temperature"`
}

// EmbeddingConfig selects and configures the embedding provider.
// The provider must stay fixed for the lifetime of a vector-store collection:
// vectors from different providers are not comparable.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // "openai" or "ollama"
	Model      string `yaml:"model"`
	APIKey     string `yaml:"apiKey"`
	BaseURL    string `yaml:"baseURL"`
	Dimensions int    `yaml:"dimensions"` // requested output dimensionality (openai)
	// Task prefixes for prefix-convention models such as nomic-embed-text.
	// Applied by the ollama provider; the openai provider ignores them.
	// DocumentPrefix is used both for boundary-similarity embeddings during
	// chunking and for indexing; nomic's "clustering: " task prefix is a
	// reasonable alternative for the boundary comparisons.
	DocumentPrefix string `yaml:"documentPrefix"`
	QueryPrefix    string `yaml:"queryPrefix"`
}

// ChunkingConfig holds the semantic chunker tunables.
type ChunkingConfig struct {
	Threshold     float64 `yaml:"threshold"`     // base similarity threshold in [0,1]
	Alpha         float64 `yaml:"alpha"`         // soft cap scale of the logistic decay
	K             float64 `yaml:"k"`             // steepness of the logistic decay
	MinSplitWords int     `yaml:"minSplitWords"` // next line must exceed this to open a boundary
}

// RetrievalConfig holds the query-time retrieval tunables.
type RetrievalConfig struct {
	TopK           int     `yaml:"topK"`
	ScoreThreshold float64 `yaml:"scoreThreshold"`
	ContextWindow  int     `yaml:"contextWindow"` // neighbour chunks fetched on each side
}

// ASRConfig configures the external transcription service client.
type ASRConfig struct {
	BaseURL        string `yaml:"baseURL"`
	TimeoutSeconds int    `yaml:"timeoutSeconds"`
}

// MilvusConfig holds the Milvus connection and collection settings.
type MilvusConfig struct {
	Address        string `yaml:"address"`
	CollectionName string `yaml:"collectionName"`
	Dim            int    `yaml:"dim"` // embedding dimensionality of the collection
}

// MongoConfig holds the MongoDB connection settings.
type MongoConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// MinIOConfig holds the MinIO object storage settings.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// KafkaConfig holds the Kafka connection settings for ingestion events.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	UploadTopic string   `yaml:"uploadTopic"`
	StatusTopic string   `yaml:"statusTopic"`
	GroupID     string   `yaml:"groupID"`
}

// DatabaseConfigs groups all backing-store configuration.
type DatabaseConfigs struct {
	Milvus MilvusConfig `yaml:"milvus"`
	Mongo  MongoConfig  `yaml:"mongodb"`
	MinIO  MinIOConfig  `yaml:"minio"`
	Kafka  KafkaConfig  `yaml:"kafka"`
}

// AppConfig is the root of the YAML configuration file.
type AppConfig struct {
	App       AppInfo         `yaml:"app"`
	Logger    LoggerConfig    `yaml:"logger"`
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	ASR       ASRConfig       `yaml:"asr"`
	Databases DatabaseConfigs `yaml:"databases"`
}

// LoadConfig reads and parses the YAML configuration file at the given path.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Chunking.Threshold == 0 {
		cfg.Chunking.Threshold = 0.3
	}
	if cfg.Chunking.Alpha == 0 {
		cfg.Chunking.Alpha = 10
	}
	if cfg.Chunking.K == 0 {
		cfg.Chunking.K = 10
	}
	if cfg.Chunking.MinSplitWords == 0 {
		cfg.Chunking.MinSplitWords = 5
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.ScoreThreshold == 0 {
		cfg.Retrieval.ScoreThreshold = 0.5
	}
	if cfg.Retrieval.ContextWindow == 0 {
		cfg.Retrieval.ContextWindow = 3
	}
	if cfg.Embedding.DocumentPrefix == "" {
		cfg.Embedding.DocumentPrefix = "search_document: "
	}
	if cfg.Embedding.QueryPrefix == "" {
		cfg.Embedding.QueryPrefix = "search_query: "
	}
	if cfg.ASR.TimeoutSeconds == 0 {
		cfg.ASR.TimeoutSeconds = 600
	}
	if cfg.Databases.Milvus.CollectionName == "" {
		cfg.Databases.Milvus.CollectionName = "meeting_chunks"
	}
	if cfg.Databases.Kafka.UploadTopic == "" {
		cfg.Databases.Kafka.UploadTopic = "meeting.uploaded"
	}
	if cfg.Databases.Kafka.StatusTopic == "" {
		cfg.Databases.Kafka.StatusTopic = "meeting.status"
	}
}
