// Package config loads the application configuration from a YAML file,
// environment variables, and a local .env file, in ascending priority.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator"
	"github.com/spf13/viper"

	"github.com/scholia-ai/scholia/internal/util"
)

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AI       AIConfig       `mapstructure:"ai"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Query    QueryConfig    `mapstructure:"query"`
	Summary  SummaryConfig  `mapstructure:"summary"`
	Arxiv    ArxivConfig    `mapstructure:"arxiv"`
	S3       S3Config       `mapstructure:"s3"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	JWKSURL string `mapstructure:"jwks_url" validate:"omitempty,url"`
}

// DatabaseConfig selects the graph backend. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type AIConfig struct {
	Provider string       `mapstructure:"provider" validate:"oneof=openai ollama"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type OpenAIConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	CompletionModel   string `mapstructure:"completion_model"`
	EmbeddingModel    string `mapstructure:"embedding_model"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" validate:"gte=0"`
}

type OllamaConfig struct {
	BaseURL               string `mapstructure:"base_url"`
	APIKey                string `mapstructure:"api_key"`
	CompletionModel       string `mapstructure:"completion_model"`
	EmbeddingModel        string `mapstructure:"embedding_model"`
	MaxConcurrentRequests int    `mapstructure:"max_concurrent_requests" validate:"gte=0"`
}

type IngestConfig struct {
	MaxWorkers int `mapstructure:"max_workers" validate:"gte=0"`
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0"`
}

type QueryConfig struct {
	MaxEvidence       int `mapstructure:"max_evidence" validate:"gte=0"`
	MaxEvidenceTokens int `mapstructure:"max_evidence_tokens" validate:"gte=0"`
}

type SummaryConfig struct {
	Model string `mapstructure:"model"`
}

type ArxivConfig struct {
	Category    string `mapstructure:"category"`
	ListType    string `mapstructure:"list_type" validate:"omitempty,oneof=new recent"`
	MaxPerTopic int    `mapstructure:"max_per_topic" validate:"gte=0"`
}

// S3Config configures the optional S3 document source. Empty bucket
// disables it.
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

// Load reads the configuration. Priority from highest to lowest:
// environment variables (SCHOLIA_*), the config file, built-in
// defaults. A .env file in the working directory is loaded first so it
// can supply the environment variables.
func Load(configFile string) (*Config, error) {
	util.LoadEnv()

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("scholia")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/scholia")
	}

	v.SetEnvPrefix("SCHOLIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Provider keys commonly live in the plain environment rather than
	// the config file.
	if cfg.AI.OpenAI.APIKey == "" {
		cfg.AI.OpenAI.APIKey = util.GetEnv("OPENAI_API_KEY")
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = util.GetEnv("DATABASE_URL")
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("ai.provider", "openai")
	v.SetDefault("ai.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.openai.completion_model", "gpt-4o-mini")
	v.SetDefault("ai.openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("ai.openai.requests_per_minute", 60)
	v.SetDefault("ai.ollama.base_url", "http://localhost:11434")
	v.SetDefault("ai.ollama.completion_model", "llama3.1")
	v.SetDefault("ai.ollama.embedding_model", "nomic-embed-text")
	v.SetDefault("ai.ollama.max_concurrent_requests", 1)
	v.SetDefault("ingest.max_workers", 4)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("query.max_evidence", 12)
	v.SetDefault("query.max_evidence_tokens", 4000)
	v.SetDefault("arxiv.category", "cs")
	v.SetDefault("arxiv.list_type", "new")
	v.SetDefault("arxiv.max_per_topic", 100)
	v.SetDefault("s3.region", "us-east-1")
}
