package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"visamate"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"visamate"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gemini-1.5-flash"`
	EmbeddingModel  string `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	EmbeddingDim    int    `envconfig:"EMBEDDING_DIM" default:"3072"`

	// Retrieval
	RetrievalTopK     int     `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	RetrievalMinScore float32 `envconfig:"RETRIEVAL_MIN_SCORE" default:"0.7"`

	// Caching
	SourceCacheTTLHours int `envconfig:"SOURCE_CACHE_TTL_HOURS" default:"24"`
	ResultCacheTTLHours int `envconfig:"RESULT_CACHE_TTL_HOURS" default:"12"`

	// External call budgets
	FetchTimeoutSeconds       int `envconfig:"FETCH_TIMEOUT_SECONDS" default:"20"`
	FetchConcurrency          int `envconfig:"FETCH_CONCURRENCY" default:"4"`
	EmbedTimeoutSeconds       int `envconfig:"EMBED_TIMEOUT_SECONDS" default:"30"`
	VectorQueryTimeoutSeconds int `envconfig:"VECTOR_QUERY_TIMEOUT_SECONDS" default:"10"`
	GenerateTimeoutSeconds    int `envconfig:"GENERATE_TIMEOUT_SECONDS" default:"60"`

	// Generation
	DefaultTemperature    float32 `envconfig:"DEFAULT_TEMPERATURE" default:"0.7"`
	MaxSourceExcerptChars int     `envconfig:"MAX_SOURCE_EXCERPT_CHARS" default:"6000"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	UploadDir     string `envconfig:"VISAMATE_UPLOAD_DIR" default:"./uploads"`
	BlobBaseURL   string `envconfig:"BLOB_BASE_URL" default:"http://localhost:8081/files"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root.
	// Ignore errors, as env vars might be set in the shell.
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIM must be positive", ErrMissingRequired)
	}
	if c.RetrievalMinScore < 0 || c.RetrievalMinScore > 1 {
		return fmt.Errorf("%w: RETRIEVAL_MIN_SCORE must be within [0,1]", ErrMissingRequired)
	}
	if c.DefaultTemperature < 0 || c.DefaultTemperature > 1 {
		return fmt.Errorf("%w: DEFAULT_TEMPERATURE must be within [0,1]", ErrMissingRequired)
	}
	return nil
}
