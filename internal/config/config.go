package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"note-enhancer/internal/openai"
)

const (
	defaultHTTPPort        = "8080"
	defaultTemporalAddress = "localhost:7233"
	defaultTemporalNS      = "default"
	defaultTaskQueue       = "note-enhancement-task-queue"
	defaultOpenAITimeout   = 30
	defaultOpenAIMaxRetry  = 3
	defaultCacheTTLSec     = 24 * 60 * 60
	defaultMinioEndpoint   = "localhost:9000"
	defaultRevisionBucket  = "note-revisions"
	defaultImportBucket    = "note-imports"
	defaultEnhanceWaitSec  = 20
)

type Config struct {
	HTTPPort              string
	PostgresDSN           string
	TemporalAddress       string
	TemporalNamespace     string
	TemporalTaskQueue     string
	OpenAIAPIKey          string
	OpenAIBaseURL         string
	OpenAIModel           string
	OpenAITimeoutSec      int
	OpenAIMaxRetry        int
	RedisURL              string
	GenerationCacheTTLSec int
	MinioEndpoint         string
	MinioAccessKey        string
	MinioSecretKey        string
	MinioUseSSL           bool
	MinioRevisionBucket   string
	MinioImportBucket     string
	WorkflowIDPrefix      string
	EnhanceWaitSec        int
	MaxImportBytes        int64
	CORSOrigin            string
}

func Load() (Config, error) {
	cfg := Config{
		HTTPPort:              getenv("HTTP_PORT", defaultHTTPPort),
		PostgresDSN:           os.Getenv("POSTGRES_DSN"),
		TemporalAddress:       getenv("TEMPORAL_ADDRESS", defaultTemporalAddress),
		TemporalNamespace:     getenv("TEMPORAL_NAMESPACE", defaultTemporalNS),
		TemporalTaskQueue:     getenv("TEMPORAL_TASK_QUEUE", defaultTaskQueue),
		OpenAIAPIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:         getenv("OPENAI_BASE_URL", openai.DefaultBaseURL),
		OpenAIModel:           getenv("OPENAI_MODEL", openai.DefaultModel),
		OpenAITimeoutSec:      getenvInt("OPENAI_TIMEOUT_SEC", defaultOpenAITimeout),
		OpenAIMaxRetry:        getenvInt("OPENAI_MAX_RETRY", defaultOpenAIMaxRetry),
		RedisURL:              os.Getenv("REDIS_URL"),
		GenerationCacheTTLSec: getenvInt("GENERATION_CACHE_TTL_SEC", defaultCacheTTLSec),
		MinioEndpoint:         getenv("MINIO_ENDPOINT", defaultMinioEndpoint),
		MinioAccessKey:        os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:        os.Getenv("MINIO_SECRET_KEY"),
		MinioUseSSL:           getenvBool("MINIO_USE_SSL", false),
		MinioRevisionBucket:   getenv("MINIO_REVISION_BUCKET", defaultRevisionBucket),
		MinioImportBucket:     getenv("MINIO_IMPORT_BUCKET", defaultImportBucket),
		WorkflowIDPrefix:      getenv("WORKFLOW_ID_PREFIX", "note-enhance"),
		EnhanceWaitSec:        getenvInt("ENHANCE_WAIT_SEC", defaultEnhanceWaitSec),
		MaxImportBytes:        int64(getenvInt("MAX_IMPORT_BYTES", 1024*1024)),
		CORSOrigin:            getenv("CORS_ORIGIN", "*"),
	}

	if cfg.PostgresDSN == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN is required")
	}

	return cfg, nil
}

func (c Config) OpenAITimeout() time.Duration {
	return time.Duration(c.OpenAITimeoutSec) * time.Second
}

func (c Config) GenerationCacheTTL() time.Duration {
	return time.Duration(c.GenerationCacheTTLSec) * time.Second
}

func (c Config) EnhanceWait() time.Duration {
	return time.Duration(c.EnhanceWaitSec) * time.Second
}

func getenv(key string, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
