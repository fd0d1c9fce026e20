package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Ai       AIConfig
	Pipeline PipelineConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Name               string
	Version            string
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host            string
	Port            int
	Email           string
	Password        string
	SenderName      string
	AlertRecipients []string
}

type AIConfig struct {
	LLMProvider    string // "bedrock", "ollama" or "" for local fallback only
	BaseURL        string
	Region         string
	APIKey         string
	ChatModelID    string
	AgentModelIDs  map[string]string
	MaxTokens      int
	RequestTimeout int // seconds

	EmbeddingProvider string // "titan", "ollama" or "local"
	EmbeddingModelID  string
	EmbeddingDim      int

	RerankEnabled bool
	RerankModelID string
}

type PipelineConfig struct {
	RunDefaultCases              int
	RagTopK                      int
	MaxVectorScan                int
	GuardrailSeverityThreshold   float64
	GuardrailConfidenceThreshold float64
	DatasetPath                  string
	DispatchDryRun               bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Name:               getEnv("APP_NAME", "SENTINEL Backend"),
			Version:            getEnv("APP_VERSION", "dev"),
			Port:               getEnv("APP_PORT", "8000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "sentinel.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:            getEnv("SMTP_HOST", ""),
			Port:            getEnvAsInt("SMTP_PORT", 587),
			Email:           getEnv("SMTP_EMAIL", ""),
			Password:        getEnv("SMTP_PASSWORD", ""),
			SenderName:      getEnv("SMTP_SENDER_NAME", "SENTINEL"),
			AlertRecipients: getEnvAsList("ALERT_RECIPIENTS"),
		},
		Ai: AIConfig{
			LLMProvider:    getEnv("LLM_PROVIDER", ""),
			BaseURL:        getEnv("LLM_BASE_URL", ""),
			Region:         getEnv("AWS_REGION", "us-west-2"),
			APIKey:         getEnv("AWS_BEARER_TOKEN_BEDROCK", ""),
			ChatModelID:    getEnv("BEDROCK_CHAT_MODEL_ID", "us.amazon.nova-premier-v1:0"),
			MaxTokens:      getEnvAsInt("BEDROCK_MAX_TOKENS", 4096),
			RequestTimeout: getEnvAsInt("LLM_REQUEST_TIMEOUT_SECONDS", 60),
			AgentModelIDs: map[string]string{
				"ingest":    getEnv("BEDROCK_INGEST_MODEL_ID", ""),
				"genomics":  getEnv("BEDROCK_GENOMICS_MODEL_ID", ""),
				"epi_osint": getEnv("BEDROCK_EPI_OSINT_MODEL_ID", ""),
				"meta":      getEnv("BEDROCK_META_MODEL_ID", ""),
			},
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "local"),
			EmbeddingModelID:  getEnv("BEDROCK_EMBEDDING_MODEL_ID", "amazon.titan-embed-text-v2:0"),
			EmbeddingDim:      getEnvAsInt("EMBEDDING_DIM", 1024),
			RerankEnabled:     getEnvAsBool("RERANK_ENABLED", false),
			RerankModelID:     getEnv("BEDROCK_RERANK_MODEL_ID", "amazon.rerank-v1:0"),
		},
		Pipeline: PipelineConfig{
			RunDefaultCases:              getEnvAsInt("RUN_DEFAULT_CASES", 20),
			RagTopK:                      getEnvAsInt("RAG_TOP_K", 3),
			MaxVectorScan:                getEnvAsInt("MAX_VECTOR_SCAN", 500),
			GuardrailSeverityThreshold:   getEnvAsFloat("GUARDRAIL_SEVERITY_THRESHOLD", 7.0),
			GuardrailConfidenceThreshold: getEnvAsFloat("GUARDRAIL_CONFIDENCE_THRESHOLD", 60.0),
			DatasetPath:                  getEnv("DATASET_PATH", "data/outbreaks.jsonl"),
			DispatchDryRun:               getEnvAsBool("DISPATCH_DRY_RUN", true),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "sentinel-backend"),
			SampleRatio: getEnvAsFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
	}
}

// AgentModelID returns the per-agent override or the global chat model.
func (c *Config) AgentModelID(agent string) string {
	if id := strings.TrimSpace(c.Ai.AgentModelIDs[agent]); id != "" {
		return id
	}
	return c.Ai.ChatModelID
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
