package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultConfigFile = ".context-engine.yaml"

type Config struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	PostgresDSN string `yaml:"postgres_dsn"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	LLMProvider string `yaml:"llm_provider"`

	OllamaURL        string `yaml:"ollama_url"`
	OllamaGenModel   string `yaml:"ollama_gen_model"`
	OllamaEmbedModel string `yaml:"ollama_embed_model"`

	OpenAIBaseURL    string `yaml:"openai_base_url"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`
	OpenAIChatModel  string `yaml:"openai_chat_model"`
	OpenAIEmbedModel string `yaml:"openai_embed_model"`

	QdrantURL        string `yaml:"qdrant_url"`
	QdrantCollection string `yaml:"qdrant_collection"`
	QdrantVectorName string `yaml:"qdrant_vector_name"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`

	RetrieveK              int           `yaml:"retrieve_k"`
	BaseK                  int           `yaml:"base_k"`
	ScoringPoolSize        int           `yaml:"scoring_pool_size"`
	ScoringTimeout         time.Duration `yaml:"scoring_timeout"`
	ExpandHighThreshold    float64       `yaml:"expand_high_threshold"`
	ExpandMidThreshold     float64       `yaml:"expand_mid_threshold"`
	ExpandMidK             int           `yaml:"expand_mid_k"`
	ExpandLowK             int           `yaml:"expand_low_k"`
	FusionWeightSimilarity float64       `yaml:"fusion_weight_similarity"`
	FusionWeightRelevance  float64       `yaml:"fusion_weight_relevance"`

	MergeMaxLineGap      int     `yaml:"merge_max_line_gap"`
	ContextMaxTokens     int     `yaml:"context_max_tokens"`
	ContextSafetyMargin  float64 `yaml:"context_safety_margin"`
	ContextMinBlockChars int     `yaml:"context_min_block_chars"`
	ContextMaxBlockChars int     `yaml:"context_max_block_chars"`

	EmbedCacheSize  int `yaml:"embed_cache_size"`
	PacketCacheSize int `yaml:"packet_cache_size"`

	APIRateLimitRPS   float64       `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst int           `yaml:"api_rate_limit_burst"`
	APIMaxInFlight    int           `yaml:"api_max_in_flight"`
	APIRequestTimeout time.Duration `yaml:"api_request_timeout"`
	OpenAPIValidation bool          `yaml:"openapi_validation"`

	ResilienceRetryMaxAttempts int           `yaml:"resilience_retry_max_attempts"`
	ResilienceRetryBackoff     time.Duration `yaml:"resilience_retry_backoff"`
	ResilienceBreakerEnabled   bool          `yaml:"resilience_breaker_enabled"`
	ResilienceBreakerTimeout   time.Duration `yaml:"resilience_breaker_timeout"`

	WorkerMetricsPort string `yaml:"worker_metrics_port"`
}

func Default() Config {
	return Config{
		APIPort:  "8080",
		LogLevel: "info",

		NATSSubject: "context.packets",

		LLMProvider: "ollama",

		OllamaURL:        "http://localhost:11434",
		OllamaGenModel:   "llama3.1:8b",
		OllamaEmbedModel: "nomic-embed-text",

		OpenAIBaseURL:    "https://api.openai.com/v1",
		OpenAIChatModel:  "gpt-4.1-mini",
		OpenAIEmbedModel: "text-embedding-3-large",

		QdrantURL:        "http://localhost:6333",
		QdrantCollection: "code_chunks",

		RetrieveK:              40,
		BaseK:                  3,
		ScoringPoolSize:        12,
		ScoringTimeout:         20 * time.Second,
		ExpandHighThreshold:    0.55,
		ExpandMidThreshold:     0.40,
		ExpandMidK:             5,
		ExpandLowK:             8,
		FusionWeightSimilarity: 0.7,
		FusionWeightRelevance:  0.3,

		MergeMaxLineGap:      3,
		ContextMaxTokens:     2800,
		ContextSafetyMargin:  0.85,
		ContextMinBlockChars: 20,
		ContextMaxBlockChars: 5000,

		EmbedCacheSize:  1024,
		PacketCacheSize: 256,

		APIRateLimitRPS:   20,
		APIRateLimitBurst: 40,
		APIMaxInFlight:    32,
		APIRequestTimeout: 60 * time.Second,
		OpenAPIValidation: true,

		ResilienceRetryMaxAttempts: 3,
		ResilienceRetryBackoff:     150 * time.Millisecond,
		ResilienceBreakerEnabled:   true,
		ResilienceBreakerTimeout:   20 * time.Second,

		WorkerMetricsPort: "9090",
	}
}

// Load applies defaults, then the optional YAML file named by
// CONTEXT_CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	cfg := Default()

	path := mustEnv("CONTEXT_CONFIG_FILE", defaultConfigFile)
	if err := LoadFile(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || path != defaultConfigFile {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)

	cfg.PostgresDSN = mustEnv("POSTGRES_DSN", cfg.PostgresDSN)

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", cfg.NATSSubject)

	cfg.LLMProvider = strings.ToLower(mustEnv("LLM_PROVIDER", cfg.LLMProvider))

	cfg.OllamaURL = mustEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaGenModel = mustEnv("OLLAMA_GEN_MODEL", cfg.OllamaGenModel)
	cfg.OllamaEmbedModel = mustEnv("OLLAMA_EMBED_MODEL", cfg.OllamaEmbedModel)

	cfg.OpenAIBaseURL = mustEnv("OPENAI_BASE_URL", cfg.OpenAIBaseURL)
	cfg.OpenAIAPIKey = mustEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIChatModel = mustEnv("OPENAI_CHAT_MODEL", cfg.OpenAIChatModel)
	cfg.OpenAIEmbedModel = mustEnv("OPENAI_EMBED_MODEL", cfg.OpenAIEmbedModel)

	cfg.QdrantURL = mustEnv("QDRANT_URL", cfg.QdrantURL)
	cfg.QdrantCollection = mustEnv("QDRANT_COLLECTION", cfg.QdrantCollection)
	cfg.QdrantVectorName = mustEnv("QDRANT_VECTOR_NAME", cfg.QdrantVectorName)
	cfg.QdrantAPIKey = mustEnv("QDRANT_API_KEY", cfg.QdrantAPIKey)

	cfg.RetrieveK = mustEnvInt("RETRIEVE_K", cfg.RetrieveK)
	cfg.BaseK = mustEnvInt("BASE_K", cfg.BaseK)
	cfg.ScoringPoolSize = mustEnvInt("SCORING_POOL_SIZE", cfg.ScoringPoolSize)
	cfg.ScoringTimeout = mustEnvDuration("SCORING_TIMEOUT", cfg.ScoringTimeout)
	cfg.ExpandHighThreshold = mustEnvFloat("EXPAND_HIGH_THRESHOLD", cfg.ExpandHighThreshold)
	cfg.ExpandMidThreshold = mustEnvFloat("EXPAND_MID_THRESHOLD", cfg.ExpandMidThreshold)
	cfg.ExpandMidK = mustEnvInt("EXPAND_MID_K", cfg.ExpandMidK)
	cfg.ExpandLowK = mustEnvInt("EXPAND_LOW_K", cfg.ExpandLowK)
	cfg.FusionWeightSimilarity = mustEnvFloat("FUSION_WEIGHT_SIMILARITY", cfg.FusionWeightSimilarity)
	cfg.FusionWeightRelevance = mustEnvFloat("FUSION_WEIGHT_RELEVANCE", cfg.FusionWeightRelevance)

	cfg.MergeMaxLineGap = mustEnvInt("MERGE_MAX_LINE_GAP", cfg.MergeMaxLineGap)
	cfg.ContextMaxTokens = mustEnvInt("CONTEXT_MAX_TOKENS", cfg.ContextMaxTokens)
	cfg.ContextSafetyMargin = mustEnvFloat("CONTEXT_SAFETY_MARGIN", cfg.ContextSafetyMargin)
	cfg.ContextMinBlockChars = mustEnvInt("CONTEXT_MIN_BLOCK_CHARS", cfg.ContextMinBlockChars)
	cfg.ContextMaxBlockChars = mustEnvInt("CONTEXT_MAX_BLOCK_CHARS", cfg.ContextMaxBlockChars)

	cfg.EmbedCacheSize = mustEnvInt("EMBED_CACHE_SIZE", cfg.EmbedCacheSize)
	cfg.PacketCacheSize = mustEnvInt("PACKET_CACHE_SIZE", cfg.PacketCacheSize)

	cfg.APIRateLimitRPS = mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)
	cfg.APIRequestTimeout = mustEnvDuration("API_REQUEST_TIMEOUT", cfg.APIRequestTimeout)
	cfg.OpenAPIValidation = mustEnvBool("OPENAPI_VALIDATION", cfg.OpenAPIValidation)

	cfg.ResilienceRetryMaxAttempts = mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", cfg.ResilienceRetryMaxAttempts)
	cfg.ResilienceRetryBackoff = mustEnvDuration("RESILIENCE_RETRY_BACKOFF", cfg.ResilienceRetryBackoff)
	cfg.ResilienceBreakerEnabled = mustEnvBool("RESILIENCE_BREAKER_ENABLED", cfg.ResilienceBreakerEnabled)
	cfg.ResilienceBreakerTimeout = mustEnvDuration("RESILIENCE_BREAKER_TIMEOUT", cfg.ResilienceBreakerTimeout)

	cfg.WorkerMetricsPort = mustEnv("WORKER_METRICS_PORT", cfg.WorkerMetricsPort)
}

func (c Config) Validate() error {
	var errs []error
	switch c.LLMProvider {
	case "ollama", "openai":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be ollama or openai, got %q", c.LLMProvider))
	}
	if c.QdrantURL == "" || c.QdrantCollection == "" {
		errs = append(errs, errors.New("QDRANT_URL and QDRANT_COLLECTION are required"))
	}
	if c.NATSURL != "" && c.PostgresDSN == "" {
		errs = append(errs, errors.New("NATS_URL requires POSTGRES_DSN so archived packets can be read back"))
	}
	if c.RetrieveK <= 0 || c.BaseK <= 0 || c.ScoringPoolSize <= 0 || c.ExpandMidK <= 0 || c.ExpandLowK <= 0 {
		errs = append(errs, errors.New("RETRIEVE_K, BASE_K, SCORING_POOL_SIZE, EXPAND_MID_K and EXPAND_LOW_K must be positive"))
	}
	if c.ExpandMidThreshold < 0 || c.ExpandHighThreshold > 1 || c.ExpandMidThreshold > c.ExpandHighThreshold {
		errs = append(errs, fmt.Errorf("expansion thresholds must satisfy 0 <= mid <= high <= 1, got mid=%v high=%v", c.ExpandMidThreshold, c.ExpandHighThreshold))
	}
	if c.FusionWeightSimilarity < 0 || c.FusionWeightRelevance < 0 || c.FusionWeightSimilarity+c.FusionWeightRelevance <= 0 {
		errs = append(errs, errors.New("fusion weights must be non-negative with a positive sum"))
	}
	if c.ContextSafetyMargin <= 0 || c.ContextSafetyMargin > 1 {
		errs = append(errs, fmt.Errorf("CONTEXT_SAFETY_MARGIN must be in (0,1], got %v", c.ContextSafetyMargin))
	}
	if c.ContextMaxTokens <= 0 || c.ContextMaxBlockChars <= 0 || c.ContextMinBlockChars < 0 || c.MergeMaxLineGap < 0 {
		errs = append(errs, errors.New("context limits must be positive"))
	}
	if c.ScoringTimeout <= 0 {
		errs = append(errs, errors.New("SCORING_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
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

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
