package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engine.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONTEXT_CONFIG_FILE", "")
	t.Setenv("RETRIEVE_K", "")
	t.Setenv("SCORING_POOL_SIZE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RetrieveK != 40 || cfg.BaseK != 3 || cfg.ScoringPoolSize != 12 {
		t.Fatalf("unexpected retrieval defaults %+v", cfg)
	}
	if cfg.ExpandHighThreshold != 0.55 || cfg.ExpandMidThreshold != 0.40 || cfg.ExpandMidK != 5 || cfg.ExpandLowK != 8 {
		t.Fatalf("unexpected expansion defaults %+v", cfg)
	}
	if cfg.ContextMaxTokens != 2800 || cfg.ContextSafetyMargin != 0.85 || cfg.MergeMaxLineGap != 3 {
		t.Fatalf("unexpected context defaults %+v", cfg)
	}
	if cfg.ScoringTimeout != 20*time.Second {
		t.Fatalf("expected scoring timeout 20s, got %v", cfg.ScoringTimeout)
	}
}

func TestLoadFileThenEnvPrecedence(t *testing.T) {
	t.Setenv("QDRANT_SECRET", "s3cret")
	path := writeConfigFile(t, `
qdrant_collection: repo_chunks
qdrant_api_key: ${QDRANT_SECRET}
openai_api_key: ${UNSET_VARIABLE_FOR_TEST}
base_k: 4
scoring_timeout: 5s
expand_high_threshold: 0.6
`)
	t.Setenv("CONTEXT_CONFIG_FILE", path)
	t.Setenv("BASE_K", "6")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.QdrantCollection != "repo_chunks" {
		t.Fatalf("expected collection from file, got %q", cfg.QdrantCollection)
	}
	if cfg.QdrantAPIKey != "s3cret" {
		t.Fatalf("expected expanded placeholder, got %q", cfg.QdrantAPIKey)
	}
	if cfg.OpenAIAPIKey != "${UNSET_VARIABLE_FOR_TEST}" {
		t.Fatalf("expected unset placeholder to stay verbatim, got %q", cfg.OpenAIAPIKey)
	}
	if cfg.BaseK != 6 {
		t.Fatalf("expected env to override file, got %d", cfg.BaseK)
	}
	if cfg.ScoringTimeout != 5*time.Second || cfg.ExpandHighThreshold != 0.6 {
		t.Fatalf("unexpected file values %+v", cfg)
	}
	if cfg.RetrieveK != 40 {
		t.Fatalf("expected default for keys missing from file, got %d", cfg.RetrieveK)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	t.Setenv("CONTEXT_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoadFileRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := LoadFile(writeConfigFile(t, "retreive_k: 10\n"), &cfg)
	if err == nil || !strings.Contains(err.Error(), "retreive_k") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"provider":   func(c *Config) { c.LLMProvider = "anthropic" },
		"nats":       func(c *Config) { c.NATSURL = "nats://localhost:4222" },
		"thresholds": func(c *Config) { c.ExpandMidThreshold = 0.7 },
		"weights":    func(c *Config) { c.FusionWeightSimilarity, c.FusionWeightRelevance = 0, 0 },
		"margin":     func(c *Config) { c.ContextSafetyMargin = 1.5 },
		"pool":       func(c *Config) { c.ScoringPoolSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
