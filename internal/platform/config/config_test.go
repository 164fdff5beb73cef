package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// clearEnv unsets all FEEDBACK_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "FEEDBACK_") {
			_ = os.Unsetenv(key)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverPostgres {
		t.Errorf("Store.Driver = %q, want postgres", cfg.Store.Driver)
	}
	if cfg.Store.PageSize != 500 {
		t.Errorf("Store.PageSize = %d, want 500", cfg.Store.PageSize)
	}
	if cfg.Database.MaxConns != 25 || cfg.Database.MinConns != 5 {
		t.Errorf("Database conns = %d/%d, want 25/5", cfg.Database.MaxConns, cfg.Database.MinConns)
	}
	if cfg.Mongo.Collection != "responses" {
		t.Errorf("Mongo.Collection = %q, want responses", cfg.Mongo.Collection)
	}
	if cfg.Cache.Enabled {
		t.Error("Cache.Enabled should default to false")
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Scoring.Concurrency != 5 {
		t.Errorf("Scoring.Concurrency = %d, want 5", cfg.Scoring.Concurrency)
	}
	if cfg.Scoring.ExcludedSections != nil {
		t.Errorf("Scoring.ExcludedSections = %v, want nil", cfg.Scoring.ExcludedSections)
	}
	if cfg.ReferencePath != "./reference" {
		t.Errorf("ReferencePath = %q, want ./reference", cfg.ReferencePath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v for defaults", err)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("FEEDBACK_SERVER_PORT", "9090")
	t.Setenv("FEEDBACK_STORE_DRIVER", "Mongo")
	t.Setenv("FEEDBACK_MONGO_URI", "mongodb://db:27017")
	t.Setenv("FEEDBACK_CACHE_ENABLED", "1")
	t.Setenv("FEEDBACK_CACHE_TTL_SECONDS", "60")
	t.Setenv("FEEDBACK_SCORING_EXCLUDED_SECTIONS", "Course Content and Structure, ,Facilities")
	t.Setenv("FEEDBACK_SCORING_CONCURRENCY", "8")
	t.Setenv("FEEDBACK_AI_OPENAI_API_KEY", "sk-test-key")
	t.Setenv("FEEDBACK_AI_OPENAI_BASE_URL", "http://vllm:8000/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Store.Driver != DriverMongo || cfg.Mongo.URI != "mongodb://db:27017" {
		t.Errorf("Store = %+v, Mongo = %+v", cfg.Store, cfg.Mongo)
	}
	if !cfg.Cache.Enabled || cfg.Cache.TTL != time.Minute {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	want := []string{"Course Content and Structure", "Facilities"}
	if len(cfg.Scoring.ExcludedSections) != 2 || cfg.Scoring.ExcludedSections[0] != want[0] || cfg.Scoring.ExcludedSections[1] != want[1] {
		t.Errorf("ExcludedSections = %q, want %q", cfg.Scoring.ExcludedSections, want)
	}
	if cfg.Scoring.Concurrency != 8 {
		t.Errorf("Scoring.Concurrency = %d, want 8", cfg.Scoring.Concurrency)
	}
	if !cfg.HasAIProvider() || cfg.AI.OpenAI.BaseURL != "http://vllm:8000/v1" {
		t.Errorf("AI = %+v", cfg.AI)
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("FEEDBACK_SERVER_PORT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want fallback 8080", cfg.Server.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"memory store", map[string]string{"FEEDBACK_STORE_DRIVER": "memory"}, false},
		{"unknown driver", map[string]string{"FEEDBACK_STORE_DRIVER": "sqlite"}, true},
		{"zero concurrency", map[string]string{"FEEDBACK_SCORING_CONCURRENCY": "0"}, true},
		{"negative page size", map[string]string{"FEEDBACK_STORE_PAGE_SIZE": "-1"}, true},
		{"cache without ttl", map[string]string{"FEEDBACK_CACHE_ENABLED": "true", "FEEDBACK_CACHE_TTL_SECONDS": "0"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasAIProvider(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HasAIProvider() {
		t.Error("HasAIProvider() = true with no provider configured")
	}

	t.Setenv("FEEDBACK_AI_OLLAMA_ENABLED", "true")
	cfg, _ = Load()
	if !cfg.HasAIProvider() {
		t.Error("HasAIProvider() = false with Ollama enabled")
	}
}
