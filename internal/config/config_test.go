package config

import (
	"testing"

	"github.com/wedosoft/ticketrag/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	tests := []struct {
		name  string
		check func(*Config) bool
	}{
		{"default host is 0.0.0.0", func(c *Config) bool { return c.Host == "0.0.0.0" }},
		{"default port is 8080", func(c *Config) bool { return c.Port == 8080 }},
		{"default qdrant url", func(c *Config) bool { return c.QdrantURL == "http://localhost:6334" }},
		{"default realtime provider is openai", func(c *Config) bool { return c.RealtimeLLMProvider == "openai" }},
		{"default fusion weights sum to one", func(c *Config) bool { return c.FusionDenseWeight+c.FusionSparseWeight == 1.0 }},
		{"prevent empty results defaults true", func(c *Config) bool { return c.PreventEmptyResults }},
		{"conditional search enabled by default", func(c *Config) bool { return c.EnableConditionalSearch }},
		{"llm global timeout parses as a duration", func(c *Config) bool { return c.LLMGlobalTimeout.Seconds() == 30 }},
		{"listen addr format", func(c *Config) bool { return c.ListenAddr() == "0.0.0.0:8080" }},
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(cfg) {
				t.Errorf("unexpected value for %s", tt.name)
			}
		})
	}
}

func TestLLMUseCaseConfigsCoversEveryUseCase(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	useCases := cfg.LLMUseCaseConfigs()
	for _, uc := range []domain.UseCase{
		domain.UseCaseRealtime, domain.UseCaseBatch, domain.UseCaseSummary,
		domain.UseCaseQueryAnalysis, domain.UseCaseHyDE,
	} {
		got, ok := useCases[uc]
		if !ok {
			t.Fatalf("missing use-case config for %s", uc)
		}
		if got.Provider == "" || got.Model == "" {
			t.Errorf("use-case %s has empty provider/model: %+v", uc, got)
		}
	}
}
