package llm

import (
	"testing"

	"github.com/bwilder0/folktexts/internal/config"
)

func testLLMConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "claude",
			Providers: map[string]config.ProviderConfig{
				"claude": {APIKey: "sk-ant", Model: "claude-sonnet-4-5-20250929"},
				"openai": {APIKey: "sk-oai", Model: "gpt-4o"},
			},
		},
	}
}

func TestNewProviderDefaultsFromConfig(t *testing.T) {
	p, model, err := NewProvider(testLLMConfig(), "", "")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "claude" {
		t.Fatalf("provider = %q, want claude", p.Name())
	}
	if model != "claude-sonnet-4-5-20250929" {
		t.Fatalf("model = %q", model)
	}
}

func TestNewProviderFlagOverrides(t *testing.T) {
	p, model, err := NewProvider(testLLMConfig(), "openai", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "openai" {
		t.Fatalf("provider = %q, want openai", p.Name())
	}
	if model != "gpt-4o-mini" {
		t.Fatalf("model = %q", model)
	}
}

func TestNewProviderNormalizesAnthropic(t *testing.T) {
	p, _, err := NewProvider(testLLMConfig(), "anthropic", "")
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if p.Name() != "claude" {
		t.Fatalf("provider = %q, want claude", p.Name())
	}
}

func TestNewProviderErrors(t *testing.T) {
	if _, _, err := NewProvider(nil, "", ""); err == nil {
		t.Fatal("expected an error for nil config")
	}
	if _, _, err := NewProvider(testLLMConfig(), "nope", ""); err == nil {
		t.Fatal("expected an error for an unconfigured provider")
	}

	cfg := testLLMConfig()
	cfg.LLM.DefaultProvider = ""
	if _, _, err := NewProvider(cfg, "", ""); err == nil {
		t.Fatal("expected an error with no provider at all")
	}
}
