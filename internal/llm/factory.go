package llm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bwilder0/folktexts/internal/config"
)

// NewProvider resolves a provider and model name from config and flag
// overrides. An empty providerFlag falls back to the config default; an
// empty modelFlag falls back to the provider's configured model.
func NewProvider(cfg *config.Config, providerFlag string, modelFlag string) (Provider, string, error) {
	if cfg == nil {
		return nil, "", fmt.Errorf("llm: missing config")
	}

	providerName := strings.TrimSpace(providerFlag)
	if providerName == "" {
		providerName = strings.TrimSpace(cfg.LLM.DefaultProvider)
	}
	providerName = normalizeProviderName(providerName)
	if providerName == "" {
		return nil, "", fmt.Errorf("llm: missing provider")
	}

	pcfg, ok := cfg.LLM.Providers[providerName]
	if !ok {
		available := make([]string, 0, len(cfg.LLM.Providers))
		for k := range cfg.LLM.Providers {
			available = append(available, k)
		}
		sort.Strings(available)
		return nil, "", fmt.Errorf("llm: provider %q not configured (available: %s)",
			providerName, strings.Join(available, ", "))
	}

	model := strings.TrimSpace(modelFlag)
	if model == "" {
		model = strings.TrimSpace(pcfg.Model)
	}
	modelName := model
	if modelName == "" {
		modelName = "default"
	}

	switch providerName {
	case "claude":
		return NewClaudeProvider(pcfg.APIKey, pcfg.BaseURL, model), modelName, nil
	case "openai":
		return NewOpenAIProvider(pcfg.APIKey, pcfg.BaseURL, model), modelName, nil
	default:
		return nil, "", fmt.Errorf("llm: unsupported provider %q", providerName)
	}
}

func normalizeProviderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "anthropic" {
		return "claude"
	}
	return name
}
