package providers

import (
	"fmt"
	"strings"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/providers/chatgpt"
	"github.com/aeotrack/aeo-workflows/internal/providers/claude"
	"github.com/aeotrack/aeo-workflows/internal/providers/gemini"
	"github.com/aeotrack/aeo-workflows/internal/providers/perplexity"
)

// NewProvider creates the appropriate answer provider based on the name
func NewProvider(name string, cfg *config.Config) (AnswerProvider, error) {
	nameLower := strings.ToLower(name)

	if strings.Contains(nameLower, "perplexity") {
		if cfg.PerplexityAPIKey == "" {
			return nil, fmt.Errorf("Perplexity API key is empty in config")
		}
		fmt.Printf("[ProviderFactory] 🎯 Selected Perplexity provider for: %s\n", name)
		return perplexity.New(cfg), nil
	}

	if strings.Contains(nameLower, "gemini") {
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("Gemini API key is empty in config")
		}
		fmt.Printf("[ProviderFactory] 🎯 Selected Gemini provider for: %s\n", name)
		return gemini.New(cfg), nil
	}

	if strings.Contains(nameLower, "chatgpt") || strings.Contains(nameLower, "openai") || strings.Contains(nameLower, "gpt") {
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is empty in config")
		}
		fmt.Printf("[ProviderFactory] 🎯 Selected ChatGPT provider for: %s\n", name)
		return chatgpt.New(cfg), nil
	}

	if strings.Contains(nameLower, "claude") || strings.Contains(nameLower, "anthropic") ||
		strings.Contains(nameLower, "sonnet") || strings.Contains(nameLower, "opus") || strings.Contains(nameLower, "haiku") {
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is empty in config")
		}
		fmt.Printf("[ProviderFactory] 🎯 Selected Claude provider for: %s\n", name)
		return claude.New(cfg), nil
	}

	return nil, fmt.Errorf("unsupported provider: %s", name)
}

// NewGateways builds a retry-wrapped gateway per requested provider name.
func NewGateways(names []string, cfg *config.Config) (map[string]*Gateway, error) {
	gateways := make(map[string]*Gateway, len(names))
	for _, name := range names {
		provider, err := NewProvider(name, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build provider %q: %w", name, err)
		}
		gateways[name] = NewGateway(provider, cfg.MaxRetries)
	}
	return gateways, nil
}
