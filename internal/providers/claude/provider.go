// Package claude queries the Anthropic Messages API. Claude has no grounded
// search surface here, so answers carry text and token usage but no citations.
package claude

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/providers/common"
)

type Provider struct {
	client *anthropic.Client
	model  string
}

func New(cfg *config.Config) *Provider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
	)

	return &Provider{
		client: &client,
		model:  cfg.AnthropicModel,
	}
}

func (p *Provider) Name() string {
	return "claude"
}

// Ask sends one Messages request. SDK errors are reported retryable; the
// backoff layer gives up after its attempt budget either way.
func (p *Provider) Ask(ctx context.Context, query string) common.Attempt {
	messages := []anthropic.MessageParam{{
		Content: []anthropic.ContentBlockParamUnion{{
			OfText: &anthropic.TextBlockParam{Text: query},
		}},
		Role: anthropic.MessageParamRoleUser,
	}}

	response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 2000,
		Messages:  messages,
	})
	if err != nil {
		return common.Retryable(fmt.Errorf("Claude request failed: %w", err))
	}

	text := extractResponseText(*response)
	if text == "" {
		return common.Retryable(fmt.Errorf("Claude returned an empty answer"))
	}

	return common.OK(&common.ProviderAnswer{
		Text:         text,
		InputTokens:  int(response.Usage.InputTokens),
		OutputTokens: int(response.Usage.OutputTokens),
	})
}

func extractResponseText(response anthropic.Message) string {
	var textParts []string

	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		}
	}

	return strings.TrimSpace(strings.Join(textParts, "\n"))
}
