// Package perplexity queries the Perplexity chat-completions API with
// citations enabled.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/providers/common"
)

const defaultBaseURL = "https://api.perplexity.ai"

type Provider struct {
	apiKey         string
	model          string
	baseURL        string
	rateLimitPause time.Duration
	httpClient     *http.Client
}

func New(cfg *config.Config) *Provider {
	return &Provider{
		apiKey:         cfg.PerplexityAPIKey,
		model:          cfg.PerplexityModel,
		baseURL:        defaultBaseURL,
		rateLimitPause: 5 * time.Second,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		},
	}
}

func (p *Provider) Name() string {
	return "perplexity"
}

type chatRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	ReturnCitations bool          `json:"return_citations"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Usage     struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Ask sends one chat-completion request and classifies the outcome for the
// retry policy. Rate limits and server errors pause briefly before reporting
// retryable, matching the API's own guidance for 429s.
func (p *Provider) Ask(ctx context.Context, query string) common.Attempt {
	payload := chatRequest{
		Model:           p.model,
		Messages:        []chatMessage{{Role: "user", Content: query}},
		ReturnCitations: true,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return common.Fatal(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return common.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return common.Retryable(fmt.Errorf("Perplexity request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := common.StatusError("Perplexity", resp.StatusCode)
		switch {
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			fmt.Printf("[Perplexity] ⏳ Status %d, pausing %s before retry\n", resp.StatusCode, p.rateLimitPause)
			common.Pause(ctx, p.rateLimitPause)
			return common.Retryable(statusErr)
		case common.ClassifyStatus(resp.StatusCode) == common.AttemptFatal:
			return common.Fatal(statusErr)
		default:
			return common.Retryable(statusErr)
		}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return common.Retryable(fmt.Errorf("failed to decode Perplexity response: %w", err))
	}

	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return common.Retryable(fmt.Errorf("Perplexity returned an empty answer"))
	}

	return common.OK(&common.ProviderAnswer{
		Text:         parsed.Choices[0].Message.Content,
		Citations:    parsed.Citations,
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
	})
}
