// Package chatgpt queries OpenAI through the web-search responses API, so
// answers carry URL-citation annotations the same way the other grounded
// providers do.
package chatgpt

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

const defaultBaseURL = "https://api.openai.com"

type Provider struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

func New(cfg *config.Config) *Provider {
	return &Provider{
		apiKey:  cfg.OpenAIAPIKey,
		model:   cfg.OpenAIModel,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		},
	}
}

func (p *Provider) Name() string {
	return "chatgpt"
}

// WebSearchRequest is the request structure for the OpenAI responses API
type WebSearchRequest struct {
	Model string          `json:"model"`
	Tools []WebSearchTool `json:"tools"`
	Input string          `json:"input"`
}

type WebSearchTool struct {
	Type string `json:"type"`
}

// WebSearchResponse is the response from the OpenAI responses API
type WebSearchResponse struct {
	ID     string                `json:"id"`
	Object string                `json:"object"`
	Status string                `json:"status"`
	Output []WebSearchOutputItem `json:"output"`
	Usage  WebSearchUsage        `json:"usage"`
}

type WebSearchOutputItem struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Status  string             `json:"status,omitempty"`
	Content []WebSearchContent `json:"content,omitempty"`
}

type WebSearchContent struct {
	Type        string                `json:"type"`
	Text        string                `json:"text,omitempty"`
	Annotations []WebSearchAnnotation `json:"annotations,omitempty"`
}

type WebSearchAnnotation struct {
	Type       string `json:"type"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
}

type WebSearchUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Ask sends one web-search request and extracts the final message text plus
// its url_citation annotations.
func (p *Provider) Ask(ctx context.Context, query string) common.Attempt {
	requestBody := WebSearchRequest{
		Model: p.model,
		Tools: []WebSearchTool{{Type: "web_search_preview"}},
		Input: query,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return common.Fatal(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/responses", bytes.NewBuffer(jsonData))
	if err != nil {
		return common.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return common.Retryable(fmt.Errorf("web search request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := common.StatusError("OpenAI", resp.StatusCode)
		if common.ClassifyStatus(resp.StatusCode) == common.AttemptFatal {
			return common.Fatal(statusErr)
		}
		return common.Retryable(statusErr)
	}

	var webSearchResp WebSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&webSearchResp); err != nil {
		return common.Retryable(fmt.Errorf("failed to decode web search response: %w", err))
	}

	responseText := ""
	var citations []string
	seen := make(map[string]bool)

	for _, output := range webSearchResp.Output {
		if output.Type != "message" {
			continue
		}
		for _, content := range output.Content {
			if content.Type != "output_text" {
				continue
			}
			if responseText == "" {
				responseText = content.Text
			}
			for _, annotation := range content.Annotations {
				if annotation.Type != "url_citation" || annotation.URL == "" {
					continue
				}
				if seen[annotation.URL] {
					continue
				}
				seen[annotation.URL] = true
				citations = append(citations, annotation.URL)
			}
		}
	}

	if responseText == "" {
		return common.Retryable(fmt.Errorf("no message content found in web search response"))
	}

	return common.OK(&common.ProviderAnswer{
		Text:         responseText,
		Citations:    citations,
		InputTokens:  webSearchResp.Usage.InputTokens,
		OutputTokens: webSearchResp.Usage.OutputTokens,
	})
}
