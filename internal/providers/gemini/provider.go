// Package gemini queries the Gemini generateContent API with Google Search
// grounding, so answers come with grounding-chunk citations.
package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type Provider struct {
	apiKey         string
	model          string
	baseURL        string
	transientPause time.Duration
	httpClient     *http.Client
	redirectClient *http.Client
}

func New(cfg *config.Config) *Provider {
	return &Provider{
		apiKey:         cfg.GeminiAPIKey,
		model:          cfg.GeminiModel,
		baseURL:        defaultBaseURL,
		transientPause: 3 * time.Second,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSec) * time.Second,
		},
		redirectClient: common.NewRedirectClient(),
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Tools    []tool    `json:"tools"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type tool struct {
	GoogleSearch struct{} `json:"google_search"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		GroundingMetadata struct {
			GroundingChunks []struct {
				Web struct {
					URI string `json:"uri"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Ask sends one grounded generateContent request. Grounding-chunk URIs point
// at Google's redirect service, so each one is resolved to its destination
// before it becomes a citation.
func (p *Provider) Ask(ctx context.Context, query string) common.Attempt {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: query}}}},
		Tools:    []tool{{}},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return common.Fatal(fmt.Errorf("failed to marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return common.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return common.Retryable(fmt.Errorf("Gemini request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := common.StatusError("Gemini", resp.StatusCode)
		switch resp.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			fmt.Printf("[Gemini] ⏳ Status %d, pausing %s before retry\n", resp.StatusCode, p.transientPause)
			common.Pause(ctx, p.transientPause)
			return common.Retryable(statusErr)
		default:
			if common.ClassifyStatus(resp.StatusCode) == common.AttemptFatal {
				return common.Fatal(statusErr)
			}
			return common.Retryable(statusErr)
		}
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return common.Retryable(fmt.Errorf("failed to decode Gemini response: %w", err))
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return common.Retryable(fmt.Errorf("Gemini returned no candidates"))
	}

	candidate := parsed.Candidates[0]
	text := candidate.Content.Parts[0].Text
	if text == "" {
		return common.Retryable(fmt.Errorf("Gemini returned an empty answer"))
	}

	var citations []string
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk.Web.URI == "" {
			continue
		}
		citations = append(citations, common.ResolveRedirect(ctx, p.redirectClient, chunk.Web.URI))
	}

	return common.OK(&common.ProviderAnswer{
		Text:         text,
		Citations:    citations,
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
	})
}
