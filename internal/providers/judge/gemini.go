package judge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/models"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

	// The verdict only needs the opening of the answer; a capped excerpt
	// keeps the judge call cheap on long answers.
	maxExcerptRunes = 3000
)

type geminiJudge struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiJudge builds the Gemini-backed judge. It carries its own short
// timeout so a slow judge cannot eat into the answer-call budget.
func NewGeminiJudge(cfg *config.Config) Judge {
	return &geminiJudge{
		apiKey:     cfg.GeminiAPIKey,
		model:      cfg.JudgeModel,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type judgeRequest struct {
	Contents []judgeContent `json:"contents"`
}

type judgeContent struct {
	Parts []judgePart `json:"parts"`
}

type judgePart struct {
	Text string `json:"text"`
}

type judgeResponse struct {
	Candidates []struct {
		Content struct {
			Parts []judgePart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (j *geminiJudge) Judge(ctx context.Context, answerText string, brandNames []string) map[string]models.BrandVerdict {
	if answerText == "" || len(brandNames) == 0 {
		return map[string]models.BrandVerdict{}
	}

	payload := judgeRequest{
		Contents: []judgeContent{{Parts: []judgePart{{Text: buildPrompt(answerText, brandNames)}}}},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return map[string]models.BrandVerdict{}
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", j.baseURL, j.model, j.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return map[string]models.BrandVerdict{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.httpClient.Do(req)
	if err != nil {
		fmt.Printf("[Judge] ⚠️ Gemini judge call failed: %v\n", err)
		return map[string]models.BrandVerdict{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("[Judge] ⚠️ Gemini judge returned status %d\n", resp.StatusCode)
		return map[string]models.BrandVerdict{}
	}

	var parsed judgeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return map[string]models.BrandVerdict{}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return map[string]models.BrandVerdict{}
	}

	return ParseVerdicts(parsed.Candidates[0].Content.Parts[0].Text, brandNames)
}

func buildPrompt(answerText string, brandNames []string) string {
	return fmt.Sprintf(`You are scoring how an AI-generated answer portrays specific brands.

Answer text:
"""
%s
"""

Brands: %s

For every brand return its sentiment (POSITIVE, NEGATIVE or NEUTRAL) and whether the answer explicitly recommends it as a top choice (YES or NO).

Return ONLY a JSON array, no other text:
[{"brand": "...", "sentiment": "POSITIVE", "recommendation": "NO"}]`,
		truncateRunes(answerText, maxExcerptRunes), strings.Join(brandNames, ", "))
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
