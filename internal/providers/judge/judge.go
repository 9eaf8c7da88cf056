// Package judge scores how an answer portrays each mentioned brand. One call
// covers all brands in the answer; any failure degrades to an empty result
// and is never retried, so a flaky judge cannot fail a query.
package judge

import (
	"context"
	"strings"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/models"
)

// Judge produces a sentiment and recommendation verdict per brand name.
// Implementations return an empty map on any failure.
type Judge interface {
	Judge(ctx context.Context, answerText string, brandNames []string) map[string]models.BrandVerdict
}

// New selects the judge backend configured by JUDGE_BACKEND.
func New(cfg *config.Config) Judge {
	if strings.EqualFold(cfg.JudgeBackend, "openai") {
		return NewOpenAIJudge(cfg)
	}
	return NewGeminiJudge(cfg)
}
