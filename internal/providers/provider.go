package providers

import (
	"context"

	"github.com/aeotrack/aeo-workflows/internal/providers/common"
)

// AnswerProvider is the capability shared by all AI answer engines: one
// web-grounded call for one query, classified as ok / retryable / fatal.
type AnswerProvider interface {
	Ask(ctx context.Context, query string) common.Attempt
	Name() string
}
