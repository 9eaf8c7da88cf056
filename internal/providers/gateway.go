package providers

import (
	"context"
	"time"

	"github.com/aeotrack/aeo-workflows/internal/providers/common"
)

// Gateway wraps a provider with the bounded exponential-backoff retry
// policy. A nil return means the query+provider pair failed for this run
// and must be recorded as a FailedAttempt - it is never an error to crash on.
type Gateway struct {
	provider     AnswerProvider
	maxAttempts  int
	initialDelay time.Duration
}

// NewGateway builds a gateway retrying up to maxAttempts times.
func NewGateway(provider AnswerProvider, maxAttempts int) *Gateway {
	return &Gateway{
		provider:     provider,
		maxAttempts:  maxAttempts,
		initialDelay: time.Second,
	}
}

func (g *Gateway) Name() string {
	return g.provider.Name()
}

// Ask runs the provider call under the retry policy.
func (g *Gateway) Ask(ctx context.Context, query string) *common.ProviderAnswer {
	return common.WithBackoff(ctx, g.maxAttempts, g.initialDelay, func(ctx context.Context) common.Attempt {
		return g.provider.Ask(ctx, query)
	})
}
