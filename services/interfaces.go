// services/interfaces.go
package services

import (
	"context"

	"github.com/aeotrack/aeo-workflows/internal/models"
	"github.com/aeotrack/aeo-workflows/internal/providers/common"
)

// AnswerGateway is the retry-wrapped provider surface the processor consumes.
// A nil answer means the provider exhausted its attempts for this query.
type AnswerGateway interface {
	Ask(ctx context.Context, query string) *common.ProviderAnswer
	Name() string
}

// QueryResult is the immutable outcome of processing one query against one
// or more providers. The orchestrator only aggregates these; all analysis
// happens inside the processor.
type QueryResult struct {
	LogRows  [][]string
	DataRows [][]string
	URLRows  [][]string

	// Failed holds the ledger entries to persist. FailedUnits counts the
	// query+provider pairs that failed, which can exceed len(Failed) when a
	// task times out and is recorded as a single "ALL" entry.
	Failed      []models.FailedAttempt
	FailedUnits int

	// Attempts is the number of query+provider pairs this result covers.
	Attempts int
}

// RetryPair is one ledger entry scheduled for a retry-only run: the original
// query snapshot, the single provider that failed, and the incremented
// retry count to record if it fails again.
type RetryPair struct {
	Query      models.Query
	Provider   string
	RetryCount int
}

// ProcessorService turns one query into monitoring rows.
type ProcessorService interface {
	ProcessQuery(ctx context.Context, query models.Query, providerNames []string, rc models.RunContext, retryCount int) QueryResult
}

// RunnerService fans queries out over a bounded worker pool and persists the
// collected rows in batches.
type RunnerService interface {
	// Run processes every query against every named provider.
	Run(ctx context.Context, queries []models.Query, providerNames []string) (*models.RunSummary, error)
	// RunPairs processes exactly the given query+provider pairs.
	RunPairs(ctx context.Context, pairs []RetryPair) (*models.RunSummary, error)
}
