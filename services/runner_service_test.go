package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aeotrack/aeo-workflows/internal/models"
	"github.com/aeotrack/aeo-workflows/internal/providers/common"
	"github.com/aeotrack/aeo-workflows/internal/store"
)

func newTestRunner(processor ProcessorService, st store.TabularStore, batchSize int) *runnerService {
	return &runnerService{
		processor:   processor,
		store:       st,
		maxWorkers:  2,
		batchSize:   batchSize,
		taskTimeout: 5 * time.Second,
		flushRetry:  0,
	}
}

func TestRunEndToEnd(t *testing.T) {
	gateway := &mockGateway{
		name: "perplexity",
		answers: map[string]*common.ProviderAnswer{
			"q1": {Text: "Moneta first, then Air Bank.", Citations: []string{"https://www.moneta.cz/x"}},
			"q2": {Text: "Air Bank only."},
		},
	}
	processor := NewProcessorService(map[string]AnswerGateway{"perplexity": gateway}, testBrands(), &mockJudge{})
	st := store.NewMemoryStore()
	runner := newTestRunner(processor, st, 30)

	queries := []models.Query{{Text: "q1"}, {Text: "q2"}}
	summary, err := runner.Run(context.Background(), queries, []string{"perplexity"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Successful != 2 || summary.Failed != 0 {
		t.Fatalf("expected 2 successes, got %+v", summary)
	}
	if len(st.Rows(LogTable)) != 2 {
		t.Errorf("expected 2 log rows, got %d", len(st.Rows(LogTable)))
	}
	if len(st.Rows(DataTable)) != 6 {
		t.Errorf("expected 2 queries × 3 brands data rows, got %d", len(st.Rows(DataTable)))
	}
	if len(st.Rows(URLTable)) != 1 {
		t.Errorf("expected 1 url row, got %d", len(st.Rows(URLTable)))
	}
}

func TestRunRecordsFailures(t *testing.T) {
	gateway := &mockGateway{name: "perplexity"} // never answers
	processor := NewProcessorService(map[string]AnswerGateway{"perplexity": gateway}, testBrands(), &mockJudge{})
	st := store.NewMemoryStore()
	runner := newTestRunner(processor, st, 30)

	summary, err := runner.Run(context.Background(), []models.Query{{Text: "q1"}}, []string{"perplexity"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Successful != 0 || summary.Failed != 1 {
		t.Fatalf("expected 1 failure, got %+v", summary)
	}
	if len(summary.FailedAttempts) != 1 {
		t.Fatalf("expected exactly one failed attempt, got %d", len(summary.FailedAttempts))
	}
	attempt := summary.FailedAttempts[0]
	if attempt.Query.Text != "q1" || attempt.Provider != "perplexity" || attempt.RetryCount != 1 {
		t.Errorf("unexpected failed attempt: %+v", attempt)
	}

	logRows := st.Rows(LogTable)
	if len(logRows) != 1 || logRows[0][11] != "ERROR / TIMEOUT" {
		t.Errorf("expected one failure log row, got %v", logRows)
	}
	if len(st.Rows(DataTable)) != 0 || len(st.Rows(URLTable)) != 0 {
		t.Errorf("failure must not write analysis rows")
	}
}

func TestRunFlushesInBatches(t *testing.T) {
	gateway := &mockGateway{
		name: "perplexity",
		answers: map[string]*common.ProviderAnswer{
			"q1": {Text: "a"}, "q2": {Text: "b"}, "q3": {Text: "c"},
		},
	}
	processor := NewProcessorService(map[string]AnswerGateway{"perplexity": gateway}, testBrands(), &mockJudge{})
	st := store.NewMemoryStore()
	runner := newTestRunner(processor, st, 2)

	queries := []models.Query{{Text: "q1"}, {Text: "q2"}, {Text: "q3"}}
	if _, err := runner.Run(context.Background(), queries, []string{"perplexity"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(st.Rows(LogTable)) != 3 {
		t.Errorf("expected all 3 log rows across batches, got %d", len(st.Rows(LogTable)))
	}
}

func TestRunRetriesFailedFlushOnce(t *testing.T) {
	gateway := &mockGateway{
		name:    "perplexity",
		answers: map[string]*common.ProviderAnswer{"q1": {Text: "a"}},
	}
	processor := NewProcessorService(map[string]AnswerGateway{"perplexity": gateway}, testBrands(), &mockJudge{})
	st := store.NewMemoryStore()
	runner := newTestRunner(processor, st, 30)

	st.FailAppends = 1
	if _, err := runner.Run(context.Background(), []models.Query{{Text: "q1"}}, []string{"perplexity"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(st.Rows(LogTable)) != 1 {
		t.Errorf("expected log batch to land on retry, got %d rows", len(st.Rows(LogTable)))
	}
}

// slowProcessor blocks longer than the task timeout.
type slowProcessor struct {
	delay time.Duration
}

func (p *slowProcessor) ProcessQuery(_ context.Context, _ models.Query, providerNames []string, _ models.RunContext, _ int) QueryResult {
	time.Sleep(p.delay)
	return QueryResult{Attempts: len(providerNames)}
}

func TestRunTaskTimeout(t *testing.T) {
	st := store.NewMemoryStore()
	runner := newTestRunner(&slowProcessor{delay: 200 * time.Millisecond}, st, 30)
	runner.taskTimeout = 20 * time.Millisecond

	summary, err := runner.Run(context.Background(), []models.Query{{Text: "q1"}}, []string{"perplexity", "gemini"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Failed != 2 || summary.Successful != 0 {
		t.Fatalf("timeout should fail every provider of the task: %+v", summary)
	}
	if len(summary.FailedAttempts) != 1 || summary.FailedAttempts[0].Provider != "ALL" {
		t.Errorf("expected one synthetic ALL entry, got %+v", summary.FailedAttempts)
	}
}

func TestRunPairsUsesSingleProviderAndRetryCount(t *testing.T) {
	gateway := &mockGateway{name: "gemini"} // still failing
	processor := NewProcessorService(map[string]AnswerGateway{"gemini": gateway}, testBrands(), &mockJudge{})
	st := store.NewMemoryStore()
	runner := newTestRunner(processor, st, 30)

	pairs := []RetryPair{{
		Query:      models.Query{Text: "q1"},
		Provider:   "gemini",
		RetryCount: 4,
	}}
	summary, err := runner.RunPairs(context.Background(), pairs)
	if err != nil {
		t.Fatalf("RunPairs failed: %v", err)
	}

	if summary.Failed != 1 || len(summary.FailedAttempts) != 1 {
		t.Fatalf("expected the pair to fail again, got %+v", summary)
	}
	if summary.FailedAttempts[0].RetryCount != 4 {
		t.Errorf("retry count not carried: %+v", summary.FailedAttempts[0])
	}
	if len(gateway.asked) != 1 {
		t.Errorf("expected exactly one provider call, got %d", len(gateway.asked))
	}
}

func TestRunManyMoreQueriesThanWorkers(t *testing.T) {
	answers := make(map[string]*common.ProviderAnswer)
	var queries []models.Query
	for i := 0; i < 12; i++ {
		text := fmt.Sprintf("q%d", i)
		answers[text] = &common.ProviderAnswer{Text: "Moneta"}
		queries = append(queries, models.Query{Text: text})
	}

	gateway := &mockGateway{name: "perplexity", answers: answers}
	processor := NewProcessorService(map[string]AnswerGateway{"perplexity": gateway}, testBrands(), &mockJudge{})
	st := store.NewMemoryStore()
	runner := newTestRunner(processor, st, 30)

	done := make(chan *models.RunSummary, 1)
	go func() {
		summary, err := runner.Run(context.Background(), queries, []string{"perplexity"})
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
		done <- summary
	}()

	select {
	case summary := <-done:
		if summary.Successful != 12 || summary.Failed != 0 {
			t.Fatalf("expected all 12 queries to succeed, got %+v", summary)
		}
		if len(st.Rows(LogTable)) != 12 {
			t.Errorf("expected 12 log rows, got %d", len(st.Rows(LogTable)))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish with more queries than workers")
	}
}
