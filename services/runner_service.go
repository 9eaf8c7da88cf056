// services/runner_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/models"
	"github.com/aeotrack/aeo-workflows/internal/store"
)

type runnerService struct {
	processor ProcessorService
	store     store.TabularStore

	maxWorkers  int
	batchSize   int
	taskTimeout time.Duration
	flushRetry  time.Duration
}

// NewRunnerService builds the orchestrator around a processor and a store.
func NewRunnerService(cfg *config.Config, processor ProcessorService, st store.TabularStore) RunnerService {
	return &runnerService{
		processor:   processor,
		store:       st,
		maxWorkers:  cfg.MaxWorkers,
		batchSize:   cfg.BatchSize,
		taskTimeout: time.Duration(cfg.TaskTimeoutSec) * time.Second,
		flushRetry:  2 * time.Second,
	}
}

// task is one unit of parallel work: a query, the providers to ask, and the
// retry count to stamp on new failures.
type task struct {
	query      models.Query
	providers  []string
	retryCount int
}

func (s *runnerService) Run(ctx context.Context, queries []models.Query, providerNames []string) (*models.RunSummary, error) {
	tasks := make([]task, 0, len(queries))
	for _, query := range queries {
		tasks = append(tasks, task{query: query, providers: providerNames, retryCount: 1})
	}
	fmt.Printf("[Runner] 🚀 Starting run: %d queries × %d providers\n", len(queries), len(providerNames))
	return s.runTasks(ctx, tasks)
}

func (s *runnerService) RunPairs(ctx context.Context, pairs []RetryPair) (*models.RunSummary, error) {
	tasks := make([]task, 0, len(pairs))
	for _, pair := range pairs {
		tasks = append(tasks, task{
			query:      pair.Query,
			providers:  []string{pair.Provider},
			retryCount: pair.RetryCount,
		})
	}
	fmt.Printf("[Runner] 🔄 Starting retry run: %d query+provider pairs\n", len(pairs))
	return s.runTasks(ctx, tasks)
}

// runTasks fans tasks out over a bounded pool. Workers only compute; the
// collector loop below is the single owner of the row accumulators and the
// flush decision, so no shared mutable state crosses goroutines.
func (s *runnerService) runTasks(ctx context.Context, tasks []task) (*models.RunSummary, error) {
	rc := models.NewRunContext(uuid.NewString(), time.Now())
	summary := &models.RunSummary{}
	if len(tasks) == 0 {
		return summary, nil
	}

	pool, err := ants.NewPool(s.maxWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	defer pool.Release()

	// Buffered for every task: workers must never block sending a result,
	// otherwise a full buffer plus busy workers would wedge the submit loop
	// before the collector below ever starts draining.
	results := make(chan QueryResult, len(tasks))
	pending := 0

	for _, t := range tasks {
		t := t
		if err := pool.Submit(func() {
			results <- s.processWithTimeout(ctx, t, rc)
		}); err != nil {
			// Pool submission only fails when the pool is closed; account
			// for the task so the collector loop still terminates.
			fmt.Printf("[Runner] ⚠️ Failed to submit task: %v\n", err)
			continue
		}
		pending++
	}

	var logRows, dataRows, urlRows [][]string
	ensured := make(map[string]bool)

	for ; pending > 0; pending-- {
		result := <-results

		summary.Successful += result.Attempts - result.FailedUnits
		summary.Failed += result.FailedUnits
		summary.FailedAttempts = append(summary.FailedAttempts, result.Failed...)

		logRows = append(logRows, result.LogRows...)
		dataRows = append(dataRows, result.DataRows...)
		urlRows = append(urlRows, result.URLRows...)

		if len(logRows) >= s.batchSize {
			s.flushAll(ctx, ensured, logRows, dataRows, urlRows)
			logRows, dataRows, urlRows = nil, nil, nil
		}
	}

	s.flushAll(ctx, ensured, logRows, dataRows, urlRows)

	fmt.Printf("[Runner] 🏁 Run %s finished: %d successful, %d failed\n", rc.RunID, summary.Successful, summary.Failed)
	return summary, nil
}

// processWithTimeout bounds one task. A task that overruns is recorded as a
// single synthetic failure covering all of its providers; the stuck goroutine
// is left to finish into a buffered channel.
func (s *runnerService) processWithTimeout(ctx context.Context, t task, rc models.RunContext) QueryResult {
	done := make(chan QueryResult, 1)

	go func() {
		done <- s.processor.ProcessQuery(ctx, t.query, t.providers, rc, t.retryCount)
	}()

	select {
	case result := <-done:
		return result
	case <-time.After(s.taskTimeout):
		fmt.Printf("[Runner] ⏰ Task timed out after %s: %s\n", s.taskTimeout, t.query.Text)
		return QueryResult{
			Attempts:    len(t.providers),
			FailedUnits: len(t.providers),
			Failed: []models.FailedAttempt{{
				Query:      t.query,
				Provider:   "ALL",
				Error:      "Task timeout",
				Timestamp:  time.Now().UTC(),
				RetryCount: t.retryCount,
			}},
		}
	}
}

func (s *runnerService) flushAll(ctx context.Context, ensured map[string]bool, logRows, dataRows, urlRows [][]string) {
	s.flush(ctx, ensured, LogTable, LogHeader, logRows)
	s.flush(ctx, ensured, DataTable, DataHeader, dataRows)
	s.flush(ctx, ensured, URLTable, URLHeader, urlRows)
}

// flush appends one batch. A failed write gets one retry after a short pause;
// a batch that fails twice is dropped so the run can finish.
func (s *runnerService) flush(ctx context.Context, ensured map[string]bool, table string, header []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}

	if !ensured[table] {
		if err := s.store.EnsureTable(ctx, table, header); err != nil {
			fmt.Printf("[Runner] ⚠️ Failed to ensure table %s: %v\n", table, err)
		} else {
			ensured[table] = true
		}
	}

	if err := s.store.AppendRows(ctx, table, rows); err != nil {
		fmt.Printf("[Runner] ⚠️ Write to %s failed, retrying once: %v\n", table, err)
		time.Sleep(s.flushRetry)
		if err := s.store.AppendRows(ctx, table, rows); err != nil {
			fmt.Printf("[Runner] ❌ Dropping %d rows for %s: %v\n", len(rows), table, err)
			return
		}
	}
	fmt.Printf("[Runner] 💾 Flushed %d rows to %s\n", len(rows), table)
}
