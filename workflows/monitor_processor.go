// workflows/monitor_processor.go
package workflows

import (
	"context"
	"fmt"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/aeotrack/aeo-workflows/internal/catalog"
	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/ledger"
	"github.com/aeotrack/aeo-workflows/internal/models"
	"github.com/aeotrack/aeo-workflows/internal/providers/judge"
	"github.com/aeotrack/aeo-workflows/internal/store"
	"github.com/aeotrack/aeo-workflows/services"
)

// MonitorProcessor serves the monitoring pipeline as Inngest functions, so
// triggering (cron or manual event) stays outside the core services.
type MonitorProcessor struct {
	cfg      *config.Config
	store    store.TabularStore
	gateways map[string]services.AnswerGateway
	judge    judge.Judge
	client   inngestgo.Client
}

func NewMonitorProcessor(cfg *config.Config, st store.TabularStore, gateways map[string]services.AnswerGateway, j judge.Judge) *MonitorProcessor {
	return &MonitorProcessor{
		cfg:      cfg,
		store:    st,
		gateways: gateways,
		judge:    j,
	}
}

func (p *MonitorProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// MonitorRunEvent is the payload of monitor.run and monitor.retry events.
type MonitorRunEvent struct {
	TriggeredBy string `json:"triggered_by"`
}

// DailyMonitor fires the monitoring run every day. It only emits the event;
// the run itself is the event-triggered function below, so manual reruns and
// scheduled runs share one code path.
func (p *MonitorProcessor) DailyMonitor() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "daily-monitor",
			Name: "Daily Brand Monitoring Trigger",
		},
		inngestgo.CronTrigger("0 5 * * *"), // Every day at 5 AM UTC
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			return step.Run(ctx, "trigger-monitor-run", func(ctx context.Context) (any, error) {
				return p.client.Send(ctx, inngestgo.Event{
					Name: "monitor.run",
					Data: map[string]interface{}{"triggered_by": "daily_cron"},
				})
			})
		},
	)
	if err != nil {
		fmt.Printf("Failed to create daily monitor function: %v\n", err)
	}
	return fn
}

// RunMonitor executes a full monitoring run: every active query against
// every active provider, with fresh failures folded into the ledger.
func (p *MonitorProcessor) RunMonitor() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "run-monitor",
			Name: "Brand Monitoring - Full Run",
		},
		inngestgo.EventTrigger("monitor.run", nil),
		func(ctx context.Context, input inngestgo.Input[MonitorRunEvent]) (any, error) {
			fmt.Printf("[RunMonitor] Starting monitoring run (triggered by: %s)\n", input.Event.Data.TriggeredBy)

			queries, err := step.Run(ctx, "load-queries", func(ctx context.Context) ([]models.Query, error) {
				return catalog.LoadQueries(ctx, p.store)
			})
			if err != nil {
				alertErr := fmt.Errorf("monitoring run aborted, failed to load queries: %w", err)
				ReportErrorToSlack(alertErr)
				return nil, alertErr
			}

			summary, err := step.Run(ctx, "run-queries", func(ctx context.Context) (*models.RunSummary, error) {
				runner, err := p.buildRunner(ctx)
				if err != nil {
					return nil, err
				}
				return runner.Run(ctx, queries, p.cfg.ActiveProviders)
			})
			if err != nil {
				return nil, fmt.Errorf("run step failed: %w", err)
			}

			if _, err := step.Run(ctx, "persist-ledger", func(ctx context.Context) (any, error) {
				return nil, ledger.MergeAndSave(p.cfg.FailedAttemptsPath, summary.FailedAttempts)
			}); err != nil {
				return nil, fmt.Errorf("failed to persist failure ledger: %w", err)
			}

			if summary.FailureRate() > p.cfg.FailureRateThreshold {
				ReportRunFailureToSlack("monitor.run", summary)
			}

			return map[string]interface{}{
				"successful":   summary.Successful,
				"failed":       summary.Failed,
				"failure_rate": summary.FailureRate(),
			}, nil
		},
	)
	if err != nil {
		fmt.Printf("Failed to create run monitor function: %v\n", err)
	}
	return fn
}

// RetryMonitor re-runs only the ledgered failures, one provider per pair.
// The ledger is rewritten with the still-failing set plus the entries parked
// at the retry ceiling.
func (p *MonitorProcessor) RetryMonitor() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "retry-monitor",
			Name: "Brand Monitoring - Retry Failed Queries",
		},
		inngestgo.EventTrigger("monitor.retry", nil),
		func(ctx context.Context, input inngestgo.Input[MonitorRunEvent]) (any, error) {
			attempts, err := step.Run(ctx, "load-ledger", func(ctx context.Context) ([]models.FailedAttempt, error) {
				return ledger.Load(p.cfg.FailedAttemptsPath)
			})
			if err != nil {
				return nil, fmt.Errorf("failed to load failure ledger: %w", err)
			}

			eligible, atCeiling := ledger.Eligible(attempts, p.cfg.RetryCeiling)
			if len(eligible) == 0 {
				return map[string]interface{}{
					"message":    "no eligible failures to retry",
					"at_ceiling": len(atCeiling),
				}, nil
			}

			summary, err := step.Run(ctx, "retry-pairs", func(ctx context.Context) (*models.RunSummary, error) {
				runner, err := p.buildRunner(ctx)
				if err != nil {
					return nil, err
				}
				return runner.RunPairs(ctx, RetryPairs(eligible, p.cfg.ActiveProviders))
			})
			if err != nil {
				return nil, fmt.Errorf("retry step failed: %w", err)
			}

			if _, err := step.Run(ctx, "rewrite-ledger", func(ctx context.Context) (any, error) {
				return nil, ledger.Save(p.cfg.FailedAttemptsPath, ledger.Merge(atCeiling, summary.FailedAttempts))
			}); err != nil {
				return nil, fmt.Errorf("failed to rewrite failure ledger: %w", err)
			}

			return map[string]interface{}{
				"retried":       len(eligible),
				"recovered":     summary.Successful,
				"still_failing": summary.Failed,
				"at_ceiling":    len(atCeiling),
			}, nil
		},
	)
	if err != nil {
		fmt.Printf("Failed to create retry monitor function: %v\n", err)
	}
	return fn
}

// buildRunner assembles the processor and runner for one run. Brands are
// reloaded each run so catalog edits take effect without a restart.
func (p *MonitorProcessor) buildRunner(ctx context.Context) (services.RunnerService, error) {
	brands, err := catalog.LoadBrands(ctx, p.store)
	if err != nil {
		return nil, fmt.Errorf("failed to load brands: %w", err)
	}
	processor := services.NewProcessorService(p.gateways, brands, p.judge)
	return services.NewRunnerService(p.cfg, processor, p.store), nil
}

// RetryPairs converts eligible ledger entries into retry work units with
// their counts incremented. Task-timeout entries are recorded under the
// synthetic provider "ALL" and expand to one pair per active provider.
func RetryPairs(eligible []models.FailedAttempt, activeProviders []string) []services.RetryPair {
	pairs := make([]services.RetryPair, 0, len(eligible))
	for _, attempt := range eligible {
		providers := []string{attempt.Provider}
		if attempt.Provider == "ALL" {
			providers = activeProviders
		}
		for _, provider := range providers {
			pairs = append(pairs, services.RetryPair{
				Query:      attempt.Query,
				Provider:   provider,
				RetryCount: attempt.RetryCount + 1,
			})
		}
	}
	return pairs
}
