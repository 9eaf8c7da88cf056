// cmd/retry/main.go
//
// Retry-only run over the failure ledger. Each eligible entry is re-run
// against exactly the provider that failed; entries at the retry ceiling are
// skipped but kept in the ledger. The ledger is rewritten with the entries
// still failing afterwards, so recovered queries disappear from it.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/aeotrack/aeo-workflows/internal/catalog"
	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/ledger"
	"github.com/aeotrack/aeo-workflows/internal/providers"
	"github.com/aeotrack/aeo-workflows/internal/providers/judge"
	"github.com/aeotrack/aeo-workflows/internal/store"
	"github.com/aeotrack/aeo-workflows/services"
	"github.com/aeotrack/aeo-workflows/workflows"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file loaded: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	attempts, err := ledger.Load(cfg.FailedAttemptsPath)
	if err != nil {
		log.Fatalf("Failed to load failure ledger: %v", err)
	}
	if len(attempts) == 0 {
		fmt.Println("Failure ledger is empty, nothing to retry")
		return
	}

	eligible, atCeiling := ledger.Eligible(attempts, cfg.RetryCeiling)
	if len(atCeiling) > 0 {
		fmt.Printf("Skipping %d entries at the retry ceiling (%d)\n", len(atCeiling), cfg.RetryCeiling)
	}
	if len(eligible) == 0 {
		fmt.Println("No eligible failures to retry")
		return
	}

	tabularStore, err := store.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer tabularStore.Close()

	brands, err := catalog.LoadBrands(ctx, tabularStore)
	if err != nil {
		log.Fatalf("Failed to load brands: %v", err)
	}

	gateways, err := providers.NewGateways(cfg.ActiveProviders, cfg)
	if err != nil {
		log.Fatalf("Failed to build providers: %v", err)
	}
	answerGateways := make(map[string]services.AnswerGateway, len(gateways))
	for name, gateway := range gateways {
		answerGateways[name] = gateway
	}

	processor := services.NewProcessorService(answerGateways, brands, judge.New(cfg))
	runner := services.NewRunnerService(cfg, processor, tabularStore)

	summary, err := runner.RunPairs(ctx, workflows.RetryPairs(eligible, cfg.ActiveProviders))
	if err != nil {
		log.Fatalf("Retry run failed: %v", err)
	}

	if err := ledger.Save(cfg.FailedAttemptsPath, ledger.Merge(atCeiling, summary.FailedAttempts)); err != nil {
		log.Fatalf("Failed to rewrite failure ledger: %v", err)
	}

	fmt.Printf("Retry complete: %d recovered, %d still failing, %d parked at ceiling\n",
		summary.Successful, summary.Failed, len(atCeiling))
}
