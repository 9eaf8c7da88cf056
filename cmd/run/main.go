// cmd/run/main.go
//
// One full monitoring run from the command line: every active catalog query
// against every active provider. Exits non-zero when the catalog cannot be
// loaded or the failure rate crosses the configured threshold.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/aeotrack/aeo-workflows/internal/catalog"
	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/ledger"
	"github.com/aeotrack/aeo-workflows/internal/providers"
	"github.com/aeotrack/aeo-workflows/internal/providers/judge"
	"github.com/aeotrack/aeo-workflows/internal/store"
	"github.com/aeotrack/aeo-workflows/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file loaded: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	tabularStore, err := store.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer tabularStore.Close()

	queries, err := catalog.LoadQueries(ctx, tabularStore)
	if err != nil {
		log.Fatalf("Failed to load queries: %v", err)
	}
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

	summary, err := runner.Run(ctx, queries, cfg.ActiveProviders)
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	if err := ledger.MergeAndSave(cfg.FailedAttemptsPath, summary.FailedAttempts); err != nil {
		log.Fatalf("Failed to persist failure ledger: %v", err)
	}

	fmt.Printf("Run complete: %d successful, %d failed (%.1f%% failure rate)\n",
		summary.Successful, summary.Failed, summary.FailureRate()*100)

	if summary.FailureRate() > cfg.FailureRateThreshold {
		fmt.Printf("Failure rate %.1f%% exceeds threshold %.1f%%\n",
			summary.FailureRate()*100, cfg.FailureRateThreshold*100)
		os.Exit(1)
	}
}
