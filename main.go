// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"

	"github.com/aeotrack/aeo-workflows/internal/config"
	"github.com/aeotrack/aeo-workflows/internal/providers"
	"github.com/aeotrack/aeo-workflows/internal/providers/judge"
	"github.com/aeotrack/aeo-workflows/internal/store"
	"github.com/aeotrack/aeo-workflows/services"
	"github.com/aeotrack/aeo-workflows/workflows"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			log.Printf("Note: No .env or dev.env file loaded: %v", err)
		} else {
			log.Printf("Loaded dev.env file for local development")
		}
	} else {
		log.Printf("Loaded .env file")
	}

	cfg := config.Load()

	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Database Host: %s", cfg.Database.Host)
	log.Printf("Database Name: %s", cfg.Database.Name)
	log.Printf("Active providers: %v", cfg.ActiveProviders)

	if cfg.PerplexityAPIKey == "" {
		log.Printf("WARNING: Perplexity API key not loaded!")
	}
	if cfg.GeminiAPIKey == "" {
		log.Printf("WARNING: Gemini API key not loaded!")
	}

	ctx := context.Background()
	tabularStore, err := store.NewPostgresStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer tabularStore.Close()
	log.Printf("Successfully connected to database")

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		log.Printf("Running in development mode - signing key verification disabled")
	}

	gateways, err := providers.NewGateways(cfg.ActiveProviders, cfg)
	if err != nil {
		log.Fatalf("Failed to build providers: %v", err)
	}
	answerGateways := make(map[string]services.AnswerGateway, len(gateways))
	for name, gateway := range gateways {
		answerGateways[name] = gateway
	}
	log.Printf("Provider gateways initialized: %d", len(answerGateways))

	verdictJudge := judge.New(cfg)
	log.Printf("Judge backend: %s", cfg.JudgeBackend)

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "aeo-workflows",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		log.Fatalf("Failed to create Inngest client: %v", err)
	}

	log.Printf("Initializing MonitorProcessor workflow...")
	monitorProcessor := workflows.NewMonitorProcessor(cfg, tabularStore, answerGateways, verdictJudge)
	monitorProcessor.SetClient(client)
	monitorProcessor.DailyMonitor()
	monitorProcessor.RunMonitor()
	monitorProcessor.RetryMonitor()
	log.Printf("All workflow functions registered")

	h := client.Serve()
	mux := http.NewServeMux()
	mux.Handle("/api/inngest", h)

	// Root endpoint for ALB health check
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"service":"aeo-workflows","status":"running"}`))
	})

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/test/trigger-run", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		evt := inngestgo.Event{
			Name: "monitor.run",
			Data: map[string]interface{}{"triggered_by": "manual_test"},
		}
		result, err := client.Send(r.Context(), evt)
		if err != nil {
			log.Printf("Failed to send test event: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"error":"Failed to send event: %v"}`, err)))
			return
		}
		log.Printf("Test event sent successfully: %+v", result)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"status":"success","event_ids":["%s"]}`, result)))
	})

	port := cfg.Port
	log.Printf("Starting AEO Workflows service on port %s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}
