package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/config"
	"github.com/tbxark/onboard/dialogue"
	"github.com/tbxark/onboard/frustration"
	"github.com/tbxark/onboard/nhtsa"
	"github.com/tbxark/onboard/observability"
	"github.com/tbxark/onboard/quote"
	"github.com/tbxark/onboard/store"
	"github.com/tbxark/onboard/vehicle"
)

type app struct {
	service  *agent.Service
	store    *store.SQLiteStore
	metrics  *observability.Metrics
	registry *prometheus.Registry
}

func (a *app) Close() error {
	return a.store.Close()
}

// buildApp wires every collaborator from cfg. Without an OpenAI key the
// service phrases replies locally and detects frustration by keywords.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	lookup := nhtsa.NewClient(
		nhtsa.WithBaseURL(cfg.NHTSABaseURL),
		nhtsa.WithTimeout(cfg.LookupTimeout),
		nhtsa.WithCacheTTL(cfg.MakesCacheTTL),
		nhtsa.WithObserver(metrics.ObserveLookup),
	)

	var detector frustration.Detector = frustration.NewKeywordDetector()
	var phraser dialogue.Phraser = dialogue.NewLocalPhraser()
	if cfg.LLMEnabled() {
		chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", err)
		}
		phraser = dialogue.NewFailbackPhraser(dialogue.NewToolBasedPhraser(chatModel), phraser)
		if cfg.FrustrationLLM {
			toolDetector, err := frustration.NewToolBasedDetector(chatModel)
			if err != nil {
				return nil, err
			}
			detector = frustration.NewFailbackDetector(toolDetector, detector)
		}
		slog.Info("Chat model enabled", "model", cfg.OpenAIModel, "frustration_llm", cfg.FrustrationLLM)
	}

	flow, err := agent.NewFlow(vehicle.NewResolver(lookup), detector)
	if err != nil {
		return nil, err
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("database health check failed: %w", err)
	}

	quotes := []quote.Fetcher{}
	if cfg.QuoteURL != "" {
		quotes = append(quotes, quote.NewZenQuotesClient(quote.WithURL(cfg.QuoteURL), quote.WithTimeout(cfg.LookupTimeout)))
	}
	quotes = append(quotes, quote.NewStaticFetcher())

	opts := []agent.ServiceOption{
		agent.WithTurnRecorder(repo),
		agent.WithQuotes(quote.NewFailbackFetcher(quotes...)),
		agent.WithHistory(agent.NewMemoryHistoryStore(agent.KeepSystemLastNTrimmer{N: cfg.HistoryLimit})),
		agent.WithObserver(metrics),
	}
	if cfg.LLMEnabled() {
		opts = append(opts, agent.WithStateSchema())
	}
	service, err := agent.NewService(flow, repo, phraser, opts...)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return &app{service: service, store: repo, metrics: metrics, registry: registry}, nil
}
