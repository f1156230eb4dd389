package main

import (
	"context"
	"eduassist/internal/assistant"
	"eduassist/internal/config"
	"eduassist/internal/document"
	"eduassist/internal/llm"
	"eduassist/internal/webpage"
	"log/slog"
	"os"
)

// app bundles the components shared by every subcommand.
type app struct {
	cfg        config.Config
	log        *slog.Logger
	assistant  *assistant.Assistant
	summarizer *document.Summarizer
	fetcher    *webpage.Fetcher
}

func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	return log
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		newLogger(slog.LevelInfo).ErrorContext(ctx, "Failed to load config",
			"error", err)

		return nil, err
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	log := newLogger(level)

	a := &app{
		cfg: cfg,
		log: log,
	}

	a.assistant = assistant.New(initOpenAIClient(ctx, cfg, log), log,
		assistant.WithModel(cfg.OpenAIModel))

	a.summarizer = document.NewSummarizer(a.assistant, log,
		document.WithCache(document.NewSummaryCache(cfg.SummaryCacheSize, cfg.SummaryCacheTTL)))

	a.fetcher = webpage.NewFetcher(webpage.NewHTTPClient(), cfg.AllowedDomains, log)

	return a, nil
}

func (a *app) Close() {
	a.fetcher.Close()
}

// initOpenAIClient returns a nil interface on failure so the assistant answers
// with its error response instead of panicking.
func initOpenAIClient(ctx context.Context, cfg config.Config, log *slog.Logger) llm.Client {
	client, err := llm.NewOpenAIClient(cfg.OpenAIAPIKey, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to create OpenAI client",
			"error", err,
			"envVar", "OPENAI_API_KEY")

		return nil
	}

	log.InfoContext(ctx, "OpenAI client is initialized",
		"provider", "openai",
		"model", cfg.OpenAIModel)

	return client
}
