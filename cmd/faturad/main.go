package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/document"
	"github.com/brstatements/fatura-extractor/internal/history"
	"github.com/brstatements/fatura-extractor/internal/llm/openai"
	"github.com/brstatements/fatura-extractor/internal/pipeline"
	"github.com/brstatements/fatura-extractor/internal/server"
	"github.com/brstatements/fatura-extractor/internal/sheet"
)

func main() {
	_ = gotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("config invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder pipeline.Recorder
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path, logger)
		if err != nil {
			logger.Error("opening history store", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		recorder = store
	}

	client := openai.NewClient(openai.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)

	processor := pipeline.NewProcessor(
		logger,
		document.NewPDFExtractor(logger),
		client,
		client,
		sheet.NewSink(logger),
		recorder,
		pipeline.Config{
			SpreadsheetPath: cfg.Sheet.Path,
			Trim: document.TrimPolicy{
				LeadingPages:  cfg.Pipeline.LeadingPages,
				TrailingPages: cfg.Pipeline.TrailingPages,
			},
			FormatPrePass: cfg.Pipeline.FormatPrePass,
		},
	)

	srv, err := server.New(cfg.Server, processor, logger)
	if err != nil {
		logger.Error("creating server", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Listen(); err != nil {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}
	logger.Info("stopped")
}
