package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/subosito/gotenv"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/document"
	"github.com/brstatements/fatura-extractor/internal/history"
	"github.com/brstatements/fatura-extractor/internal/llm/openai"
	"github.com/brstatements/fatura-extractor/internal/pipeline"
	"github.com/brstatements/fatura-extractor/internal/sheet"
)

func main() {
	_ = gotenv.Load()

	sheetFlag := flag.String("sheet", "", "Target XLSX path (defaults to SHEET_PATH)")
	formatFlag := flag.Bool("format", true, "Run the statement-formatting pre-pass before extraction")
	recentFlag := flag.Int("recent", 0, "Print the N most recent history entries and exit")
	verboseFlag := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Extract transactions from fatura PDFs into an XLSX planilha.

Usage:
  fatura-extract [flags] <fatura.pdf> [fatura2.pdf ...]
  fatura-extract -recent 10

Flags:
`)
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if *sheetFlag != "" {
		cfg.Sheet.Path = *sheetFlag
	}
	cfg.Pipeline.FormatPrePass = *formatFlag

	ctx := context.Background()

	if *recentFlag > 0 {
		printHistory(ctx, cfg, *recentFlag, logger)
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("config: %v\n", err)
	}

	var recorder pipeline.Recorder
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path, logger)
		if err != nil {
			fatalf("opening history store: %v\n", err)
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

	failed := 0
	for _, path := range flag.Args() {
		fmt.Printf("Processing: %s\n", path)
		batch, err := processor.Process(ctx, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  error: %v\n", err)
			failed++
			continue
		}
		fmt.Printf("  %d transaction(s) appended to %s\n", batch.Len(), cfg.Sheet.Path)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func printHistory(ctx context.Context, cfg *common.Config, n int, logger *slog.Logger) {
	if cfg.History.Path == "" {
		fatalf("history disabled (HISTORY_DB is empty)\n")
	}
	store, err := history.Open(cfg.History.Path, logger)
	if err != nil {
		fatalf("opening history store: %v\n", err)
	}
	defer store.Close()

	entries, err := store.Recent(ctx, n)
	if err != nil {
		fatalf("reading history: %v\n", err)
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-8s %-30s pages=%d/%d records=%d (%s)",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Status, e.SourceFile,
			e.TrimmedPages, e.TotalPages, e.Records, e.Duration)
		if e.Error != "" {
			line += "  error: " + e.Error
		}
		fmt.Println(line)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
