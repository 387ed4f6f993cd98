package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/document"
	"github.com/brstatements/fatura-extractor/internal/history"
	"github.com/brstatements/fatura-extractor/internal/llm"
)

// RecordSink appends a validated batch to the planilha at path.
type RecordSink interface {
	Append(ctx context.Context, path string, batch *llm.StatementBatch) (int, error)
}

// Recorder receives one history entry per processed document.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Config carries the policy constants of one pipeline instance.
type Config struct {
	SpreadsheetPath string
	Trim            document.TrimPolicy
	FormatPrePass   bool
}

// Processor runs the document-to-record pipeline: trim, extract, normalize,
// optional formatting pre-pass, structured extraction, append. Stages run
// strictly sequentially per document; the first failure aborts the run with
// no partial writes. All collaborators are injected, nothing is global.
type Processor struct {
	logger    *slog.Logger
	extractor document.Extractor
	formatter llm.StatementFormatter
	batcher   llm.BatchExtractor
	sink      RecordSink
	history   Recorder
	cfg       Config
}

func NewProcessor(
	logger *slog.Logger,
	extractor document.Extractor,
	formatter llm.StatementFormatter,
	batcher llm.BatchExtractor,
	sink RecordSink,
	recorder Recorder,
	cfg Config,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Trim == (document.TrimPolicy{}) {
		cfg.Trim = document.DefaultTrimPolicy
	}
	return &Processor{
		logger:    logger,
		extractor: extractor,
		formatter: formatter,
		batcher:   batcher,
		sink:      sink,
		history:   recorder,
		cfg:       cfg,
	}
}

// Process runs the whole pipeline for the statement PDF at pdfPath and
// returns the appended batch. The outcome is recorded in the processing
// history on every exit path; temp-file cleanup stays with the caller, who
// owns the file.
func (p *Processor) Process(ctx context.Context, pdfPath string) (*llm.StatementBatch, error) {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
		ctx = common.WithRequestID(ctx, rid)
	}
	log := p.logger.With("req_id", rid, "file", filepath.Base(pdfPath))

	var (
		res   document.ExtractionResult
		batch *llm.StatementBatch
		err   error
	)
	defer func() {
		p.record(ctx, pdfPath, res, batch, err, time.Since(start))
	}()

	// 1) Trim + extract raw text.
	res, err = p.extractor.ExtractTrimmed(ctx, pdfPath, p.cfg.Trim)
	if err != nil {
		log.Error("pipeline.extract.failed", "error", err)
		return nil, fmt.Errorf("extract text: %w", err)
	}
	log.Info("pipeline.extract.ok",
		"total_pages", res.TotalPages,
		"kept_pages", res.TrimmedPages,
		"text_bytes", len(res.Text),
	)

	// 2) Normalize, exactly once per run.
	text := document.InsertLineSpacing(res.Text)

	// 3) Optional formatting pre-pass.
	if p.cfg.FormatPrePass && p.formatter != nil {
		text, err = p.formatter.FormatStatement(ctx, text)
		if err != nil {
			log.Error("pipeline.format.failed", "error", err)
			return nil, fmt.Errorf("format statement: %w", err)
		}
		log.Info("pipeline.format.ok", "text_bytes", len(text))
	}

	// 4) Structured extraction (with bounded repair inside).
	batch, err = p.batcher.ExtractBatch(ctx, text)
	if err != nil {
		log.Error("pipeline.structured.failed", "error", err)
		return nil, fmt.Errorf("structured extraction: %w", err)
	}
	log.Info("pipeline.structured.ok", "records", batch.Len())

	// 5) Append to the planilha. Runs last so a failed document never
	// leaves partial rows behind.
	appended, err := p.sink.Append(ctx, p.cfg.SpreadsheetPath, batch)
	if err != nil {
		log.Error("pipeline.append.failed", "error", err)
		return nil, fmt.Errorf("append records: %w", err)
	}

	log.Info("pipeline.ok",
		"records", appended,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return batch, nil
}

func (p *Processor) record(ctx context.Context, pdfPath string, res document.ExtractionResult, batch *llm.StatementBatch, runErr error, elapsed time.Duration) {
	if p.history == nil {
		return
	}
	e := history.Entry{
		SourceFile:   filepath.Base(pdfPath),
		TotalPages:   res.TotalPages,
		TrimmedPages: res.TrimmedPages,
		Status:       history.StatusOK,
		Duration:     elapsed,
	}
	if batch != nil {
		e.Records = batch.Len()
	}
	if runErr != nil {
		e.Status = history.StatusFailed
		e.Error = runErr.Error()
	}
	// History is best-effort diagnostics; its failure never fails the run.
	if err := p.history.Record(context.WithoutCancel(ctx), e); err != nil {
		p.logger.Warn("pipeline.history.record_failed", "error", err)
	}
}
