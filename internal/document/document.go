package document

import (
	"context"
)

// ExtractionResult summarizes one trim-and-extract run over a statement PDF.
type ExtractionResult struct {
	Text         string
	TotalPages   int
	TrimmedPages int
}

// Extractor is stage 1 of the pipeline: statement file -> raw text.
// The PDF-backed implementation lives in extract.go; tests substitute fakes.
type Extractor interface {
	ExtractTrimmed(ctx context.Context, path string, policy TrimPolicy) (ExtractionResult, error)
}
