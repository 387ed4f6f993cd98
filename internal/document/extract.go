package document

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts page text from statement PDFs with ledongthuc/pdf.
type PDFExtractor struct {
	logger *slog.Logger
}

func NewPDFExtractor(logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{logger: logger}
}

// ExtractTrimmed opens the PDF at path, drops the pages named by policy and
// concatenates the plain text of the surviving pages in page order. No
// semantic validation is done on the text; garbled output is the problem of
// downstream stages. The source file is never mutated.
func (e *PDFExtractor) ExtractTrimmed(ctx context.Context, path string, policy TrimPolicy) (res ExtractionResult, err error) {
	start := time.Now()

	// The pdf library can panic on malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library crashed: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return ExtractionResult{}, fmt.Errorf("open pdf: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			e.logger.Warn("document.extract.close_error", "path", path, "error", cerr)
		}
	}()

	res.TotalPages = reader.NumPage()
	pages, err := selectPages(res.TotalPages, policy)
	if err != nil {
		return res, err
	}
	res.TrimmedPages = len(pages)

	var b strings.Builder
	for _, n := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := pageText(page)
		if err != nil {
			e.logger.Warn("document.extract.page_error", "path", path, "page", n, "error", err)
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	}
	res.Text = b.String()

	e.logger.Info("document.extract.ok",
		"path", path,
		"total_pages", res.TotalPages,
		"kept_pages", res.TrimmedPages,
		"text_bytes", len(res.Text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// pageText extracts plain text from a single page using its font map.
func pageText(page pdf.Page) (string, error) {
	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	return page.GetPlainText(fonts)
}
