package sheet

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/llm"
)

// headerRow is written exactly once, only when the worksheet is empty at
// write time.
var headerRow = []string{"Data", "Estabelecimento", "Valor", "N_de_Parcelas"}

// Sink appends statement batches to a persistent XLSX planilha. The target
// file must already exist; the sink never creates it from scratch. Appends
// against the same path are serialized through a per-path mutex, since
// "read current row count, then write" is not atomic on a shared file.
type Sink struct {
	logger *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSink(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger, locks: make(map[string]*sync.Mutex)}
}

func (s *Sink) pathLock(path string) *sync.Mutex {
	key := filepath.Clean(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}

// Append opens the spreadsheet at path, writes the header row if the first
// worksheet has no rows yet, then appends one row per record in batch order
// and saves the file in place. Returns the number of appended rows. Any
// open/read/save problem maps to common.ErrSpreadsheetAccess.
func (s *Sink) Append(ctx context.Context, path string, batch *llm.StatementBatch) (int, error) {
	start := time.Now()

	if err := batch.Validate(); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	lock := s.pathLock(path)
	lock.Lock()
	defer lock.Unlock()

	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, common.WrapError(common.ErrSpreadsheetAccess, fmt.Sprintf("open %s: %v", path, err))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("sheet.append.close_error", "path", path, "error", cerr)
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return 0, common.WrapError(common.ErrSpreadsheetAccess, fmt.Sprintf("%s has no worksheet", path))
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return 0, common.WrapError(common.ErrSpreadsheetAccess, fmt.Sprintf("read rows of %s: %v", path, err))
	}

	next := len(rows) + 1
	headerWritten := false
	if len(rows) == 0 {
		if err := writeRow(f, sheetName, 1, headerRow); err != nil {
			return 0, common.WrapError(common.ErrSpreadsheetAccess, err.Error())
		}
		next = 2
		headerWritten = true
	}

	recs := batch.Records()
	for _, r := range recs {
		if err := writeRow(f, sheetName, next, []string{r.Date, r.Merchant, r.Amount, r.Installment}); err != nil {
			return 0, common.WrapError(common.ErrSpreadsheetAccess, err.Error())
		}
		next++
	}

	if err := f.Save(); err != nil {
		return 0, common.WrapError(common.ErrSpreadsheetAccess, fmt.Sprintf("save %s: %v", path, err))
	}

	s.logger.Info("sheet.append.ok",
		"path", path,
		"sheet", sheetName,
		"rows", len(recs),
		"header_written", headerWritten,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return len(recs), nil
}

func writeRow(f *excelize.File, sheetName string, row int, values []string) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("cell name (%d,%d): %w", i+1, row, err)
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	return nil
}
