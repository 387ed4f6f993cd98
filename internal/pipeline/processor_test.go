package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/document"
	"github.com/brstatements/fatura-extractor/internal/history"
	"github.com/brstatements/fatura-extractor/internal/llm"
	"github.com/brstatements/fatura-extractor/internal/sheet"
)

type fakeExtractor struct {
	res    document.ExtractionResult
	err    error
	policy document.TrimPolicy
}

func (f *fakeExtractor) ExtractTrimmed(_ context.Context, _ string, policy document.TrimPolicy) (document.ExtractionResult, error) {
	f.policy = policy
	return f.res, f.err
}

type fakeFormatter struct {
	got    string
	called int
}

func (f *fakeFormatter) FormatStatement(_ context.Context, text string) (string, error) {
	f.got = text
	f.called++
	return text, nil
}

type fakeBatcher struct {
	got   string
	batch *llm.StatementBatch
	err   error
}

func (f *fakeBatcher) ExtractBatch(_ context.Context, text string) (*llm.StatementBatch, error) {
	f.got = text
	return f.batch, f.err
}

type fakeRecorder struct {
	entries []history.Entry
}

func (f *fakeRecorder) Record(_ context.Context, e history.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

func newEmptySheet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planilha.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestProcessEndToEnd(t *testing.T) {
	sheetPath := newEmptySheet(t)

	extractor := &fakeExtractor{res: document.ExtractionResult{
		Text:         "07/06KABUM             12/12408,00",
		TotalPages:   6,
		TrimmedPages: 3,
	}}
	formatter := &fakeFormatter{}
	batcher := &fakeBatcher{batch: &llm.StatementBatch{
		Dates:        []string{"07/06"},
		Merchants:    []string{"KABUM"},
		Amounts:      []string{"408,00"},
		Installments: []string{"12/12"},
	}}
	recorder := &fakeRecorder{}

	p := NewProcessor(nil, extractor, formatter, batcher, sheet.NewSink(nil), recorder, Config{
		SpreadsheetPath: sheetPath,
		FormatPrePass:   true,
	})

	batch, err := p.Process(context.Background(), "/tmp/fatura-junho.pdf")
	require.NoError(t, err)
	require.NotNil(t, batch)
	assert.Equal(t, 1, batch.Len())

	// Defaulted trim policy reached the extractor.
	assert.Equal(t, document.DefaultTrimPolicy, extractor.policy)

	// Formatter ran exactly once on the normalized text.
	assert.Equal(t, 1, formatter.called)
	assert.Equal(t, "07/06KABUM             12/12408,00", batcher.got)

	// Row 1 is the header, row 2 the KABUM record.
	f, err := excelize.OpenFile(sheetPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Data", "Estabelecimento", "Valor", "N_de_Parcelas"}, rows[0])
	assert.Equal(t, []string{"07/06", "KABUM", "408,00", "12/12"}, rows[1])

	// Success recorded in history.
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, history.StatusOK, recorder.entries[0].Status)
	assert.Equal(t, 1, recorder.entries[0].Records)
	assert.Equal(t, 6, recorder.entries[0].TotalPages)
	assert.Equal(t, "fatura-junho.pdf", recorder.entries[0].SourceFile)
}

func TestProcessNormalizesExactlyOnce(t *testing.T) {
	sheetPath := newEmptySheet(t)

	extractor := &fakeExtractor{res: document.ExtractionResult{Text: "A\nB\nC", TotalPages: 6, TrimmedPages: 3}}
	formatter := &fakeFormatter{}
	batcher := &fakeBatcher{batch: &llm.StatementBatch{}}

	p := NewProcessor(nil, extractor, formatter, batcher, sheet.NewSink(nil), nil, Config{
		SpreadsheetPath: sheetPath,
		FormatPrePass:   true,
	})

	_, err := p.Process(context.Background(), "fatura.pdf")
	require.NoError(t, err)
	assert.Equal(t, "A\n\nB\n\nC", formatter.got)
}

func TestProcessSkipsFormatterWhenDisabled(t *testing.T) {
	sheetPath := newEmptySheet(t)

	extractor := &fakeExtractor{res: document.ExtractionResult{Text: "A\nB", TotalPages: 5, TrimmedPages: 2}}
	formatter := &fakeFormatter{}
	batcher := &fakeBatcher{batch: &llm.StatementBatch{}}

	p := NewProcessor(nil, extractor, formatter, batcher, sheet.NewSink(nil), nil, Config{
		SpreadsheetPath: sheetPath,
		FormatPrePass:   false,
	})

	_, err := p.Process(context.Background(), "fatura.pdf")
	require.NoError(t, err)
	assert.Zero(t, formatter.called)
	assert.Equal(t, "A\n\nB", batcher.got)
}

func TestProcessMalformedOutputLeavesSheetUntouched(t *testing.T) {
	sheetPath := newEmptySheet(t)
	before, err := os.ReadFile(sheetPath)
	require.NoError(t, err)

	extractor := &fakeExtractor{res: document.ExtractionResult{Text: "texto", TotalPages: 6, TrimmedPages: 3}}
	batcher := &fakeBatcher{err: common.WrapError(common.ErrMalformedOutput, "prose instead of json")}
	recorder := &fakeRecorder{}

	p := NewProcessor(nil, extractor, nil, batcher, sheet.NewSink(nil), recorder, Config{
		SpreadsheetPath: sheetPath,
		FormatPrePass:   false,
	})

	batch, err := p.Process(context.Background(), "fatura.pdf")
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, common.ErrMalformedOutput)

	after, err := os.ReadFile(sheetPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "spreadsheet must be byte-for-byte unchanged")

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, history.StatusFailed, recorder.entries[0].Status)
	assert.NotEmpty(t, recorder.entries[0].Error)
}

func TestProcessTrimFailurePropagates(t *testing.T) {
	extractor := &fakeExtractor{err: common.WrapError(common.ErrInsufficientPages, "4 pages")}
	recorder := &fakeRecorder{}

	p := NewProcessor(nil, extractor, nil, &fakeBatcher{}, sheet.NewSink(nil), recorder, Config{
		SpreadsheetPath: "unused.xlsx",
	})

	_, err := p.Process(context.Background(), "curta.pdf")
	assert.ErrorIs(t, err, common.ErrInsufficientPages)

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, history.StatusFailed, recorder.entries[0].Status)
}
