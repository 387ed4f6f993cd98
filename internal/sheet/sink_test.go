package sheet

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/brstatements/fatura-extractor/internal/common"
	"github.com/brstatements/fatura-extractor/internal/llm"
)

func newEmptySheet(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planilha.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}

func sampleBatch() *llm.StatementBatch {
	return &llm.StatementBatch{
		Dates:        []string{"07/06"},
		Merchants:    []string{"KABUM"},
		Amounts:      []string{"408,00"},
		Installments: []string{"12/12"},
	}
}

func TestAppendWritesHeaderOnEmptySheet(t *testing.T) {
	path := newEmptySheet(t)
	sink := NewSink(nil)

	n, err := sink.Append(context.Background(), path, sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Data", "Estabelecimento", "Valor", "N_de_Parcelas"}, rows[0])
	assert.Equal(t, []string{"07/06", "KABUM", "408,00", "12/12"}, rows[1])
}

func TestAppendDoesNotDuplicateHeader(t *testing.T) {
	path := newEmptySheet(t)
	sink := NewSink(nil)

	_, err := sink.Append(context.Background(), path, sampleBatch())
	require.NoError(t, err)

	second := &llm.StatementBatch{
		Dates:        []string{"09/06", "10/06"},
		Merchants:    []string{"PADARIA DO ZE", "POSTO SHELL"},
		Amounts:      []string{"15,50", "200,00"},
		Installments: []string{"0/0", "0/0"},
	}
	n, err := sink.Append(context.Background(), path, second)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Data", "Estabelecimento", "Valor", "N_de_Parcelas"}, rows[0])
	assert.Equal(t, []string{"09/06", "PADARIA DO ZE", "15,50", "0/0"}, rows[2])
	assert.Equal(t, []string{"10/06", "POSTO SHELL", "200,00", "0/0"}, rows[3])
}

func TestAppendMissingFileFails(t *testing.T) {
	sink := NewSink(nil)

	n, err := sink.Append(context.Background(), filepath.Join(t.TempDir(), "nope.xlsx"), sampleBatch())
	assert.Zero(t, n)
	assert.ErrorIs(t, err, common.ErrSpreadsheetAccess)
}

func TestAppendRejectsMismatchedBatch(t *testing.T) {
	path := newEmptySheet(t)
	sink := NewSink(nil)

	bad := &llm.StatementBatch{
		Dates:        []string{"07/06", "09/06"},
		Merchants:    []string{"KABUM"},
		Amounts:      []string{"408,00"},
		Installments: []string{"12/12"},
	}
	_, err := sink.Append(context.Background(), path, bad)
	assert.ErrorIs(t, err, common.ErrMalformedOutput)

	// Nothing written, not even the header.
	assert.Empty(t, readRows(t, path))
}

func TestAppendConcurrentSamePath(t *testing.T) {
	path := newEmptySheet(t)
	sink := NewSink(nil)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sink.Append(context.Background(), path, sampleBatch())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows := readRows(t, path)
	require.Len(t, rows, workers+1, "one header plus one row per worker")
	assert.Equal(t, []string{"Data", "Estabelecimento", "Valor", "N_de_Parcelas"}, rows[0])
}
