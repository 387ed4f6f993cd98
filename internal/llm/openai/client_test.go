package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brstatements/fatura-extractor/internal/common"
)

// completionServer fakes the chat-completions endpoint, answering every call
// with the given message content.
func completionServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: baseURL}, nil)
}

func TestFormatStatement(t *testing.T) {
	srv := completionServer(t, "  07/06KABUM             12/12408,00\n  ", http.StatusOK)
	defer srv.Close()

	out, err := newTestClient(srv.URL).FormatStatement(context.Background(), "texto normalizado")
	require.NoError(t, err)
	assert.Equal(t, "07/06KABUM             12/12408,00", out)
}

func TestExtractBatch(t *testing.T) {
	srv := completionServer(t,
		`{"data":["07/06"],"estabelecimento":["KABUM"],"valor":["408,00"],"N_de_parcela":["12/12"]}`,
		http.StatusOK)
	defer srv.Close()

	batch, err := newTestClient(srv.URL).ExtractBatch(context.Background(), "texto")
	require.NoError(t, err)
	require.Equal(t, 1, batch.Len())
	assert.Equal(t, "KABUM", batch.Merchants[0])
}

func TestExtractBatchRepairsTruncatedJSON(t *testing.T) {
	srv := completionServer(t,
		`{"data":["07/06"],"estabelecimento":["KABUM"],"valor":["408,00"],"N_de_parcela":["12/12"]`,
		http.StatusOK)
	defer srv.Close()

	batch, err := newTestClient(srv.URL).ExtractBatch(context.Background(), "texto")
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Len())
}

func TestExtractBatchProseIsMalformedOutput(t *testing.T) {
	srv := completionServer(t, "não consegui extrair os dados", http.StatusOK)
	defer srv.Close()

	batch, err := newTestClient(srv.URL).ExtractBatch(context.Background(), "texto")
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, common.ErrMalformedOutput)
}

func TestExtractBatchServerErrorIsServiceError(t *testing.T) {
	srv := completionServer(t, "", http.StatusInternalServerError)
	defer srv.Close()

	batch, err := newTestClient(srv.URL).ExtractBatch(context.Background(), "texto")
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, common.ErrExtractionService)
	assert.NotErrorIs(t, err, common.ErrMalformedOutput)
}

func TestFormatStatementEmptyContentIsServiceError(t *testing.T) {
	srv := completionServer(t, "   ", http.StatusOK)
	defer srv.Close()

	out, err := newTestClient(srv.URL).FormatStatement(context.Background(), "texto")
	assert.Empty(t, out)
	assert.ErrorIs(t, err, common.ErrExtractionService)
}
