package llm

import (
	"context"
	"fmt"

	"github.com/brstatements/fatura-extractor/internal/common"
)

// StatementBatch is the strict four-array shape the extraction service
// returns for one statement: index i across all four arrays describes one
// transaction. Field names mirror the wire contract of the service prompt.
type StatementBatch struct {
	Dates        []string `json:"data"`
	Merchants    []string `json:"estabelecimento"`
	Amounts      []string `json:"valor"`
	Installments []string `json:"N_de_parcela"`
}

// Record is one extracted transaction. Date keeps the source DD/MM format,
// Amount the locale-formatted decimal ("408,00"), Installment the "X/Y"
// fraction ("0/0" when the purchase has no installment plan).
type Record struct {
	Date        string
	Merchant    string
	Amount      string
	Installment string
}

// Len returns the number of transactions in the batch.
func (b *StatementBatch) Len() int {
	return len(b.Dates)
}

// Validate enforces the equal-length invariant. A batch with mismatched
// array lengths is unusable as a whole; no partial consumption is allowed.
func (b *StatementBatch) Validate() error {
	n := len(b.Dates)
	if len(b.Merchants) != n || len(b.Amounts) != n || len(b.Installments) != n {
		return fmt.Errorf("%w: array lengths differ (data=%d estabelecimento=%d valor=%d N_de_parcela=%d)",
			common.ErrMalformedOutput, n, len(b.Merchants), len(b.Amounts), len(b.Installments))
	}
	return nil
}

// Records flattens the batch into ordered transaction records.
// Callers must Validate first.
func (b *StatementBatch) Records() []Record {
	recs := make([]Record, 0, b.Len())
	for i := range b.Dates {
		recs = append(recs, Record{
			Date:        b.Dates[i],
			Merchant:    b.Merchants[i],
			Amount:      b.Amounts[i],
			Installment: b.Installments[i],
		})
	}
	return recs
}

// StatementFormatter is the optional pre-pass: normalized statement text in,
// cleaned transaction lines out. Prose only, no JSON expected.
type StatementFormatter interface {
	FormatStatement(ctx context.Context, text string) (string, error)
}

// BatchExtractor turns statement text into a validated StatementBatch.
// Implementations return common.ErrExtractionService for transport problems
// and common.ErrMalformedOutput when the response content is unusable.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, text string) (*StatementBatch, error)
}
