package document

import (
	"fmt"

	"github.com/brstatements/fatura-extractor/internal/common"
)

// TrimPolicy is the fixed count of leading/trailing pages dropped before
// text extraction. Statement PDFs open with a cover page and close with
// two pages of installment forecasts and legal boilerplate.
type TrimPolicy struct {
	LeadingPages  int
	TrailingPages int
}

// DefaultTrimPolicy drops the first page and the last two.
var DefaultTrimPolicy = TrimPolicy{LeadingPages: 1, TrailingPages: 2}

// selectPages returns the 1-indexed page numbers that survive trimming,
// preserving original order. The document must have at least one content
// page beyond the margins plus one, so for the default policy totalPages
// must be strictly greater than 4.
func selectPages(totalPages int, policy TrimPolicy) ([]int, error) {
	if totalPages <= policy.LeadingPages+policy.TrailingPages+1 {
		return nil, fmt.Errorf("%w: %d pages, need more than %d",
			common.ErrInsufficientPages, totalPages, policy.LeadingPages+policy.TrailingPages+1)
	}
	pages := make([]int, 0, totalPages-policy.LeadingPages-policy.TrailingPages)
	for p := policy.LeadingPages + 1; p <= totalPages-policy.TrailingPages; p++ {
		pages = append(pages, p)
	}
	return pages, nil
}
