package llm

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/brstatements/fatura-extractor/internal/common"
)

// MaxRepairAttempts bounds how often a RepairStrategy is applied to a
// malformed payload before the batch is declared unusable.
const MaxRepairAttempts = 1

// RepairStrategy amends a malformed service payload before a retry parse.
// Strategies must be cheap and deterministic; they never call the service.
type RepairStrategy func(raw string) string

// AppendClosingBrace recovers responses truncated right before the final
// brace, the one malformation the service produces in practice.
func AppendClosingBrace(raw string) string {
	return raw + "}"
}

// DecodeBatch turns a raw service response into a validated StatementBatch.
// The payload is trimmed, parsed as JSON (with up to MaxRepairAttempts
// applications of repair when the initial parse fails), checked against the
// four-array schema and the equal-length invariant. On any content failure
// the result is nil and common.ErrMalformedOutput — never a partial batch.
func DecodeBatch(raw string, repair RepairStrategy, logger *slog.Logger) (*StatementBatch, error) {
	if logger == nil {
		logger = slog.Default()
	}

	payload := strings.TrimSpace(raw)
	if !json.Valid([]byte(payload)) {
		repaired := payload
		ok := false
		if repair != nil {
			for i := 0; i < MaxRepairAttempts; i++ {
				repaired = repair(repaired)
				if json.Valid([]byte(repaired)) {
					ok = true
					break
				}
			}
		}
		if !ok {
			logger.Error("llm.decode.unparsable", "payload_bytes", len(payload))
			return nil, common.WrapError(common.ErrMalformedOutput, "response is not valid json after repair")
		}
		logger.Warn("llm.decode.repair_applied", "payload_bytes", len(payload))
		payload = repaired
	}

	if err := ValidateBatchJSON([]byte(payload)); err != nil {
		logger.Error("llm.decode.schema_violation", "error", err)
		return nil, common.WrapError(common.ErrMalformedOutput, err.Error())
	}

	var batch StatementBatch
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		return nil, common.WrapError(common.ErrMalformedOutput, err.Error())
	}
	if err := batch.Validate(); err != nil {
		logger.Error("llm.decode.length_mismatch", "error", err)
		return nil, err
	}
	return &batch, nil
}
