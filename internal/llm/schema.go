package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildBatchJSONSchema returns the JSON-Schema (draft 2020-12 subset) for the
// structured-extraction response: one object with exactly four string arrays.
// Equal lengths cannot be expressed in JSON Schema, so StatementBatch.Validate
// covers that separately.
func BuildBatchJSONSchema() map[string]any {
	stringArray := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"data":            stringArray,
			"estabelecimento": stringArray,
			"valor":           stringArray,
			"N_de_parcela":    stringArray,
		},
		"required": []string{"data", "estabelecimento", "valor", "N_de_parcela"},
	}
}

// ValidateBatchJSON validates data against the batch schema.
func ValidateBatchJSON(data []byte) error {
	b, err := json.Marshal(BuildBatchJSONSchema())
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("batch.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("batch.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match batch schema: %w", err)
	}
	return nil
}
