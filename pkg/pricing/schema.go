package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

var schemaReflector = jsonschema.Reflector{
	DoNotReference:            true,
	AllowAdditionalProperties: true,
}

// Schema returns the JSON Schema describing a pricing file.
func Schema() ([]byte, error) {
	schema := schemaReflector.Reflect(File{})
	schema.Title = "apicost model pricing"
	schema.Description = "Model name to token rates in USD per 1,000,000 tokens."
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pricing schema: %w", err)
	}
	return raw, nil
}
