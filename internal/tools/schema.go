package tools

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects a parameter struct into a JSON schema object
// suitable for a function tool definition. Required fields are taken
// from `jsonschema:"required"` tags.
func GenerateSchema[T any]() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	// Strip reflector metadata the completions API rejects.
	delete(m, "$schema")
	delete(m, "$id")
	return m, nil
}

// mustSchema panics on reflection failure. Builtin parameter structs
// are fixed at compile time, so a failure here is a programming error.
func mustSchema[T any]() map[string]any {
	m, err := GenerateSchema[T]()
	if err != nil {
		panic(err)
	}
	return m
}
