package executor

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// inputSchemas are the per-block-type JSON Schemas input maps must satisfy
// before a request reaches Execute. They check shape (required keys,
// string typing) ahead of requireFields so a malformed request is rejected
// uniformly across block types, not per-executor.
var inputSchemas = map[string]string{
	"http.request": `{
		"type": "object",
		"required": ["url", "method"],
		"properties": {
			"url": {"type": "string", "minLength": 1},
			"method": {"type": "string", "enum": ["GET", "POST", "PUT", "DELETE", "get", "post", "put", "delete"]}
		}
	}`,
	"fs.blob_put": `{
		"type": "object",
		"required": ["path", "content"],
		"properties": {
			"path": {"type": "string", "minLength": 1}
		}
	}`,
	"fs.blob_get": `{
		"type": "object",
		"required": ["path"],
		"properties": {
			"path": {"type": "string", "minLength": 1}
		}
	}`,
	"sql.query": `{
		"type": "object",
		"required": ["query"],
		"properties": {
			"query": {"type": "string", "minLength": 1}
		}
	}`,
	"human.approval": `{
		"type": "object",
		"required": ["approval_type", "description"],
		"properties": {
			"approval_type": {"type": "string", "minLength": 1},
			"description": {"type": "string", "minLength": 1}
		}
	}`,
}

var compiledSchemas = map[string]*gojsonschema.Schema{}

func init() {
	for blockType, raw := range inputSchemas {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(fmt.Sprintf("executor: invalid input schema for %s: %v", blockType, err))
		}

		compiledSchemas[blockType] = schema
	}
}

// ValidateInputs checks inputs against blockType's JSON Schema, if one is
// registered. Block types without a schema (custom/unregistered executors)
// pass through unchecked. It returns a human-readable summary of every
// violation on failure.
func ValidateInputs(blockType string, inputs map[string]string) error {
	schema, ok := compiledSchemas[blockType]
	if !ok {
		return nil
	}

	document := make(map[string]any, len(inputs))
	for k, v := range inputs {
		document[k] = v
	}

	payload, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("executor: marshal inputs for schema check: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return fmt.Errorf("executor: validate inputs: %w", err)
	}

	if result.Valid() {
		return nil
	}

	summary := ""
	for i, e := range result.Errors() {
		if i > 0 {
			summary += "; "
		}
		summary += e.String()
	}

	return fmt.Errorf("executor: inputs fail schema for %s: %s", blockType, summary)
}
