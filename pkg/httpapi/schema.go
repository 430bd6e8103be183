package httpapi

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// requestSchema checks the shape of inbound requests. Semantic checks (roles,
// empty history, supported actions) are left to the dispatcher so HTTP and
// WebSocket clients get the same errors.
const requestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "messages": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["role", "content"],
        "properties": {
          "role": {"type": "string"},
          "content": {"type": "string"}
        }
      }
    },
    "modelId": {"type": "string"},
    "mode": {"type": "string"},
    "sessionId": {"type": "string"},
    "action": {"type": "string"},
    "projectData": {"type": "object"}
  }
}`

var requestSchemaLoader = gojsonschema.NewStringLoader(requestSchema)

// SchemaError lists every schema violation of a request body
type SchemaError struct {
	Details []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("request does not match schema: %d violation(s)", len(e.Details))
}

// validateRequest checks body against requestSchema. A body that is not
// JSON at all is reported as a single violation.
func validateRequest(body []byte) error {
	result, err := gojsonschema.Validate(requestSchemaLoader, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &SchemaError{Details: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &SchemaError{Details: details}
}
