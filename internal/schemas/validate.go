// Package schemas validates request documents against the embedded JSON
// Schema before they are decoded.
package schemas

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed request.schema.json
var requestSchema string

// ValidationError lists every schema violation of a document.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single violation at a field path.
type FieldError struct {
	Field   string
	Message string
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("request validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// SchemaLoadError means the schema or document could not be loaded at all,
// for example because the document is not JSON.
type SchemaLoadError struct {
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

// RequestSchema returns the request schema document.
func RequestSchema() string {
	return requestSchema
}

// ValidateRequest validates a request document.
func ValidateRequest(data []byte) error {
	return validate(gojsonschema.NewStringLoader(requestSchema), gojsonschema.NewBytesLoader(data))
}

// ValidateJSONString validates JSON content against schema content.
func ValidateJSONString(schemaContent, jsonContent string) error {
	return validate(gojsonschema.NewStringLoader(schemaContent), gojsonschema.NewStringLoader(jsonContent))
}

func validate(schema, document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(schema, document)
	if err != nil {
		return &SchemaLoadError{Message: "schema validation failed during load", Cause: err}
	}
	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
