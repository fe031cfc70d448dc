// Package llm talks to hosted language models. Callers depend on the
// Generator interface; Gemini and Anthropic implement it.
package llm

import (
	"context"
	"errors"
)

// ErrDisabled is returned by Disabled for every request.
var ErrDisabled = errors.New("language model disabled")

// Request is one role-tagged prompt.
type Request struct {
	System string
	Prompt string
	// Schema, when set, asks for a JSON object of this shape.
	Schema *Schema
	// JSON asks for raw JSON output without a schema.
	JSON bool
}

// Generator produces text for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Disabled is a Generator that always fails, so callers take their fallback
// path.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (string, error) {
	return "", ErrDisabled
}

// FieldType is a JSON value type.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
)

// Field is one property of an object schema.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Enum        []string
	Nullable    bool
	Min, Max    *float64
}

// Schema is a flat JSON object schema; every field is required.
type Schema struct {
	Fields []Field
}
