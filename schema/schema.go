// Package schema provides JSON Schema building and validation utilities.
//
// # Quick Start
//
//	raw := schema.Object(map[string]*schema.Property{
//	    "level":  schema.String("Minimum log level").Enum("debug", "info", "warn", "error"),
//	    "stages": schema.Map("Stage per tap name", schema.Integer("Stage").Raw()),
//	}, "level") // "level" is required
//
//	s := schema.MustCompile(schema.Closed(raw))
//	err := s.Validate(data)
//
// The config package validates configuration files this way before decoding
// them. See [Object], [Property], and individual builder functions for
// detailed documentation.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema represents a JSON Schema definition.
// It provides both the raw map representation (for serialization)
// and a compiled validator (for runtime validation).
type Schema struct {
	raw      map[string]any
	compiled *jsonschema.Schema
}

// Raw returns the underlying map[string]any representation.
func (s *Schema) Raw() map[string]any {
	if s == nil {
		return nil
	}
	return s.raw
}

// Validate validates the given data against the schema.
// Returns nil if valid, or an error describing the validation failure.
func (s *Schema) Validate(data map[string]any) error {
	if s == nil || s.compiled == nil {
		return nil
	}
	err := s.compiled.Validate(data)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError wraps a JSON Schema validation error with a cleaner message.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Compile compiles a raw schema map into a Schema with a compiled validator.
// Returns an error if the schema is invalid.
func Compile(raw map[string]any) (*Schema, error) {
	if raw == nil {
		return nil, nil
	}

	// Marshal the schema to JSON for the compiler
	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	// Unmarshal into the format expected by jsonschema
	schemaData, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	// Compile the schema
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return &Schema{
		raw:      raw,
		compiled: compiled,
	}, nil
}

// MustCompile is like Compile but panics on error.
// Use this for schemas defined at init time.
func MustCompile(raw map[string]any) *Schema {
	s, err := Compile(raw)
	if err != nil {
		panic(err)
	}
	return s
}

// -----------------------------------------------------------------------------
// Schema Builders
// -----------------------------------------------------------------------------

// Object creates an object schema with the given properties.
// Pass property names as variadic arguments to mark them as required.
//
// Example:
//
//	// All properties optional
//	schema.Object(map[string]*schema.Property{
//	    "log":      schema.Nested("Logging", logProps),
//	    "parallel": schema.Nested("Parallel hooks", parallelProps),
//	})
//
//	// "hook" is required
//	schema.Object(map[string]*schema.Property{
//	    "hook":  schema.String("Hook name"),
//	    "stage": schema.Integer("Stage"),
//	}, "hook")
func Object(properties map[string]*Property, required ...string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}

	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

// Property represents a property in an object schema.
type Property struct {
	typ         string
	description string
	enum        []any
	minimum     *float64
	maximum     *float64
	properties  map[string]any
	required    []string
	additional  any
	def         any // default value
}

func (p *Property) build() map[string]any {
	m := map[string]any{}

	if p.typ != "" {
		m["type"] = p.typ
	}
	if p.description != "" {
		m["description"] = p.description
	}
	if len(p.enum) > 0 {
		m["enum"] = p.enum
	}
	if p.minimum != nil {
		m["minimum"] = *p.minimum
	}
	if p.maximum != nil {
		m["maximum"] = *p.maximum
	}
	if p.properties != nil {
		m["properties"] = p.properties
	}
	if len(p.required) > 0 {
		m["required"] = p.required
	}
	if p.additional != nil {
		m["additionalProperties"] = p.additional
	}
	if p.def != nil {
		m["default"] = p.def
	}

	return m
}

// Raw returns the property as a standalone schema map.
func (p *Property) Raw() map[string]any {
	return p.build()
}

// Closed marks an object schema as rejecting unknown properties and returns
// it.
//
// Example:
//
//	schema.Closed(schema.Object(map[string]*schema.Property{
//	    "format": schema.String("Output format"),
//	}))
func Closed(object map[string]any) map[string]any {
	object["additionalProperties"] = false
	return object
}

// Nested creates an object property with its own properties. Unknown
// properties are rejected.
//
// Example:
//
//	schema.Nested("Logging options", map[string]*schema.Property{
//	    "level": schema.String("Minimum level"),
//	})
func Nested(description string, properties map[string]*Property, required ...string) *Property {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}
	return &Property{
		typ:         "object",
		description: description,
		properties:  props,
		required:    required,
		additional:  false,
	}
}

// Map creates an object property whose keys are free-form and whose values
// all match the values schema.
//
// Example:
//
//	// hook name -> tap name -> stage
//	schema.Map("Stage overrides", schema.Map("Per hook", schema.Integer("Stage").Raw()).Raw())
func Map(description string, values map[string]any) *Property {
	return &Property{typ: "object", description: description, additional: values}
}

// String creates a string property.
//
// Example:
//
//	schema.String("Hook name")
//	schema.String("Format").Enum("text", "json")
func String(description string) *Property {
	return &Property{typ: "string", description: description}
}

// Integer creates an integer property.
//
// Example:
//
//	schema.Integer("Stage")
//	schema.Integer("Max concurrency").Min(0)
func Integer(description string) *Property {
	return &Property{typ: "integer", description: description}
}

// Boolean creates a boolean property.
//
// Example:
//
//	schema.Boolean("Enable metrics").Default(false)
func Boolean(description string) *Property {
	return &Property{typ: "boolean", description: description}
}

// Enum sets allowed values for the property.
//
// Example:
//
//	schema.String("Level").Enum("debug", "info", "warn", "error")
func (p *Property) Enum(values ...any) *Property {
	p.enum = values
	return p
}

// Min sets the minimum value for number/integer properties.
//
// Example:
//
//	schema.Integer("Max concurrency").Min(0)
func (p *Property) Min(min float64) *Property {
	p.minimum = &min
	return p
}

// Max sets the maximum value for number/integer properties.
//
// Example:
//
//	schema.Integer("Workers").Min(1).Max(1024)
func (p *Property) Max(max float64) *Property {
	p.maximum = &max
	return p
}

// Default sets the default value for the property.
//
// Example:
//
//	schema.String("Format").Enum("text", "json").Default("text")
func (p *Property) Default(value any) *Property {
	p.def = value
	return p
}
