package genai

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

// Type is the value type of a schema node.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema is a first-class descriptor for the shape of a structured
// generation response. One descriptor serves both sides of a call: it is
// sent upstream as the response schema constraining the model, and compiled
// locally to validate what actually came back.
type Schema struct {
	Type        Type
	Description string
	Properties  map[string]*Schema
	Required    []string
	Items       *Schema
	Enum        []string

	// Array cardinality bounds. Zero means unbounded.
	MinItems int
	MaxItems int
}

// wire renders the descriptor in the upstream response-schema format
// (an OpenAPI subset with upper-case type names).
func (s *Schema) wire() map[string]any {
	doc := map[string]any{"type": strings.ToUpper(string(s.Type))}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.wire()
		}
		doc["properties"] = props
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if s.Items != nil {
		doc["items"] = s.Items.wire()
	}
	if len(s.Enum) > 0 {
		doc["enum"] = s.Enum
	}
	if s.MinItems > 0 {
		doc["minItems"] = s.MinItems
	}
	if s.MaxItems > 0 {
		doc["maxItems"] = s.MaxItems
	}
	return doc
}

// jsonSchema renders the descriptor as a standard JSON Schema document for
// local validation of the parsed response.
func (s *Schema) jsonSchema() map[string]any {
	doc := map[string]any{"type": string(s.Type)}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.jsonSchema()
		}
		doc["properties"] = props
	}
	if len(s.Required) > 0 {
		req := make([]any, len(s.Required))
		for i, r := range s.Required {
			req[i] = r
		}
		doc["required"] = req
	}
	if s.Items != nil {
		doc["items"] = s.Items.jsonSchema()
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, e := range s.Enum {
			enum[i] = e
		}
		doc["enum"] = enum
	}
	if s.MinItems > 0 {
		doc["minItems"] = float64(s.MinItems)
	}
	if s.MaxItems > 0 {
		doc["maxItems"] = float64(s.MaxItems)
	}
	return doc
}

// compile builds a validator from the descriptor.
func (s *Schema) compile() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("response.schema.json", s.jsonSchema()); err != nil {
		return nil, fmt.Errorf("adding response schema resource: %w", err)
	}
	sch, err := compiler.Compile("response.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling response schema: %w", err)
	}
	return sch, nil
}

// validate checks a parsed response document against the descriptor and
// returns one message per violation.
func (s *Schema) validate(instance any) ([]string, error) {
	sch, err := s.compile()
	if err != nil {
		return nil, err
	}
	verr := sch.Validate(instance)
	if verr == nil {
		return nil, nil
	}
	ve, ok := verr.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", verr)}, nil
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs, nil
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
