package jsonschema

import j "github.com/goccy/go-json"

// Draft is the dialect emitted by Document.
const Draft = "https://json-schema.org/draft/2020-12/schema"

// Schema is a minimal JSON Schema representation of serialized trees.
// It only carries the keywords a type descriptor can produce.
type Schema struct {
	// Core
	Schema  string `json:"$schema,omitempty"`
	Type    string `json:"type,omitempty"`
	Format  string `json:"format,omitempty"`
	Pattern string `json:"pattern,omitempty"`
	Enum    []any  `json:"enum,omitempty"`

	// Object
	PropertyNames        *Schema `json:"propertyNames,omitempty"`
	AdditionalProperties any     `json:"additionalProperties,omitempty"`

	// Array
	Items *Schema `json:"items,omitempty"`
}

// Document returns an indented JSON document for s with the $schema keyword
// set on a shallow copy.
func Document(s *Schema) ([]byte, error) {
	root := Schema{}
	if s != nil {
		root = *s
	}
	root.Schema = Draft
	return j.MarshalIndent(&root, "", "  ")
}
