// Package typemap translates vendor type names from documentation tables
// into OpenAPI type/format pairs.
//
// Vendor type text is inconsistent (mixed case, qualifiers, ad hoc array
// syntax), so MapType layers its rules: an exact dictionary for clean tokens,
// then bracket and nullable syntax, then substring heuristics, and finally
// "string". It never rejects input.
package typemap

import (
	"strings"

	"apiweaver/internal/apierr"
	"apiweaver/internal/extract"
)

// OpenAPI primitive types.
const (
	TypeString  = "string"
	TypeInteger = "integer"
	TypeNumber  = "number"
	TypeBoolean = "boolean"
	TypeArray   = "array"
	TypeObject  = "object"
)

type mapping struct {
	typ, format string
}

// dictionary is consulted with the trimmed token, case-sensitively.
// Read-only after init.
var dictionary = map[string]mapping{
	"string": {TypeString, ""}, "String": {TypeString, ""},
	"text": {TypeString, ""}, "Text": {TypeString, ""},

	"integer": {TypeInteger, ""}, "Integer": {TypeInteger, ""},
	"int": {TypeInteger, "int32"}, "Int": {TypeInteger, "int32"},
	"long": {TypeInteger, "int64"}, "Long": {TypeInteger, "int64"},

	"number": {TypeNumber, ""}, "Number": {TypeNumber, ""},
	"decimal": {TypeNumber, ""}, "Decimal": {TypeNumber, ""},
	"float": {TypeNumber, "float"}, "Float": {TypeNumber, "float"},
	"double": {TypeNumber, "double"}, "Double": {TypeNumber, "double"},

	"boolean": {TypeBoolean, ""}, "Boolean": {TypeBoolean, ""},
	"bool": {TypeBoolean, ""}, "Bool": {TypeBoolean, ""},

	"date": {TypeString, "date"}, "Date": {TypeString, "date"},
	"datetime": {TypeString, "date-time"}, "DateTime": {TypeString, "date-time"},
	"timestamp": {TypeString, "date-time"}, "Timestamp": {TypeString, "date-time"},

	"array": {TypeArray, ""}, "Array": {TypeArray, ""},
	"list": {TypeArray, ""}, "List": {TypeArray, ""},

	"object": {TypeObject, ""}, "Object": {TypeObject, ""},

	"id": {TypeInteger, "int64"}, "ID": {TypeInteger, "int64"},
	"uuid": {TypeString, "uuid"}, "UUID": {TypeString, "uuid"},
	"email": {TypeString, "email"}, "Email": {TypeString, "email"},
	"url": {TypeString, "uri"}, "URL": {TypeString, "uri"},
	"uri": {TypeString, "uri"}, "URI": {TypeString, "uri"},
}

// fallbacks are checked in order against the lower-cased token.
var fallbacks = []struct {
	needles []string
	typ     string
}{
	{[]string{"string", "text"}, TypeString},
	{[]string{"int", "long"}, TypeInteger},
	{[]string{"float", "double", "decimal"}, TypeNumber},
	{[]string{"bool"}, TypeBoolean},
	{[]string{"date", "time"}, TypeString},
	{[]string{"array", "list"}, TypeArray},
	{[]string{"object"}, TypeObject},
}

// MapType returns the OpenAPI type and format for a vendor type token.
// An empty format means none applies.
//
// Rules, first match wins:
//  1. blank: string
//  2. exact dictionary entry (trimmed, case-sensitive)
//  3. "[]" or a "[" ... "]" pair anywhere: array. This also catches
//     wrappers such as Optional[X].
//  4. trailing "?": the rules applied to the token without it
//  5. case-insensitive substring heuristics, type only
//  6. string
func MapType(token string) (typ, format string) {
	t := strings.TrimSpace(token)
	if t == "" {
		return TypeString, ""
	}

	if m, ok := dictionary[t]; ok {
		return m.typ, m.format
	}

	if strings.Contains(t, "[]") || (strings.Contains(t, "[") && strings.Contains(t, "]")) {
		return TypeArray, ""
	}

	if base, ok := strings.CutSuffix(t, "?"); ok {
		return MapType(base)
	}

	lower := strings.ToLower(t)
	for _, fb := range fallbacks {
		for _, n := range fb.needles {
			if strings.Contains(lower, n) {
				return fb.typ, ""
			}
		}
	}

	return TypeString, ""
}

// OpenAPIProperty is a property ready to be placed in a schema.
type OpenAPIProperty struct {
	Name     string
	Type     string
	Format   string // empty when none applies
	Required bool
	ReadOnly bool
	// Description is carried through unchanged from the table.
	Description string
}

// Valid reports whether name and type are set.
func (p OpenAPIProperty) Valid() bool {
	return p.Name != "" && p.Type != ""
}

// ToOpenAPIProperty maps one extracted definition. A nil or invalid
// definition is a caller bug and is reported as a mapping error.
func ToOpenAPIProperty(def *extract.PropertyDefinition) (OpenAPIProperty, error) {
	if def == nil {
		return OpenAPIProperty{}, apierr.New(apierr.KindMapping, "map", "", "property definition is nil")
	}
	if !def.Valid() {
		return OpenAPIProperty{}, apierr.New(apierr.KindMapping, "map", def.String(), "property definition is not valid")
	}

	typ, format := MapType(def.Type)
	return OpenAPIProperty{
		Name:        def.Name,
		Type:        typ,
		Format:      format,
		Required:    def.Required,
		ReadOnly:    !def.Writable,
		Description: def.Description,
	}, nil
}

// Mapper adapts ToOpenAPIProperty to the pipeline's mapper interface.
type Mapper struct{}

// ToOpenAPIProperty implements the pipeline's property mapper.
func (Mapper) ToOpenAPIProperty(def *extract.PropertyDefinition) (OpenAPIProperty, error) {
	return ToOpenAPIProperty(def)
}

// MapAll maps defs in order and stops at the first invalid definition.
func MapAll(defs []extract.PropertyDefinition) ([]OpenAPIProperty, error) {
	out := make([]OpenAPIProperty, 0, len(defs))
	for i := range defs {
		p, err := ToOpenAPIProperty(&defs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
