package openapi

import (
	"strings"
	"unicode/utf8"

	"apiweaver/internal/typemap"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultSchemaName is used when no name can be derived from the heading.
const DefaultSchemaName = "GeneratedObject"

// Info defaults for a Generator without Title or Version. OpenAPI requires
// both fields.
const (
	DefaultTitle   = "Generated API"
	DefaultVersion = "1.0.0"
)

// Generator builds one object schema per run and inserts it into a spec.
type Generator struct {
	// Title and Version fill info fields that are still empty. Empty values
	// fall back to DefaultTitle and DefaultVersion.
	Title   string
	Version string
	// Examples, when set, supplies an example value per property.
	Examples func(p typemap.OpenAPIProperty) any
	// Warnf reports non-fatal problems. May be nil.
	Warnf func(format string, args ...any)
}

// GenerateOrAmend inserts a schema named name built from props into
// existing, or into a new document when existing is nil. Schemas already
// present are kept; one with the same name is replaced.
func (g *Generator) GenerateOrAmend(name string, props []typemap.OpenAPIProperty, existing *Spec) *Spec {
	spec := existing
	if spec == nil {
		spec = NewSpec()
	}
	if spec.OpenAPI == "" {
		spec.OpenAPI = Version
	}
	if spec.Components.Schemas == nil {
		spec.Components.Schemas = map[string]*Schema{}
	}
	if spec.Info.Title == "" {
		spec.Info.Title = orDefault(g.Title, DefaultTitle)
	}
	if spec.Info.Version == "" {
		spec.Info.Version = orDefault(g.Version, DefaultVersion)
	}

	if name == "" {
		name = DefaultSchemaName
	}
	if _, ok := spec.Components.Schemas[name]; ok {
		g.warnf("replacing existing schema %q", name)
	}
	spec.Components.Schemas[name] = g.buildSchema(props)
	return spec
}

func (g *Generator) buildSchema(props []typemap.OpenAPIProperty) *Schema {
	s := &Schema{
		Type:       Types(typemap.TypeObject),
		Properties: make(map[string]*Property, len(props)),
	}
	for _, p := range props {
		if _, dup := s.Properties[p.Name]; dup {
			g.warnf("duplicate property %q, keeping the last definition", p.Name)
		}
		prop := &Property{
			Type:        Types(p.Type),
			Format:      p.Format,
			Description: p.Description,
			ReadOnly:    p.ReadOnly,
		}
		if g.Examples != nil {
			prop.Example = g.Examples(p)
		}
		s.Properties[p.Name] = prop
		if p.Required && !contains(s.Required, p.Name) {
			s.Required = append(s.Required, p.Name)
		}
	}
	return s
}

func (g *Generator) warnf(format string, args ...any) {
	if g.Warnf != nil {
		g.Warnf(format, args...)
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// SchemaNameFromHeadingID derives a schema name from a heading id:
// "userObjectValues" with suffix "ObjectValues" gives "User".
func SchemaNameFromHeadingID(id, suffix string) string {
	base := strings.TrimSpace(strings.TrimSuffix(id, suffix))
	if base == "" {
		return DefaultSchemaName
	}
	r, size := utf8.DecodeRuneInString(base)
	return cases.Upper(language.Und).String(string(r)) + base[size:]
}
