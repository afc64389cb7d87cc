// Package openapi holds the OpenAPI document model and the generator that
// creates or amends it from mapped table properties.
package openapi

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Version is the OpenAPI version written into new documents.
const Version = "3.1.1"

// Spec is the root of an OpenAPI document.
//
// Only the parts this tool writes are modelled. A document decoded for
// amending keeps its YAML nodes: keys that are not modelled (paths, servers,
// tags, ...) are written back as loaded and in their loaded order, and so are
// schemas that the run does not replace.
type Spec struct {
	OpenAPI    string     `yaml:"openapi"`
	Info       Info       `yaml:"info"`
	Components Components `yaml:"components"`

	node *yaml.Node
}

type Info struct {
	Title   string `yaml:"title,omitempty"`
	Version string `yaml:"version,omitempty"`

	node *yaml.Node
}

type Components struct {
	Schemas map[string]*Schema `yaml:"schemas"`

	node *yaml.Node
}

// Schema is an object schema. Required property names are listed in
// Required, in table order, and never on the property itself.
//
// A schema decoded from a document is written back from its loaded node,
// byte for byte; build a new Schema to change one.
type Schema struct {
	Type       SchemaType           `yaml:"type,omitempty"`
	Required   []string             `yaml:"required,omitempty"`
	Properties map[string]*Property `yaml:"properties,omitempty"`

	node *yaml.Node
}

// Property is one schema property. Like Schema, a decoded Property is
// written back as loaded.
type Property struct {
	Type        SchemaType `yaml:"type,omitempty"`
	Format      string     `yaml:"format,omitempty"`
	Description string     `yaml:"description,omitempty"`
	ReadOnly    bool       `yaml:"readOnly,omitempty"`
	Example     any        `yaml:"example,omitempty"`

	node *yaml.Node
}

// NewSpec returns an empty document: version set, empty info, no schemas.
func NewSpec() *Spec {
	return &Spec{
		OpenAPI:    Version,
		Components: Components{Schemas: map[string]*Schema{}},
	}
}

// SchemaNames returns the names of all schemas in the document.
func (s *Spec) SchemaNames() []string {
	names := make([]string, 0, len(s.Components.Schemas))
	for name := range s.Components.Schemas {
		names = append(names, name)
	}
	return names
}

// Field returns the loaded value of a top-level key, or nil when the
// document was not decoded or has no such key.
func (s *Spec) Field(key string) *yaml.Node {
	return mappingValue(s.node, key)
}

func (s *Spec) UnmarshalYAML(value *yaml.Node) error {
	type plain Spec
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Spec(p)
	s.node = value
	return nil
}

func (s Spec) MarshalYAML() (any, error) { return s.toNode() }

func (s Spec) toNode() (*yaml.Node, error) {
	info := s.Info.toNode()
	components, err := s.Components.toNode()
	if err != nil {
		return nil, err
	}
	return mergeMapping(s.node, true, []field{
		{"openapi", strNode(s.OpenAPI)},
		{"info", info},
		{"components", components},
	}), nil
}

func (i *Info) UnmarshalYAML(value *yaml.Node) error {
	type plain Info
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*i = Info(p)
	i.node = value
	return nil
}

func (i Info) MarshalYAML() (any, error) { return i.toNode(), nil }

func (i Info) toNode() *yaml.Node {
	var title, version *yaml.Node
	if i.Title != "" {
		title = strNode(i.Title)
	}
	if i.Version != "" {
		version = strNode(i.Version)
	}
	return mergeMapping(i.node, true, []field{{"title", title}, {"version", version}})
}

func (c *Components) UnmarshalYAML(value *yaml.Node) error {
	type plain Components
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Components(p)
	c.node = value
	return nil
}

func (c Components) MarshalYAML() (any, error) { return c.toNode() }

// toNode keeps loaded schemas in their loaded order and appends new ones
// sorted by name.
func (c Components) toNode() (*yaml.Node, error) {
	fields := make([]field, 0, len(c.Schemas))
	for _, name := range sortedKeys(c.Schemas) {
		n, err := c.Schemas[name].toNode()
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		fields = append(fields, field{name, n})
	}
	schemas := mergeMapping(mappingValue(c.node, "schemas"), false, fields)
	return mergeMapping(c.node, true, []field{{"schemas", schemas}}), nil
}

func (s *Schema) UnmarshalYAML(value *yaml.Node) error {
	type plain Schema
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Schema(p)
	s.node = value
	return nil
}

func (s Schema) MarshalYAML() (any, error) { return s.toNode() }

func (s *Schema) toNode() (*yaml.Node, error) {
	if s == nil {
		return nullNode(), nil
	}
	if s.node != nil {
		return s.node, nil
	}

	var fields []field
	if len(s.Type) > 0 {
		n, err := encodeNode(s.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{"type", n})
	}
	if len(s.Required) > 0 {
		n, err := encodeNode(s.Required)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{"required", n})
	}
	if len(s.Properties) > 0 {
		props := make([]field, 0, len(s.Properties))
		for _, name := range sortedKeys(s.Properties) {
			n, err := s.Properties[name].toNode()
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			props = append(props, field{name, n})
		}
		fields = append(fields, field{"properties", mergeMapping(nil, false, props)})
	}
	return mergeMapping(nil, false, fields), nil
}

func (p *Property) UnmarshalYAML(value *yaml.Node) error {
	type plain Property
	var pl plain
	if err := value.Decode(&pl); err != nil {
		return err
	}
	*p = Property(pl)
	p.node = value
	return nil
}

func (p Property) MarshalYAML() (any, error) { return p.toNode() }

func (p *Property) toNode() (*yaml.Node, error) {
	if p == nil {
		return nullNode(), nil
	}
	if p.node != nil {
		return p.node, nil
	}

	var fields []field
	if len(p.Type) > 0 {
		n, err := encodeNode(p.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{"type", n})
	}
	if p.Format != "" {
		fields = append(fields, field{"format", strNode(p.Format)})
	}
	if p.Description != "" {
		fields = append(fields, field{"description", strNode(p.Description)})
	}
	if p.ReadOnly {
		fields = append(fields, field{"readOnly", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"}})
	}
	if p.Example != nil {
		n, err := encodeNode(p.Example)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field{"example", n})
	}
	return mergeMapping(nil, false, fields), nil
}

// SchemaType is the schema "type" keyword. OpenAPI 3.1 allows a single
// name or a list (["string", "null"]); both forms survive a round trip.
type SchemaType []string

// Types returns a SchemaType holding names.
func Types(names ...string) SchemaType { return SchemaType(names) }

func (t SchemaType) String() string { return strings.Join(t, "|") }

// Is reports whether t is exactly the single type name.
func (t SchemaType) Is(name string) bool { return len(t) == 1 && t[0] == name }

func (t SchemaType) MarshalYAML() (any, error) {
	if len(t) == 1 {
		return t[0], nil
	}
	return []string(t), nil
}

func (t *SchemaType) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*t = nil
			return nil
		}
		*t = SchemaType{value.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return err
		}
		*t = names
		return nil
	default:
		return fmt.Errorf("line %d: type must be a string or a list of strings", value.Line)
	}
}

// field is one key of a mapping being written. A nil value drops the key.
type field struct {
	key   string
	value *yaml.Node
}

// mergeMapping builds a mapping node from fields on top of a loaded one.
// Loaded keys keep their order, key nodes and comments; a field replaces the
// value of its key unless both are the same scalar. Loaded keys without a
// field stay only when keepOthers is set. Fields the loaded mapping lacks
// are appended in order.
func mergeMapping(loaded *yaml.Node, keepOthers bool, fields []field) *yaml.Node {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	byKey := make(map[string]*yaml.Node, len(fields))
	for _, f := range fields {
		byKey[f.key] = f.value
	}
	seen := make(map[string]bool, len(fields))

	if loaded != nil && loaded.Kind == yaml.MappingNode {
		*out = *loaded
		out.Content = make([]*yaml.Node, 0, len(loaded.Content))
		for i := 0; i+1 < len(loaded.Content); i += 2 {
			k, v := loaded.Content[i], loaded.Content[i+1]
			nv, ok := byKey[k.Value]
			switch {
			case !ok:
				if keepOthers {
					out.Content = append(out.Content, k, v)
				}
			case nv == nil:
				seen[k.Value] = true
			case sameScalar(v, nv):
				seen[k.Value] = true
				out.Content = append(out.Content, k, v)
			default:
				seen[k.Value] = true
				out.Content = append(out.Content, k, nv)
			}
		}
	}

	for _, f := range fields {
		if seen[f.key] || f.value == nil {
			continue
		}
		out.Content = append(out.Content, strNode(f.key), f.value)
		out.Style &^= yaml.FlowStyle
	}
	return out
}

// sameScalar reports whether a and b are scalars with equal value and
// resolved tag, so a's loaded quoting can be kept.
func sameScalar(a, b *yaml.Node) bool {
	return a.Kind == yaml.ScalarNode && b.Kind == yaml.ScalarNode &&
		a.Value == b.Value && a.ShortTag() == b.ShortTag()
}

// mappingValue returns the value of key in mapping node n, or nil.
func mappingValue(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func nullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func encodeNode(v any) (*yaml.Node, error) {
	n := new(yaml.Node)
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return n, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
