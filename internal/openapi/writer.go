package openapi

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"apiweaver/internal/apierr"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

const writeStage = "write"

// Writer encodes a spec in one output format.
type Writer struct {
	encode    func(w io.Writer, spec *Spec) error
	extension string
}

var (
	// YAMLWriter writes specs as YAML with two-space indentation.
	YAMLWriter = Writer{encodeYAML, ".yaml"}
	// JSONWriter writes specs as indented JSON.
	JSONWriter = Writer{encodeJSON, ".json"}
)

// Extension returns the file extension of the format, with the dot.
func (wr Writer) Extension() string { return wr.extension }

// Encode writes spec to w.
func (wr Writer) Encode(w io.Writer, spec *Spec) error {
	if spec == nil {
		return fmt.Errorf("nil spec")
	}
	return wr.encode(w, spec)
}

// WriterFor picks the writer for format ("yaml", "yml" or "json"). An empty
// format is inferred from the extension of path, defaulting to YAML.
func WriterFor(path, format string) (Writer, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch f {
	case "json":
		return JSONWriter, nil
	case "yaml", "yml", "":
		return YAMLWriter, nil
	}
	if format == "" {
		return YAMLWriter, nil
	}
	return Writer{}, fmt.Errorf("unknown output format %q", format)
}

// WriteFile encodes spec to path through a temporary file in the same
// directory, renamed into place only after a successful encode.
func (wr Writer) WriteFile(path string, spec *Spec) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apierr.Wrapf(apierr.KindGeneration, writeStage, path, err, "create temp file")
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = wr.Encode(tmp, spec); err != nil {
		_ = tmp.Close()
		return apierr.Wrapf(apierr.KindGeneration, writeStage, path, err, "encode spec")
	}
	if err = tmp.Close(); err != nil {
		return apierr.Wrapf(apierr.KindGeneration, writeStage, path, err, "close temp file")
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil { //nolint:gosec // generated docs are world readable
		return apierr.Wrapf(apierr.KindGeneration, writeStage, path, err, "chmod temp file")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return apierr.Wrapf(apierr.KindGeneration, writeStage, path, err, "rename into place")
	}
	return nil
}

func encodeYAML(w io.Writer, spec *Spec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return err
	}
	return enc.Close()
}

// encodeJSON converts the node tree the YAML writer emits, so key order and
// loaded scalars (an unquoted date stays the string it was) carry over.
func encodeJSON(w io.Writer, spec *Spec) error {
	root, err := spec.toNode()
	if err != nil {
		return err
	}
	compact, err := json.Marshal(jsonValue(root))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(w)
	return err
}

// jsonObject is a JSON object that keeps its member order.
type jsonObject []jsonMember

type jsonMember struct {
	key   string
	value any
}

func (o jsonObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// jsonValue converts a YAML node to a JSON-encodable value. Mapping keys
// become strings as written (a response code 200 gives "200").
func jsonValue(n *yaml.Node) any {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil
		}
		return jsonValue(n.Content[0])
	case yaml.AliasNode:
		return jsonValue(n.Alias)
	case yaml.MappingNode:
		obj := make(jsonObject, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			obj = append(obj, jsonMember{key: n.Content[i].Value, value: jsonValue(n.Content[i+1])})
		}
		return obj
	case yaml.SequenceNode:
		arr := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			arr = append(arr, jsonValue(c))
		}
		return arr
	default:
		return jsonScalar(n)
	}
}

// jsonScalar keeps the text of strings, timestamps and anything JSON cannot
// represent; null, booleans and numbers are decoded.
func jsonScalar(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool", "!!int", "!!float":
		var v any
		if err := n.Decode(&v); err != nil {
			return n.Value
		}
		if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			return n.Value
		}
		return v
	default:
		return n.Value
	}
}
