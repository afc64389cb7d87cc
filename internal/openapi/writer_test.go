package openapi

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"apiweaver/internal/apierr"
	"apiweaver/internal/typemap"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path, format string
		want         string
		wantErr      bool
	}{
		{"out.yaml", "", ".yaml", false},
		{"out.yml", "", ".yaml", false},
		{"out.json", "", ".json", false},
		{"out.JSON", "", ".json", false},
		{"out", "", ".yaml", false},
		{"out.txt", "", ".yaml", false},
		{"out.yaml", "json", ".json", false},
		{"out.json", "YAML", ".yaml", false},
		{"out.yaml", "xml", "", true},
	}
	for _, tc := range tests {
		w, err := WriterFor(tc.path, tc.format)
		if tc.wantErr {
			assert.Error(t, err, tc.path)
			continue
		}
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, w.Extension(), tc.path)
	}
}

func TestEncode_NilSpec(t *testing.T) {
	t.Parallel()

	for _, w := range []Writer{YAMLWriter, JSONWriter} {
		err := w.Encode(&bytes.Buffer{}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil spec")
	}
}

func TestJSONWriter_MatchesYAMLShape(t *testing.T) {
	t.Parallel()

	spec, err := LoadExistingSpec([]byte(`openapi: 3.1.1
info: {title: t}
paths:
  /x:
    get:
      responses:
        200: {description: ok}
`))
	require.NoError(t, err)
	spec = (&Generator{}).GenerateOrAmend("User", []typemap.OpenAPIProperty{
		{Name: "email", Type: "string", Format: "email", Required: true},
	}, spec)

	var buf bytes.Buffer
	require.NoError(t, JSONWriter.Encode(&buf, spec))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "3.1.1", got["openapi"])

	user := got["components"].(map[string]any)["schemas"].(map[string]any)["User"].(map[string]any)
	assert.Equal(t, []any{"email"}, user["required"])
	assert.Equal(t, "email", user["properties"].(map[string]any)["email"].(map[string]any)["format"])

	resp := got["paths"].(map[string]any)["/x"].(map[string]any)["get"].(map[string]any)["responses"].(map[string]any)
	assert.Contains(t, resp, "200")

	// Loading JSON output back works since JSON is YAML.
	again, err := LoadExistingSpec(buf.Bytes())
	require.NoError(t, err)
	assertSameSchema(t, spec.Components.Schemas["User"], again.Components.Schemas["User"])
}

func TestJSONWriter_KeepsLoadedScalarsAndOrder(t *testing.T) {
	t.Parallel()

	existing, err := LoadExistingSpec([]byte(amendedSource))
	require.NoError(t, err)
	spec := (&Generator{}).GenerateOrAmend("User", sampleProps(), existing)

	var buf bytes.Buffer
	require.NoError(t, JSONWriter.Encode(&buf, spec))
	out := buf.String()

	assert.Less(t, strings.Index(out, `"paths"`), strings.Index(out, `"components"`), out)
	assert.Less(t, strings.Index(out, `"Old"`), strings.Index(out, `"User"`), out)

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	d := got["components"].(map[string]any)["schemas"].(map[string]any)["Old"].(map[string]any)["properties"].(map[string]any)["d"].(map[string]any)
	assert.Equal(t, "2024-01-01", d["example"])
	assert.Equal(t, "2", got["info"].(map[string]any)["version"])
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	spec := (&Generator{}).GenerateOrAmend("User", []typemap.OpenAPIProperty{{Name: "a", Type: "string"}}, nil)

	require.NoError(t, YAMLWriter.WriteFile(path, spec))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "openapi: 3.1.1\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")

	loaded, err := LoadSpecFile(path)
	require.NoError(t, err)
	assert.Contains(t, loaded.Components.Schemas, "User")
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing", "api.yaml")
	err := YAMLWriter.WriteFile(path, NewSpec())
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindGeneration))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteFile_EncodeFailureLeavesNoFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "api.yaml")
	err := YAMLWriter.WriteFile(path, nil)
	require.Error(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoadSpecFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadSpecFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindGeneration))
}
