package typemap

import (
	"testing"

	"apiweaver/internal/apierr"
	"apiweaver/internal/extract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token      string
		wantType   string
		wantFormat string
	}{
		// blank
		{"", TypeString, ""},
		{"   ", TypeString, ""},

		// dictionary
		{"string", TypeString, ""},
		{"Text", TypeString, ""},
		{"integer", TypeInteger, ""},
		{"Int", TypeInteger, "int32"},
		{"long", TypeInteger, "int64"},
		{"decimal", TypeNumber, ""},
		{"Float", TypeNumber, "float"},
		{"double", TypeNumber, "double"},
		{"Bool", TypeBoolean, ""},
		{"date", TypeString, "date"},
		{"DateTime", TypeString, "date-time"},
		{"timestamp", TypeString, "date-time"},
		{"List", TypeArray, ""},
		{"object", TypeObject, ""},
		{"id", TypeInteger, "int64"},
		{"UUID", TypeString, "uuid"},
		{"email", TypeString, "email"},
		{"URL", TypeString, "uri"},
		{"uri", TypeString, "uri"},
		{"  long  ", TypeInteger, "int64"},

		// brackets
		{"string[]", TypeArray, ""},
		{"Array[String]", TypeArray, ""},
		{"Optional[Integer]", TypeArray, ""},

		// nullable marker
		{"string?", TypeString, ""},
		{"long?", TypeInteger, "int64"},
		{"DateTime?", TypeString, "date-time"},
		{"Integer??", TypeInteger, ""},

		// substring heuristics
		{"STRING", TypeString, ""},
		{"BigInt", TypeInteger, ""},
		{"Double precision", TypeNumber, ""},
		{"BOOLEAN flag", TypeBoolean, ""},
		{"DATETIME", TypeString, ""},
		{"ArrayList", TypeArray, ""},
		{"JSON Object", TypeObject, ""},

		// default
		{"unknown_xyz", TypeString, ""},
		{"email address", TypeString, ""},
	}

	for _, tc := range tests {
		typ, format := MapType(tc.token)
		assert.Equal(t, tc.wantType, typ, "type for %q", tc.token)
		assert.Equal(t, tc.wantFormat, format, "format for %q", tc.token)
	}
}

func TestMapType_DeterministicForDictionary(t *testing.T) {
	t.Parallel()

	for token, m := range dictionary {
		for i := 0; i < 3; i++ {
			typ, format := MapType(token)
			require.Equal(t, m.typ, typ, token)
			require.Equal(t, m.format, format, token)
		}
	}
}

func TestToOpenAPIProperty(t *testing.T) {
	t.Parallel()

	def := &extract.PropertyDefinition{
		Name:        "createdAt",
		Type:        "Timestamp",
		Required:    true,
		Writable:    false,
		Description: "Creation time",
	}

	got, err := ToOpenAPIProperty(def)
	require.NoError(t, err)
	assert.Equal(t, OpenAPIProperty{
		Name:        "createdAt",
		Type:        TypeString,
		Format:      "date-time",
		Required:    true,
		ReadOnly:    true,
		Description: "Creation time",
	}, got)
	assert.True(t, got.Valid())
}

func TestToOpenAPIProperty_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ToOpenAPIProperty(nil)
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindMapping))

	_, err = ToOpenAPIProperty(&extract.PropertyDefinition{Name: "x"})
	require.Error(t, err)
	assert.True(t, apierr.IsKind(err, apierr.KindMapping))
	assert.Contains(t, err.Error(), "not valid")
}

func TestMapAll(t *testing.T) {
	t.Parallel()

	got, err := MapAll([]extract.PropertyDefinition{
		{Name: "id", Type: "id", Writable: false},
		{Name: "tags", Type: "string[]", Writable: true},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "int64", got[0].Format)
	assert.True(t, got[0].ReadOnly)
	assert.Equal(t, TypeArray, got[1].Type)
	assert.False(t, got[1].ReadOnly)

	_, err = MapAll([]extract.PropertyDefinition{{Name: "", Type: "x"}})
	assert.Error(t, err)
}
