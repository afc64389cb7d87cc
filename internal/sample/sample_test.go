package sample

import (
	"strings"
	"testing"
	"time"

	"apiweaver/internal/typemap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExample_ByFormat(t *testing.T) {
	t.Parallel()

	g := New(42)

	email, ok := g.Example(typemap.OpenAPIProperty{Name: "x", Type: "string", Format: "email"}).(string)
	require.True(t, ok)
	assert.Contains(t, email, "@")

	date := g.Example(typemap.OpenAPIProperty{Name: "x", Type: "string", Format: "date"}).(string)
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	assert.False(t, d.Before(windowStart.Truncate(24*time.Hour)))
	assert.False(t, d.After(windowEnd))

	ts := g.Example(typemap.OpenAPIProperty{Name: "x", Type: "string", Format: "date-time"}).(string)
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)

	id := g.Example(typemap.OpenAPIProperty{Name: "id", Type: "integer", Format: "int64"}).(int)
	assert.GreaterOrEqual(t, id, 1)

	u := g.Example(typemap.OpenAPIProperty{Name: "x", Type: "string", Format: "uuid"}).(string)
	assert.Len(t, u, 36)

	uri := g.Example(typemap.OpenAPIProperty{Name: "x", Type: "string", Format: "uri"}).(string)
	assert.True(t, strings.HasPrefix(uri, "http"))
}

func TestExample_ByType(t *testing.T) {
	t.Parallel()

	g := New(7)

	_, ok := g.Example(typemap.OpenAPIProperty{Name: "count", Type: typemap.TypeInteger}).(int)
	assert.True(t, ok)
	_, ok = g.Example(typemap.OpenAPIProperty{Name: "price", Type: typemap.TypeNumber}).(float64)
	assert.True(t, ok)
	_, ok = g.Example(typemap.OpenAPIProperty{Name: "active", Type: typemap.TypeBoolean}).(bool)
	assert.True(t, ok)
	arr, ok := g.Example(typemap.OpenAPIProperty{Name: "tags", Type: typemap.TypeArray}).([]string)
	assert.True(t, ok)
	assert.Len(t, arr, 2)
	assert.Nil(t, g.Example(typemap.OpenAPIProperty{Name: "meta", Type: typemap.TypeObject}))

	email := g.Example(typemap.OpenAPIProperty{Name: "contactEmail", Type: typemap.TypeString}).(string)
	assert.Contains(t, email, "@")
	word := g.Example(typemap.OpenAPIProperty{Name: "status", Type: typemap.TypeString}).(string)
	assert.NotEmpty(t, word)
}

func TestExample_SeedIsReproducible(t *testing.T) {
	t.Parallel()

	props := []typemap.OpenAPIProperty{
		{Name: "id", Type: "integer", Format: "int64"},
		{Name: "name", Type: "string"},
		{Name: "createdAt", Type: "string", Format: "date-time"},
		{Name: "email", Type: "string", Format: "email"},
	}

	a, b := New(99), New(99)
	for _, p := range props {
		assert.Equal(t, a.Example(p), b.Example(p), p.Name)
	}
}
