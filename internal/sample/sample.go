// Package sample produces plausible example values for generated
// properties using gofakeit.
package sample

import (
	"strings"
	"time"

	"apiweaver/internal/typemap"

	"github.com/brianvoe/gofakeit/v6"
)

// Dates are drawn from a fixed window so a seeded run is reproducible.
var (
	windowStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
)

// Generator is not safe for concurrent use; create one per run.
type Generator struct {
	faker *gofakeit.Faker
}

// New returns a generator seeded with seed. Seed 0 picks a random seed.
func New(seed int64) *Generator {
	return &Generator{faker: gofakeit.New(seed)}
}

// Example returns an example value for p, or nil when none fits
// (objects). The format decides first, then the property name, then the
// type.
func (g *Generator) Example(p typemap.OpenAPIProperty) any {
	f := g.faker

	switch p.Format {
	case "email":
		return f.Email()
	case "uuid":
		return f.UUID()
	case "uri":
		return f.URL()
	case "date":
		return f.DateRange(windowStart, windowEnd).Format("2006-01-02")
	case "date-time":
		return f.DateRange(windowStart, windowEnd).UTC().Format(time.RFC3339)
	case "int32":
		return f.Number(1, 30000)
	case "int64":
		return f.Number(1, 1000000)
	case "float", "double":
		return f.Price(0.99, 999.99)
	}

	switch p.Type {
	case typemap.TypeInteger:
		return f.Number(1, 50000)
	case typemap.TypeNumber:
		return f.Price(0.99, 99.99)
	case typemap.TypeBoolean:
		return f.Bool()
	case typemap.TypeArray:
		return []string{f.Word(), f.Word()}
	case typemap.TypeObject:
		return nil
	}

	return g.stringByName(p.Name)
}

func (g *Generator) stringByName(name string) string {
	f := g.faker
	n := strings.ToLower(name)

	switch {
	case strings.Contains(n, "email"):
		return f.Email()
	case strings.Contains(n, "phone") || strings.Contains(n, "mobile"):
		return f.Phone()
	case strings.Contains(n, "firstname") || strings.Contains(n, "first_name"):
		return f.FirstName()
	case strings.Contains(n, "lastname") || strings.Contains(n, "last_name"):
		return f.LastName()
	case strings.Contains(n, "company"):
		return f.Company()
	case strings.Contains(n, "name"):
		return f.Name()
	case strings.Contains(n, "street") || strings.Contains(n, "address"):
		return f.Street()
	case strings.Contains(n, "city"):
		return f.City()
	case strings.Contains(n, "country"):
		return f.Country()
	case strings.Contains(n, "zip") || strings.Contains(n, "postal"):
		return f.Zip()
	case strings.Contains(n, "url") || strings.Contains(n, "website"):
		return f.URL()
	case strings.Contains(n, "colo"):
		return f.Color()
	case strings.Contains(n, "description") || strings.Contains(n, "notes") || strings.Contains(n, "comment"):
		return f.Sentence(6)
	}
	return f.Word()
}
