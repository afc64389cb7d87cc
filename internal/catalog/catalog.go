// Package catalog records the history of extraction runs in a SQL database.
//
// Backends register themselves from init() under a kind ("sqlite",
// "postgres", "mssql"); import internal/catalog/all to link every backend.
package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"apiweaver/internal/extract"
	"apiweaver/internal/typemap"
)

// Table names shared by every backend.
const (
	RunsTable       = "apiweaver_runs"
	PropertiesTable = "apiweaver_run_properties"
)

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Run is one successful extraction.
type Run struct {
	ID         int64
	SourceURL  string
	HeadingID  string
	SchemaName string
	OutputPath string
	// PropertyCount equals len(Properties) when saving; ListRuns fills it
	// without loading the properties.
	PropertyCount int
	CreatedAt     time.Time
	Properties    []Property
}

// Property is one extracted and mapped property of a run.
type Property struct {
	Position    int
	Name        string
	VendorType  string
	Type        string
	Format      string
	Required    bool
	ReadOnly    bool
	Description string
}

// NewRun pairs extracted definitions with their mapped properties. defs and
// props are expected to be index-aligned, as produced by typemap.MapAll.
func NewRun(sourceURL, headingID, schemaName, outputPath string, defs []extract.PropertyDefinition, props []typemap.OpenAPIProperty, at time.Time) *Run {
	r := &Run{
		SourceURL:     sourceURL,
		HeadingID:     headingID,
		SchemaName:    schemaName,
		OutputPath:    outputPath,
		PropertyCount: len(props),
		CreatedAt:     at.UTC(),
		Properties:    make([]Property, 0, len(props)),
	}
	for i, p := range props {
		var vendor string
		if i < len(defs) {
			vendor = defs[i].Type
		}
		r.Properties = append(r.Properties, Property{
			Position:    i + 1,
			Name:        p.Name,
			VendorType:  vendor,
			Type:        p.Type,
			Format:      p.Format,
			Required:    p.Required,
			ReadOnly:    p.ReadOnly,
			Description: p.Description,
		})
	}
	return r
}

// Repository stores runs. Implementations are safe for use by one run at a
// time; Close must be called once when done.
type Repository interface {
	// EnsureTables creates the catalog tables if they do not exist.
	EnsureTables(ctx context.Context) error
	// SaveRun stores run and its properties in one transaction and returns
	// the new run id.
	SaveRun(ctx context.Context, run *Run) (int64, error)
	// ListRuns returns the most recent runs first, without properties.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close()
}

// Factory opens a backend.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. It panics when kind is
// empty, f is nil or kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("catalog: Register called with empty kind")
	}
	if f == nil {
		panic("catalog: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("catalog: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New opens the backend registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("catalog: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("catalog: unsupported kind=%s (registered: %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// Registered reports whether a backend is registered for kind.
func Registered(kind string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return factories[kind] != nil
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Columns of PropertiesTable in insert order, shared by the backends.
var PropertyColumns = []string{
	"run_id", "position", "name", "vendor_type", "type", "format", "required", "read_only", "description",
}

// PropertyRows returns one row per property of run, in PropertyColumns
// order, with runID in the first column.
func PropertyRows(runID int64, run *Run) [][]any {
	rows := make([][]any, 0, len(run.Properties))
	for _, p := range run.Properties {
		rows = append(rows, []any{
			runID, p.Position, p.Name, p.VendorType, p.Type, p.Format, p.Required, p.ReadOnly, p.Description,
		})
	}
	return rows
}

// ClampLimit bounds a ListRuns limit to [1, 1000], with 20 for non-positive.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}
