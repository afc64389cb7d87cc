package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"apiweaver/internal/extract"
	"apiweaver/internal/typemap"
)

type fakeRepo struct{ closed bool }

func (f *fakeRepo) EnsureTables(context.Context) error           { return nil }
func (f *fakeRepo) SaveRun(context.Context, *Run) (int64, error) { return 1, nil }
func (f *fakeRepo) ListRuns(context.Context, int) ([]Run, error) { return nil, nil }
func (f *fakeRepo) Close()                                       { f.closed = true }

func TestRegisterAndNew(t *testing.T) {
	repo := &fakeRepo{}
	Register("fake-test", func(ctx context.Context, cfg Config) (Repository, error) {
		if cfg.DSN != "dsn" {
			t.Fatalf("dsn=%q", cfg.DSN)
		}
		return repo, nil
	})

	got, err := New(context.Background(), Config{Kind: "fake-test", DSN: "dsn"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got != repo {
		t.Fatalf("unexpected repository")
	}

	if !Registered("fake-test") || Registered("nope") {
		t.Fatalf("Registered disagrees with the registry")
	}

	found := false
	for _, k := range Kinds() {
		if k == "fake-test" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Kinds()=%v missing fake-test", Kinds())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for empty kind")
	}
	_, err := New(context.Background(), Config{Kind: "nope"})
	if err == nil || !strings.Contains(err.Error(), "unsupported kind=nope") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegister_Panics(t *testing.T) {
	f := func(context.Context, Config) (Repository, error) { return nil, nil }
	Register("dup-test", f)

	for name, fn := range map[string]func(){
		"empty kind":  func() { Register("", f) },
		"nil factory": func() { Register("nil-test", nil) },
		"duplicate":   func() { Register("dup-test", f) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("%s: expected panic", name)
				}
			}()
			fn()
		}()
	}
}

func TestNewRun(t *testing.T) {
	t.Parallel()

	defs := []extract.PropertyDefinition{
		{Name: "id", Type: "ID", Writable: false},
		{Name: "email", Type: "Email", Required: true, Writable: true},
	}
	props, err := typemap.MapAll(defs)
	if err != nil {
		t.Fatalf("MapAll: %v", err)
	}

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	run := NewRun("https://example.com/doc", "userObjectValues", "User", "api.yaml", defs, props, at)

	if run.PropertyCount != 2 || len(run.Properties) != 2 {
		t.Fatalf("count=%d len=%d", run.PropertyCount, len(run.Properties))
	}
	if run.CreatedAt.Location() != time.UTC {
		t.Fatalf("CreatedAt not UTC: %v", run.CreatedAt)
	}
	p := run.Properties[0]
	if p.Position != 1 || p.VendorType != "ID" || p.Type != "integer" || p.Format != "int64" || !p.ReadOnly {
		t.Fatalf("unexpected first property: %+v", p)
	}

	rows := PropertyRows(42, run)
	if len(rows) != 2 || len(rows[1]) != len(PropertyColumns) {
		t.Fatalf("rows=%v", rows)
	}
	if rows[1][0] != int64(42) || rows[1][2] != "email" || rows[1][6] != true {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{-1: 20, 0: 20, 5: 5, 1000: 1000, 5000: 1000} {
		if got := ClampLimit(in); got != want {
			t.Fatalf("ClampLimit(%d)=%d want %d", in, got, want)
		}
	}
}
