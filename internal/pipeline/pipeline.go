// Package pipeline runs one extraction end to end: fetch the page, locate the
// documentation section, extract and map its table, then create or amend the
// OpenAPI document and write it.
//
// Each stage is timed into the step metrics. A failure stops the run with an
// *apierr.Error naming the stage and its input; nothing is written unless
// every earlier stage succeeded.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"apiweaver/internal/apierr"
	"apiweaver/internal/catalog"
	"apiweaver/internal/extract"
	"apiweaver/internal/fetch"
	"apiweaver/internal/htmldoc"
	"apiweaver/internal/metrics"
	"apiweaver/internal/openapi"
	"apiweaver/internal/typemap"

	"github.com/PuerkitoBio/goquery"
)

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Load(ctx context.Context, in fetch.Input) (string, error)
}

// TableExtractor turns a located table into property definitions.
type TableExtractor interface {
	ExtractWithStats(table *goquery.Selection) ([]extract.PropertyDefinition, extract.Stats, error)
}

// PropertyMapper maps one definition to an OpenAPI property.
type PropertyMapper interface {
	ToOpenAPIProperty(def *extract.PropertyDefinition) (typemap.OpenAPIProperty, error)
}

// SpecGenerator inserts a schema into a new or existing document.
type SpecGenerator interface {
	GenerateOrAmend(name string, props []typemap.OpenAPIProperty, existing *openapi.Spec) *openapi.Spec
}

// RunRecorder stores a finished run.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *catalog.Run) (int64, error)
}

// Request describes one run.
type Request struct {
	URL   string
	Stdin io.Reader
	// HeadingSuffix selects the section: the first <h2> whose id ends with it.
	HeadingSuffix string
	// SchemaName overrides the name derived from the heading id.
	SchemaName string
	// ExistingPath, when set, is the document to amend.
	ExistingPath string
	OutputPath   string
	// Writer encodes the output. The zero value picks one from OutputPath.
	Writer openapi.Writer
}

// Result describes a successful run.
type Result struct {
	Spec       *openapi.Spec
	SchemaName string
	HeadingID  string
	Properties []typemap.OpenAPIProperty
	Stats      extract.Stats
	Warnings   []string
	OutputPath string
	// RunID is the catalog id, 0 when no recorder is configured or saving failed.
	RunID int64
}

// Options configure New.
type Options struct {
	Fetcher Fetcher
	// Title and Version fill an empty info block of the document.
	Title   string
	Version string
	// Examples, when set, adds an example value to every property.
	Examples func(p typemap.OpenAPIProperty) any
	Recorder RunRecorder
	// Logger receives warnings, and info lines when Verbose. Nil discards.
	Logger  *log.Logger
	Verbose bool
}

// Pipeline wires the stages together. It is used for one run at a time.
type Pipeline struct {
	Fetcher   Fetcher
	Extractor TableExtractor
	Mapper    PropertyMapper
	Generator SpecGenerator
	Recorder  RunRecorder

	Logger  *log.Logger
	Verbose bool
	Now     func() time.Time

	warnings []string
}

// New builds a Pipeline with the standard extractor, mapper and generator.
// Their warnings are collected into the run's Result.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		Fetcher:  opts.Fetcher,
		Mapper:   typemap.Mapper{},
		Recorder: opts.Recorder,
		Logger:   opts.Logger,
		Verbose:  opts.Verbose,
		Now:      time.Now,
	}
	p.Extractor = &extract.Extractor{Warnf: p.Warnf}
	p.Generator = &openapi.Generator{
		Title:    opts.Title,
		Version:  opts.Version,
		Examples: opts.Examples,
		Warnf:    p.Warnf,
	}
	return p
}

// Warnf logs a warning and records it for the current Result.
func (p *Pipeline) Warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	p.warnings = append(p.warnings, msg)
	if p.Logger != nil {
		p.Logger.Printf("warning: %s", msg)
	}
}

func (p *Pipeline) infof(format string, args ...any) {
	if p.Verbose && p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// step runs fn as the named stage, timing it and recording its outcome.
func (p *Pipeline) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveStep(name, start, err)
	if err == nil {
		p.infof("%s: done in %s", name, time.Since(start).Round(time.Millisecond))
	}
	return err
}

// Run executes the whole pipeline for req.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	p.warnings = nil

	if strings.TrimSpace(req.HeadingSuffix) == "" {
		return nil, apierr.New(apierr.KindConfiguration, "run", "", "heading suffix is empty")
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return nil, apierr.New(apierr.KindConfiguration, "run", "", "output path is empty")
	}
	writer := req.Writer
	if writer.Extension() == "" {
		w, err := openapi.WriterFor(req.OutputPath, "")
		if err != nil {
			return nil, apierr.Wrap(apierr.KindConfiguration, "run", req.OutputPath, err)
		}
		writer = w
	}

	source := strings.TrimSpace(req.URL)
	if source == "" {
		source = fetch.StdinURL
	}

	var (
		content  string
		doc      *goquery.Document
		heading  *goquery.Selection
		table    *goquery.Selection
		defs     []extract.PropertyDefinition
		stats    extract.Stats
		props    []typemap.OpenAPIProperty
		existing *openapi.Spec
		spec     *openapi.Spec
		res      = &Result{OutputPath: req.OutputPath}
	)

	if err := p.step("fetch", func() (err error) {
		content, err = p.Fetcher.Load(ctx, fetch.Input{URL: req.URL, Stdin: req.Stdin})
		if err != nil {
			return apierr.Wrap(apierr.KindFetch, "fetch", source, err)
		}
		p.infof("fetch: %d bytes from %s", len(content), source)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.step("parse", func() (err error) {
		doc, err = htmldoc.Parse(content)
		return apierr.Wrap(apierr.KindParse, "parse", source, err)
	}); err != nil {
		return nil, err
	}

	if err := p.step("locate", func() error {
		var err error
		heading, table, err = p.locate(doc, req.HeadingSuffix)
		return err
	}); err != nil {
		return nil, err
	}
	res.HeadingID = htmldoc.HeadingID(heading)

	if err := p.step("extract", func() (err error) {
		defs, stats, err = p.Extractor.ExtractWithStats(table)
		if err != nil {
			return apierr.Wrap(apierr.KindExtraction, "extract", res.HeadingID, err)
		}
		p.infof("extract: %d properties from %d rows (%d malformed, %d blank)",
			stats.Parsed, stats.Rows, stats.Skipped, stats.Blank)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.step("map", func() error {
		props = make([]typemap.OpenAPIProperty, 0, len(defs))
		for i := range defs {
			prop, err := p.Mapper.ToOpenAPIProperty(&defs[i])
			if err != nil {
				return apierr.Wrap(apierr.KindMapping, "map", defs[i].Name, err)
			}
			props = append(props, prop)
		}
		metrics.IncCounter(metrics.PropertiesTotal, float64(len(props)), nil)
		return nil
	}); err != nil {
		return nil, err
	}

	if req.ExistingPath != "" {
		if err := p.step("load-spec", func() (err error) {
			existing, err = openapi.LoadSpecFile(req.ExistingPath)
			if err == nil {
				p.infof("load-spec: amending %s (%d existing schemas)", req.ExistingPath, len(existing.Components.Schemas))
			}
			return err
		}); err != nil {
			return nil, err
		}
	}

	res.SchemaName = strings.TrimSpace(req.SchemaName)
	if res.SchemaName == "" {
		res.SchemaName = openapi.SchemaNameFromHeadingID(res.HeadingID, req.HeadingSuffix)
	}

	if err := p.step("generate", func() error {
		spec = p.Generator.GenerateOrAmend(res.SchemaName, props, existing)
		if spec == nil {
			return apierr.New(apierr.KindGeneration, "generate", res.SchemaName, "generator returned no document")
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if err := p.step("write", func() error {
		return writer.WriteFile(req.OutputPath, spec)
	}); err != nil {
		return nil, err
	}
	p.infof("write: schema %q with %d properties written to %s", res.SchemaName, len(props), req.OutputPath)

	if p.Recorder != nil {
		run := catalog.NewRun(source, res.HeadingID, res.SchemaName, req.OutputPath, defs, props, p.now())
		_ = p.step("record", func() error {
			id, err := p.Recorder.SaveRun(ctx, run)
			if err != nil {
				p.Warnf("run not recorded in catalog: %v", err)
				return err
			}
			res.RunID = id
			return nil
		})
	}

	res.Spec = spec
	res.Properties = props
	res.Stats = stats
	res.Warnings = append([]string(nil), p.warnings...)
	return res, nil
}

// locate applies the section policy: no matching heading or no table after
// it is an error; several headings use the first one with a warning.
func (p *Pipeline) locate(doc *goquery.Document, suffix string) (*goquery.Selection, *goquery.Selection, error) {
	headings := htmldoc.FindHeadingsWithIDSuffix(doc, suffix)
	switch len(headings) {
	case 0:
		return nil, nil, apierr.New(apierr.KindParse, "locate", suffix,
			"no <h2> heading with an id ending in %q", suffix)
	case 1:
	default:
		ids := make([]string, len(headings))
		for i, h := range headings {
			ids[i] = htmldoc.HeadingID(h)
		}
		p.Warnf("%d headings end with %q (%s); using the first, %q",
			len(headings), suffix, strings.Join(ids, ", "), ids[0])
	}

	heading := headings[0]
	id := htmldoc.HeadingID(heading)
	table, ok := htmldoc.FindFirstTableAfter(doc, heading)
	if !ok {
		return nil, nil, apierr.New(apierr.KindParse, "locate", id, "no <table> follows heading %q", id)
	}
	p.infof("locate: using heading %q", id)
	return heading, table, nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// PrintSelector fetches the page and prints every match of selector to w,
// as outer HTML or, with textOnly, as trimmed text.
func (p *Pipeline) PrintSelector(ctx context.Context, in fetch.Input, selector string, textOnly bool, w io.Writer) error {
	content, err := p.Fetcher.Load(ctx, in)
	if err != nil {
		return apierr.Wrap(apierr.KindFetch, "fetch", in.URL, err)
	}
	if err := htmldoc.DebugPrintSelector(w, content, selector, textOnly); err != nil {
		return apierr.Wrap(apierr.KindParse, "selector", selector, err)
	}
	return nil
}
