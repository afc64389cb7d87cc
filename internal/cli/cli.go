// Package cli is the apiweaver command line: a cobra root command that
// generates a schema from one documentation page, and a history subcommand
// that lists recorded runs.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"apiweaver/internal/apierr"
	"apiweaver/internal/catalog"
	_ "apiweaver/internal/catalog/all"
	"apiweaver/internal/config"
	"apiweaver/internal/fetch"
	"apiweaver/internal/metrics"
	"apiweaver/internal/metrics/datadog"
	"apiweaver/internal/openapi"
	"apiweaver/internal/pipeline"
	"apiweaver/internal/sample"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes returned by Run.
const (
	ExitOK         = 0
	ExitError      = 1 // the pipeline failed
	ExitUsage      = 2 // bad arguments or configuration
	ExitUnexpected = 3 // anything else, including panics
)

// usageError marks argument and flag parsing failures.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// app carries the process boundary into the commands.
type app struct {
	stdin      io.Reader
	stdout     io.Writer
	stderr     io.Writer
	httpClient *http.Client

	v          *viper.Viper
	configFile string
}

// Run executes the command line and returns the process exit code.
//
// It is split out from main so the command can be tested without spawning
// a process.
func Run(
	ctx context.Context,
	args []string,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	httpClient *http.Client,
) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "unexpected error: %v\n", r)
			code = ExitUnexpected
		}
	}()

	root := NewRootCmd(stdin, stdout, stderr, httpClient)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	code = ExitCode(err)
	fmt.Fprintf(stderr, "error: %v\n", err)
	if code == ExitUsage {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", root.Name())
	}
	return code
}

// ExitCode maps an error returned by a command to an exit code.
func ExitCode(err error) int {
	var ue *usageError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue), apierr.IsKind(err, apierr.KindConfiguration):
		return ExitUsage
	case apierr.KindOf(err) != apierr.KindUnknown:
		return ExitError
	default:
		return ExitUnexpected
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd(stdin io.Reader, stdout, stderr io.Writer, httpClient *http.Client) *cobra.Command {
	a := &app{
		stdin:      stdin,
		stdout:     stdout,
		stderr:     stderr,
		httpClient: httpClient,
		v:          viper.New(),
	}

	cmd := &cobra.Command{
		Use:   "apiweaver [url]",
		Short: "Generate an OpenAPI schema from an HTML documentation table",
		Long: `apiweaver fetches a vendor documentation page, finds the <h2> whose id ends
with the heading suffix (default "ObjectValues"), reads the first table after
it and writes the properties as an OpenAPI 3.1 object schema.

Pass "-" as the url to read the page from stdin.`,
		Example: `  # Generate a new document
  apiweaver https://docs.example.com/api/users -o users.yaml

  # Add the schema to an existing document
  apiweaver https://docs.example.com/api/projects -e api.yaml -o api.yaml

  # Inspect a saved page before extracting
  apiweaver - --selector "h2[id]" --text < page.html`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runGenerate,
	}
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	pf.String(config.KeyCatalogKind, "", "record runs in a catalog database: sqlite, postgres or mssql")
	pf.String(config.KeyCatalogDSN, "", "catalog connection string (sqlite: file path, default apiweaver.db)")
	pf.String(config.KeyMetricsBackend, "", "metrics backend: none or datadog (credentials from DD_API_KEY/DD_SITE)")
	pf.String(config.KeyMetricsTags, "", "extra metrics tags, comma separated (env:prod,team:docs)")

	f := cmd.Flags()
	f.StringP(config.KeyOutput, "o", config.DefaultOutput, "output file")
	f.StringP(config.KeyExisting, "e", "", "existing OpenAPI document to amend")
	f.BoolP(config.KeyVerbose, "v", false, "log each step")
	f.IntP(config.KeyTimeout, "t", config.DefaultTimeoutMS, "fetch timeout in milliseconds")
	f.String(config.KeyUserAgent, fetch.DefaultUserAgent, "User-Agent header for the fetch")
	f.String(config.KeyHeadingSuffix, config.DefaultHeadingSuffix, "suffix of the <h2> id that marks the section")
	f.String(config.KeySchemaName, "", "schema name (default: derived from the heading id)")
	f.String(config.KeyTitle, config.DefaultTitle, "info.title for new documents")
	f.String(config.KeyAPIVersion, config.DefaultAPIVersion, "info.version for new documents")
	f.String(config.KeyFormat, "", "output format: yaml or json (default: from the output extension)")
	f.Bool(config.KeyExamples, false, "add generated example values")
	f.Int64(config.KeySeed, 0, "seed for --examples (0 picks a random seed)")
	f.String(config.KeySelector, "", "debug: print the matches of this CSS selector instead of generating")
	f.Bool(config.KeyTextOnly, false, "debug: print text instead of outer HTML for --selector")

	_ = a.v.BindPFlags(f)
	_ = a.v.BindPFlags(pf)

	cmd.AddCommand(a.newHistoryCmd())
	return cmd
}

func (a *app) loadConfig(args []string) (config.Config, error) {
	if len(args) == 1 {
		a.v.Set(config.KeyURL, args[0])
	}
	return config.Load(a.v, a.configFile)
}

func (a *app) runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := a.loadConfig(args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(a.stderr, "", log.LstdFlags)

	stopMetrics, err := startMetrics(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer stopMetrics()

	opts := pipeline.Options{
		Fetcher: fetch.NewLoader(a.httpClient, cfg.Timeout(), cfg.UserAgent),
		Title:   cfg.Title,
		Version: cfg.APIVersion,
		Logger:  logger,
		Verbose: cfg.Verbose,
	}

	if cfg.DebugMode() {
		in := fetch.Input{URL: cfg.URL, Stdin: a.stdin}
		return pipeline.New(opts).PrintSelector(ctx, in, cfg.Selector, cfg.TextOnly, a.stdout)
	}

	if cfg.Examples {
		opts.Examples = sample.New(cfg.Seed).Example
	}
	if cfg.CatalogKind != "" {
		if !catalog.Registered(cfg.CatalogKind) {
			return apierr.New(apierr.KindConfiguration, "config", cfg.CatalogKind,
				"unsupported catalog kind (registered: %s)", strings.Join(catalog.Kinds(), ", "))
		}
		rec := &lazyCatalog{cfg: cfg}
		defer rec.Close()
		opts.Recorder = rec
	}

	writer, err := openapi.WriterFor(cfg.Output, cfg.Format)
	if err != nil {
		return apierr.Wrap(apierr.KindConfiguration, "config", cfg.Format, err)
	}

	res, err := pipeline.New(opts).Run(ctx, pipeline.Request{
		URL:           cfg.URL,
		Stdin:         a.stdin,
		HeadingSuffix: cfg.HeadingSuffix,
		SchemaName:    cfg.SchemaName,
		ExistingPath:  cfg.Existing,
		OutputPath:    cfg.Output,
		Writer:        writer,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "wrote schema %s (%d properties) to %s\n", res.SchemaName, len(res.Properties), res.OutputPath)
	return nil
}

func openCatalog(ctx context.Context, cfg config.Config) (catalog.Repository, error) {
	repo, err := catalog.New(ctx, catalog.Config{Kind: cfg.CatalogKind, DSN: cfg.CatalogDSN})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindCatalog, "catalog", cfg.CatalogKind, err)
	}
	if err := repo.EnsureTables(ctx); err != nil {
		repo.Close()
		return nil, apierr.Wrap(apierr.KindCatalog, "catalog", cfg.CatalogKind, err)
	}
	return repo, nil
}

// lazyCatalog opens the catalog on the first saved run, so a run that fails
// before writing its output creates no database.
type lazyCatalog struct {
	cfg  config.Config
	repo catalog.Repository
}

func (l *lazyCatalog) SaveRun(ctx context.Context, run *catalog.Run) (int64, error) {
	if l.repo == nil {
		repo, err := openCatalog(ctx, l.cfg)
		if err != nil {
			return 0, err
		}
		l.repo = repo
	}
	return l.repo.SaveRun(ctx, run)
}

func (l *lazyCatalog) Close() {
	if l.repo != nil {
		l.repo.Close()
	}
}

// startMetrics installs the configured metrics backend. The returned func
// flushes it and restores the no-op backend.
func startMetrics(ctx context.Context, cfg config.Config, logger *log.Logger) (func(), error) {
	if cfg.MetricsBackend != "datadog" {
		return func() {}, nil
	}

	b, err := datadog.NewBackend(ctx, datadog.Options{Tags: datadog.ParseTagsCSV(cfg.MetricsTags)})
	if err != nil {
		return nil, apierr.Wrap(apierr.KindConfiguration, "metrics", cfg.MetricsBackend, err)
	}
	metrics.SetBackend(b)
	return func() {
		if err := b.Close(); err != nil {
			logger.Printf("warning: flush metrics: %v", err)
		}
		metrics.SetBackend(nil)
	}, nil
}
