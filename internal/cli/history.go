package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"apiweaver/internal/apierr"

	"github.com/spf13/cobra"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List runs recorded in the catalog",
		Example: `  apiweaver history --catalog-kind sqlite --catalog-dsn runs.db
  apiweaver history --catalog-kind postgres --catalog-dsn "$DATABASE_URL" --limit 5`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.NoArgs(cmd, args); err != nil {
				return &usageError{err}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(nil)
			if err != nil {
				return err
			}
			if cfg.CatalogKind == "" {
				return apierr.New(apierr.KindConfiguration, "history", "", "--catalog-kind is required")
			}

			repo, err := openCatalog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			runs, err := repo.ListRuns(cmd.Context(), limit)
			if err != nil {
				return apierr.Wrap(apierr.KindCatalog, "history", cfg.CatalogKind, err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "No runs recorded.")
				return nil
			}

			w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCREATED\tSCHEMA\tPROPERTIES\tSOURCE\tOUTPUT")
			for _, r := range runs {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.CreatedAt.Format(time.RFC3339), r.SchemaName, r.PropertyCount, r.SourceURL, r.OutputPath)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show, newest first")
	return cmd
}
