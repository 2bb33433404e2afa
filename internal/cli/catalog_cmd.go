package cli

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/quitplan/internal/catalog"
	"github.com/alexanderramin/quitplan/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newCatalogCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Load and inspect the phase blueprint, missions, conditions and templates",
	}

	cmd.AddCommand(
		newCatalogLoadCmd(app),
		newCatalogShowCmd(app),
	)

	return cmd
}

func newCatalogLoadCmd(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "load [PATH]",
		Short: "Validate a catalog file and store it",
		Long:  "Load a catalog YAML file. Without a path the configured catalog is used, or the built-in default.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.CatalogPath
			if len(args) == 1 {
				path = args[0]
			}

			var (
				c   *catalog.Catalog
				err error
			)
			if path == "" {
				c, err = catalog.LoadDefault()
			} else {
				c, err = catalog.Load(path)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				if errs := catalog.Validate(c); len(errs) > 0 {
					return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
				}
				fmt.Fprintln(out, formatter.Dim("Dry run: catalog is valid, nothing stored"))
				return nil
			}

			if err := requireService(app.UoW != nil, "database"); err != nil {
				return err
			}
			res, err := catalog.Seed(cmd.Context(), app.UoW, c, app.now().Now())
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatSeedResult(res))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without storing")
	return cmd
}

func newCatalogShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the stored catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireService(app.UoW != nil, "database"); err != nil {
				return err
			}
			c, err := catalog.Snapshot(cmd.Context(), app.UoW)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCatalog(c))
			return nil
		},
	}
}
