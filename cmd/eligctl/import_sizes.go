package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"gonogo/internal/sizestd"
	"gonogo/internal/sizestd/importer"
	sizepostgres "gonogo/internal/sizestd/store/postgres"
)

func newImportSizesCmd(e *env) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import-sizes FILE",
		Short: "Load a size standards table (.csv or .xlsx) into the database",
		Long:  "Reads a table with headers " + fmt.Sprint(importer.Columns) + " and upserts\n" +
			"every row keyed by NAICS code. --dry-run only validates the file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			format, err := importer.FormatFor(filepath.Base(path), "")
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := importer.Parse(format, f)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(e.out, "%s: %d valid rows\n", path, len(rows))
				return nil
			}

			db, err := e.database(cmd.Context())
			if err != nil {
				return err
			}
			n, err := sizestd.New(sizepostgres.NewPostgres(db), sizestd.WithLogger(e.log)).Import(cmd.Context(), rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.out, "imported %d size standards\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing")
	return cmd
}
