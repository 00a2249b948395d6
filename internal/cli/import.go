package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikihop/pkg/table"
)

func (a *app) importCommand() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Build a table from an adjacency file",
		Long: `Build a table from an adjacency file with one record per line:

  title<TAB>L<TAB>link1<|>link2<|>...
  title<TAB>R<TAB>redirect target

Use "-" to read from standard input. The table is written to the configured
backend and location.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("batch-size") {
				a.cfg.Import.BatchSize = batchSize
			}
			return a.runImport(cmd, args[0])
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "records per write batch (0 = backend default)")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, path string) (err error) {
	ctx := cmd.Context()

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	backend, err := table.ParseBackend(a.cfg.Store.Backend)
	if err != nil {
		return err
	}
	w, err := table.Create(ctx, backend, a.cfg.Store.Path, a.cfg.Import.BatchSize)
	if err != nil {
		return fmt.Errorf("create %s table %q: %w", backend, a.cfg.Store.Path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	n, err := table.Import(ctx, r, w, table.ImportOptions{
		ProgressEvery: 100000,
		OnProgress: func(records int) {
			a.logger.Info("importing", "records", records)
		},
	})
	if err != nil {
		return err
	}
	a.logger.Info("import finished", "records", n, "backend", backend, "path", a.cfg.Store.Path)
	fmt.Fprintf(a.out, "imported %d records\n", n)
	return nil
}
