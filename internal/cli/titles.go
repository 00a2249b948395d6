package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanonone/wikihop/pkg/table"
)

func (a *app) titlesCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "titles <prefix>",
		Short: "List stored titles starting with a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer store.Close()

			prefixer, ok := store.(table.Prefixer)
			if !ok {
				return fmt.Errorf("backend %s cannot list titles", a.cfg.Store.Backend)
			}
			titles, err := prefixer.TitlesWithPrefix(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			for _, t := range titles {
				fmt.Fprintln(a.out, t)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of titles (0 = all)")
	return cmd
}
