package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pawbazaar/querykit/internal/cli/ui"
)

func newScopesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List the named scopes searches can apply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			catalog, err := a.openCatalog(cmd.Context())
			if err != nil {
				return err
			}
			defer catalog.Close()

			out := cmd.OutOrStdout()
			ui.Header(out, "Scopes", a.noColor)
			for _, name := range catalog.Scopes().List() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
