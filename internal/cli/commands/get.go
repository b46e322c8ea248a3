package commands

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pawbazaar/querykit/internal/cli/ui"
	"github.com/pawbazaar/querykit/internal/orm/filter"
	webquery "github.com/pawbazaar/querykit/internal/web/query"
	"github.com/pawbazaar/querykit/internal/web/response"
)

// errListingNotFound is returned when no listing has the requested id
var errListingNotFound = errors.New("listing not found")

func newGetCommand(a *app) *cobra.Command {
	var (
		includes []string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:     "get <id>",
		Short:   "Show one listing",
		Example: `  querykit get 7c9e6679-7425-40de-944b-000000000004 --include owner`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}

			id, err := uuid.Parse(args[0])
			if err != nil {
				err = fmt.Errorf("%w: listing id %q: %v", webquery.ErrInvalidParameter, args[0], err)
				return report(cmd, ui.QueryError(err, a.noColor), err)
			}

			ctx := cmd.Context()
			catalog, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close()

			var spec filter.Specification
			spec.Add("id", filter.Equals, id.String())
			b, err := catalog.Query().Tracking(false).Filter(spec)
			if err != nil {
				return report(cmd, ui.QueryError(err, a.noColor), err)
			}
			for _, path := range includes {
				b = b.Include(path)
			}

			item, ok, err := b.Single(ctx)
			if err != nil {
				search := &webquery.Search{Include: includes}
				return reportSearchError(cmd, a, catalog, search, err)
			}
			if !ok {
				err := fmt.Errorf("%w: %s", errListingNotFound, id)
				return report(cmd, ui.FormatError(ui.ErrorOptions{
					Context:      "not found",
					Problem:      fmt.Sprintf("no listing has id %s", id),
					HelpCommands: []string{"querykit search"},
					NoColor:      a.noColor,
				}), err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				body, err := response.Marshal(response.Envelope{Data: item})
				if err != nil {
					return err
				}
				_, err = out.Write(body)
				return err
			}
			ui.RenderListing(out, item, a.noColor)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&includes, "include", "i", nil, "relationships to load: owner, tags")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the listing as JSON")
	return cmd
}
