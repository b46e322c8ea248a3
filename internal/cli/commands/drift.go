package commands

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/pawbazaar/querykit/internal/cli/ui"
	"github.com/pawbazaar/querykit/internal/listing"
	"github.com/pawbazaar/querykit/internal/web/response"
)

func newDriftCommand(a *app) *cobra.Command {
	var (
		against string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare the store with its fixtures",
		Long: `Compare the stored listings with a fixtures file and report listings that
were changed, added or removed since the store was seeded.`,
		Example: `  querykit drift --store sqlite --dsn listings.db
  querykit drift --against fixtures.json --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			path := a.config.Store.Fixtures
			if cmd.Flags().Changed("against") {
				path = against
			}
			fx, err := listing.LoadFixtures(path)
			if err != nil {
				return report(cmd, ui.ConfigError(err, a.noColor), err)
			}

			ctx := cmd.Context()
			catalog, err := a.openCatalog(ctx)
			if err != nil {
				return err
			}
			defer catalog.Close()

			drift, err := catalog.Drift(ctx, fx)
			if err != nil {
				return report(cmd, ui.QueryError(err, a.noColor), err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				if drift == nil {
					drift = []listing.Drift{}
				}
				body, err := response.Marshal(response.Envelope{Data: drift})
				if err != nil {
					return err
				}
				_, err = out.Write(body)
				return err
			}
			renderDrift(out, drift, len(fx.Listings), a.noColor)
			return nil
		},
	}

	cmd.Flags().StringVar(&against, "against", "", "fixtures file to compare with (default store.fixtures or the built-in sample)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the drift as JSON")
	return cmd
}

func renderDrift(w io.Writer, drift []listing.Drift, fixtures int, noColor bool) {
	ui.Header(w, fmt.Sprintf("%d of %d listings drifted", len(drift), fixtures), noColor)

	kinds := map[listing.DriftKind]*color.Color{
		listing.DriftChanged: color.New(color.FgYellow),
		listing.DriftAdded:   color.New(color.FgGreen),
		listing.DriftMissing: color.New(color.FgRed),
	}
	for _, c := range kinds {
		if noColor {
			c.DisableColor()
		}
	}

	for _, d := range drift {
		kinds[d.Kind].Fprintf(w, "%-8s", d.Kind)
		fmt.Fprintf(w, " %s (%s)\n", d.Title, d.ID)
		for _, c := range d.Changes {
			fmt.Fprintf(w, "         %s: %s -> %s\n", c.Field, formatValue(c.OldValue), formatValue(c.NewValue))
		}
	}
}

// formatValue renders a tracked field value
func formatValue(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "-"
		}
		v = rv.Elem().Interface()
	}
	switch x := v.(type) {
	case time.Time:
		return x.Format(time.RFC3339)
	case []string:
		return "[" + strings.Join(x, ", ") + "]"
	}
	return fmt.Sprint(v)
}
