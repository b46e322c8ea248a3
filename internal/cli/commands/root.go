// Package commands implements the querykit command line.
package commands

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pawbazaar/querykit/internal/cli/config"
	"github.com/pawbazaar/querykit/internal/cli/ui"
	"github.com/pawbazaar/querykit/internal/listing"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// app holds what the subcommands share once the root flags are parsed
type app struct {
	configPath string
	noColor    bool
	store      string
	dsn        string
	fixtures   string

	config *config.Config
	logger *zap.Logger

	ask askFunc
}

// setup loads the configuration and builds the logger. Store flags override
// the configured store.
func (a *app) setup(cmd *cobra.Command) error {
	if a.config != nil {
		return nil
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return report(cmd, ui.ConfigError(err, a.noColor), err)
	}
	flags := cmd.Flags()
	if flags.Changed("store") {
		cfg.Store.Driver = a.store
	}
	if flags.Changed("dsn") {
		cfg.Store.DSN = a.dsn
	}
	if flags.Changed("fixtures") {
		cfg.Store.Fixtures = a.fixtures
	}

	if err := config.Validate(cfg); err != nil {
		return report(cmd, ui.ConfigError(err, a.noColor), err)
	}
	logger, err := cfg.Log.Logger()
	if err != nil {
		return report(cmd, ui.ConfigError(err, a.noColor), err)
	}

	a.config = cfg
	a.logger = logger
	return nil
}

// reportedError is an error the command already printed
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// report prints message to stderr and returns err marked as reported
func report(cmd *cobra.Command, message string, err error) error {
	fmt.Fprint(cmd.ErrOrStderr(), message)
	return reportedError{err}
}

// openCatalog opens the configured listing store
func (a *app) openCatalog(ctx context.Context) (*listing.Catalog, error) {
	return listing.Open(ctx, a.config.Store.Driver, a.config.Store.DSN, a.config.Store.Fixtures,
		listing.WithLogger(a.logger))
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{ask: survey.AskOne})
}

func newRootCommand(a *app) *cobra.Command {

	rootCmd := &cobra.Command{
		Use:   "querykit",
		Short: "Search pet marketplace listings",
		Long: color.CyanString(`querykit - listing search for the pet marketplace

querykit compiles loosely typed filter, sort and page requests into queries
over the listing store, from the command line or over HTTP.

Stores:
  • memory   sample fixtures held in memory
  • sqlite   a SQLite database file, migrated and seeded on first use
  • postgres a PostgreSQL database, migrated and seeded on first use`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./querykit.yaml)")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&a.store, "store", "", "listing store: memory, sqlite or postgres")
	flags.StringVar(&a.dsn, "dsn", "", "data source name of a sqlite or postgres store")
	flags.StringVar(&a.fixtures, "fixtures", "", "fixtures file seeding an empty store (default built-in sample)")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(newSearchCommand(a))
	rootCmd.AddCommand(newGetCommand(a))
	rootCmd.AddCommand(newScopesCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newDriftCommand(a))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the querykit version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			out := cmd.OutOrStdout()

			titleColor.Fprint(out, "querykit version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		var reported reportedError
		if errors.As(err, &reported) {
			return err
		}
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
