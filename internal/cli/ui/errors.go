package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Context      string
	Problem      string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError renders an error with optional suggestions and help commands
//
// Example output:
//
//	❌ UNKNOWN SCOPE: availble
//	   Did you mean: available?
//
//	   → See all scopes: querykit scopes
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)
	if opts.NoColor {
		red.DisableColor()
		yellow.DisableColor()
		cyan.DisableColor()
	}

	if opts.Context != "" {
		red.Fprintf(&b, "❌ %s: %s\n", strings.ToUpper(opts.Context), opts.Problem)
	} else {
		red.Fprintf(&b, "❌ %s\n", opts.Problem)
	}

	if len(opts.Suggestions) > 0 {
		yellow.Fprintf(&b, "   Did you mean: %s?\n", strings.Join(opts.Suggestions, ", "))
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// UnknownNameError reports a scope or include that does not exist, with the
// closest known names as suggestions
func UnknownNameError(kind, name string, known []string, noColor bool) string {
	help := []string{"Get help: querykit search --help"}
	if kind == "scope" {
		help = append([]string{"See all scopes: querykit scopes"}, help...)
	}
	return FormatError(ErrorOptions{
		Context:      "unknown " + kind,
		Problem:      name,
		Suggestions:  FindSimilar(name, known),
		HelpCommands: help,
		NoColor:      noColor,
	})
}

// QueryError reports a search that could not run
func QueryError(err error, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:      "search failed",
		Problem:      err.Error(),
		HelpCommands: []string{"Get help: querykit search --help"},
		NoColor:      noColor,
	})
}

// ConfigError reports an invalid configuration
func ConfigError(err error, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "configuration error",
		Problem: err.Error(),
		HelpCommands: []string{
			"View config: cat querykit.yaml",
			"Get help: querykit --help",
		},
		NoColor: noColor,
	})
}
