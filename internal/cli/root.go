package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with
// values injected via ldflags at build time.
//
// Parameters:
//   - v: semantic version string (e.g., "v1.2.3")
//   - c: git commit SHA (short or long form)
//   - d: build timestamp (e.g., "2026-08-20T14:32:01Z")
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// rootOpts holds persistent flags shared by all commands.
type rootOpts struct {
	configPath string // explicit config file, "" means the default location
}

// Execute runs the visio2xml CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands (convert,
// batch, info, check, cache), configures logging based on the --verbose
// and --quiet flags, and executes the command tree.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//   - With --quiet (-q): error level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
//
// Example:
//
//	func main() {
//	    cli.SetVersion("v1.0.0", "abc123", "2026-08-20")
//	    if err := cli.Execute(context.Background()); err != nil {
//	        os.Exit(1)
//	    }
//	}
func Execute(ctx context.Context) error {
	var (
		verbose bool
		quiet   bool
	)
	opts := &rootOpts{}

	root := &cobra.Command{
		Use:           "visio2xml",
		Short:         "visio2xml converts Visio drawings to editable diagram formats",
		Long:          `visio2xml is a CLI tool for converting Visio (.vsdx) drawings into draw.io files, Mermaid flowcharts, and Graphviz DOT or SVG renderings, optionally recognizing text inside embedded images.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true, // main prints the error once
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			switch {
			case verbose:
				level = charmlog.DebugLevel
			case quiet:
				level = charmlog.ErrorLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("visio2xml %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/visio2xml/config.toml)")

	root.AddCommand(newConvertCmd(opts))
	root.AddCommand(newBatchCmd(opts))
	root.AddCommand(newInfoCmd(opts))
	root.AddCommand(newCheckCmd(opts))
	root.AddCommand(newCacheCmd(opts))

	return root.ExecuteContext(ctx)
}
