package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the feierabend service
var rootCmd = &cobra.Command{
	Use:   "feierabend",
	Short: "Keeps linked Google calendars consistent and enforces an evening cutoff",
	Long: `feierabend reacts to Google Calendar push notifications and keeps a set
of linked calendars consistent:

  - A description edit on one instance of a project series (summary ending
    in the project marker) is propagated to every sibling instance.
  - Events flagged with the split color are truncated or moved so that
    nothing runs past the daily work-end cutoff or overlaps another event;
    the cut-off remainder is rescheduled into the earliest free window
    across all watched calendars.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "feierabend version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
