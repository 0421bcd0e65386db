package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dyluth/kanban/internal/config"
)

var versionString = "dev"

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

// newRootCmd builds the command tree. Each call returns independent flag
// state so tests can execute commands repeatedly.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "kanban",
		Short: "Kanban - a board client that updates optimistically",
		Long: `Kanban manages a single board of ordered columns and cards.

Card moves, additions and deletions are applied locally first and sent to the
server in the background; if the server rejects one, the board is reloaded.
Other edits wait for the server before changing anything.

The backend is Redis (direct) or a kanband server, selected in kanban.yml.`,
		Version: versionString,
		// Prevent silent success when unknown flags are passed to root command
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		FParseErrWhitelist: cobra.FParseErrWhitelist{},
		SilenceErrors:      true,
		SilenceUsage:       true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", config.DefaultPath, "Path to kanban.yml (defaults apply when the file is missing)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log coordinator activity to stderr")

	root.AddCommand(
		newInitCmd(opts),
		newBoardCmd(opts),
		newColumnCmd(opts),
		newCardCmd(opts),
		newFixOrdersCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// Execute runs the CLI. Cobra's own error and usage printing is silenced;
// user errors are printed by the printer package.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	versionString = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}
