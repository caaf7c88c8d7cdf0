package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the dirlisting command with every subcommand
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dirlisting",
		Short: "Browse, search and diff peer file lists",
		Long: `dirlisting loads FileListing documents shared by peers, either complete
or one directory at a time, and lets you search them, diff them against
other lists or the local share, and serve partial lists of the local share.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewLoadCommand())
	rootCmd.AddCommand(NewSearchCommand())
	rootCmd.AddCommand(NewDiffCommand())
	rootCmd.AddCommand(NewShareCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
