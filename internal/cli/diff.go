package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// DiffFlags holds flags for the diff command
type DiffFlags struct {
	Tree  bool
	Depth int
	DB    string
}

var diffFlags DiffFlags

// NewDiffCommand creates the diff command
func NewDiffCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff <file> <other>",
		Short: "Show what a file list has that another one lacks",
		Long: `Load file, then remove every file whose content hash also appears in
other. Directories left empty are removed. What remains is printed.
Pass "share" as other to diff against the share database.`,
		Args: cobra.ExactArgs(2),
		RunE: runDiff,
	}

	cmd.Flags().BoolVarP(&diffFlags.Tree, "tree", "t", true, "print the remaining directory tree")
	cmd.Flags().IntVarP(&diffFlags.Depth, "depth", "d", 0, "maximum tree depth (0 = unlimited)")
	cmd.Flags().StringVar(&diffFlags.DB, "db", "", "share database, required when other is \"share\"")

	return cmd
}

// ownShareSource names the share database as the other side of a diff
const ownShareSource = "share"

func runDiff(cmd *cobra.Command, args []string) error {
	if diffFlags.Depth < 0 {
		return fmt.Errorf("invalid depth: %d", diffFlags.Depth)
	}
	file, other := args[0], args[1]

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := listingOptions{fileName: file}
	own := other == ownShareSource
	if own {
		if opts.share, err = s.openShare(diffFlags.DB); err != nil {
			return err
		}
		other = ""
	} else if opts.share, err = s.optionalShare(diffFlags.DB); err != nil {
		return err
	}

	start := time.Now()
	l, rec, err := s.newListing(opts)
	if err != nil {
		return err
	}
	l.LoadFullList("")
	l.DiffAgainstList(other, own)
	if err := finish(l, rec); err != nil {
		return fmt.Errorf("failed to diff %s: %w", file, err)
	}

	return s.report(l, diffFlags.Tree, diffFlags.Depth, time.Since(start))
}
