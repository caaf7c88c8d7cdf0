package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/output"
	"github.com/sdejongh/dirlisting/pkg/shareindex"
)

// LoadFlags holds flags for the load command
type LoadFlags struct {
	Tree  bool
	Depth int
	DB    string
}

var loadFlags LoadFlags

// NewLoadCommand creates the load command
func NewLoadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Load a file list and show its content",
		Long: `Load a FileListing document (.xml or .xml.bz2, local or s3://bucket/key)
and print a summary of its content. With --tree the directory tree is printed.
When a share database is available, items are marked as duplicates of the
share or of the download queue.`,
		Args: cobra.ExactArgs(1),
		RunE: runLoad,
	}

	cmd.Flags().BoolVarP(&loadFlags.Tree, "tree", "t", false, "print the directory tree")
	cmd.Flags().IntVarP(&loadFlags.Depth, "depth", "d", 0, "maximum tree depth (0 = unlimited)")
	cmd.Flags().StringVar(&loadFlags.DB, "db", "", "share database used for duplicate marks")

	return cmd
}

func runLoad(cmd *cobra.Command, args []string) error {
	if loadFlags.Depth < 0 {
		return fmt.Errorf("invalid depth: %d", loadFlags.Depth)
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	share, err := s.optionalShare(loadFlags.DB)
	if err != nil {
		return err
	}

	start := time.Now()
	l, rec, err := s.newListing(listingOptions{fileName: args[0], share: share})
	if err != nil {
		return err
	}
	l.LoadFullList("")
	if err := finish(l, rec); err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	return s.report(l, loadFlags.Tree, loadFlags.Depth, time.Since(start))
}

// optionalShare opens the share database when one is given or configured
func (s *session) optionalShare(path string) (*shareindex.Index, error) {
	if path == "" && s.cfg.Share.Database == "" {
		return nil, nil
	}
	return s.openShare(path)
}

// report prints the tree of l when asked, then its summary
func (s *session) report(l *listing.Listing, tree bool, depth int, d time.Duration) error {
	if s.progress != nil {
		s.progress.Finish()
	}

	root := l.Root()
	if tree {
		if err := s.formatter.Tree(root, depth); err != nil {
			return err
		}
	}
	return s.formatter.Summary(output.Summarize(l.Nick(), root, d))
}
