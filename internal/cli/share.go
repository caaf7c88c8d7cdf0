package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/output"
)

// ShareFlags holds flags for the share commands
type ShareFlags struct {
	DB        string
	RealRoot  string
	Recursive bool
	Depth     int
}

var shareFlags ShareFlags

// NewShareCommand creates the share command
func NewShareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Manage and query the local share database",
		Long: `The share database holds the local user's own share. It answers
partial list requests, searches in the own list and duplicate checks.`,
	}

	cmd.PersistentFlags().StringVar(&shareFlags.DB, "db", "", "share database path (default from share.database)")

	cmd.AddCommand(newShareImportCommand())
	cmd.AddCommand(newSharePartialCommand())
	cmd.AddCommand(newShareBrowseCommand())
	cmd.AddCommand(newShareSearchCommand())
	cmd.AddCommand(newSharePathsCommand())

	return cmd
}

func newShareImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add the content of a file list to the share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			realRoot := shareFlags.RealRoot
			if realRoot == "" {
				realRoot = s.cfg.Share.RealRoot
			}
			if realRoot == "" {
				return errors.New("no real root given (use --real-root or share.real_root)")
			}

			idx, err := s.openShare(shareFlags.DB)
			if err != nil {
				return err
			}
			o, err := s.opener()
			if err != nil {
				return err
			}

			start := time.Now()
			rc, err := o.Open(s.ctx, args[0])
			if err != nil {
				return err
			}
			defer rc.Close()

			stats, err := idx.ImportListing(s.ctx, rc, realRoot)
			if err != nil {
				return fmt.Errorf("failed to import %s: %w", args[0], err)
			}
			if s.progress != nil {
				s.progress.Finish()
			}

			return s.formatter.Summary(output.Summary{
				Nick:        s.cfg.Listing.Nick,
				Directories: stats.Directories,
				Files:       stats.Files,
				Complete:    true,
				Duration:    time.Since(start),
			})
		},
	}

	cmd.Flags().StringVar(&shareFlags.RealRoot, "real-root", "", "filesystem directory backing the imported items")

	return cmd
}

func newSharePartialCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partial [path]",
		Short: "Write the partial file list of a shared directory",
		Long: `Write the FileListing document describing path (default "/") to
standard output. Without --recursive only the direct children are listed and
subdirectories are marked incomplete.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			idx, err := s.openShare(shareFlags.DB)
			if err != nil {
				return err
			}

			doc, err := idx.GeneratePartialListing(s.ctx, pathArg(args), shareFlags.Recursive)
			if err != nil {
				return err
			}
			_, err = s.out.Write(doc)
			return err
		},
	}

	cmd.Flags().BoolVarP(&shareFlags.Recursive, "recursive", "r", false, "include the whole subtree")

	return cmd
}

func newShareBrowseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [path]",
		Short: "Browse the own list the way a peer sees it",
		Long: `Open the own list as a partial listing, load the root and path (default "/")
on demand and print the resulting tree.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if shareFlags.Depth < 0 {
				return fmt.Errorf("invalid depth: %d", shareFlags.Depth)
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			idx, err := s.openShare(shareFlags.DB)
			if err != nil {
				return err
			}

			start := time.Now()
			l, rec, err := s.newListing(listingOptions{ownList: true, partial: true, share: idx})
			if err != nil {
				return err
			}
			base := pathArg(args)
			l.MergePartialList("", "/", nil)
			if base != "/" {
				l.MergePartialList("", base, nil)
			}
			if err := finish(l, rec); err != nil {
				return fmt.Errorf("failed to browse %s: %w", base, err)
			}

			return s.report(l, true, shareFlags.Depth, time.Since(start))
		},
	}

	cmd.Flags().IntVarP(&shareFlags.Depth, "depth", "d", 0, "maximum tree depth (0 = unlimited)")

	return cmd
}

func newShareSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the own list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := searchParams(args[0])
			if err != nil {
				return err
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			idx, err := s.openShare(shareFlags.DB)
			if err != nil {
				return err
			}

			l, rec, err := s.newListing(listingOptions{ownList: true, partial: true, share: idx})
			if err != nil {
				return err
			}
			l.Search(params)
			if err := finish(l, rec); err != nil {
				return fmt.Errorf("failed to search share: %w", err)
			}
			return s.formatter.Results(args[0], l.SearchResults())
		},
	}

	addSearchFlags(cmd)

	return cmd
}

func newSharePathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "paths <path>",
		Short: "Print the filesystem paths backing a listing path",
		Long: `Print the real paths of a shared item. Directory paths end with "/";
anything else names a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			idx, err := s.openShare(shareFlags.DB)
			if err != nil {
				return err
			}

			paths, err := idx.LocalPaths(s.ctx, args[0])
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(s.out, p)
			}
			return nil
		},
	}
}

// pathArg returns the listing path given as first argument, or the root
func pathArg(args []string) string {
	if len(args) == 0 {
		return "/"
	}
	return models.ToAdcPath(args[0])
}
