package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dirlisting/pkg/listing"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

// SearchFlags holds flags for the search commands
type SearchFlags struct {
	Size       int64
	SizeMode   string
	Type       string
	Extensions []string
	Directory  string
	DB         string
}

var searchFlags SearchFlags

// NewSearchCommand creates the search command
func NewSearchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <file> <query>",
		Short: "Search a file list",
		Long: `Load a file list and print the directories holding matches of query.
Terms prefixed with "-" exclude matches. A TTH (or "TTH:<hash>") searches by
content hash.`,
		Args: cobra.ExactArgs(2),
		RunE: runSearch,
	}

	addSearchFlags(cmd)
	cmd.Flags().StringVar(&searchFlags.DB, "db", "", "share database used for duplicate marks")

	return cmd
}

func addSearchFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&searchFlags.Size, "size", 0, "size bound in bytes, used with --size-mode")
	cmd.Flags().StringVar(&searchFlags.SizeMode, "size-mode", string(search.SizeAny), "size mode: any, at-least, at-most, exact")
	cmd.Flags().StringVar(&searchFlags.Type, "type", string(search.TypeAny), "item type: any, file, directory")
	cmd.Flags().StringSliceVar(&searchFlags.Extensions, "ext", []string{}, "file extensions to match (e.g. mp3,flac)")
	cmd.Flags().StringVar(&searchFlags.Directory, "dir", "", "only search below this listing path")
}

// searchParams validates the search flags and builds the request
func searchParams(query string) (listing.SearchParams, error) {
	mode := search.SizeMode(searchFlags.SizeMode)
	switch mode {
	case search.SizeAny, search.SizeAtLeast, search.SizeAtMost, search.SizeExact:
	default:
		return listing.SearchParams{}, fmt.Errorf("invalid size mode: %s (valid: any, at-least, at-most, exact)", searchFlags.SizeMode)
	}

	itemType := search.ItemType(searchFlags.Type)
	switch itemType {
	case search.TypeAny, search.TypeFile, search.TypeDirectory:
	default:
		return listing.SearchParams{}, fmt.Errorf("invalid item type: %s (valid: any, file, directory)", searchFlags.Type)
	}

	if searchFlags.Size < 0 {
		return listing.SearchParams{}, fmt.Errorf("invalid size: %d", searchFlags.Size)
	}
	if strings.TrimSpace(query) == "" {
		return listing.SearchParams{}, fmt.Errorf("empty search query")
	}

	exts := make([]string, 0, len(searchFlags.Extensions))
	for _, ext := range searchFlags.Extensions {
		if ext = strings.TrimPrefix(strings.TrimSpace(ext), "."); ext != "" {
			exts = append(exts, ext)
		}
	}

	dir := ""
	if searchFlags.Directory != "" {
		dir = models.ToAdcPath(searchFlags.Directory)
	}

	return listing.SearchParams{
		Options: search.Options{
			Text:       query,
			Size:       searchFlags.Size,
			SizeMode:   mode,
			Type:       itemType,
			Extensions: exts,
		},
		Directory: dir,
	}, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	params, err := searchParams(args[1])
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	share, err := s.optionalShare(searchFlags.DB)
	if err != nil {
		return err
	}

	l, rec, err := s.newListing(listingOptions{fileName: args[0], share: share})
	if err != nil {
		return err
	}
	l.LoadFullList("")
	l.Search(params)
	if err := finish(l, rec); err != nil {
		return fmt.Errorf("failed to search %s: %w", args[0], err)
	}

	if s.progress != nil {
		s.progress.Finish()
	}
	return s.formatter.Results(args[1], l.SearchResults())
}
