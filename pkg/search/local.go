package search

import (
	"github.com/sdejongh/dirlisting/pkg/models"
)

// SearchDirectory matches q against dir and everything below it, adding
// result paths to rs until it holds max results.
//
// A matching directory yields the path of its parent, the place it would
// be downloaded into. A matching file yields the path of its directory.
// Hash queries only compare file hashes. Synthetic directories are skipped.
func SearchDirectory(dir *models.Directory, q *Query, max int, rs *ResultSet) {
	if dir.Synthetic || rs.Len() >= max {
		return
	}

	if q.HasRoot() {
		for _, f := range dir.Files {
			if f.TTH == q.Root() {
				rs.Insert(dir.Path())
				break
			}
		}
	} else {
		if parent := dir.Parent(); parent != nil && q.MatchesDirectory(dir.Name) {
			path := parent.Path()
			if !rs.Contains(path) && q.MatchesSize(dir.TotalSize(false)) {
				rs.Insert(path)
			}
		}

		if q.ItemType() != TypeDirectory {
			for _, f := range dir.Files {
				if q.MatchesFile(f.Name, f.Size, f.Date) {
					rs.Insert(dir.Path())
					break
				}
			}
		}
	}

	for _, c := range dir.Directories {
		if rs.Len() >= max {
			return
		}
		SearchDirectory(c, q, max, rs)
	}
}
