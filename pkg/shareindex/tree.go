package shareindex

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sdejongh/dirlisting/pkg/filelist"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/search"
)

type dirRow struct {
	id       int64
	parentID sql.NullInt64
	name     string
	path     string
	modified int64
}

func (x *Index) lookupDir(ctx context.Context, path string) (dirRow, error) {
	var d dirRow
	err := x.db.QueryRowContext(ctx,
		`SELECT id, parent_id, name, path, modified_at FROM directories WHERE path_lower = ?`,
		models.LowerPath(path)).Scan(&d.id, &d.parentID, &d.name, &d.path, &d.modified)
	if errors.Is(err, sql.ErrNoRows) {
		return d, &models.ListingError{Kind: models.ErrNotFound, Op: "share", Path: path}
	}
	if err != nil {
		return d, fmt.Errorf("failed to look up %s: %w", path, err)
	}
	return d, nil
}

// GeneratePartialListing describes the shared directory at base. Without
// recursion subdirectories are listed as incomplete with their total size.
func (x *Index) GeneratePartialListing(ctx context.Context, base string, recursive bool) ([]byte, error) {
	defer observe("partial_listing", time.Now())

	row, err := x.lookupDir(ctx, base)
	if err != nil {
		return nil, models.Unavailable("generate", base, err)
	}

	var dir *models.Directory
	if recursive {
		dir, err = x.loadSubtree(ctx, row)
	} else {
		dir, err = x.loadLevel(ctx, row)
	}
	if err != nil {
		return nil, models.Unavailable("generate", base, err)
	}

	var buf bytes.Buffer
	header := filelist.Header{Base: row.path, BaseDate: fromUnix(row.modified)}
	if err := filelist.Encode(&buf, header, dir, recursive); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// loadLevel loads the files of row and its subdirectories as incomplete
func (x *Index) loadLevel(ctx context.Context, row dirRow) (*models.Directory, error) {
	dir := models.NewDirectory(row.name, models.DirNormal, 0, fromUnix(row.modified))

	children, err := x.childDirs(ctx, row.id)
	if err != nil {
		return nil, err
	}
	for _, c := range children {
		size, hasChildren, err := x.dirStats(ctx, c)
		if err != nil {
			return nil, err
		}
		typ := models.DirIncompleteNoChildren
		if hasChildren {
			typ = models.DirIncompleteWithChildren
		}
		dir.AddDirectory(models.NewDirectory(c.name, typ, size, fromUnix(c.modified)))
	}

	files, err := x.filesOf(ctx, `f.directory_id = ?`, row.id)
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		dir.AddFile(f.file)
	}

	dir.SortDirectories(false)
	dir.SortFiles()
	return dir, nil
}

// loadSubtree loads row and everything below it as complete directories
func (x *Index) loadSubtree(ctx context.Context, row dirRow) (*models.Directory, error) {
	top := models.NewDirectory(row.name, models.DirNormal, 0, fromUnix(row.modified))
	byID := map[int64]*models.Directory{row.id: top}

	rows, err := x.db.QueryContext(ctx,
		`SELECT id, parent_id, name, path, modified_at FROM directories
		 WHERE path_lower LIKE ? ESCAPE '\' AND id != ? ORDER BY id`,
		likePrefix(models.LowerPath(row.path)), row.id)
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	var dirs []dirRow
	for rows.Next() {
		var d dirRow
		if err := rows.Scan(&d.id, &d.parentID, &d.name, &d.path, &d.modified); err != nil {
			rows.Close()
			return nil, err
		}
		dirs = append(dirs, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// parents are always inserted before their children
	for _, d := range dirs {
		parent, ok := byID[d.parentID.Int64]
		if !ok {
			continue
		}
		byID[d.id] = parent.AddDirectory(models.NewDirectory(d.name, models.DirNormal, 0, fromUnix(d.modified)))
	}

	files, err := x.filesOf(ctx, `d.path_lower LIKE ? ESCAPE '\'`, likePrefix(models.LowerPath(row.path)))
	if err != nil {
		return nil, err
	}
	for _, f := range files {
		if parent, ok := byID[f.dirID]; ok {
			parent.AddFile(f.file)
		}
	}

	top.SortDirectories(true)
	sortFiles(top)
	return top, nil
}

func sortFiles(d *models.Directory) {
	d.SortFiles()
	for _, c := range d.Directories {
		sortFiles(c)
	}
}

func (x *Index) childDirs(ctx context.Context, parentID int64) ([]dirRow, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT id, parent_id, name, path, modified_at FROM directories WHERE parent_id = ?`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list directories: %w", err)
	}
	defer rows.Close()

	var out []dirRow
	for rows.Next() {
		var d dirRow
		if err := rows.Scan(&d.id, &d.parentID, &d.name, &d.path, &d.modified); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// dirStats returns the total file size below d and whether d has subdirectories
func (x *Index) dirStats(ctx context.Context, d dirRow) (int64, bool, error) {
	var size int64
	err := x.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(f.size), 0) FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE d.path_lower LIKE ? ESCAPE '\'`,
		likePrefix(models.LowerPath(d.path))).Scan(&size)
	if err != nil {
		return 0, false, fmt.Errorf("failed to size %s: %w", d.path, err)
	}

	var children bool
	err = x.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM directories WHERE parent_id = ?)`, d.id).Scan(&children)
	if err != nil {
		return 0, false, fmt.Errorf("failed to list %s: %w", d.path, err)
	}
	return size, children, nil
}

type fileRow struct {
	dirID int64
	file  *models.File
}

func (x *Index) filesOf(ctx context.Context, where string, args ...interface{}) ([]fileRow, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT f.directory_id, f.name, f.size, f.tth, f.modified_at
		 FROM files f JOIN directories d ON d.id = f.directory_id WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var out []fileRow
	for rows.Next() {
		var (
			r        fileRow
			name     string
			size     int64
			tth      string
			modified int64
		)
		if err := rows.Scan(&r.dirID, &name, &size, &tth, &modified); err != nil {
			return nil, err
		}
		r.file = models.NewFile(name, size, tth, fromUnix(modified))
		out = append(out, r)
	}
	return out, rows.Err()
}

// Search returns the listing paths below dir matching q, at most max.
// Hash queries are answered from the hash index; other queries are matched
// against the loaded subtree like a remote listing.
func (x *Index) Search(ctx context.Context, q *search.Query, max int, dir string) ([]string, error) {
	defer observe("search", time.Now())

	scope := models.ToAdcPath(dir)
	if q.HasRoot() {
		return x.searchHash(ctx, q.Root(), max, scope)
	}

	row, err := x.lookupDir(ctx, scope)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	sub, err := x.loadSubtree(ctx, row)
	if err != nil {
		return nil, err
	}

	// rebuild the ancestors so result paths are absolute
	parent := models.NewRoot()
	segments := models.SplitPath(row.path)
	for i, name := range segments {
		if i == len(segments)-1 {
			parent.AddDirectory(sub)
			break
		}
		parent = parent.AddDirectory(models.NewDirectory(name, models.DirNormal, 0, time.Time{}))
	}

	rs := search.NewResultSet()
	search.SearchDirectory(sub, q, max, rs)
	return rs.Paths(), nil
}

func (x *Index) searchHash(ctx context.Context, tth string, max int, scope string) ([]string, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT DISTINCT d.path FROM files f JOIN directories d ON d.id = f.directory_id
		 WHERE f.tth = ? AND d.path_lower LIKE ? ESCAPE '\' ORDER BY d.path LIMIT ?`,
		tth, likePrefix(models.LowerPath(scope)), max)
	if err != nil {
		return nil, fmt.Errorf("failed to search hash: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LocalPaths returns the filesystem paths backing a shared directory
// (path ending in "/") or file
func (x *Index) LocalPaths(ctx context.Context, path string) ([]string, error) {
	defer observe("local_paths", time.Now())

	var (
		rows *sql.Rows
		err  error
	)
	if len(path) > 0 && path[len(path)-1] == '/' {
		rows, err = x.db.QueryContext(ctx,
			`SELECT real_path FROM directories WHERE path_lower = ? AND real_path != ''`,
			models.LowerPath(path))
	} else {
		rows, err = x.db.QueryContext(ctx,
			`SELECT f.real_path FROM files f JOIN directories d ON d.id = f.directory_id
			 WHERE d.path_lower = ? AND f.name_lower = ? AND f.real_path != ''`,
			models.LowerPath(models.ParentPath(path)), strings.ToLower(models.BaseName(path)))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, &models.ListingError{Kind: models.ErrNotFound, Op: "local paths", Path: path}
	}
	return out, nil
}
