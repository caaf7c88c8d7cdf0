// Package shareindex stores the local user's share in SQLite and serves
// partial listings, searches and duplicate checks from it.
package shareindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sdejongh/dirlisting/pkg/filelist"
	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/metrics"
	"github.com/sdejongh/dirlisting/pkg/models"
	"github.com/sdejongh/dirlisting/pkg/shareindex/migrations"
)

// Index is the share database
type Index struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens or creates the database at path and migrates it.
// ":memory:" gives a private in-memory index.
func Open(path string, logger logging.Logger) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open share index: %w", err)
	}
	// a single connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	idx, err := OpenDB(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

// OpenDB wraps an open database and brings its schema up to date
func OpenDB(db *sql.DB, logger logging.Logger) (*Index, error) {
	logger = logging.OrNull(logger)
	if err := migrations.MigrateUp(db); err != nil {
		return nil, err
	}
	return &Index{db: db, logger: logger}, nil
}

// Close closes the database
func (x *Index) Close() error {
	return x.db.Close()
}

// observe records the duration of a query
func observe(query string, start time.Time) {
	metrics.RecordShareQuery(query, time.Since(start))
}

// AddDirectory adds the directory at path and any missing ancestor
func (x *Index) AddDirectory(ctx context.Context, path, realPath string, modified time.Time) error {
	defer observe("add_directory", time.Now())
	return x.withTx(ctx, func(tx *sql.Tx) error {
		id, err := ensureDir(ctx, tx, path)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE directories SET real_path = ?, modified_at = ? WHERE id = ?`,
			realPath, unix(modified), id)
		return err
	})
}

// AddFile adds or replaces the file at path, creating its directories
func (x *Index) AddFile(ctx context.Context, path string, size int64, tth string, modified time.Time, realPath string) error {
	defer observe("add_file", time.Now())
	name := models.BaseName(path)
	if name == "" {
		return fmt.Errorf("invalid file path %q", path)
	}
	return x.withTx(ctx, func(tx *sql.Tx) error {
		dirID, err := ensureDir(ctx, tx, models.ParentPath(path))
		if err != nil {
			return err
		}
		return insertFile(ctx, tx, dirID, models.NewFile(name, size, tth, modified), realPath)
	})
}

// AddQueued records a file waiting in the download queue
func (x *Index) AddQueued(ctx context.Context, tth, target string, size int64) error {
	defer observe("add_queued", time.Now())
	_, err := x.db.ExecContext(ctx,
		`INSERT INTO queued_files (tth, target, size) VALUES (?, ?, ?)
		 ON CONFLICT (tth, target) DO UPDATE SET size = excluded.size`,
		tth, target, size)
	if err != nil {
		return fmt.Errorf("failed to add queued file: %w", err)
	}
	return nil
}

// RemoveQueued forgets a queued file
func (x *Index) RemoveQueued(ctx context.Context, tth, target string) error {
	defer observe("remove_queued", time.Now())
	_, err := x.db.ExecContext(ctx, `DELETE FROM queued_files WHERE tth = ? AND target = ?`, tth, target)
	if err != nil {
		return fmt.Errorf("failed to remove queued file: %w", err)
	}
	return nil
}

// ImportStats counts what an import added
type ImportStats struct {
	Directories int
	Files       int
}

// ImportListing adds the content of a FileListing document to the share.
// Items are backed by realRoot joined with their listing path.
func (x *Index) ImportListing(ctx context.Context, r io.Reader, realRoot string) (ImportStats, error) {
	defer observe("import", time.Now())

	root := models.NewRoot()
	loader := &filelist.Loader{Root: root, Index: models.NewPathIndex()}
	if _, err := loader.Load(ctx, r); err != nil {
		return ImportStats{}, err
	}

	var stats ImportStats
	err := x.withTx(ctx, func(tx *sql.Tx) error {
		rootID, err := ensureDir(ctx, tx, "/")
		if err != nil {
			return err
		}
		return importDirectory(ctx, tx, rootID, root, realRoot, &stats)
	})
	if err != nil {
		return ImportStats{}, err
	}

	x.logger.Info(ctx, "Listing imported into share", logging.Fields{
		"directories": stats.Directories,
		"files":       stats.Files,
		"root":        realRoot,
	})
	return stats, nil
}

func importDirectory(ctx context.Context, tx *sql.Tx, dirID int64, dir *models.Directory, realRoot string, stats *ImportStats) error {
	for _, f := range dir.Files {
		if err := insertFile(ctx, tx, dirID, f, realPathOf(realRoot, f.Path())); err != nil {
			return err
		}
		stats.Files++
	}
	for _, c := range dir.Directories {
		path := c.Path()
		id, err := ensureDir(ctx, tx, path)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE directories SET real_path = ?, modified_at = ? WHERE id = ?`,
			realPathOf(realRoot, path), unix(c.Date), id); err != nil {
			return fmt.Errorf("failed to update directory %s: %w", path, err)
		}
		stats.Directories++
		if err := importDirectory(ctx, tx, id, c, realRoot, stats); err != nil {
			return err
		}
	}
	return nil
}

func realPathOf(realRoot, path string) string {
	if realRoot == "" {
		return ""
	}
	p := filepath.Join(append([]string{realRoot}, models.SplitPath(path)...)...)
	if strings.HasSuffix(path, "/") {
		p += string(filepath.Separator)
	}
	return p
}

func insertFile(ctx context.Context, tx *sql.Tx, dirID int64, f *models.File, realPath string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO files (directory_id, name, name_lower, size, tth, modified_at, real_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (directory_id, name_lower) DO UPDATE SET
		   name = excluded.name, size = excluded.size, tth = excluded.tth,
		   modified_at = excluded.modified_at, real_path = excluded.real_path`,
		dirID, f.Name, strings.ToLower(f.Name), f.Size, f.TTH, unix(f.Date), realPath)
	if err != nil {
		return fmt.Errorf("failed to insert file %s: %w", f.Name, err)
	}
	return nil
}

// ensureDir returns the id of the directory at path, inserting it and its
// ancestors when missing
func ensureDir(ctx context.Context, tx *sql.Tx, path string) (int64, error) {
	var (
		parent  sql.NullInt64
		current = "/"
	)
	segments := append([]string{""}, models.SplitPath(path)...)
	for i, name := range segments {
		if i > 0 {
			current += name + "/"
		}
		var id int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM directories WHERE path_lower = ?`, strings.ToLower(current)).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO directories (parent_id, name, path, path_lower) VALUES (?, ?, ?, ?)`,
				parent, name, current, strings.ToLower(current))
			if err != nil {
				return 0, fmt.Errorf("failed to insert directory %s: %w", current, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return 0, err
			}
		} else if err != nil {
			return 0, fmt.Errorf("failed to look up directory %s: %w", current, err)
		}
		parent = sql.NullInt64{Int64: id, Valid: true}
	}
	return parent.Int64, nil
}

func (x *Index) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func fromUnix(secs int64) time.Time {
	if secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// likePrefix returns a LIKE pattern matching every path below prefix
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
