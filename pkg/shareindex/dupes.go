package shareindex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sdejongh/dirlisting/pkg/logging"
	"github.com/sdejongh/dirlisting/pkg/models"
)

// FileDupe classifies a remote file by its content hash: shared files win
// over queued ones
func (x *Index) FileDupe(name string, size int64, tth string) models.DupeType {
	defer observe("file_dupe", time.Now())
	ctx := context.Background()

	var shared bool
	if err := x.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM files WHERE tth = ?)`, tth).Scan(&shared); err != nil {
		x.logger.Warn(ctx, "File dupe check failed", logging.Fields{"file": name, "error": err.Error()})
		return models.DupeNone
	}
	if shared {
		return models.DupeShare
	}

	var queued bool
	if err := x.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM queued_files WHERE tth = ?)`, tth).Scan(&queued); err != nil {
		x.logger.Warn(ctx, "File dupe check failed", logging.Fields{"file": name, "error": err.Error()})
		return models.DupeNone
	}
	if queued {
		return models.DupeQueue
	}
	return models.DupeNone
}

// DirDupe classifies a remote directory by name. A shared directory of the
// same name and size is a share dupe, one of a different size a partial
// one. Queued targets inside a directory of that name are checked next.
func (x *Index) DirDupe(path string, size int64) models.DupeType {
	defer observe("dir_dupe", time.Now())
	ctx := context.Background()

	name := strings.ToLower(models.BaseName(path))
	if name == "" {
		return models.DupeNone
	}

	dupe, err := x.shareDirDupe(ctx, name, size)
	if err == nil && dupe == models.DupeNone {
		dupe, err = x.queueDirDupe(ctx, name, size)
	}
	if err != nil {
		x.logger.Warn(ctx, "Directory dupe check failed", logging.Fields{"path": path, "error": err.Error()})
		return models.DupeNone
	}
	return dupe
}

func (x *Index) shareDirDupe(ctx context.Context, name string, size int64) (models.DupeType, error) {
	rows, err := x.db.QueryContext(ctx,
		`SELECT id, parent_id, name, path, modified_at FROM directories
		 WHERE path_lower LIKE ? ESCAPE '\'`,
		"%/"+strings.TrimSuffix(likePrefix(name), "%")+"/")
	if err != nil {
		return models.DupeNone, fmt.Errorf("failed to find directories: %w", err)
	}
	var candidates []dirRow
	for rows.Next() {
		var d dirRow
		if err := rows.Scan(&d.id, &d.parentID, &d.name, &d.path, &d.modified); err != nil {
			rows.Close()
			return models.DupeNone, err
		}
		candidates = append(candidates, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.DupeNone, err
	}

	if len(candidates) == 0 {
		return models.DupeNone, nil
	}
	for _, c := range candidates {
		total, _, err := x.dirStats(ctx, c)
		if err != nil {
			return models.DupeNone, err
		}
		if total == size {
			return models.DupeShare, nil
		}
	}
	return models.DupePartialShare, nil
}

func (x *Index) queueDirDupe(ctx context.Context, name string, size int64) (models.DupeType, error) {
	var (
		count int
		total int64
	)
	err := x.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM queued_files WHERE lower(target) LIKE ? ESCAPE '\'`,
		"%/"+likePrefix(name+"/")).Scan(&count, &total)
	if err != nil {
		return models.DupeNone, fmt.Errorf("failed to check queue: %w", err)
	}
	switch {
	case count == 0:
		return models.DupeNone, nil
	case total >= size:
		return models.DupeQueue, nil
	default:
		return models.DupePartialQueue, nil
	}
}
