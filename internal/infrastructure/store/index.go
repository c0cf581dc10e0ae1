package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/ports"
)

const indexSchema = `
CREATE TABLE IF NOT EXISTS articles (
	url         TEXT PRIMARY KEY,
	path        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	ingested_at TEXT NOT NULL DEFAULT ''
);
`

// Index is a sidecar set of known normalized URLs, derived from the record
// files. It exists purely to turn the O(n) membership scan into a lookup;
// the files stay the source of truth.
type Index struct {
	db *sql.DB
}

// OpenIndex opens (or creates) the sqlite index at path.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping index: %w", err)
	}
	if _, err := db.Exec(indexSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// Close releases the underlying database handle.
func (i *Index) Close() error { return i.db.Close() }

// Contains looks the normalized URL up in the index.
func (i *Index) Contains(ctx context.Context, url string) (bool, error) {
	var one int
	err := sq.Select("1").
		From("articles").
		Where(sq.Eq{"url": domain.NormalizeURL(url)}).
		RunWith(i.db).
		QueryRowContext(ctx).
		Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query index: %w", err)
	}
	return true, nil
}

// Add records a freshly persisted URL and its file location.
func (i *Index) Add(ctx context.Context, url, path string, record domain.Record) error {
	_, err := sq.Insert("articles").
		Columns("url", "path", "category", "ingested_at").
		Values(domain.NormalizeURL(url), path, string(record.Category), record.Date.Format("2006-01-02")).
		Suffix("ON CONFLICT(url) DO UPDATE SET path = excluded.path").
		RunWith(i.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert index row: %w", err)
	}
	return nil
}

// Count returns the number of indexed URLs.
func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	err := sq.Select("COUNT(*)").
		From("articles").
		RunWith(i.db).
		QueryRowContext(ctx).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count index: %w", err)
	}
	return n, nil
}

// Rebuild repopulates the index from the record files, replacing whatever
// was indexed before. Run it when the files were modified out of band.
func (i *Index) Rebuild(ctx context.Context, files *Markdown) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}

	walkErr := filepath.WalkDir(files.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		recorded, err := readRecordedURL(path)
		if err != nil || recorded == "" {
			return nil
		}
		category := filepath.Base(filepath.Dir(path))
		date := ""
		if m := dateFilename.FindStringSubmatch(d.Name()); m != nil {
			date = m[1]
		}
		query, args, err := sq.Insert("articles").
			Columns("url", "path", "category", "ingested_at").
			Values(domain.NormalizeURL(recorded), path, category, date).
			Suffix("ON CONFLICT(url) DO UPDATE SET path = excluded.path").
			ToSql()
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
	if walkErr != nil && !errors.Is(walkErr, fs.ErrNotExist) {
		return fmt.Errorf("walk records: %w", walkErr)
	}

	return tx.Commit()
}

// Indexed decorates the file store with the sidecar index: membership checks
// hit sqlite, writes go to the files first and then the index, keeping the
// two consistent under the single-instance ownership model.
type Indexed struct {
	files  *Markdown
	index  *Index
	logger *slog.Logger
}

var _ ports.ContentStore = (*Indexed)(nil)

// NewIndexed wraps files with index. When the index is empty it is rebuilt
// from the files so a pre-existing store gains an index transparently.
func NewIndexed(ctx context.Context, files *Markdown, index *Index, logger *slog.Logger) (*Indexed, error) {
	n, err := index.Count(ctx)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		if err := index.Rebuild(ctx, files); err != nil {
			return nil, fmt.Errorf("rebuild empty index: %w", err)
		}
	}
	return &Indexed{files: files, index: index, logger: logger}, nil
}

// Contains answers from the index.
func (s *Indexed) Contains(ctx context.Context, url string) (bool, error) {
	return s.index.Contains(ctx, url)
}

// Put writes the record file, then the index row. A crash between the two
// leaves the URL unindexed until the next rebuild, which errs on the side
// of re-checking the file scan rather than losing a record.
func (s *Indexed) Put(ctx context.Context, record domain.Record) (string, error) {
	path, err := s.files.Put(ctx, record)
	if err != nil {
		return "", err
	}
	if err := s.index.Add(ctx, record.URL, path, record); err != nil {
		if s.logger != nil {
			s.logger.Warn("record persisted but not indexed", "url", record.URL, "error", err)
		}
	}
	return path, nil
}
