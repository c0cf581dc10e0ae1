// Package store persists article records as one markdown file per record,
// grouped into category directories under a single root. The frontmatter
// url field is the only externally visible dedup key.
package store

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/ports"
)

// headPeek bounds how much of each file Contains reads; the frontmatter url
// line always sits within the first kilobyte.
const headPeek = 1024

var (
	urlField     = regexp.MustCompile(`(?m)^url:\s*["']?([^"'\n]+)["']?`)
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace    = regexp.MustCompile(`\s+`)
	dateFilename = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_`)
)

// Markdown implements ports.ContentStore over a directory tree.
type Markdown struct {
	root   string
	logger *slog.Logger
}

var _ ports.ContentStore = (*Markdown)(nil)

// NewMarkdown roots a store at dir. The directory is created lazily on the
// first Put, so a store over a non-existent root is simply empty.
func NewMarkdown(root string, logger *slog.Logger) *Markdown {
	return &Markdown{root: root, logger: logger}
}

// Root returns the store's root directory.
func (m *Markdown) Root() string { return m.root }

// Contains scans every record file under the root and compares its
// frontmatter url against the normalized query. Cost is O(existing records)
// per check; wrap the store in an Indexed decorator when the corpus grows.
func (m *Markdown) Contains(ctx context.Context, url string) (bool, error) {
	target := domain.NormalizeURL(url)

	found := false
	err := filepath.WalkDir(m.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if found || d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		recorded, err := readRecordedURL(path)
		if err != nil {
			m.warn("unreadable record skipped", "path", path, "error", err)
			return nil
		}
		if recorded != "" && domain.NormalizeURL(recorded) == target {
			found = true
			return fs.SkipAll
		}
		return nil
	})
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("scan store: %w", err)
	}
	return found, nil
}

// Put serializes the record under <root>/<category>/<date>_<slug>.md and
// returns the written path. The write is atomic (tmp, fsync, rename) so a
// crash never leaves a partial record. Put does not check for an existing
// record; if the caller skipped Contains, the collision is last-write-wins.
func (m *Markdown) Put(ctx context.Context, record domain.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(m.root, string(record.Category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create category dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.md", record.Date.Format("2006-01-02"), Slugify(record.Title))
	path := filepath.Join(dir, name)

	if err := writeAtomic(path, []byte(serialize(record))); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	return path, nil
}

// Slugify converts arbitrary title text into a filesystem-safe slug:
// lowercase, non-alphanumerics stripped, whitespace runs collapsed to single
// hyphens, leading/trailing hyphens trimmed.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpace.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// serialize renders the human-diffable record layout: a frontmatter header
// (title, url, date, category, summary) followed by the extracted body.
func serialize(record domain.Record) string {
	return fmt.Sprintf(`---
title: %q
url: %q
date: %s
category: %s
summary: %q
---

# %s

%s
`,
		headerSafe(record.Title),
		record.URL,
		record.Date.Format("2006-01-02"),
		record.Category,
		headerSafe(record.Summary),
		record.Title,
		record.Body,
	)
}

// headerSafe keeps quoted header values single-line and quote-free.
func headerSafe(value string) string {
	value = strings.ReplaceAll(value, "\"", "'")
	value = strings.ReplaceAll(value, "\n", " ")
	return strings.TrimSpace(value)
}

// readRecordedURL pulls the frontmatter url field from the head of a file.
func readRecordedURL(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head, err := io.ReadAll(io.LimitReader(f, headPeek))
	if err != nil {
		return "", err
	}
	match := urlField.FindSubmatch(head)
	if match == nil {
		return "", nil
	}
	return strings.TrimSpace(string(match[1])), nil
}

// writeAtomic writes content through a temp file, fsyncs, and renames it
// into place.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".airlock-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	committed = true
	return nil
}

func (m *Markdown) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
