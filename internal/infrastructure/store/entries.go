package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one stored record read back for bundling: its parsed header
// fields plus the header-stripped body.
type Entry struct {
	Path    string
	Date    time.Time
	Title   string
	URL     string
	Summary string
	Body    string
}

// Entries reads every record in one category directory whose filename date
// is on or after cutoff, newest first. Files without the <date>_<slug>.md
// name shape are skipped with a warning.
func (m *Markdown) Entries(category string, cutoff time.Time) ([]Entry, error) {
	dir := filepath.Join(m.root, category)
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read category %s: %w", category, err)
	}

	var out []Entry
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".md") {
			continue
		}
		match := dateFilename.FindStringSubmatch(f.Name())
		if match == nil {
			m.warn("record filename without date prefix skipped", "name", f.Name())
			continue
		}
		date, err := time.Parse("2006-01-02", match[1])
		if err != nil || date.Before(cutoff) {
			continue
		}

		path := filepath.Join(dir, f.Name())
		entry, err := readEntry(path)
		if err != nil {
			m.warn("unreadable record skipped", "path", path, "error", err)
			continue
		}
		entry.Date = date
		out = append(out, entry)
	}

	sort.Slice(out, func(i, j int) bool {
		return filepath.Base(out[i].Path) > filepath.Base(out[j].Path)
	})
	return out, nil
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	header, body := splitFrontmatter(data)
	return Entry{
		Path:    path,
		Title:   stringField(header, "title"),
		URL:     stringField(header, "url"),
		Summary: stringField(header, "summary"),
		Body:    body,
	}, nil
}

// splitFrontmatter separates the YAML header (between leading --- delimiters)
// from the markdown body. Content without a header, or with YAML the parser
// rejects, comes back entirely as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var header map[string]any
	if err := yaml.Unmarshal(rest[:idx], &header); err != nil {
		return nil, string(data)
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return header, body
}

func stringField(header map[string]any, key string) string {
	if header == nil {
		return ""
	}
	if v, ok := header[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
