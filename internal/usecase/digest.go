package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ContentAirlock/internal/infrastructure/store"
	"ContentAirlock/internal/ports"
)

// DefaultDigestDays is the lookback window for a digest bundle.
const DefaultDigestDays = 7

// Bundler assembles recent records of a category into a single digest file
// and optionally announces it through a notifier.
type Bundler struct {
	store      *store.Markdown
	outputRoot string
	notifier   ports.Notifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewBundler wires the bundler. The notifier may be nil.
func NewBundler(st *store.Markdown, outputRoot string, notifier ports.Notifier, logger *slog.Logger) *Bundler {
	return &Bundler{
		store:      st,
		outputRoot: outputRoot,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

// BundleAll bundles every category directory present under the store root.
// A failing category is logged and skipped; the others still bundle.
func (b *Bundler) BundleAll(ctx context.Context, days int) ([]string, error) {
	dirs, err := os.ReadDir(b.store.Root())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read store root: %w", err)
	}

	var written []string
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		path, err := b.Bundle(ctx, dir.Name(), days)
		if err != nil {
			b.warn("bundle failed", "category", dir.Name(), "error", err)
			continue
		}
		if path != "" {
			written = append(written, path)
		}
	}
	return written, nil
}

// Bundle writes the digest for one category and returns its path, or empty
// when the window holds no records.
func (b *Bundler) Bundle(ctx context.Context, category string, days int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if days <= 0 {
		days = DefaultDigestDays
	}

	today := b.now()
	cutoff := today.AddDate(0, 0, -days)

	entries, err := b.store.Entries(category, cutoff)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		b.debug("no recent records for category", "category", category)
		return "", nil
	}

	todayStr := today.Format("2006-01-02")
	dir := filepath.Join(b.outputRoot, todayStr)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create digest dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("Weekly_Digest_%s_%s.md", category, todayStr))
	if err := os.WriteFile(path, []byte(renderDigest(category, todayStr, entries)), 0o644); err != nil {
		return "", fmt.Errorf("write digest: %w", err)
	}

	b.info("digest written", "category", category, "records", len(entries), "path", path)
	b.notify(ctx, category, todayStr, entries)
	return path, nil
}

func renderDigest(category, date string, entries []store.Entry) string {
	var toc, sources, blocks []string
	for i, entry := range entries {
		anchor := fmt.Sprintf("article-%d", i)
		toc = append(toc, fmt.Sprintf("%d. [%s](#%s)", i+1, entry.Title, anchor))
		sources = append(sources, "- "+entry.URL)
		blocks = append(blocks, fmt.Sprintf(`---
<a id=%q></a>
## %s
**Source:** %s
**Summary:** %s

%s`, anchor, entry.Title, entry.URL, entry.Summary, entry.Body))
	}

	return fmt.Sprintf(`# Weekly Digest: %s - %s

## Table of Contents
%s

## Sources
%s

%s
`, category, date, strings.Join(toc, "\n"), strings.Join(sources, "\n"), strings.Join(blocks, "\n\n"))
}

// notify publishes a short digest notice: title list only, not the bodies.
func (b *Bundler) notify(ctx context.Context, category, date string, entries []store.Entry) {
	if b.notifier == nil {
		return
	}
	var lines []string
	lines = append(lines, fmt.Sprintf("Weekly digest: %s (%s)", category, date))
	for _, entry := range entries {
		lines = append(lines, fmt.Sprintf("- %s\n%s", entry.Title, entry.URL))
	}
	if err := b.notifier.Publish(ctx, strings.Join(lines, "\n")); err != nil {
		b.warn("digest notification failed", "category", category, "error", err)
	}
}

func (b *Bundler) info(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Info(msg, args...)
	}
}

func (b *Bundler) warn(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}
}

func (b *Bundler) debug(msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}
}
