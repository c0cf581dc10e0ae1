// Package feed adapts one RSS/Atom feed into a batch of intake items.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/gofeed"

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/ports"
)

// DefaultWindow is how far back entries are considered fresh.
const DefaultWindow = 24 * time.Hour

// Source polls a single configured feed. Each feed is its own intake batch
// so one unreachable feed never blocks the others.
type Source struct {
	name     string
	url      string
	category string
	window   time.Duration
	parser   *gofeed.Parser
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.IntakeSource = (*Source)(nil)

// NewSource builds an adapter for one feed. A non-positive window falls
// back to DefaultWindow.
func NewSource(name, url, category string, window time.Duration, logger *slog.Logger) *Source {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Source{
		name:     name,
		url:      url,
		category: category,
		window:   window,
		parser:   gofeed.NewParser(),
		logger:   logger,
		now:      time.Now,
	}
}

// Name identifies the feed in logs and summaries.
func (s *Source) Name() string { return s.name }

// Items fetches and parses the feed, returning one item per entry published
// inside the recency window. Entries without any parseable timestamp are
// excluded rather than assumed recent. Parse or connect failures surface as
// a TransportError, aborting this feed's batch only.
func (s *Source) Items(ctx context.Context) ([]domain.Item, error) {
	parsed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, &domain.TransportError{Source: s.name, Err: fmt.Errorf("parse feed: %w", err)}
	}

	cutoff := s.now().Add(-s.window)

	var items []domain.Item
	for _, entry := range parsed.Items {
		if entry.Link == "" {
			continue
		}
		published := entryTime(entry)
		if published == nil {
			s.debug("entry without timestamp excluded", "feed", s.name, "link", entry.Link)
			continue
		}
		if published.Before(cutoff) {
			continue
		}

		items = append(items, domain.Item{
			Source:       s.name,
			ID:           entry.Link,
			ReceivedAt:   *published,
			Text:         entry.Link,
			CategoryHint: s.category,
			// Feeds hold no delivery state; dedup against the store is
			// the only thing preventing re-processing on the next poll.
			Ack: nil,
		})
	}

	s.debug("feed polled", "feed", s.name, "entries", len(parsed.Items), "fresh", len(items))
	return items, nil
}

func entryTime(entry *gofeed.Item) *time.Time {
	if entry.PublishedParsed != nil {
		return entry.PublishedParsed
	}
	return entry.UpdatedParsed
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
