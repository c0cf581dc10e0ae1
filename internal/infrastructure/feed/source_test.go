package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ContentAirlock/internal/domain"
)

var feedNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func rssServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func rssItem(link, pubDate string) string {
	date := ""
	if pubDate != "" {
		date = "<pubDate>" + pubDate + "</pubDate>"
	}
	return fmt.Sprintf(`<item><title>Entry</title><link>%s</link>%s</item>`, link, date)
}

func rssDoc(items ...string) string {
	body := ""
	for _, item := range items {
		body += item
	}
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Test Feed</title>` + body + `</channel></rss>`
}

func TestItemsFiltersByRecencyWindow(t *testing.T) {
	t.Parallel()

	fresh := feedNow.Add(-2 * time.Hour).Format(time.RFC1123Z)
	stale := feedNow.Add(-48 * time.Hour).Format(time.RFC1123Z)
	srv := rssServer(t, rssDoc(
		rssItem("https://x.com/fresh", fresh),
		rssItem("https://x.com/stale", stale),
		rssItem("https://x.com/undated", ""),
	))

	src := NewSource("test-feed", srv.URL, "Coding", DefaultWindow, nil)
	src.now = func() time.Time { return feedNow }

	items, err := src.Items(context.Background())
	if err != nil {
		t.Fatalf("Items error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 fresh item, got %d", len(items))
	}
	got := items[0]
	if got.Text != "https://x.com/fresh" {
		t.Errorf("unexpected item text %q", got.Text)
	}
	if got.CategoryHint != "Coding" {
		t.Errorf("category hint not carried: %q", got.CategoryHint)
	}
	if got.Ack != nil {
		t.Errorf("feed items must not carry an acknowledgment hook")
	}
}

func TestItemsUsesUpdatedWhenPublishedMissing(t *testing.T) {
	t.Parallel()

	updated := feedNow.Add(-time.Hour).Format(time.RFC3339)
	srv := rssServer(t, `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
	<title>Atom Feed</title>
	<entry>
		<title>Entry</title>
		<link href="https://x.com/atom-entry"/>
		<updated>`+updated+`</updated>
	</entry>
</feed>`)

	src := NewSource("atom-feed", srv.URL, "", DefaultWindow, nil)
	src.now = func() time.Time { return feedNow }

	items, err := src.Items(context.Background())
	if err != nil {
		t.Fatalf("Items error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item from updated timestamp, got %d", len(items))
	}
}

func TestItemsUnreachableFeedIsTransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	src := NewSource("dead-feed", srv.URL, "", DefaultWindow, nil)
	_, err := src.Items(context.Background())
	var transportErr *domain.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if transportErr.Source != "dead-feed" {
		t.Errorf("transport error names source %q", transportErr.Source)
	}
}

func TestItemsMalformedFeedIsTransportError(t *testing.T) {
	t.Parallel()

	srv := rssServer(t, "this is not xml at all")
	src := NewSource("bad-feed", srv.URL, "", DefaultWindow, nil)

	_, err := src.Items(context.Background())
	var transportErr *domain.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}
