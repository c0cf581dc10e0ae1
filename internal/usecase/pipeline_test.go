package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/extract"
	"ContentAirlock/internal/ports"
)

type fakeStore struct {
	urls    map[string]bool
	puts    []domain.Record
	putErr  error
	lookErr error
}

func newFakeStore(existing ...string) *fakeStore {
	s := &fakeStore{urls: make(map[string]bool)}
	for _, u := range existing {
		s.urls[domain.NormalizeURL(u)] = true
	}
	return s
}

func (s *fakeStore) Contains(_ context.Context, url string) (bool, error) {
	if s.lookErr != nil {
		return false, s.lookErr
	}
	return s.urls[domain.NormalizeURL(url)], nil
}

func (s *fakeStore) Put(_ context.Context, record domain.Record) (string, error) {
	if s.putErr != nil {
		return "", s.putErr
	}
	s.urls[domain.NormalizeURL(record.URL)] = true
	s.puts = append(s.puts, record)
	return "data/" + string(record.Category) + "/" + record.Title + ".md", nil
}

type fakeFetcher struct {
	texts map[string]string
	errs  map[string]error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	if text, ok := f.texts[url]; ok {
		return text, nil
	}
	return "article body for " + url, nil
}

type fakeClassifier struct {
	err   error
	calls int
}

func (c *fakeClassifier) Classify(_ context.Context, text string) (domain.Classification, error) {
	c.calls++
	if c.err != nil {
		return domain.Classification{}, c.err
	}
	return domain.Classification{
		Title:    "Classified-Title",
		Category: domain.CategoryCoding,
		Summary:  "A summary of " + text[:min(len(text), 10)],
	}, nil
}

type fakeSource struct {
	items []domain.Item
	err   error
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Items(context.Context) ([]domain.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

var (
	_ ports.ContentStore = (*fakeStore)(nil)
	_ ports.Fetcher      = (*fakeFetcher)(nil)
	_ ports.Classifier   = (*fakeClassifier)(nil)
	_ ports.IntakeSource = (*fakeSource)(nil)
)

func newTestPipeline(store ports.ContentStore, fetcher ports.Fetcher, classifier ports.Classifier, opts Options) *Pipeline {
	return NewPipeline(PipelineDeps{
		Extractor:  extract.New(nil, 0),
		Store:      store,
		Fetcher:    fetcher,
		Classifier: classifier,
	}, opts)
}

func item(text string) domain.Item {
	return domain.Item{Source: "fake", ID: "1", Text: text}
}

func TestRunIngestsNewURL(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	fetcher := &fakeFetcher{}
	classifier := &fakeClassifier{}
	p := newTestPipeline(store, fetcher, classifier, Options{})

	sum, err := p.Run(context.Background(), &fakeSource{items: []domain.Item{
		item("see https://news.example.com/articles/alpha today"),
	}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Ingested != 1 || sum.Duplicates != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(store.puts) != 1 {
		t.Fatalf("expected 1 persisted record, got %d", len(store.puts))
	}
	rec := store.puts[0]
	if rec.URL != "https://news.example.com/articles/alpha" {
		t.Errorf("unexpected persisted url %q", rec.URL)
	}
	if rec.Category != domain.CategoryCoding || rec.Title != "Classified-Title" {
		t.Errorf("classification not carried into record: %+v", rec)
	}
	if rec.Date.IsZero() {
		t.Errorf("record date not set")
	}
}

func TestRunSkipsKnownURLWithoutFetching(t *testing.T) {
	t.Parallel()

	store := newFakeStore("https://news.example.com/articles/alpha")
	fetcher := &fakeFetcher{}
	classifier := &fakeClassifier{}
	p := newTestPipeline(store, fetcher, classifier, Options{})

	// Trailing-slash variant of a stored URL is the same resource.
	sum, err := p.Run(context.Background(), &fakeSource{items: []domain.Item{
		item("again: https://news.example.com/articles/alpha/"),
	}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Duplicates != 1 || sum.Ingested != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(fetcher.calls) != 0 {
		t.Fatalf("duplicate URL was fetched: %v", fetcher.calls)
	}
	if classifier.calls != 0 {
		t.Fatalf("duplicate URL was classified")
	}
}

func TestRunIsolatesPerURLFailures(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	fetcher := &fakeFetcher{errs: map[string]error{
		"https://news.example.com/articles/broken": &domain.FetchError{
			URL: "https://news.example.com/articles/broken", Attempts: 3, Err: errors.New("timeout"),
		},
	}}
	classifier := &fakeClassifier{}
	p := newTestPipeline(store, fetcher, classifier, Options{})

	acked := 0
	it := item(strings.Join([]string{
		"https://news.example.com/articles/broken",
		"https://news.example.com/articles/healthy",
	}, "\n"))
	it.Ack = func(context.Context) error { acked++; return nil }

	sum, err := p.Run(context.Background(), &fakeSource{items: []domain.Item{it}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.FetchFailures != 1 {
		t.Fatalf("expected 1 fetch failure, got %+v", sum)
	}
	if sum.Ingested != 1 {
		t.Fatalf("healthy URL not ingested after earlier failure: %+v", sum)
	}
	if acked != 1 {
		t.Fatalf("expected exactly one acknowledgment, got %d", acked)
	}
}

func TestRunAcknowledgesDespiteFailures(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	classifier := &fakeClassifier{err: &domain.ClassificationError{Err: errors.New("model down")}}
	p := newTestPipeline(store, &fakeFetcher{}, classifier, Options{})

	acked := 0
	it := item("https://news.example.com/articles/alpha")
	it.Ack = func(context.Context) error { acked++; return nil }

	sum, err := p.Run(context.Background(), &fakeSource{items: []domain.Item{it}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.ClassifyFailures != 1 || sum.Ingested != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if acked != 1 {
		t.Fatalf("expected acknowledgment despite failure, got %d", acked)
	}
	if len(store.puts) != 0 {
		t.Fatalf("failed classification still persisted a record")
	}
}

func TestRunFiltersUnauthorizedSenders(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	fetcher := &fakeFetcher{}
	p := newTestPipeline(store, fetcher, &fakeClassifier{}, Options{
		AllowedSenders: []string{"a@x.com"},
	})

	allowed := item("https://news.example.com/articles/alpha")
	allowed.Sender = "a@x.com"
	blocked := item("https://news.example.com/articles/blocked-post")
	blocked.Sender = "b@x.com"
	blockedAcks := 0
	blocked.Ack = func(context.Context) error { blockedAcks++; return nil }

	sum, err := p.Run(context.Background(), &fakeSource{items: []domain.Item{allowed, blocked}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Unauthorized != 1 || sum.Ingested != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	for _, url := range fetcher.calls {
		if strings.Contains(url, "blocked-post") {
			t.Fatalf("unauthorized item's URL was fetched: %s", url)
		}
	}
	if blockedAcks != 1 {
		t.Fatalf("unauthorized item must still be acknowledged, got %d acks", blockedAcks)
	}
}

func TestRunSenderlessItemsBypassAllowlist(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newFakeStore(), &fakeFetcher{}, &fakeClassifier{}, Options{
		AllowedSenders: []string{"a@x.com"},
	})

	sum, err := p.Run(context.Background(), &fakeSource{items: []domain.Item{
		item("https://news.example.com/articles/from-feed"),
	}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.Ingested != 1 || sum.Unauthorized != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	t.Parallel()

	store := newFakeStore("https://news.example.com/articles/known-post")
	fetcher := &fakeFetcher{}
	classifier := &fakeClassifier{}
	p := newTestPipeline(store, fetcher, classifier, Options{DryRun: true})

	acked := 0
	it := item(strings.Join([]string{
		"https://news.example.com/articles/known-post",
		"https://news.example.com/articles/new-post",
	}, " "))
	it.Ack = func(context.Context) error { acked++; return nil }

	sum, err := p.Run(context.Background(), &fakeSource{items: []domain.Item{it}})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.WouldIngest != 1 || sum.Duplicates != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if len(fetcher.calls) != 0 || classifier.calls != 0 || len(store.puts) != 0 {
		t.Fatalf("dry run performed side effects")
	}
	if acked != 0 {
		t.Fatalf("dry run acknowledged an item")
	}
}

func TestRunPropagatesSourceFailure(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(newFakeStore(), &fakeFetcher{}, &fakeClassifier{}, Options{})

	src := &fakeSource{err: &domain.TransportError{Source: "fake", Err: errors.New("dial refused")}}
	_, err := p.Run(context.Background(), src)
	var transportErr *domain.TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestIngestURLEmptyContentIsFetchFailure(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{texts: map[string]string{
		"https://news.example.com/articles/hollow": "   \n",
	}}
	p := newTestPipeline(newFakeStore(), fetcher, &fakeClassifier{}, Options{})

	outcome, err := p.IngestURL(context.Background(), "https://news.example.com/articles/hollow", "")
	if outcome != domain.OutcomeFetchFailed {
		t.Fatalf("expected fetch-failed, got %q", outcome)
	}
	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestIngestURLStoreWriteFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.putErr = errors.New("disk full")
	p := newTestPipeline(store, &fakeFetcher{}, &fakeClassifier{}, Options{})

	outcome, err := p.IngestURL(context.Background(), "https://news.example.com/articles/alpha", "")
	if outcome != "" {
		t.Fatalf("store failure must not map onto an ingestion outcome, got %q", outcome)
	}
	if err == nil {
		t.Fatal("expected error from store failure")
	}
}
