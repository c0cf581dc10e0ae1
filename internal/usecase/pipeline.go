package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/extract"
	"ContentAirlock/internal/ports"
)

// PipelineDeps wires the driven adapters into the ingestion orchestrator.
type PipelineDeps struct {
	Extractor  *extract.Extractor
	Store      ports.ContentStore
	Fetcher    ports.Fetcher
	Classifier ports.Classifier
	Logger     *slog.Logger
}

// Options carries the invocation-level settings resolved at the outermost
// boundary; core logic never reads ambient process state.
type Options struct {
	// AllowedSenders restricts sender-bearing items (email) to these
	// addresses. Empty allows all senders. Sender-less items (feeds)
	// are never filtered.
	AllowedSenders []string
	// DryRun reports what would be ingested without fetching,
	// classifying, persisting, or acknowledging anything.
	DryRun bool
}

// Summary accumulates per-URL outcomes across one batch. No per-URL error
// ever propagates past it.
type Summary struct {
	Items            int
	Ingested         int
	Duplicates       int
	FetchFailures    int
	ClassifyFailures int
	PersistFailures  int
	Unauthorized     int
	WouldIngest      int
}

// Merge folds another batch summary into this one.
func (s *Summary) Merge(other Summary) {
	s.Items += other.Items
	s.Ingested += other.Ingested
	s.Duplicates += other.Duplicates
	s.FetchFailures += other.FetchFailures
	s.ClassifyFailures += other.ClassifyFailures
	s.PersistFailures += other.PersistFailures
	s.Unauthorized += other.Unauthorized
	s.WouldIngest += other.WouldIngest
}

// Pipeline is the ingestion orchestrator: per candidate URL it checks the
// store, fetches, classifies, persists, and records the outcome. Processing
// is strictly sequential; the check-then-write dedup sequence relies on this
// pipeline being the store's only writer during an invocation.
type Pipeline struct {
	extractor  *extract.Extractor
	store      ports.ContentStore
	fetcher    ports.Fetcher
	classifier ports.Classifier
	logger     *slog.Logger
	allowed    map[string]struct{}
	dryRun     bool
	now        func() time.Time
}

// NewPipeline constructs the orchestrator.
func NewPipeline(deps PipelineDeps, opts Options) *Pipeline {
	var allowed map[string]struct{}
	if len(opts.AllowedSenders) > 0 {
		allowed = make(map[string]struct{}, len(opts.AllowedSenders))
		for _, addr := range opts.AllowedSenders {
			addr = strings.ToLower(strings.TrimSpace(addr))
			if addr != "" {
				allowed[addr] = struct{}{}
			}
		}
	}
	return &Pipeline{
		extractor:  deps.Extractor,
		store:      deps.Store,
		fetcher:    deps.Fetcher,
		classifier: deps.Classifier,
		logger:     deps.Logger,
		allowed:    allowed,
		dryRun:     opts.DryRun,
		now:        time.Now,
	}
}

// Run processes one intake batch. Only a transport failure in the source
// itself aborts the run; every per-URL failure is absorbed into the summary.
func (p *Pipeline) Run(ctx context.Context, source ports.IntakeSource) (Summary, error) {
	items, err := source.Items(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("intake %s: %w", source.Name(), err)
	}

	var sum Summary
	for _, item := range items {
		p.processItem(ctx, item, &sum)
	}

	p.info("batch complete",
		"source", source.Name(),
		"items", sum.Items,
		"ingested", sum.Ingested,
		"duplicates", sum.Duplicates,
		"fetch_failures", sum.FetchFailures,
		"classify_failures", sum.ClassifyFailures,
		"persist_failures", sum.PersistFailures,
		"unauthorized", sum.Unauthorized,
	)
	return sum, nil
}

// processItem handles one intake item end to end. The acknowledgment hook
// runs exactly once after all candidates are processed, whatever their
// outcomes, so an item is never stuck being re-delivered because of one bad
// URL inside it.
func (p *Pipeline) processItem(ctx context.Context, item domain.Item, sum *Summary) {
	sum.Items++
	defer p.acknowledge(ctx, item)

	if item.Sender != "" && !p.senderAllowed(item.Sender) {
		p.warn("unauthorized sender skipped", "source", item.Source, "item", item.ID, "sender", item.Sender)
		sum.Unauthorized++
		return
	}

	candidates := p.extractor.Extract(item.Text)
	if len(candidates) == 0 {
		p.debug("no candidates in item", "source", item.Source, "item", item.ID)
		return
	}
	p.debug("candidates discovered", "source", item.Source, "item", item.ID, "count", len(candidates))

	for _, url := range candidates {
		if p.dryRun {
			p.preview(ctx, url, sum)
			continue
		}

		outcome, err := p.IngestURL(ctx, url, item.CategoryHint)
		switch outcome {
		case domain.OutcomeCreated:
			sum.Ingested++
		case domain.OutcomeAlreadyPresent:
			sum.Duplicates++
			p.debug("duplicate skipped", "url", url)
		case domain.OutcomeFetchFailed:
			sum.FetchFailures++
			p.error("fetch failed", "url", url, "stage", "fetch", "error", err)
		case domain.OutcomeClassifyFailed:
			sum.ClassifyFailures++
			p.error("classification failed", "url", url, "stage", "classify", "error", err)
		default:
			sum.PersistFailures++
			p.error("persist failed", "url", url, "stage", "persist", "error", err)
		}
	}
}

// IngestURL runs the per-candidate state machine: store lookup, fetch,
// classify, persist. The returned outcome is empty only for store failures,
// which sit outside the closed outcome set.
func (p *Pipeline) IngestURL(ctx context.Context, rawURL, categoryHint string) (domain.Outcome, error) {
	url := domain.NormalizeURL(rawURL)

	exists, err := p.store.Contains(ctx, url)
	if err != nil {
		return "", fmt.Errorf("membership check %s: %w", url, err)
	}
	if exists {
		return domain.OutcomeAlreadyPresent, nil
	}

	p.info("ingesting", "url", url)
	if categoryHint != "" {
		p.debug("source hinted category", "url", url, "hint", categoryHint)
	}

	text, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return domain.OutcomeFetchFailed, err
	}
	if strings.TrimSpace(text) == "" {
		return domain.OutcomeFetchFailed, &domain.FetchError{URL: url, Attempts: 1, Err: fmt.Errorf("empty content")}
	}

	classification, err := p.classifier.Classify(ctx, text)
	if err != nil {
		return domain.OutcomeClassifyFailed, err
	}

	location, err := p.store.Put(ctx, domain.Record{
		URL:      url,
		Date:     p.now(),
		Category: classification.Category,
		Title:    classification.Title,
		Summary:  classification.Summary,
		Body:     text,
	})
	if err != nil {
		return "", fmt.Errorf("persist %s: %w", url, err)
	}

	p.info("ingested", "url", url, "category", classification.Category, "path", location)
	return domain.OutcomeCreated, nil
}

// preview is the dry-run path: membership check and logging only.
func (p *Pipeline) preview(ctx context.Context, url string, sum *Summary) {
	exists, err := p.store.Contains(ctx, url)
	if err != nil {
		sum.PersistFailures++
		p.error("membership check failed", "url", url, "error", err)
		return
	}
	if exists {
		sum.Duplicates++
		return
	}
	sum.WouldIngest++
	p.info("dry run: would ingest", "url", url)
}

// acknowledge invokes the item's ack hook once. Dry runs leave delivery
// state untouched; ack failures are logged but never fail the batch.
func (p *Pipeline) acknowledge(ctx context.Context, item domain.Item) {
	if p.dryRun || item.Ack == nil {
		return
	}
	if err := item.Ack(ctx); err != nil {
		p.warn("acknowledge failed", "source", item.Source, "item", item.ID, "error", err)
	}
}

func (p *Pipeline) senderAllowed(sender string) bool {
	if p.allowed == nil {
		return true
	}
	_, ok := p.allowed[strings.ToLower(strings.TrimSpace(sender))]
	return ok
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
