package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ContentAirlock/internal/config"
	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/extract"
	"ContentAirlock/internal/infrastructure/email"
	"ContentAirlock/internal/infrastructure/feed"
	"ContentAirlock/internal/infrastructure/fetch"
	"ContentAirlock/internal/infrastructure/llm"
	"ContentAirlock/internal/infrastructure/store"
	"ContentAirlock/internal/infrastructure/telegram"
	"ContentAirlock/internal/logging"
	"ContentAirlock/internal/ports"
	"ContentAirlock/internal/usecase"
)

// Application wires configuration into adapters and use cases. One instance
// serves one command invocation; the pipeline owns the store for its
// duration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger
}

// New builds an application from resolved configuration.
func New(cfg config.Config, logger *slog.Logger) *Application {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}
	return &Application{cfg: cfg, logger: logger}
}

// IngestURL pushes a single URL through the pipeline, outside any intake
// batch.
func (a *Application) IngestURL(ctx context.Context, url string) error {
	contentStore, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline := a.buildPipeline(contentStore, false)
	outcome, err := pipeline.IngestURL(ctx, url, "")
	if err != nil {
		return fmt.Errorf("ingest %s: %w", url, err)
	}
	if outcome == domain.OutcomeAlreadyPresent {
		a.logger.Info("already ingested", "url", url)
	}
	return nil
}

// PollFeeds runs every configured feed as its own intake batch. A failing
// feed aborts only its own batch; the joined transport errors surface after
// all feeds were attempted.
func (a *Application) PollFeeds(ctx context.Context, dryRun bool) error {
	if len(a.cfg.Feeds.Sources) == 0 {
		a.logger.Warn("no feeds configured")
		return nil
	}

	contentStore, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	pipeline := a.buildPipeline(contentStore, dryRun)

	var total usecase.Summary
	var failures []error
	for _, feedCfg := range a.cfg.Feeds.Sources {
		source := feed.NewSource(
			feedCfg.Name,
			feedCfg.URL,
			feedCfg.Category,
			a.cfg.Feeds.RecencyWindow(),
			logging.Component(a.logger, "feed"),
		)
		sum, err := pipeline.Run(ctx, source)
		if err != nil {
			a.logger.Error("feed batch aborted", "feed", feedCfg.Name, "error", err)
			failures = append(failures, err)
			continue
		}
		total.Merge(sum)
	}

	a.logger.Info("polling complete", "feeds", len(a.cfg.Feeds.Sources), "ingested", total.Ingested, "duplicates", total.Duplicates)
	return errors.Join(failures...)
}

// ProcessInbox runs the email intake batch.
func (a *Application) ProcessInbox(ctx context.Context, dryRun bool) error {
	emailCfg := a.cfg.Email
	if emailCfg.Address == "" || emailCfg.Password == "" {
		return fmt.Errorf("email address and password are required (set %s)", "AIRLOCK_EMAIL / AIRLOCK_EMAIL_PASSWORD")
	}

	contentStore, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	mailbox, err := email.DialMailbox(
		emailCfg.Server,
		emailCfg.Address,
		emailCfg.Password,
		logging.Component(a.logger, "imap"),
	)
	if err != nil {
		return &domain.TransportError{Source: "email", Err: err}
	}
	defer func() {
		if err := mailbox.Close(); err != nil {
			a.logger.Warn("mailbox close failed", "error", err)
		}
	}()

	source := email.NewSource(
		mailbox,
		emailCfg.Folder,
		emailCfg.Action,
		emailCfg.MaxAge(),
		logging.Component(a.logger, "email"),
	)

	pipeline := a.buildPipeline(contentStore, dryRun)
	_, err = pipeline.Run(ctx, source)
	return err
}

// BundleDigests bundles one category, or all of them when category is empty.
func (a *Application) BundleDigests(ctx context.Context, category string, days int) error {
	files := store.NewMarkdown(a.cfg.Store.Root, logging.Component(a.logger, "store"))
	if days <= 0 {
		days = a.cfg.Digest.Days
	}

	var notifier ports.Notifier
	if tg := a.cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifier = telegram.NewNotifier(tg.BotToken, tg.ChatID)
	}

	bundler := usecase.NewBundler(files, a.cfg.Digest.OutputDir, notifier, logging.Component(a.logger, "digest"))
	if category != "" {
		_, err := bundler.Bundle(ctx, category, days)
		return err
	}
	_, err := bundler.BundleAll(ctx, days)
	return err
}

// Reindex rebuilds the sqlite membership index from the record files.
func (a *Application) Reindex(ctx context.Context) error {
	if a.cfg.Store.IndexPath == "" {
		return fmt.Errorf("no store.indexPath configured")
	}
	files := store.NewMarkdown(a.cfg.Store.Root, logging.Component(a.logger, "store"))
	index, err := store.OpenIndex(a.cfg.Store.IndexPath)
	if err != nil {
		return err
	}
	defer index.Close()
	if err := index.Rebuild(ctx, files); err != nil {
		return err
	}
	n, err := index.Count(ctx)
	if err != nil {
		return err
	}
	a.logger.Info("index rebuilt", "records", n)
	return nil
}

// openStore builds the content store: the markdown file store alone, or
// wrapped with the sqlite index when one is configured.
func (a *Application) openStore(ctx context.Context) (ports.ContentStore, func(), error) {
	files := store.NewMarkdown(a.cfg.Store.Root, logging.Component(a.logger, "store"))
	if a.cfg.Store.IndexPath == "" {
		return files, func() {}, nil
	}

	index, err := store.OpenIndex(a.cfg.Store.IndexPath)
	if err != nil {
		return nil, nil, err
	}
	indexed, err := store.NewIndexed(ctx, files, index, logging.Component(a.logger, "store"))
	if err != nil {
		index.Close()
		return nil, nil, err
	}
	return indexed, func() {
		if err := index.Close(); err != nil {
			a.logger.Warn("index close failed", "error", err)
		}
	}, nil
}

func (a *Application) buildPipeline(contentStore ports.ContentStore, dryRun bool) *usecase.Pipeline {
	fetcher := fetch.NewClient(fetch.Options{
		Endpoint:    a.cfg.Fetch.Endpoint,
		APIKey:      a.cfg.Fetch.APIKey,
		MaxAttempts: a.cfg.Fetch.MaxAttempts,
		BackoffBase: time.Duration(a.cfg.Fetch.BackoffSeconds) * time.Second,
		TimeoutBase: time.Duration(a.cfg.Fetch.TimeoutSeconds) * time.Second,
		TimeoutStep: time.Duration(a.cfg.Fetch.TimeoutStepSeconds) * time.Second,
	}, nil, logging.Component(a.logger, "fetch"))

	classifier := llm.NewClassifier(llm.Config{
		Endpoint:     a.cfg.LLM.Endpoint,
		Model:        a.cfg.LLM.Model,
		APIKey:       a.cfg.LLM.APIKey,
		SystemPrompt: a.cfg.LLM.SystemPrompt,
	}, logging.Component(a.logger, "llm"))

	extractor := extract.New(a.cfg.Extract.Denylist, a.cfg.Extract.MinURLLength)

	return usecase.NewPipeline(usecase.PipelineDeps{
		Extractor:  extractor,
		Store:      contentStore,
		Fetcher:    fetcher,
		Classifier: classifier,
		Logger:     logging.Component(a.logger, "pipeline"),
	}, usecase.Options{
		AllowedSenders: a.cfg.Email.AllowedSenders,
		DryRun:         dryRun,
	})
}
