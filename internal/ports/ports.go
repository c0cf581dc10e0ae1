package ports

import (
	"context"
	"time"

	"ContentAirlock/internal/domain"
)

// ContentStore is the durable mapping from normalized URL to article record.
type ContentStore interface {
	// Contains reports whether a record for the normalized URL already
	// exists. Cost is O(existing records) unless an index backs it.
	Contains(ctx context.Context, url string) (bool, error)
	// Put persists a new record and returns its location. Callers must
	// check Contains first; Put does not guard against collisions.
	Put(ctx context.Context, record domain.Record) (string, error)
}

// Fetcher converts a URL into normalized article text.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Classifier turns article text into structured metadata.
type Classifier interface {
	Classify(ctx context.Context, text string) (domain.Classification, error)
}

// IntakeSource produces one batch of intake items per invocation.
type IntakeSource interface {
	Name() string
	Items(ctx context.Context) ([]domain.Item, error)
}

// Mailbox is the email-protocol transport the email adapter consumes.
type Mailbox interface {
	ListUnread(ctx context.Context, folder string, since time.Time) ([]Message, error)
	MarkRead(ctx context.Context, id string) error
	Move(ctx context.Context, id, folder string) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Message is one mail item as seen through the Mailbox transport.
type Message struct {
	ID      string
	From    string
	Subject string
	Body    string
	Date    time.Time
}

// Notifier pushes digest notices to an external channel.
type Notifier interface {
	Publish(ctx context.Context, message string) error
}
