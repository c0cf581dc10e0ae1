package domain

import (
	"context"
	"time"
)

// Item is one opaque unit of input from an intake adapter: a feed entry or
// an email message. It is consumed exactly once by the pipeline and then
// acknowledged through Ack, independent of how its candidate URLs fared.
type Item struct {
	// Source names the producing adapter instance (feed name, "email").
	Source string
	// ID identifies the item within its source (entry link, message UID).
	ID string
	// ReceivedAt is the item's publish or delivery timestamp.
	ReceivedAt time.Time
	// Text is the free text scanned for candidate URLs.
	Text string
	// Sender is the originating address for email items; empty for feeds.
	// Sender-less items are never subject to the allowlist.
	Sender string
	// CategoryHint is an optional source-level category suggestion.
	CategoryHint string
	// Ack tells the source the item was consumed so it is not re-delivered.
	// The pipeline invokes it exactly once, after all candidates are
	// processed. May be nil for sources without delivery state.
	Ack func(ctx context.Context) error
}
