// Package email adapts an inbox into intake items and implements the
// mailbox transport over IMAP.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"ContentAirlock/internal/domain"
	"ContentAirlock/internal/ports"
)

// Post-process actions applied to a message once its item is acknowledged.
const (
	ActionRead    = "read"
	ActionArchive = "archive"
	ActionDelete  = "delete"
)

// DefaultMaxAge bounds how old an unread message may be and still be listed.
const DefaultMaxAge = 7 * 24 * time.Hour

// ArchiveFolder receives messages acknowledged with ActionArchive.
const ArchiveFolder = "Archive"

var angleAddr = regexp.MustCompile(`<([^>]+)>`)

// Source lists unread messages through a Mailbox and turns each one into an
// intake item whose ack hook applies the configured post-process action.
type Source struct {
	mailbox ports.Mailbox
	folder  string
	action  string
	maxAge  time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.IntakeSource = (*Source)(nil)

// NewSource builds the adapter. Unknown actions degrade to ActionRead; a
// non-positive maxAge falls back to DefaultMaxAge.
func NewSource(mailbox ports.Mailbox, folder, action string, maxAge time.Duration, logger *slog.Logger) *Source {
	switch action {
	case ActionRead, ActionArchive, ActionDelete:
	default:
		action = ActionRead
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if folder == "" {
		folder = "INBOX"
	}
	return &Source{
		mailbox: mailbox,
		folder:  folder,
		action:  action,
		maxAge:  maxAge,
		logger:  logger,
		now:     time.Now,
	}
}

// Name identifies the adapter in logs and summaries.
func (s *Source) Name() string { return "email" }

// Items lists unread messages since now-maxAge. Listing failures surface as
// a TransportError and abort the batch; nothing has been acknowledged at
// that point, so the messages are re-delivered on the next run.
func (s *Source) Items(ctx context.Context) ([]domain.Item, error) {
	since := s.now().Add(-s.maxAge)
	messages, err := s.mailbox.ListUnread(ctx, s.folder, since)
	if err != nil {
		return nil, &domain.TransportError{Source: s.Name(), Err: fmt.Errorf("list unread: %w", err)}
	}

	items := make([]domain.Item, 0, len(messages))
	for _, msg := range messages {
		id := msg.ID
		items = append(items, domain.Item{
			Source:     s.Name(),
			ID:         id,
			ReceivedAt: msg.Date,
			Text:       msg.Subject + "\n" + msg.Body,
			Sender:     SenderAddress(msg.From),
			Ack: func(ctx context.Context) error {
				return s.acknowledge(ctx, id)
			},
		})
	}

	s.debug("inbox listed", "folder", s.folder, "unread", len(items))
	return items, nil
}

// acknowledge applies the post-process action so the message is not seen on
// the next poll.
func (s *Source) acknowledge(ctx context.Context, id string) error {
	switch s.action {
	case ActionDelete:
		return s.mailbox.Delete(ctx, id)
	case ActionArchive:
		return s.mailbox.Move(ctx, id, ArchiveFolder)
	default:
		return s.mailbox.MarkRead(ctx, id)
	}
}

// SenderAddress extracts the bare address from a From header:
// "John Doe <john@example.com>" yields "john@example.com", lowercased.
func SenderAddress(from string) string {
	if match := angleAddr.FindStringSubmatch(from); match != nil {
		return strings.ToLower(strings.TrimSpace(match[1]))
	}
	return strings.ToLower(strings.TrimSpace(from))
}

func (s *Source) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
