package email

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"ContentAirlock/internal/ports"
)

// knownServers maps account domains of common providers to their IMAP
// hosts; anything else falls back to imap.<domain>.
var knownServers = map[string]string{
	"gmail.com":      "imap.gmail.com",
	"googlemail.com": "imap.gmail.com",
	"icloud.com":     "imap.mail.me.com",
	"me.com":         "imap.mail.me.com",
	"outlook.com":    "outlook.office365.com",
	"hotmail.com":    "outlook.office365.com",
	"yahoo.com":      "imap.mail.yahoo.com",
}

// ServerFor derives the IMAP server from an account address when no
// explicit server is configured.
func ServerFor(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 0 {
		return ""
	}
	domain := strings.ToLower(address[at+1:])
	if server, ok := knownServers[domain]; ok {
		return server
	}
	return "imap." + domain
}

// IMAP implements ports.Mailbox over a TLS IMAP session.
type IMAP struct {
	conn   *client.Client
	logger *slog.Logger
}

var _ ports.Mailbox = (*IMAP)(nil)

// DialMailbox connects to server (":993" appended when no port is given)
// and logs in. The caller owns the session and must Close it.
func DialMailbox(server, address, password string, logger *slog.Logger) (*IMAP, error) {
	if server == "" {
		server = ServerFor(address)
	}
	if server == "" {
		return nil, fmt.Errorf("no IMAP server configured or derivable for %s", address)
	}
	if !strings.Contains(server, ":") {
		server += ":993"
	}

	conn, err := client.DialTLS(server, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", server, err)
	}
	if err := conn.Login(address, password); err != nil {
		_ = conn.Logout()
		return nil, fmt.Errorf("login %s: %w", address, err)
	}

	if logger != nil {
		logger.Debug("mailbox connected", "server", server)
	}
	return &IMAP{conn: conn, logger: logger}, nil
}

// ListUnread selects folder and returns every UNSEEN message delivered
// since the given date, body decoded from its text/plain parts.
func (m *IMAP) ListUnread(ctx context.Context, folder string, since time.Time) ([]ports.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := m.conn.Select(folder, false); err != nil {
		return nil, fmt.Errorf("select %s: %w", folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = since

	uids, err := m.conn.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("search unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	// Peek keeps the fetch from setting \Seen; read state changes only
	// through the acknowledgment hook.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	fetched := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.conn.UidFetch(seqset, items, fetched)
	}()

	var out []ports.Message
	for msg := range fetched {
		parsed, err := parseMessage(msg, section)
		if err != nil {
			m.warn("undecodable message skipped", "uid", msg.Uid, "error", err)
			continue
		}
		out = append(out, parsed)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}
	return out, nil
}

// MarkRead sets \Seen on the message.
func (m *IMAP) MarkRead(ctx context.Context, id string) error {
	return m.store(ctx, id, imap.SeenFlag)
}

// Delete flags the message \Deleted; the flag is expunged on Close.
func (m *IMAP) Delete(ctx context.Context, id string) error {
	return m.store(ctx, id, imap.DeletedFlag)
}

// Move copies the message into folder and deletes the original.
func (m *IMAP) Move(ctx context.Context, id, folder string) error {
	seqset, err := uidSet(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.conn.UidCopy(seqset, folder); err != nil {
		return fmt.Errorf("copy to %s: %w", folder, err)
	}
	return m.store(ctx, id, imap.DeletedFlag)
}

// Close expunges deleted messages and logs out. Best effort on the expunge;
// the logout always runs.
func (m *IMAP) Close() error {
	if err := m.conn.Expunge(nil); err != nil {
		m.warn("expunge failed", "error", err)
	}
	return m.conn.Logout()
}

func (m *IMAP) store(ctx context.Context, id, flag string) error {
	seqset, err := uidSet(id)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	op := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := m.conn.UidStore(seqset, op, []interface{}{flag}, nil); err != nil {
		return fmt.Errorf("store %s on %s: %w", flag, id, err)
	}
	return nil
}

func uidSet(id string) (*imap.SeqSet, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", id, err)
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))
	return seqset, nil
}

// parseMessage decodes one fetched message into the transport-neutral form:
// RFC 2047 headers decoded, body assembled from text/plain parts.
func parseMessage(msg *imap.Message, section *imap.BodySectionName) (ports.Message, error) {
	literal := msg.GetBody(section)
	if literal == nil {
		return ports.Message{}, fmt.Errorf("no body section")
	}

	reader, err := mail.CreateReader(literal)
	if err != nil {
		return ports.Message{}, fmt.Errorf("open message: %w", err)
	}

	out := ports.Message{
		ID: strconv.FormatUint(uint64(msg.Uid), 10),
	}

	header := reader.Header
	out.Subject, _ = header.Subject()
	out.Date, _ = header.Date()
	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		out.From = from[0].String()
	} else {
		out.From = header.Get("From")
	}

	var body strings.Builder
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed sub-part; keep whatever decoded so far.
			break
		}
		if h, ok := part.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := h.ContentType()
			if contentType == "text/plain" {
				if text, err := io.ReadAll(part.Body); err == nil {
					body.Write(text)
				}
			}
		}
	}
	out.Body = body.String()
	return out, nil
}

func (m *IMAP) warn(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Warn(msg, args...)
	}
}
