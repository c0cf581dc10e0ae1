// Package extract discovers candidate article URLs inside intake-item text.
// It owns "what is a candidate"; whether a candidate is already known is the
// pipeline's business and is never consulted here.
package extract

import (
	"regexp"
	"strings"

	"ContentAirlock/internal/domain"
)

var urlPattern = regexp.MustCompile(`(?i)https?://[^\s<>\[\]"']+`)

// DefaultDenylist drops tracking, unsubscribe, and platform legal links that
// routinely appear in newsletters and email signatures.
var DefaultDenylist = []string{
	"unsubscribe",
	"email-tracking",
	"click.",
	"mailchimp.com",
	"sendgrid.net",
	"apple.com/legal",
	"support.apple.com",
	"google.com/settings",
}

// DefaultMinLength rejects short URLs that are almost never articles
// (homepages, social handles, shortened redirects).
const DefaultMinLength = 20

// Extractor scans free text for absolute URLs and filters out noise.
type Extractor struct {
	denylist  []string
	minLength int
}

// New builds an extractor. A nil denylist falls back to DefaultDenylist and
// a non-positive minLength to DefaultMinLength.
func New(denylist []string, minLength int) *Extractor {
	if denylist == nil {
		denylist = DefaultDenylist
	}
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Extractor{denylist: denylist, minLength: minLength}
}

// Extract returns the normalized candidate URLs found in text, deduplicated
// within the item, in first-seen order.
func (e *Extractor) Extract(text string) []string {
	matches := urlPattern.FindAllString(text, -1)

	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, raw := range matches {
		url := domain.NormalizeURL(raw)
		if len(url) < e.minLength {
			continue
		}
		if e.denied(url) {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, url)
	}
	return out
}

func (e *Extractor) denied(url string) bool {
	lower := strings.ToLower(url)
	for _, needle := range e.denylist {
		if strings.Contains(lower, needle) {
			return true
		}
	}
	return false
}
