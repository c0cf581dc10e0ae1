package domain

import (
	"net/url"
	"strings"
)

// trailingJunk covers sentence punctuation that URL scans drag in from
// surrounding prose ("see https://x.com/a." or "(https://x.com/a)").
const trailingJunk = ".,;:!?)"

// NormalizeURL reduces a raw URL to its canonical dedup form: trailing
// sentence punctuation removed, one trailing slash removed, scheme and host
// lowercased. Path, query, and fragment keep their case. Two candidates are
// the same entity iff their normalized forms are equal.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, trailingJunk)
	s = strings.TrimSuffix(s, "/")

	parsed, err := url.Parse(s)
	if err != nil || parsed.Host == "" {
		return s
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String()
}
