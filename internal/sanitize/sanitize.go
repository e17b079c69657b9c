// Package sanitize neutralises untrusted identifiers before they are echoed
// back to a display client or written to logs.
package sanitize

import (
	"html"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer makes a raw identifier safe for display. Implementations must be
// deterministic, free of side effects, and idempotent.
type Sanitizer interface {
	ForDisplay(raw string) string
}

// Func adapts a plain function to Sanitizer.
type Func func(string) string

func (f Func) ForDisplay(raw string) string { return f(raw) }

// HTML strips all markup using bluemonday's strict policy and escapes what
// remains. Script and style element bodies are dropped entirely.
type HTML struct {
	policy *bluemonday.Policy
	maxLen int
}

// DefaultMaxLen caps identifiers echoed back to callers.
const DefaultMaxLen = 128

// NewHTML returns the default identifier sanitizer. maxLen <= 0 uses
// DefaultMaxLen.
func NewHTML(maxLen int) *HTML {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &HTML{policy: bluemonday.StrictPolicy(), maxLen: maxLen}
}

// ForDisplay returns raw with markup removed, control characters dropped and
// whitespace trimmed, truncated to the configured rune length and
// HTML-escaped. Control characters are dropped both before the policy runs
// and after entities are decoded, so an escaped control character such as
// "&#1;" never survives. The length cap applies to the unescaped text so
// that the result is a fixed point of ForDisplay.
func (h *HTML) ForDisplay(raw string) string {
	text := stripControl(html.UnescapeString(h.policy.Sanitize(stripControl(raw))))
	if runes := []rune(text); len(runes) > h.maxLen {
		text = string(runes[:h.maxLen])
	}
	return html.EscapeString(strings.TrimSpace(text))
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

// Identifier is an externally supplied identifier paired with the
// transformation that makes it safe to display. The raw value is kept as
// received.
type Identifier struct {
	raw string
	fn  func(string) string
}

// Wrap pairs raw with s.
func Wrap(raw string, s Sanitizer) Identifier {
	if s == nil {
		return Identifier{raw: raw, fn: NewHTML(0).ForDisplay}
	}
	return Identifier{raw: raw, fn: s.ForDisplay}
}

// Raw returns the identifier exactly as received. It must only be used for
// lookups, never echoed.
func (id Identifier) Raw() string { return id.raw }

// String returns the sanitized form.
func (id Identifier) String() string {
	if id.fn == nil {
		return NewHTML(0).ForDisplay(id.raw)
	}
	return id.fn(id.raw)
}
