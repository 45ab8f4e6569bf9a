// Package security provides log redaction for the relay's credentials and
// validation of untrusted webhook payloads.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// Redactor replaces secret values in strings with a placeholder. Known key
// formats are matched by pattern; credentials loaded from configuration are
// registered as literals. All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: DefaultPatterns(),
	}
}

// AddLiteral registers a secret value that should be redacted on sight.
// Empty strings and duplicates are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.literals {
		if l == secret {
			return
		}
	}
	r.literals = append(r.literals, secret)
}

// Redact replaces all known secret patterns and literal values in s
// with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	// Literals first: a bot token inside a URL would otherwise be cut in
	// half by the pattern pass.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// DefaultPatterns returns compiled patterns for the credentials the relay
// handles.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Groq: gsk_...
		regexp.MustCompile(`gsk_[a-zA-Z0-9]{20,}`),
		// OpenAI-style: sk-...
		regexp.MustCompile(`sk-[a-zA-Z0-9\-_]{20,}`),
		// Telegram bot token: <bot id>:<35 chars>
		regexp.MustCompile(`[0-9]{6,12}:[a-zA-Z0-9_\-]{30,}`),
		// Authorization header values.
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.=]{16,}`),
	}
}
