// Package moderation guards chat input before it reaches the agent crew.
// Members paste things into chat that must never travel to an LLM
// provider: social security numbers, card numbers. The guard redacts
// recognized PII and rejects messages that match configured blocklists.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
)

// Built-in PII patterns. These are always redacted regardless of config.
var piiPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"card", regexp.MustCompile(`\b(?:\d[ -]?){13,16}\d\b`)},
}

const redactedPlaceholder = "[redacted]"

// Config controls the optional blocklists on top of PII redaction.
type Config struct {
	Enabled         bool
	BlockedKeywords []string
	BlockedPatterns []string
}

// Guard checks and sanitizes member chat input.
type Guard struct {
	enabled  bool
	keywords []string
	patterns []*regexp.Regexp
}

// New compiles the configured blocklists into a Guard.
func New(cfg Config) (*Guard, error) {
	patterns := make([]*regexp.Regexp, 0, len(cfg.BlockedPatterns))
	for _, p := range cfg.BlockedPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &Guard{
		enabled:  cfg.Enabled,
		keywords: cfg.BlockedKeywords,
		patterns: patterns,
	}, nil
}

// CheckMessage returns an error if the message contains blocked content.
// PII is not blocked, it is redacted by RedactPII instead.
func (g *Guard) CheckMessage(message string) error {
	if !g.enabled {
		return nil
	}

	normalized := strings.ToLower(message)
	for _, kw := range g.keywords {
		if strings.Contains(normalized, strings.ToLower(kw)) {
			return fmt.Errorf("message contains blocked keyword: %s", kw)
		}
	}
	for i, re := range g.patterns {
		if re.MatchString(message) {
			return fmt.Errorf("message matches blocked pattern #%d", i+1)
		}
	}
	return nil
}

// RedactPII replaces recognized PII in the message with a placeholder.
// Runs even when the blocklists are disabled.
func (g *Guard) RedactPII(message string) string {
	for _, p := range piiPatterns {
		message = p.re.ReplaceAllString(message, redactedPlaceholder)
	}
	return message
}
