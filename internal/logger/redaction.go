package logger

import (
	"io"
	"regexp"
)

// defaultRedactions covers the credentials this service actually
// handles: provider API keys, bearer tokens, database and Redis
// connection strings, and member SSNs that leak into log fields.
var defaultRedactions = []string{
	`sk-ant-[a-zA-Z0-9_-]{20,}`,
	`sk-[a-zA-Z0-9_-]{20,}`,
	`Bearer\s+[a-zA-Z0-9._-]+`,
	`(postgres|redis)://[^:\s]+:[^@\s]+@`,
	`password["\s:=]+[^\s"]+`,
	`pwd["\s:=]+[^\s"]+`,
	`token["\s:=]+[a-zA-Z0-9._-]{20,}`,
	`secret["\s:=]+[^\s"]+`,
	`\b\d{3}-\d{2}-\d{4}\b`,
}

// Redactor scrubs secrets from log output before it hits disk.
type Redactor struct {
	patterns []*regexp.Regexp
}

func NewRedactor() *Redactor {
	r := &Redactor{patterns: make([]*regexp.Regexp, 0, len(defaultRedactions))}
	for _, p := range defaultRedactions {
		r.patterns = append(r.patterns, regexp.MustCompile(p))
	}
	return r
}

// AddPattern registers an extra redaction pattern.
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact replaces every match of the registered patterns.
func (r *Redactor) Redact(s string) string {
	for _, pattern := range r.patterns {
		s = pattern.ReplaceAllString(s, "[REDACTED]")
	}
	return s
}

// Wrap returns a writer that redacts each write before forwarding it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

func (w *redactingWriter) Write(p []byte) (int, error) {
	return w.writer.Write([]byte(w.redactor.Redact(string(p))))
}
