package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Redactor redacts sensitive information from logs
type Redactor struct {
	rules []rule
}

// NewRedactor creates a new redactor with default patterns
func NewRedactor() *Redactor {
	r := &Redactor{}
	for _, p := range []string{
		// Provider API keys
		`sk-ant-[a-zA-Z0-9_-]{20,}`,
		`sk-[a-zA-Z0-9_-]{20,}`,

		`Bearer\s+[a-zA-Z0-9._-]+`,
		`password["\s:=]+[^\s"]+`,
		`token["\s:=]+[a-zA-Z0-9._-]{20,}`,
		`secret["\s:=]+[^\s"]+`,
	} {
		r.rules = append(r.rules, rule{pattern: regexp.MustCompile(p), replacement: redacted})
	}

	// CLI session ids resume a provider conversation; keep the field name so
	// structured logs stay valid JSON.
	r.rules = append(r.rules,
		rule{
			pattern:     regexp.MustCompile(`("cli_session_id"\s*:\s*")[^"]*(")`),
			replacement: "${1}" + redacted + "${2}",
		},
		rule{
			pattern:     regexp.MustCompile(`(cli_session_id=(?:\x1b\[[0-9;]*m)*)[^\s\x1b]+`),
			replacement: "${1}" + redacted,
		},
	)
	return r
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, rule{pattern: re, replacement: redacted})
	return nil
}

// Redact redacts sensitive information from a string
func (r *Redactor) Redact(s string) string {
	for _, rl := range r.rules {
		s = rl.pattern.ReplaceAllString(s, rl.replacement)
	}
	return s
}

// Wrap wraps an io.Writer to redact sensitive information
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{
		writer:   w,
		redactor: r,
	}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success, not the redacted length.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
