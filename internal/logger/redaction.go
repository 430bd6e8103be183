package logger

import (
	"io"
	"regexp"
)

const redacted = "[REDACTED]"

// Redactor masks credentials in rendered log lines.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor creates a redactor with the default credential patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []*regexp.Regexp{
			// AWS access key ids (long-lived and STS)
			regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),

			// AWS secret keys and session tokens in key=value or JSON form
			regexp.MustCompile(`(?i)(aws_secret_access_key|secretaccesskey|aws_session_token|sessiontoken)["'\s:=]+[A-Za-z0-9/+=]{16,}`),

			// SigV4 signatures
			regexp.MustCompile(`Signature=[0-9a-f]{64}`),

			// Bearer tokens
			regexp.MustCompile(`Bearer\s+[A-Za-z0-9._~+/-]+=*`),

			// Provider API keys
			regexp.MustCompile(`sk-ant-[A-Za-z0-9_-]{20,}`),
			regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
			regexp.MustCompile(`(?i)x-api-key["'\s:=]+[^\s"',}]+`),

			// Generic secrets
			regexp.MustCompile(`(?i)(password|secret)["'\s:=]+[^\s"',}]+`),
		},
	}
}

// AddPattern adds a custom redaction pattern
func (r *Redactor) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.patterns = append(r.patterns, re)
	return nil
}

// Redact replaces every credential match with a fixed marker.
func (r *Redactor) Redact(s string) string {
	for _, pattern := range r.patterns {
		s = pattern.ReplaceAllString(s, redacted)
	}
	return s
}

// Wrap returns a writer that redacts each write before passing it on.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &redactingWriter{writer: w, redactor: r}
}

type redactingWriter struct {
	writer   io.Writer
	redactor *Redactor
}

// Write reports len(p) on success so zerolog does not treat a shortened
// line as a short write.
func (w *redactingWriter) Write(p []byte) (int, error) {
	if _, err := w.writer.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
