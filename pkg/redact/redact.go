// Package redact provides regex- and structure-aware secret redaction for
// log lines and error messages that might otherwise echo a credential
// embedded in a DAT path template or a fetch specifier. It is an ambient
// logging-hygiene concern, not a secret store: nothing here persists,
// validates, or manages credentials (out of scope per spec.md's Non-goals
// on "API credential storage").
package redact

import (
	"fmt"
	"log/slog"
	"regexp"
)

// Masker is a structurally-aware redactor for a specific content shape that
// a regex pattern can't safely target (e.g. a whole embedded credentials
// block) — checked before the regex patterns, same ordering the teacher's
// masking service uses for its own code-based maskers.
type Masker interface {
	// Name identifies this masker for logging/diagnostics.
	Name() string
	// AppliesTo is a cheap, non-parsing check for whether data is worth
	// handing to Mask at all.
	AppliesTo(data string) bool
	// Mask returns the redacted content. Must be defensive: on any
	// internal failure it should return the original data unchanged
	// rather than panic.
	Mask(data string) string
}

// PatternSpec is the uncompiled form of a regex redaction rule.
type PatternSpec struct {
	Name        string
	Pattern     string
	Replacement string
	Description string
}

// CompiledPattern is a PatternSpec with its regex compiled once at
// Redactor construction time.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// defaultPatterns cover the credential shapes most likely to leak through a
// DAT path template or a fetch error message: bearer tokens, basic-auth
// userinfo in a URL, and common cloud/API key prefixes.
var defaultPatterns = []PatternSpec{
	{
		Name:        "bearer_token",
		Pattern:     `(?i)bearer\s+[a-z0-9._-]{10,}`,
		Replacement: "bearer [REDACTED]",
		Description: "HTTP Authorization: Bearer token",
	},
	{
		Name:        "url_userinfo",
		Pattern:     `([a-zA-Z][a-zA-Z0-9+.-]*://)[^/@\s:]+:[^/@\s]+@`,
		Replacement: "${1}[REDACTED]@",
		Description: "username:password embedded in a URL",
	},
	{
		Name:        "aws_access_key",
		Pattern:     `\bAKIA[0-9A-Z]{16}\b`,
		Replacement: "[REDACTED_AWS_KEY]",
		Description: "AWS access key id",
	},
	{
		Name:        "generic_api_key_assignment",
		Pattern:     `(?i)(api[_-]?key|secret|token)\s*[:=]\s*["']?[a-z0-9._-]{16,}["']?`,
		Replacement: "${1}=[REDACTED]",
		Description: "key=value style secret assignment",
	},
}

// Redactor compiles a set of regex patterns plus any registered structural
// Maskers and applies both to arbitrary strings. Safe for concurrent use
// once built: Redact never mutates Redactor state.
type Redactor struct {
	patterns []*CompiledPattern
	maskers  []Masker
}

// New compiles patterns (defaultPatterns plus any caller-supplied
// additions) eagerly. An invalid regex is logged and skipped rather than
// failing construction, matching the teacher's own
// compile-eagerly-skip-on-error policy.
func New(extra ...PatternSpec) *Redactor {
	r := &Redactor{}
	for _, spec := range append(append([]PatternSpec{}, defaultPatterns...), extra...) {
		re, err := regexp.Compile(spec.Pattern)
		if err != nil {
			slog.Error("redact: skipping invalid pattern", "pattern", spec.Name, "error", err)
			continue
		}
		r.patterns = append(r.patterns, &CompiledPattern{
			Name:        spec.Name,
			Regex:       re,
			Replacement: spec.Replacement,
			Description: spec.Description,
		})
	}
	return r
}

// Register adds a structural Masker, applied before any regex pattern.
func (r *Redactor) Register(m Masker) {
	r.maskers = append(r.maskers, m)
}

// Redact applies every registered Masker whose AppliesTo matches, then
// every compiled regex pattern, in that order, returning the fully
// redacted string. Fail-closed: a Masker that panics is treated as a
// redaction failure and its output is replaced with a generic notice
// rather than letting the panic (and the unredacted content already
// collected by the recover) escape to the caller.
func (r *Redactor) Redact(data string) string {
	out := data
	for _, m := range r.maskers {
		out = r.applyMasker(m, out)
	}
	for _, p := range r.patterns {
		out = p.Regex.ReplaceAllString(out, p.Replacement)
	}
	return out
}

func (r *Redactor) applyMasker(m Masker, data string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("redact: masker panicked, redacting fail-closed", "masker", m.Name(), "panic", rec)
			result = fmt.Sprintf("[REDACTED: %s masking failure]", m.Name())
		}
	}()
	if !m.AppliesTo(data) {
		return data
	}
	return m.Mask(data)
}
