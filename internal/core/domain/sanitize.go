package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxLogLength bounds sanitized SQL destined for persistent audit logs.
const MaxLogLength = 500

const truncationMarker = "... [truncated]"

// defaultSensitiveFields are case-insensitive fragments matched against the
// left side of assignment-shaped patterns.
var defaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"api_key", "apikey",
	"secret", "token", "auth", "credential",
}

// Sanitizer redacts credential-shaped literal values from raw SQL before it
// is logged. It knows nothing about statement structure and works on input
// the validator would reject.
type Sanitizer struct {
	re *regexp.Regexp
}

// NewSanitizer builds a Sanitizer over the default sensitive field fragments
// plus any extra fragments (typically from the policy file).
func NewSanitizer(extraFields ...string) *Sanitizer {
	fields := make([]string, 0, len(defaultSensitiveFields)+len(extraFields))
	for _, f := range append(append([]string{}, defaultSensitiveFields...), extraFields...) {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, regexp.QuoteMeta(f))
		}
	}

	// Matches field = value where the field name contains a sensitive
	// fragment and the value is a quoted or bare literal. Group 1 keeps the
	// field name and operator so the redacted string stays diagnostic.
	pattern := fmt.Sprintf(
		`(?i)([A-Za-z0-9_."]*(?:%s)[A-Za-z0-9_."]*\s*=\s*)('(?:[^']|'')*'|"[^"]*"|[^\s,;)]+)`,
		strings.Join(fields, "|"),
	)
	return &Sanitizer{re: regexp.MustCompile(pattern)}
}

// SanitizeForLogging masks sensitive literal values with *** and caps the
// result at MaxLogLength characters. It never fails: with no match the input
// passes through aside from length capping, and re-sanitizing already
// sanitized text is harmless.
func (s *Sanitizer) SanitizeForLogging(sql string) string {
	redacted := s.re.ReplaceAllString(sql, "${1}***")
	runes := []rune(redacted)
	if len(runes) <= MaxLogLength {
		return redacted
	}
	return string(runes[:MaxLogLength-len(truncationMarker)]) + truncationMarker
}
