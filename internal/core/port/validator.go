package port

import "github.com/guillermoBallester/causeway/internal/core/domain"

// QueryValidator classifies SQL text against a policy snapshot and returns a
// verdict. Implementations must be pure: no I/O, no state, safe for
// concurrent use.
type QueryValidator interface {
	Validate(sql string, policy domain.PolicyContext) domain.Verdict
}

// PolicyResolver produces a fresh policy snapshot from ambient configuration.
// Resolve is called on every validation, never cached, so a runtime flag
// change takes effect on the very next call.
type PolicyResolver interface {
	Resolve() domain.PolicyContext
}

// LogSanitizer redacts credential-shaped values from SQL text bound for
// persistent logs.
type LogSanitizer interface {
	SanitizeForLogging(sql string) string
}
