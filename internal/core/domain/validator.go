package domain

import "fmt"

// Verdict is the result of validating one SQL input. A rejected verdict
// carries a human-facing error plus an actionable suggestion; both are
// surfaced verbatim to the person who asked the question.
type Verdict struct {
	Valid      bool           `json:"is_valid"`
	Error      string         `json:"error,omitempty"`
	Suggestion string         `json:"suggestion,omitempty"`
	Class      OperationClass `json:"-"`
}

// LexicalValidator decides whether an untrusted SQL string may execute, using
// lexical analysis only: literals and comments are neutralized, the input is
// split on top-level semicolons, and the single remaining statement is
// classified by its leading keyword. No SQL grammar is parsed and nothing is
// executed.
type LexicalValidator struct{}

func NewLexicalValidator() *LexicalValidator {
	return &LexicalValidator{}
}

// Validate returns a Verdict for any input, including empty or garbled text.
// It never panics and has no side effects; callers must treat a rejected
// verdict as fully blocking.
func (v *LexicalValidator) Validate(sql string, policy PolicyContext) Verdict {
	class := ClassifySQL(sql)

	switch class.Kind {
	case ClassEmpty:
		return Verdict{
			Error:      "empty query",
			Suggestion: "Provide a SQL statement to run.",
			Class:      class,
		}

	case ClassMultipleStatements:
		return Verdict{
			Error:      "multiple statements are not allowed",
			Suggestion: "Submit one statement at a time.",
			Class:      class,
		}

	case ClassFileOperation:
		return Verdict{
			Error:      "File operations are not permitted",
			Suggestion: "Use the export or download functionality instead of writing to files.",
			Class:      class,
		}

	case ClassDestructiveWrite:
		if policy.AllowsWrites() {
			return Verdict{Valid: true, Class: class}
		}
		return Verdict{
			// Embeds the canonical uppercase keyword; callers match on it.
			Error:      fmt.Sprintf("%s operations are blocked in read-only mode", class.Keyword),
			Suggestion: "Use a SELECT to inspect the data, or request an admin override.",
			Class:      class,
		}

	case ClassSafeRead:
		return Verdict{Valid: true, Class: class}

	default: // ClassUnclassified: fail closed on anything unrecognized.
		return Verdict{
			Error:      fmt.Sprintf("unrecognized statement %q", class.Keyword),
			Suggestion: "Rephrase the request as a SELECT query.",
			Class:      class,
		}
	}
}
