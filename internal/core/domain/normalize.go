package domain

import "strings"

// NormalizeSQL produces a safe-to-scan skeleton of the input: the contents of
// single- and double-quoted literals are replaced with equal-length runs of
// spaces (quotes preserved) and -- line comments and /* */ block comments are
// stripped. Keyword positions and top-level semicolons survive intact, so a
// keyword hidden in a comment can no longer influence classification and a
// keyword inside a literal can no longer trigger a false positive.
//
// An unterminated literal or comment consumes the rest of the input. Inside a
// single-quoted literal the '' escape does not end the literal.
func NormalizeSQL(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))

	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	state := stateNormal
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingleQuote
				b.WriteByte(c)
			case c == '"':
				state = stateDoubleQuote
				b.WriteByte(c)
			case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
				state = stateLineComment
				i++
			case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
				state = stateBlockComment
				i++
			default:
				b.WriteByte(c)
			}
		case stateSingleQuote:
			if c == '\'' {
				if i+1 < len(sql) && sql[i+1] == '\'' {
					// Escaped quote stays inside the literal.
					b.WriteString("  ")
					i++
					continue
				}
				state = stateNormal
				b.WriteByte(c)
			} else {
				b.WriteByte(' ')
			}
		case stateDoubleQuote:
			if c == '"' {
				state = stateNormal
				b.WriteByte(c)
			} else {
				b.WriteByte(' ')
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
				b.WriteByte(c)
			}
		case stateBlockComment:
			if c == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				state = stateNormal
				b.WriteByte(' ')
				i++
			}
		}
	}

	return b.String()
}

// SplitStatements splits an already-normalized skeleton into top-level
// statements on semicolons, dropping empty fragments. Splitting raw SQL here
// would be wrong: only NormalizeSQL output guarantees that every remaining
// semicolon is a real statement boundary.
func SplitStatements(normalized string) []string {
	parts := strings.Split(normalized, ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			stmts = append(stmts, p)
		}
	}
	return stmts
}
