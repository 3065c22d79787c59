package domain

import (
	"regexp"
	"strings"
)

// ClassKind enumerates the operation classes a statement can fall into.
type ClassKind int

const (
	ClassSafeRead ClassKind = iota
	ClassDestructiveWrite
	ClassFileOperation
	ClassMultipleStatements
	ClassEmpty
	ClassUnclassified
)

func (k ClassKind) String() string {
	switch k {
	case ClassSafeRead:
		return "safe_read"
	case ClassDestructiveWrite:
		return "destructive_write"
	case ClassFileOperation:
		return "file_operation"
	case ClassMultipleStatements:
		return "multiple_statements"
	case ClassEmpty:
		return "empty"
	case ClassUnclassified:
		return "unclassified"
	default:
		return "unknown"
	}
}

// OperationClass tags a statement with its kind. Keyword carries the
// canonical uppercase destructive keyword for ClassDestructiveWrite, and the
// unrecognized leading token (uppercased) for ClassUnclassified.
type OperationClass struct {
	Kind    ClassKind
	Keyword string
}

// destructiveKeywords are leading keywords that mutate schema or data.
var destructiveKeywords = map[string]bool{
	"DROP":     true,
	"DELETE":   true,
	"TRUNCATE": true,
	"ALTER":    true,
	"INSERT":   true,
	"UPDATE":   true,
	"CREATE":   true,
	"GRANT":    true,
	"REVOKE":   true,
}

// File-operation patterns are matched before keyword extraction: INTO OUTFILE
// hides inside an otherwise SELECT-led statement.
var (
	reIntoOutfile = regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`)
	reLoadData    = regexp.MustCompile(`(?i)^\s*LOAD\s+DATA\b`)
)

// ClassifyStatement assigns exactly one OperationClass to a single normalized
// statement fragment. Classification is by the leading token only, never by
// scanning for keywords elsewhere in the text — a column named updated_at
// must not read as an UPDATE.
func ClassifyStatement(stmt string) OperationClass {
	stmt = strings.TrimSpace(stmt)
	if stmt == "" {
		return OperationClass{Kind: ClassEmpty}
	}

	if reIntoOutfile.MatchString(stmt) || reLoadData.MatchString(stmt) {
		return OperationClass{Kind: ClassFileOperation}
	}

	token := strings.ToUpper(leadingToken(stmt))
	switch {
	case token == "SELECT" || token == "WITH":
		return OperationClass{Kind: ClassSafeRead}
	case destructiveKeywords[token]:
		return OperationClass{Kind: ClassDestructiveWrite, Keyword: token}
	default:
		return OperationClass{Kind: ClassUnclassified, Keyword: token}
	}
}

// ClassifySQL normalizes and splits raw SQL, then classifies the result as a
// whole: zero statements is Empty, more than one is MultipleStatements, and a
// single statement gets its per-statement class.
func ClassifySQL(sql string) OperationClass {
	stmts := SplitStatements(NormalizeSQL(sql))
	switch len(stmts) {
	case 0:
		return OperationClass{Kind: ClassEmpty}
	case 1:
		return ClassifyStatement(stmts[0])
	default:
		return OperationClass{Kind: ClassMultipleStatements}
	}
}

// leadingToken returns the first run of identifier characters. Using Fields
// alone would glue punctuation onto the keyword ("SELECT*FROM t").
func leadingToken(s string) string {
	end := 0
	for end < len(s) {
		c := s[end]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			end++
			continue
		}
		break
	}
	return s[:end]
}
