// Package sqlsafety classifies ad hoc SQL statements as read-only or
// mutating (spec.md §4.10), gating SQLRunner.RunSQL calls made with
// readOnly=true. Classification is a lexical scan rather than a full
// parse: the plugin boundary only needs a conservative yes/no, not a
// query planner.
package sqlsafety

import (
	"regexp"
	"strings"
)

// Status is the outcome of classifying a statement.
type Status int

const (
	// ReadOnly means the statement starts with an allowed keyword and
	// contains no forbidden token.
	ReadOnly Status = iota
	// Mutating means a forbidden keyword was found, the statement
	// doesn't start with an allowed keyword, or more than one
	// statement was submitted.
	Mutating
	// Unknown means the statement is empty or has no recognizable SQL
	// keyword to classify (e.g. punctuation only).
	Unknown
)

func (s Status) String() string {
	switch s {
	case ReadOnly:
		return "READ_ONLY"
	case Mutating:
		return "WRITE"
	default:
		return "UNKNOWN"
	}
}

// Classification is the result of classifying one statement.
type Classification struct {
	Status Status
	Reason string
}

// allowedStarters is the set of leading keywords a read-only statement
// may open with.
var allowedStarters = map[string]bool{
	"SELECT": true, "WITH": true, "EXPLAIN": true,
	"SHOW": true, "DESCRIBE": true, "VALUES": true,
}

// forbiddenKeywords is the exact token set from spec.md §4.10: any of
// these appearing as a standalone word anywhere in the statement marks
// it as mutating, regardless of position (a keyword buried in a CTE or
// subquery still mutates).
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "MERGE", "REPLACE", "UPSERT",
	"CREATE", "ALTER", "DROP", "TRUNCATE", "RENAME",
	"GRANT", "REVOKE",
	"BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT", "RELEASE",
	"SET", "USE",
	"COPY", "LOAD", "UNLOAD",
	"VACUUM", "ANALYZE", "OPTIMIZE", "REFRESH",
	"CALL", "EXEC", "EXECUTE",
	"INDEX", "SEQUENCE", "CONSTRAINT",
	"LOCK", "INTO",
}

var keywordPattern = buildPattern()

func buildPattern() *regexp.Regexp {
	// \b word boundaries so e.g. "INSERTED" doesn't match "INSERT".
	escaped := make([]string, len(forbiddenKeywords))
	for i, kw := range forbiddenKeywords {
		escaped[i] = regexp.QuoteMeta(kw)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(escaped, "|") + `)\b`)
}

var firstWordPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*`)

// Classify inspects query and returns its read-only/mutating status.
// Comments are stripped first so a forbidden keyword mentioned only in
// a comment doesn't cause a false mutating classification. A statement
// must start with an allowed keyword (SELECT, WITH, EXPLAIN, SHOW,
// DESCRIBE, VALUES) to read as read-only, and submitting more than one
// statement is always mutating.
func Classify(query string) Classification {
	stripped := strings.TrimSpace(stripComments(query))
	if stripped == "" {
		return Classification{Status: Unknown, Reason: "empty statement"}
	}

	statements := splitStatements(stripped)
	if len(statements) > 1 {
		return Classification{Status: Mutating, Reason: "multiple SQL statements are not allowed"}
	}

	stmt := statements[0]
	firstWord := firstWordPattern.FindString(stmt)
	if firstWord == "" {
		return Classification{Status: Unknown, Reason: "no SQL keyword found"}
	}
	if !allowedStarters[strings.ToUpper(firstWord)] {
		return Classification{Status: Mutating, Reason: "statement starts with disallowed keyword " + strings.ToUpper(firstWord)}
	}

	if m := keywordPattern.FindString(stmt); m != "" {
		return Classification{
			Status: Mutating,
			Reason: "statement contains forbidden keyword " + strings.ToUpper(m),
		}
	}
	return Classification{Status: ReadOnly, Reason: "no mutating keyword found"}
}

var (
	lineCommentPattern  = regexp.MustCompile(`--[^\n]*`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

func stripComments(query string) string {
	query = blockCommentPattern.ReplaceAllString(query, " ")
	query = lineCommentPattern.ReplaceAllString(query, " ")
	return query
}

// splitStatements splits query on top-level semicolons, skipping those
// inside quoted string literals, and drops empty/whitespace-only
// segments (a single trailing semicolon is not a second statement).
func splitStatements(query string) []string {
	var stmts []string
	var cur strings.Builder
	var quote rune

	for _, r := range query {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == ';':
			if s := strings.TrimSpace(cur.String()); s != "" {
				stmts = append(stmts, s)
			}
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
