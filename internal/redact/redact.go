// Package redact scrubs sensitive information from strings before they are
// logged or surfaced in error responses: credentials, connection strings,
// tokens, file paths, emails, record IDs, and the value portions of SQL
// statements.
package redact

import "regexp"

// Redaction placeholders.
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

// rule pairs a pattern with its replacement. Replacements may reference
// capture groups, which lets the SQL rules keep statement structure while
// dropping the values.
type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules are applied in order. Credentials and tokens go first, then SQL
// statements (so their value lists are collapsed before the narrower
// patterns can pick at their contents), then paths, emails, and IDs.
var rules = []rule{
	{regexp.MustCompile(`(?i)(postgres|mysql|mongodb|db|database|connection)://[^@]+@`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`), RedactedCredentialPlaceholder},
	{regexp.MustCompile(`(?i)(api[_-]?key|token|secret|key|access|auth)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`(AKIA|AccessKey(Id)?)([^a-zA-Z0-9])?[A-Z0-9]{8,}`), RedactedKeyPlaceholder},
	{regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`), "[REDACTED_JWT]"},

	// SQL statements keep their shape (verb, table, column list) but lose
	// everything that could carry data.
	{regexp.MustCompile(`(?i)(INSERT\s+INTO\s+\w+\s*\([^)]*\)\s*VALUES)\s*[\s\S]+`), "$1 [SQL_VALUES_REDACTED]"},
	{regexp.MustCompile(`(?i)(UPDATE\s+\w+\s+SET)\s+[\s\S]+`), "$1 [SQL_VALUES_REDACTED]"},
	{regexp.MustCompile(`(?i)(DELETE\s+FROM\s+\w+)\s+WHERE\s+[\s\S]+`), "$1 [SQL_WHERE_REDACTED]"},
	{regexp.MustCompile(`(?i)SELECT\s[\s\S]+?\sFROM\s[\s\S]+`), "SELECT FROM... [SQL_VALUES_REDACTED]"},

	{regexp.MustCompile(`(/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`[A-Za-z]:\\[^\\]+(\\[^\\]+)+`), RedactedPathPlaceholder},
	{regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`), "[STACK_TRACE_REDACTED]"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`), "[REDACTED_EMAIL]"},
	{regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`), "[REDACTED_UUID]"},
	{regexp.MustCompile(`(?:at )?line ?\d+`), "[REDACTED_LINE_NUMBER]"},
	{regexp.MustCompile(`(?i)syntax error|syntax problem|parse error`), "[REDACTED_SYNTAX_ERROR]"},
	{regexp.MustCompile(`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`), "[REDACTED_HOST]"},
	{regexp.MustCompile(`(?i)(?:no such file|file not found|can't open|cannot open|file error)`), "[REDACTED_FILE_ERROR]"},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}

	result := input
	for _, r := range rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
