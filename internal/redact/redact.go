// Package redact provides utilities for scrubbing sensitive information from
// strings before they are logged or returned in error responses: connection
// strings, credentials, SQL fragments, and filesystem paths that tend to ride
// along inside driver and library errors.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted content.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	PathPlaceholder       = "[REDACTED_PATH]"
	SQLPlaceholder        = "[REDACTED_SQL]"
	HostPlaceholder       = "[REDACTED_HOST]"
)

var (
	// Database connection strings with embedded credentials.
	dbConnRegex = regexp.MustCompile(`(?i)(postgres(?:ql)?|mysql|db|database)://[^@\s]+@`)

	// API keys, tokens, and secrets in key=value shapes.
	apiKeyRegex = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|password|passwd)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)

	// JWT tokens: three base64url segments starting with eyJ.
	jwtRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// SQL statements leaked through driver errors.
	sqlRegex = regexp.MustCompile(
		`(?i)(SELECT|INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)[\s\w,*()]+(?:FROM|INTO|SET|TABLE)[\s\S]*`,
	)

	// Filesystem paths.
	unixPathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)

	// host:port pairs.
	hostPortRegex = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	replacements = []struct {
		pattern     *regexp.Regexp
		placeholder string
	}{
		{dbConnRegex, CredentialPlaceholder},
		{apiKeyRegex, KeyPlaceholder},
		{jwtRegex, "[REDACTED_JWT]"},
		{sqlRegex, SQLPlaceholder},
		{unixPathRegex, PathPlaceholder},
		{hostPortRegex, HostPlaceholder},
	}
)

// String applies all redaction patterns to the given string and returns the
// scrubbed result.
func String(s string) string {
	for _, r := range replacements {
		s = r.pattern.ReplaceAllString(s, r.placeholder)
	}
	return s
}

// Error redacts an error's message for safe logging. Returns the empty
// string for a nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
