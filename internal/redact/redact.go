// Package redact strips sensitive material from strings before they reach
// logs or error responses: connection strings, API keys, JWTs, hostnames and
// file paths that error messages from the database or inference backends tend
// to carry.
package redact

import "regexp"

// Placeholder values substituted for redacted content.
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	PathPlaceholder       = "[REDACTED_PATH]"
	HostPlaceholder       = "[REDACTED_HOST]"
	JWTPlaceholder        = "[REDACTED_JWT]"
)

var (
	dbConnPattern = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb)://[^@\s]+@`)
	apiKeyPattern = regexp.MustCompile(
		`(?i)(api[_-]?key|token|secret|bearer)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`,
	)
	jwtPattern      = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)
	unixPathPattern = regexp.MustCompile(`(/[\w.-]+){2,}`)
	hostPortPattern = regexp.MustCompile(
		`\b(?:[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}(?::\d{1,5})?\b`,
	)

	replacements = []struct {
		pattern     *regexp.Regexp
		placeholder string
	}{
		{dbConnPattern, CredentialPlaceholder},
		{jwtPattern, JWTPlaceholder},
		{apiKeyPattern, KeyPlaceholder},
		{unixPathPattern, PathPlaceholder},
		{hostPortPattern, HostPlaceholder},
	}
)

// String returns s with all recognized sensitive fragments replaced by
// placeholders.
func String(s string) string {
	for _, r := range replacements {
		s = r.pattern.ReplaceAllString(s, r.placeholder)
	}
	return s
}

// Error redacts an error's message. Returns the empty string for nil errors.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
