package logging

import "regexp"

// RedactedText is the replacement text for sensitive data.
const RedactedText = "[REDACTED]"

var (
	// Matches password=xxx, pwd=xxx, pass=xxx (until next delimiter).
	// connection_info is opaque to the engine but commonly a DSN.
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Matches api_key=xxx and friends for HTTP-style sources.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token)=[A-Za-z0-9-_]{8,}`)

	// Matches user:pass@host in URL-style connection strings.
	credsInURLPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@`)
)

// SanitizeConnectionInfo strips credentials from an opaque connection
// blob before it is logged. The blob itself is never parsed or
// validated, only scrubbed.
func SanitizeConnectionInfo(info string) string {
	if info == "" {
		return ""
	}
	sanitized := passwordPattern.ReplaceAllString(info, "${1}="+RedactedText)
	sanitized = apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
	sanitized = credsInURLPattern.ReplaceAllString(sanitized, "://"+RedactedText+"@")
	return sanitized
}

// SanitizeError scrubs error text that may echo connection details, for
// example a failed connector dial reporting its DSN.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeConnectionInfo(err.Error())
}
