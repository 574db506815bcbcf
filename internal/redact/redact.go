// Package redact provides utilities for redacting sensitive information from strings
// before they are logged or returned in error responses. It keeps signing secrets,
// bearer tokens, presigned URL signatures, and connection credentials out of logs.
package redact

import "regexp"

// Constants for redaction placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

type rule struct {
	pattern     *regexp.Regexp
	replacement string
}

// Rules are applied in order; JWTs go first so the generic key rule cannot
// swallow them under a less specific placeholder.
var rules = []rule{
	{
		regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`),
		"[REDACTED_JWT]",
	},
	{
		regexp.MustCompile(`(?i)(X-Amz-(?:Signature|Credential|Security-Token)=)[^&\s]+`),
		"${1}" + RedactionPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(postgres|postgresql|redis|rediss|nats|mysql)://[^@\s]+@`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]?['"]?)[^'"&\s]{3,}`),
		RedactedCredentialPlaceholder,
	},
	{
		regexp.MustCompile(`(?i)(api[_-]?key|secret|token)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`),
		RedactedKeyPlaceholder,
	},
	{
		regexp.MustCompile(`arn:aws:([a-z0-9-]+):([a-z0-9-]*):\d{12}:`),
		"arn:aws:${1}:${2}:[REDACTED_ACCOUNT]:",
	},
	{
		regexp.MustCompile(`(?:goroutine \d+|panic:)[\s\S]*?(\n\t.*)+`),
		"[STACK_TRACE_REDACTED]",
	},
	{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		"[REDACTED_EMAIL]",
	},
	{
		regexp.MustCompile(`(/[\w.-]+){2,}`),
		RedactedPathPlaceholder,
	},
}

// String redacts sensitive information from the input string
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

// Error redacts sensitive information from an error's Error() output
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
