// Package validation parses and checks the JSON bodies accepted by the task
// API. The parsers never panic: every rejection comes back as an *Error that
// names the offending fields.
package validation
