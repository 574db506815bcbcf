// Package memory provides in-process implementations of the store interfaces.
// They back local development and the HTTP tests; data does not survive a restart.
package memory
