// Package auth issues and verifies HS256 bearer tokens and turns a raw
// Authorization header into an allow or deny policy for one resource.
package auth
