package shared

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes bounds request bodies read by ReadBody.
const MaxBodyBytes = 1 << 20

// ErrBodyTooLarge is returned by ReadBody for oversized bodies.
var ErrBodyTooLarge = errors.New("request body too large")

// ReadBody reads the whole request body, up to MaxBodyBytes.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if len(body) > MaxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}
