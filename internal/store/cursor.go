package store

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// EncodeCursor serializes a last-evaluated key into a URL query-safe token.
func EncodeCursor(k Key) string {
	b, err := json.Marshal(k)
	if err != nil {
		// Key only holds strings.
		panic(fmt.Sprintf("store: marshal cursor: %v", err))
	}
	return url.QueryEscape(string(b))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means
// "first page" and returns (nil, nil). The token may arrive either
// percent-encoded or already decoded by the HTTP layer.
//
// The decoded key must name both the owner and the task, and the owner must be
// ownerID: a cursor never moves a listing into another partition.
func DecodeCursor(token, ownerID string) (*Key, error) {
	if token == "" {
		return nil, nil
	}

	raw := token
	if !strings.HasPrefix(raw, "{") {
		unescaped, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
		}
		raw = unescaped
	}

	var k Key
	if err := json.Unmarshal([]byte(raw), &k); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadCursor, err)
	}
	if k.UserID == "" || k.TaskID == "" {
		return nil, fmt.Errorf("%w: missing key fields", ErrBadCursor)
	}
	if k.UserID != ownerID {
		return nil, fmt.Errorf("%w: cursor belongs to another owner", ErrBadCursor)
	}
	return &k, nil
}
