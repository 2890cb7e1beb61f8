// pkg/core/session.go
package core

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// ErrNoSessionID is returned when a session URL has no usable path segment.
var ErrNoSessionID = errors.New("no session id in url")

// Session scopes a sequence of captures to one scanning visit.
// The identifier is minted by the hosting backend and treated as opaque.
type Session struct {
	ID        string
	StartTime time.Time
}

// SessionIDFromURL extracts the session identifier from the final path
// segment of the page URL the scanner was launched for.
func SessionIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	id := segments[len(segments)-1]
	if id == "" {
		return "", ErrNoSessionID
	}
	return id, nil
}
