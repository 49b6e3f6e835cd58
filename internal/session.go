package internal

import (
	"fmt"
	"math/rand/v2"
)

type Session struct {
	id int64
}

// GenerateSession creates a new session with a random numeric identifier.
// Each handled request gets its own session so its log lines can be grouped.
func GenerateSession() Session {
	return Session{id: rand.Int64N(1000000)}
}

// String returns the string representation of the session, equivalent to calling ID().
func (s Session) String() string {
	return string(s.ID())
}

// ID returns the session identifier in the format "request-<number>".
func (s Session) ID() SessionID {
	return SessionID(fmt.Sprintf("request-%06d", s.id))
}
