// Package message contains inlet's message model, payload validation, and
// persistence primitives.
package message

import (
	"errors"
	"strings"
	"time"
)

// Message is the canonical persisted message representation.
//
// TS is always UTC. Seq is assigned by the store at insert time and is used
// only as storage order; it is never exposed as identity.
type Message struct {
	MessageID string
	From      string
	To        string
	TS        time.Time
	Text      *string
	Seq       int64
}

// FormatTS renders a timestamp in the canonical wire form: RFC 3339 UTC with
// a literal Z suffix. Fractional seconds are kept only when present.
func FormatTS(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTS parses a timestamp in strict ISO-8601 UTC form with a Z suffix.
// Offset forms such as +00:00 are rejected even though they denote the same
// instant: the wire contract is the canonical Z form only.
func ParseTS(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, errors.New("timestamp must end with Z")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// less orders messages by the composite key (ts, message_id) ascending.
// Every listing and the first/last stats lookups use this ordering so that
// timestamp collisions break ties deterministically.
func less(a, b Message) bool {
	if !a.TS.Equal(b.TS) {
		return a.TS.Before(b.TS)
	}
	return a.MessageID < b.MessageID
}
