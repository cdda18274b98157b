package message

import (
	"context"
	"time"
)

const (
	// DefaultListLimit applies when a listing does not specify a window size.
	DefaultListLimit = 50
	// MaxListLimit bounds a single listing window.
	MaxListLimit = 100
)

// InsertOutcome reports how an idempotent insert resolved.
// A duplicate is a success, not an error: retried deliveries of the same
// message_id converge to exactly one stored row.
type InsertOutcome int

const (
	// OutcomeStored means a new row was created.
	OutcomeStored InsertOutcome = iota
	// OutcomeDuplicate means a row with the same message_id already existed.
	OutcomeDuplicate
)

func (o InsertOutcome) String() string {
	if o == OutcomeDuplicate {
		return "duplicate"
	}
	return "stored"
}

// ListFilter selects and windows a listing. All filter fields are optional
// and combine with AND semantics.
type ListFilter struct {
	// From matches the sender exactly.
	From string
	// Since is an inclusive lower bound on ts.
	Since *time.Time
	// Query is a case-sensitive substring match on text.
	// Messages without text never match.
	Query string

	Limit  int
	Offset int
}

// SenderCount is one messages-per-sender aggregate row.
type SenderCount struct {
	Sender string
	Count  int64
}

// Stats are the aggregate analytics over the whole store.
// First/LastMessageTS are nil on an empty store. They are the timestamps of
// the rows that sort first/last under (ts, message_id) ordering, which is not
// the same as min/max ts when timestamps collide.
type Stats struct {
	TotalMessages     int64
	SendersCount      int64
	MessagesPerSender []SenderCount
	FirstMessageTS    *time.Time
	LastMessageTS     *time.Time
}

// Store persists and queries messages.
//
// Requirements:
//   - Insert is idempotent per message_id; uniqueness is enforced by the
//     storage layer itself, not by check-then-insert in application code.
//   - List and Stats order by (ts, message_id) ascending.
//   - Reachable is a bounded-latency probe and never blocks on writers.
type Store interface {
	Insert(ctx context.Context, m Message) (InsertOutcome, error)
	List(ctx context.Context, f ListFilter) ([]Message, int64, error)
	Stats(ctx context.Context) (Stats, error)
	Reachable(ctx context.Context) bool
	Close() error
}

// clampWindow normalizes Limit into [1, MaxListLimit] (defaulting when unset)
// and floors Offset at 0. The HTTP layer rejects out-of-range values before
// they get here; stores still clamp so the invariant does not depend on the
// caller.
func clampWindow(f ListFilter) ListFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
