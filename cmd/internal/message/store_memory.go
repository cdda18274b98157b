package message

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is the fallback Store when no database is configured, and the
// store unit tests run against it. The single mutex is the storage layer's
// uniqueness enforcement: duplicate detection and the insert happen under one
// critical section, so concurrent writers of the same message_id cannot race
// past each other.
type MemoryStore struct {
	mu   sync.Mutex
	seq  int64
	byID map[string]struct{}
	msgs []Message
}

// NewMemoryStore constructs an empty in-memory Store implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID: make(map[string]struct{}),
	}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

// Insert persists m, assigning the next sequence id; a repeated message_id
// reports OutcomeDuplicate and leaves the store unchanged.
func (s *MemoryStore) Insert(ctx context.Context, m Message) (InsertOutcome, error) {
	if err := ctx.Err(); err != nil {
		return OutcomeStored, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[m.MessageID]; ok {
		return OutcomeDuplicate, nil
	}

	s.seq++
	m.TS = m.TS.UTC()
	m.Seq = s.seq
	s.byID[m.MessageID] = struct{}{}
	s.msgs = append(s.msgs, m)
	return OutcomeStored, nil
}

// List returns the filtered window ordered by (ts, message_id) ascending and
// the total match count before windowing.
func (s *MemoryStore) List(ctx context.Context, f ListFilter) ([]Message, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	f = clampWindow(f)

	s.mu.Lock()
	matched := make([]Message, 0, len(s.msgs))
	for _, m := range s.msgs {
		if matches(f, m) {
			matched = append(matched, m)
		}
	}
	s.mu.Unlock()

	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []Message{}, total, nil
	}

	end := f.Offset + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[f.Offset:end], total, nil
}

func matches(f ListFilter, m Message) bool {
	if f.From != "" && m.From != f.From {
		return false
	}
	if f.Since != nil && m.TS.Before(*f.Since) {
		return false
	}
	if f.Query != "" {
		if m.Text == nil || !strings.Contains(*m.Text, f.Query) {
			return false
		}
	}
	return true
}

// Stats computes the aggregates over a snapshot of the store.
func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	s.mu.Lock()
	snap := append([]Message(nil), s.msgs...)
	s.mu.Unlock()

	st := Stats{TotalMessages: int64(len(snap))}
	if len(snap) == 0 {
		return st, nil
	}

	perSender := make(map[string]int64)
	for _, m := range snap {
		perSender[m.From]++
	}
	st.SendersCount = int64(len(perSender))

	top := make([]SenderCount, 0, len(perSender))
	for sender, count := range perSender {
		top = append(top, SenderCount{Sender: sender, Count: count})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Sender < top[j].Sender
	})
	if len(top) > 10 {
		top = top[:10]
	}
	st.MessagesPerSender = top

	first, last := snap[0], snap[0]
	for _, m := range snap[1:] {
		if less(m, first) {
			first = m
		}
		if less(last, m) {
			last = m
		}
	}
	firstTS, lastTS := first.TS, last.TS
	st.FirstMessageTS = &firstTS
	st.LastMessageTS = &lastTS

	return st, nil
}

// Reachable always reports true: there is no backing engine to lose.
func (s *MemoryStore) Reachable(_ context.Context) bool { return true }
