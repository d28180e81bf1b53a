package schedule

import "iter"

// Recurring is anything the scheduler can expand: a first occurrence plus a
// repetition policy. Start and end are unix seconds, UTC, with end >= start.
type Recurring interface {
	Span() (start, end int64)
	Repetition() RepeatType
}

// Occurrence is one concrete interval of a meeting. Occurrences are derived on
// demand and never stored.
type Occurrence[M Recurring] struct {
	Start   int64
	End     int64
	Meeting M
}

func (o Occurrence[M]) Duration() int64 {
	return o.End - o.Start
}

// Sequence walks the occurrences of a single meeting in ascending start order.
// It yields exactly one occurrence for meetings that do not repeat and never
// runs out otherwise.
type Sequence[M Recurring] struct {
	meeting M
	repeat  RepeatType
	next    Occurrence[M]
	done    bool
}

func NewSequence[M Recurring](m M) *Sequence[M] {
	start, end := m.Span()
	return &Sequence[M]{
		meeting: m,
		repeat:  m.Repetition(),
		next:    Occurrence[M]{Start: start, End: end, Meeting: m},
	}
}

func (s *Sequence[M]) HasNext() bool {
	return !s.done
}

// Next returns the current occurrence and advances. The second result is false
// once a non-repeating meeting has been consumed.
func (s *Sequence[M]) Next() (Occurrence[M], bool) {
	if s.done {
		return Occurrence[M]{}, false
	}
	cur := s.next
	if s.repeat.Repeats() {
		start := NextStart(cur.Start, s.repeat)
		s.next = Occurrence[M]{
			Start:   start,
			End:     cur.End + (start - cur.Start),
			Meeting: s.meeting,
		}
	} else {
		s.done = true
	}
	return cur, true
}

// All restarts from the first occurrence. Repeating meetings produce an
// infinite sequence, so callers must break out of the loop themselves.
func (s *Sequence[M]) All() iter.Seq[Occurrence[M]] {
	return func(yield func(Occurrence[M]) bool) {
		fresh := NewSequence(s.meeting)
		for {
			occ, ok := fresh.Next()
			if !ok || !yield(occ) {
				return
			}
		}
	}
}
