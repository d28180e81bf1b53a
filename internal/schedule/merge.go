package schedule

import (
	"container/heap"
	"iter"
)

type entry[M Recurring] struct {
	occ   Occurrence[M]
	seq   *Sequence[M]
	order int
}

type occurrenceHeap[M Recurring] []*entry[M]

func (h occurrenceHeap[M]) Len() int { return len(h) }

func (h occurrenceHeap[M]) Less(i, j int) bool {
	if h[i].occ.Start != h[j].occ.Start {
		return h[i].occ.Start < h[j].occ.Start
	}
	return h[i].order < h[j].order
}

func (h occurrenceHeap[M]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *occurrenceHeap[M]) Push(x any) { *h = append(*h, x.(*entry[M])) }

func (h *occurrenceHeap[M]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Merger merges the occurrence sequences of many meetings into one stream
// ordered by start. The heap holds at most one occurrence per meeting that
// still has occurrences left. Occurrences sharing a start come out in no
// guaranteed order.
//
// A Merger is not safe for concurrent use; build one per request.
type Merger[M Recurring] struct {
	queue occurrenceHeap[M]
	order int
}

func NewMerger[M Recurring](meetings []M) *Merger[M] {
	m := &Merger[M]{queue: make(occurrenceHeap[M], 0, len(meetings))}
	for _, meeting := range meetings {
		m.push(NewSequence(meeting))
	}
	heap.Init(&m.queue)
	return m
}

func (m *Merger[M]) push(seq *Sequence[M]) {
	occ, ok := seq.Next()
	if !ok {
		return
	}
	m.queue = append(m.queue, &entry[M]{occ: occ, seq: seq, order: m.order})
	m.order++
}

// Len is the number of meetings that can still produce occurrences.
func (m *Merger[M]) Len() int {
	return m.queue.Len()
}

// Next pops the earliest pending occurrence. It returns false when every
// meeting is exhausted, which only happens if none of them repeat.
func (m *Merger[M]) Next() (Occurrence[M], bool) {
	if m.queue.Len() == 0 {
		return Occurrence[M]{}, false
	}
	e := heap.Pop(&m.queue).(*entry[M])
	if e.seq.HasNext() {
		occ, _ := e.seq.Next()
		heap.Push(&m.queue, &entry[M]{occ: occ, seq: e.seq, order: m.order})
		m.order++
	}
	return e.occ, true
}

// All drains the merger as an iterator.
func (m *Merger[M]) All() iter.Seq[Occurrence[M]] {
	return func(yield func(Occurrence[M]) bool) {
		for {
			occ, ok := m.Next()
			if !ok || !yield(occ) {
				return
			}
		}
	}
}
