package sim

import (
	"container/heap"
	"sort"
	"sync"
)

// queueEntry pins the key under which an event was scheduled. The key is
// captured at insertion so that later mutation of the event's own time
// field, as interruption performs, cannot disturb the heap invariant.
type queueEntry struct {
	time  VTime
	seq   uint64
	event *Event
}

// EventQueue is a thread-safe priority queue of events ordered by time.
// Events scheduled at the same time pop in insertion order.
type EventQueue struct {
	sync.Mutex

	entries eventHeap
	nextSeq uint64
}

// NewEventQueue creates an empty EventQueue.
func NewEventQueue() *EventQueue {
	q := new(EventQueue)
	q.entries = make(eventHeap, 0)
	heap.Init(&q.entries)

	return q
}

// Push adds an event to the queue keyed by its current time.
func (q *EventQueue) Push(evt *Event) {
	q.Lock()
	defer q.Unlock()

	entry := queueEntry{
		time:  evt.Time(),
		seq:   q.nextSeq,
		event: evt,
	}
	q.nextSeq++

	heap.Push(&q.entries, entry)
}

// Pop removes the earliest entry, returning the time it was scheduled under
// and its event. The second return value is nil if the queue is empty.
func (q *EventQueue) Pop() (VTime, *Event) {
	q.Lock()
	defer q.Unlock()

	if len(q.entries) == 0 {
		return 0, nil
	}

	entry := heap.Pop(&q.entries).(queueEntry)

	return entry.time, entry.event
}

// Peek returns the earliest event without removing it, or nil if the queue
// is empty.
func (q *EventQueue) Peek() *Event {
	q.Lock()
	defer q.Unlock()

	if len(q.entries) == 0 {
		return nil
	}

	return q.entries[0].event
}

// PeekTime returns the key time of the earliest entry. The second return
// value is false if the queue is empty.
func (q *EventQueue) PeekTime() (VTime, bool) {
	q.Lock()
	defer q.Unlock()

	if len(q.entries) == 0 {
		return 0, false
	}

	return q.entries[0].time, true
}

// Len returns the number of queued events.
func (q *EventQueue) Len() int {
	q.Lock()
	defer q.Unlock()

	return len(q.entries)
}

// Snapshot returns the queued events as a freshly allocated slice in
// (time, insertion) order. Mutating the queue afterwards does not affect
// the slice, which makes it safe to traverse while applying bulk
// operations back onto the queue.
func (q *EventQueue) Snapshot() []*Event {
	q.Lock()
	defer q.Unlock()

	sorted := make([]queueEntry, len(q.entries))
	copy(sorted, q.entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].time != sorted[j].time {
			return sorted[i].time < sorted[j].time
		}
		return sorted[i].seq < sorted[j].seq
	})

	events := make([]*Event, len(sorted))
	for i, entry := range sorted {
		events[i] = entry.event
	}

	return events
}

// RemoveIf removes entries whose event satisfies pred, visiting entries in
// (time, insertion) order, and returns how many were removed. A negative
// limit removes every match; otherwise at most limit entries are removed.
// The queue is rebuilt from the surviving entries rather than deleted from
// in place, since a binary heap does not support removal at arbitrary
// positions. Surviving entries keep their sequence numbers, so ties among
// equal-time events stay in their original order.
func (q *EventQueue) RemoveIf(pred func(*Event) bool, limit int) int {
	q.Lock()
	defer q.Unlock()

	sorted := make([]queueEntry, len(q.entries))
	copy(sorted, q.entries)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].time != sorted[j].time {
			return sorted[i].time < sorted[j].time
		}
		return sorted[i].seq < sorted[j].seq
	})

	removed := 0
	kept := make(eventHeap, 0, len(sorted))
	for _, entry := range sorted {
		if (limit < 0 || removed < limit) && pred(entry.event) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}

	if removed > 0 {
		q.entries = kept
		heap.Init(&q.entries)
	}

	return removed
}

// Clear removes every entry from the queue.
func (q *EventQueue) Clear() {
	q.Lock()
	defer q.Unlock()

	q.entries = q.entries[:0]
}

type eventHeap []queueEntry

// Len returns the number of entries in the heap.
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two entries. Equal times fall back to
// insertion order so that simultaneous events pop first-in first-out.
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}

	return h[i].seq < h[j].seq
}

// Swap changes the position of two entries in the heap.
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an entry to the heap.
func (h *eventHeap) Push(x interface{}) {
	entry := x.(queueEntry)
	*h = append(*h, entry)
}

// Pop removes and returns the entry of the next event to happen.
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[0 : n-1]

	return entry
}
