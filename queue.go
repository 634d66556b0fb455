package evnet

// EventQueue is a FIFO of pending events. It assumes a single producer and
// a single consumer inside one cooperative ProcessQueue tick, so no
// locking is needed — the entire runtime is single-threaded by design
// (spec §1). Grounded on EventQueue in
// original_source/src/network/event_system.cpp.
type EventQueue struct {
	items []*Event
}

// NewEventQueue returns an empty queue with room for capacity events
// before its backing slice must grow.
func NewEventQueue(capacity int) *EventQueue {
	return &EventQueue{items: make([]*Event, 0, capacity)}
}

// PushBack enqueues ev and increments its reference count, taking shared
// ownership alongside whatever already held it.
func (q *EventQueue) PushBack(ev *Event) {
	ev.IncRefs()
	ev.Persist()
	q.items = append(q.items, ev)
}

// PopFront removes and returns the oldest event, transferring ownership
// to the caller. Returns ErrQueueEmpty if the queue has nothing pending.
func (q *EventQueue) PopFront() (*Event, error) {
	if len(q.items) == 0 {
		return nil, ErrQueueEmpty
	}
	ev := q.items[0]
	copy(q.items, q.items[1:])
	q.items[len(q.items)-1] = nil
	q.items = q.items[:len(q.items)-1]
	return ev, nil
}

// Len reports the number of events currently queued.
func (q *EventQueue) Len() int { return len(q.items) }

// Empty reports whether the queue has no pending events.
func (q *EventQueue) Empty() bool { return len(q.items) == 0 }

// Clear releases every queued event and empties the queue, used when a
// socket is torn down with undelivered events still pending.
func (q *EventQueue) Clear() {
	for _, ev := range q.items {
		ev.Consume()
		ev.Release()
	}
	q.items = q.items[:0]
}
