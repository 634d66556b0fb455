package evnet

import "testing"

func TestEventQueueFIFOOrder(t *testing.T) {
	pool := NewPool()
	q := NewEventQueue(4)

	for i := int32(0); i < 3; i++ {
		e := NewEvent(pool, TargetApp, StrToTag("cRqs"), 4)
		e.AttachInt(i)
		q.PushBack(e)
	}
	if q.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", q.Len())
	}

	for i := int32(0); i < 3; i++ {
		ev, err := q.PopFront()
		if err != nil {
			t.Fatalf("PopFront: %v", err)
		}
		ev.StartRead()
		if got := ev.GetInt(); got != i {
			t.Fatalf("PopFront order: got %d, want %d", got, i)
		}
	}
	if !q.Empty() {
		t.Fatalf("queue should be empty after draining")
	}
	if _, err := q.PopFront(); err != ErrQueueEmpty {
		t.Fatalf("PopFront on empty queue: err = %v, want ErrQueueEmpty", err)
	}
}

func TestEventQueuePushBackIncrementsRefsAndPersists(t *testing.T) {
	pool := NewPool()
	q := NewEventQueue(1)
	e := NewEvent(pool, TargetApp, StrToTag("cRqs"), 4)
	e.Consume()
	before := e.Refs
	q.PushBack(e)
	if e.Refs != before+1 {
		t.Fatalf("Refs = %d, want %d", e.Refs, before+1)
	}
	if e.destroy {
		t.Fatalf("PushBack should persist the event (clear destroy flag)")
	}
}

func TestEventQueueClearReleasesAll(t *testing.T) {
	pool := NewPool()
	q := NewEventQueue(2)
	q.PushBack(NewEvent(pool, TargetApp, StrToTag("cRqs"), 4))
	q.PushBack(NewEvent(pool, TargetApp, StrToTag("cRqs"), 4))
	q.Clear()
	if !q.Empty() {
		t.Fatalf("queue should be empty after Clear")
	}
}
