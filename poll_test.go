package evnet

import (
	"testing"
	"time"
)

func TestSelectGovernorBacksOffTowardSteady(t *testing.T) {
	g := newSelectGovernor(80 * time.Millisecond)
	first := g.Timeout()
	if first != selectGovernorFast {
		t.Fatalf("first Timeout() = %v, want %v", first, selectGovernorFast)
	}
	second := g.Timeout()
	if second <= first {
		t.Fatalf("second Timeout() = %v, should exceed first %v", second, first)
	}
	for i := 0; i < 20; i++ {
		g.Timeout()
	}
	if got := g.Timeout(); got != 80*time.Millisecond {
		t.Fatalf("Timeout() after backoff = %v, want steady-state 80ms", got)
	}
}

func TestSelectGovernorNotifyActiveResetsToFast(t *testing.T) {
	g := newSelectGovernor(80 * time.Millisecond)
	for i := 0; i < 10; i++ {
		g.Timeout()
	}
	g.NotifyActive()
	if got := g.Timeout(); got != selectGovernorFast {
		t.Fatalf("Timeout() after NotifyActive = %v, want fast interval %v", got, selectGovernorFast)
	}
}
