package evnet

import "testing"

func TestPoolBinSelection(t *testing.T) {
	cases := []struct {
		size    int
		maxWant int
	}{
		{1, 64},
		{64, 64},
		{65, 128},
		{MaxPoolSize, MaxPoolSize},
	}
	for _, c := range cases {
		p := NewPool()
		item, width, ok := p.Alloc(c.size)
		if !ok {
			t.Fatalf("Alloc(%d): unexpected !ok", c.size)
		}
		if width < c.size {
			t.Fatalf("Alloc(%d): width %d smaller than requested size", c.size, width)
		}
		if width > c.maxWant {
			t.Fatalf("Alloc(%d): width %d exceeds expected bin ceiling %d", c.size, width, c.maxWant)
		}
		if len(item.buf) != width {
			t.Fatalf("item.buf len = %d, want %d", len(item.buf), width)
		}
	}
}

func TestPoolAllocOversizeFallsBackToGeneralAllocator(t *testing.T) {
	p := NewPool()
	_, _, ok := p.Alloc(MaxPoolSize + 1)
	if ok {
		t.Fatalf("Alloc(MaxPoolSize+1) = ok, want fallback signal (ok=false)")
	}
}

func TestPoolAllocFreeRoundTrip(t *testing.T) {
	p := NewPool()
	const bin = 0
	before := p.Allocated(bin)

	items := make([]*poolItem, 0, blockItemCount+5)
	for i := 0; i < blockItemCount+5; i++ {
		item, _, ok := p.Alloc(minWidth)
		if !ok {
			t.Fatalf("Alloc #%d failed", i)
		}
		items = append(items, item)
	}
	if got := p.Allocated(bin); got != before+blockItemCount+5 {
		t.Fatalf("Allocated(bin) after allocs = %d, want %d", got, before+blockItemCount+5)
	}

	for _, item := range items {
		p.Free(item)
	}
	if got := p.Allocated(bin); got != before {
		t.Fatalf("Allocated(bin) after frees = %d, want %d (leak)", got, before)
	}
}

func TestPoolItemsDoNotAlias(t *testing.T) {
	p := NewPool()
	a, _, _ := p.Alloc(64)
	b, _, _ := p.Alloc(64)
	a.buf[0] = 0xAA
	if b.buf[0] == 0xAA && &a.buf[0] != &b.buf[0] {
		t.Fatalf("unrelated pool items appear to alias")
	}
	if &a.buf[0] == &b.buf[0] {
		t.Fatalf("two distinct allocations share the same backing address")
	}
}

// TestPoolFreeingNonTailItemDoesNotAliasNextAlloc reproduces an
// alloc/free/alloc interleaving within one still-active block: a, then b,
// then free(a), then c. c must get a fresh slot rather than reusing a's
// just-freed one while b is still live.
func TestPoolFreeingNonTailItemDoesNotAliasNextAlloc(t *testing.T) {
	p := NewPool()
	a, _, _ := p.Alloc(64)
	b, _, _ := p.Alloc(64)
	p.Free(a)
	c, _, _ := p.Alloc(64)

	b.buf[0] = 0xBB
	if c.buf[0] == 0xBB {
		t.Fatalf("freeing a non-tail item let a later allocation alias a still-live item's buffer")
	}
	if &b.buf[0] == &c.buf[0] {
		t.Fatalf("b and c share the same backing address after freeing a")
	}
}
