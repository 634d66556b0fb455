package evnet

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEventAttachGetRoundTrip(t *testing.T) {
	pool := NewPool()
	e := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), 8)
	e.AttachInt(42)
	e.AttachStr("forty two")
	e.AttachBool(true)

	e.StartRead()
	if got := e.GetInt(); got != 42 {
		t.Fatalf("GetInt() = %d, want 42", got)
	}
	if got := e.GetStr(); got != "forty two" {
		t.Fatalf("GetStr() = %q, want %q", got, "forty two")
	}
	if got := e.GetBool(); got != true {
		t.Fatalf("GetBool() = %v, want true", got)
	}
}

func TestEventGrowthBeyondInitialCapacity(t *testing.T) {
	pool := NewPool()
	e := NewEvent(pool, TargetApp, StrToTag("cRqs"), 4)
	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i)
	}
	e.AttachBuf(payload)
	if int(e.DataLen) != len(payload) {
		t.Fatalf("DataLen = %d, want %d", e.DataLen, len(payload))
	}
	e.StartRead()
	got := e.GetBuf(len(payload))
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d mismatch: got %d want %d", i, got[i], payload[i])
		}
	}
}

func TestEventAcquireDetachesSource(t *testing.T) {
	pool := NewPool()
	src := NewEvent(pool, TargetApp, StrToTag("cRqs"), 8)
	src.AttachInt(7)

	var dst Event
	dst.Acquire(src)

	if src.raw != nil {
		t.Fatalf("source retained its backing buffer after Acquire")
	}
	if src.owns {
		t.Fatalf("source still marked as owner after Acquire")
	}
	dst.StartRead()
	if got := dst.GetInt(); got != 7 {
		t.Fatalf("destination payload = %d, want 7", got)
	}
}

func TestEventCloneIsIndependentCopy(t *testing.T) {
	pool := NewPool()
	src := NewEvent(pool, TargetApp, StrToTag("cRqs"), 8)
	src.AttachInt(9)

	var dst Event
	dst.Clone(src)

	if &dst.raw[0] == &src.raw[0] {
		t.Fatalf("clone shares backing storage with source")
	}
	src.StartWrite()
	src.AttachInt(100)

	dst.StartRead()
	if got := dst.GetInt(); got != 9 {
		t.Fatalf("clone observed mutation of source: got %d, want 9", got)
	}
}

func TestEventAttachFileGetFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.bin")
	dst := filepath.Join(dir, "out.bin")
	want := []byte("payload contents for a blob attachment")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("setup WriteFile: %v", err)
	}

	pool := NewPool()
	e := NewEvent(pool, TargetApp, StrToTag("cRqs"), 8)
	if err := e.AttachFile(src); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	e.StartRead()
	n, err := e.GetFile(dst)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if n != len(want) {
		t.Fatalf("GetFile returned %d bytes, want %d", n, len(want))
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("ReadFile output: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("round-tripped file contents = %q, want %q", got, want)
	}
}

func TestEventSerializeDeserializeRoundTrip(t *testing.T) {
	pool := NewPool()
	src := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), 16)
	src.AttachInt(1)
	src.AttachInt(2)
	src.AttachInt(3)

	wire := append([]byte(nil), src.Serialize()...)

	var dst Event
	if err := dst.Deserialize(pool, wire); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if dst.Target != src.Target || dst.Name != src.Name || dst.DataLen != src.DataLen {
		t.Fatalf("header mismatch: got %+v, want target=%v name=%v dataLen=%d", dst, src.Target, src.Name, src.DataLen)
	}
	dst.StartRead()
	for i, want := range []int32{1, 2, 3} {
		if got := dst.GetInt(); got != want {
			t.Fatalf("field %d = %d, want %d", i, got, want)
		}
	}
}
