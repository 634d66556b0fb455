package evnet

import "testing"

func TestHeaderSizeIsFortyThree(t *testing.T) {
	if HeaderSize != 43 {
		t.Fatalf("HeaderSize = %d, want 43", HeaderSize)
	}
}

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	pool := NewPool()
	e := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), 8)
	e.Refs = 3
	e.SrcSock = 2
	e.TargetID = 9
	e.DataLen = 8

	buf := make([]byte, HeaderSize)
	n := encodeHeader(e, buf)
	if n != HeaderSize {
		t.Fatalf("encodeHeader wrote %d bytes, want %d", n, HeaderSize)
	}

	var got Event
	decodeHeader(&got, buf)
	if got.Target != e.Target || got.Name != e.Name {
		t.Fatalf("target/name mismatch: got %v/%v want %v/%v", got.Target, got.Name, e.Target, e.Name)
	}
	if got.Refs != e.Refs || got.SrcSock != e.SrcSock || got.TargetID != e.TargetID {
		t.Fatalf("header field mismatch: got %+v", got)
	}
	if got.DataLen != e.DataLen || got.Max != e.Max {
		t.Fatalf("dataLen/max mismatch: got dataLen=%d max=%d, want dataLen=%d max=%d", got.DataLen, got.Max, e.DataLen, e.Max)
	}
}

func TestDeserializeFrameHeaderStraddlesReadBoundary(t *testing.T) {
	pool := NewPool()
	e := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), 4)
	e.AttachInt(123)
	wire := e.Serialize()

	partial := wire[:HeaderSize-1]
	ev, consumed, ok, err := deserializeFrame(pool, partial)
	if err != nil {
		t.Fatalf("unexpected error on partial header: %v", err)
	}
	if ok || consumed != 0 || ev != nil {
		t.Fatalf("partial header should yield ok=false, consumed=0; got ok=%v consumed=%d ev=%v", ok, consumed, ev)
	}
}

func TestDeserializeFramePartialPayloadWaits(t *testing.T) {
	pool := NewPool()
	e := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), 4)
	e.AttachInt(123)
	wire := e.Serialize()

	partial := wire[:len(wire)-1]
	ev, consumed, ok, err := deserializeFrame(pool, partial)
	if err != nil || ok || consumed != 0 || ev != nil {
		t.Fatalf("partial payload should yield ok=false, consumed=0, err=nil; got ev=%v consumed=%d ok=%v err=%v", ev, consumed, ok, err)
	}
}

func TestDeserializeFrameMultipleEventsInOneBuffer(t *testing.T) {
	pool := NewPool()
	e1 := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), 4)
	e1.AttachInt(1)
	e2 := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), 4)
	e2.AttachInt(2)

	var buf []byte
	buf = append(buf, e1.Serialize()...)
	buf = append(buf, e2.Serialize()...)

	var got []int32
	for len(buf) > 0 {
		ev, consumed, ok, err := deserializeFrame(pool, buf)
		if err != nil {
			t.Fatalf("deserializeFrame error: %v", err)
		}
		if !ok {
			break
		}
		ev.StartRead()
		got = append(got, ev.GetInt())
		buf = buf[consumed:]
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("decoded values = %v, want [1 2]", got)
	}
}

func TestDeserializeFrameOversizedDataLenIsFramingViolation(t *testing.T) {
	pool := NewPool()
	buf := make([]byte, HeaderSize)
	putU32(buf[0:], uint32(MaxFrameSize+1))
	_, _, _, err := deserializeFrame(pool, buf)
	if err != ErrFramingViolation {
		t.Fatalf("err = %v, want ErrFramingViolation", err)
	}
}

// TestDeserializeFrameWindowedStream mirrors the framing-stress scenario:
// a run of events of increasing size, concatenated and then split into
// fixed-size transport chunks delivered to the deserializer one chunk at a
// time, must all decode with nothing lost or corrupted regardless of
// where a frame boundary falls relative to a chunk boundary.
func TestDeserializeFrameWindowedStream(t *testing.T) {
	const window = 64
	pool := NewPool()

	var wire []byte
	wantSizes := make([]int, 0, 20)
	for i := 0; i < 20; i++ {
		size := window - 4 + i*8
		e := NewEvent(pool, StrToTag("app "), StrToTag("cRqs"), size)
		payload := make([]byte, size)
		for j := range payload {
			payload[j] = byte(i)
		}
		e.AttachBuf(payload)
		wire = append(wire, e.Serialize()...)
		wantSizes = append(wantSizes, size)
	}

	var rx dynBuf
	var decoded []int
	for len(wire) > 0 || !rx.Empty() {
		if len(wire) > 0 {
			n := window
			if n > len(wire) {
				n = len(wire)
			}
			rx.append(wire[:n])
			wire = wire[n:]
		}
		for {
			ev, consumed, ok, err := deserializeFrame(pool, rx.Bytes())
			if err != nil {
				t.Fatalf("deserializeFrame: %v", err)
			}
			if !ok {
				break
			}
			rx.consume(consumed)
			decoded = append(decoded, int(ev.DataLen))
		}
		if len(wire) == 0 && rx.Empty() {
			break
		}
	}

	if len(decoded) != len(wantSizes) {
		t.Fatalf("decoded %d events, want %d", len(decoded), len(wantSizes))
	}
	for i, want := range wantSizes {
		if decoded[i] != want {
			t.Fatalf("event %d dataLen = %d, want %d", i, decoded[i], want)
		}
	}
}

func TestEventDeserializeRejectsShortBuffer(t *testing.T) {
	pool := NewPool()
	var e Event
	err := e.Deserialize(pool, make([]byte, HeaderSize-1))
	if err != ErrFramingViolation {
		t.Fatalf("err = %v, want ErrFramingViolation", err)
	}
}
