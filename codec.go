package evnet

import (
	"encoding/binary"
	"math"
)

// HeaderSize is the fixed, wire-exact size in bytes of an encoded Event
// header: dataLen(4) + timestamp(8) + refs(4) + srcSock(4) + targetID(4) +
// max(4) + scope(5) + target(4) + name(4) + ownership/destroy flags(2) =
// 43, matching the field order and widths spec.md §6 requires to be
// "bit-exact" with the event's in-memory layout from dataLen onward. Go
// gives no struct-layout guarantee that would let us reuse
// unsafe.Sizeof/memcpy the way the C++ source does, so the header is
// explicitly encoded/decoded field-by-field with encoding/binary, and the
// constant is asserted against that encoding at startup (see init) in
// place of an unsafe.Sizeof assertion.
const HeaderSize = 43

// byteOrder is host-order in the source; we pick and document big-endian
// per spec.md §6's requirement to choose and document one, since Go has
// no single portable notion of "host order" across the architectures this
// package might run on.
var byteOrder = binary.BigEndian

func init() {
	var probe Event
	buf := make([]byte, HeaderSize)
	n := encodeHeader(&probe, buf)
	if n != HeaderSize {
		panic("evnet: serializedHeaderSize mismatch")
	}
}

// encodeHeader writes e's header fields into buf (len(buf) >= HeaderSize)
// in the order spec.md §6 specifies, and returns the number of bytes
// written.
func encodeHeader(e *Event, buf []byte) int {
	off := 0
	byteOrder.PutUint32(buf[off:], e.DataLen)
	off += 4
	byteOrder.PutUint64(buf[off:], uint64(e.Timestamp))
	off += 8
	byteOrder.PutUint32(buf[off:], e.Refs)
	off += 4
	byteOrder.PutUint32(buf[off:], uint32(e.SrcSock))
	off += 4
	byteOrder.PutUint32(buf[off:], uint32(e.TargetID))
	off += 4
	byteOrder.PutUint32(buf[off:], e.Max)
	off += 4
	copy(buf[off:off+5], e.Scope[:])
	off += 5
	byteOrder.PutUint32(buf[off:], uint32(e.Target))
	off += 4
	byteOrder.PutUint32(buf[off:], uint32(e.Name))
	off += 4
	buf[off] = boolByte(e.owns)
	buf[off+1] = boolByte(e.destroy)
	off += 2
	return off
}

// decodeHeader reads header fields from buf into e. buf must hold at
// least HeaderSize bytes. The ownership/destroy flags are part of the
// wire layout per spec.md §6 but carry no cross-process meaning; the
// receiver always derives its own ownership (it owns whatever it just
// allocated), so those two bytes are skipped.
func decodeHeader(e *Event, buf []byte) {
	off := 0
	e.DataLen = byteOrder.Uint32(buf[off:])
	off += 4
	e.Timestamp = SJT(byteOrder.Uint64(buf[off:]))
	off += 8
	e.Refs = byteOrder.Uint32(buf[off:])
	off += 4
	e.SrcSock = int32(byteOrder.Uint32(buf[off:]))
	off += 4
	e.TargetID = int32(byteOrder.Uint32(buf[off:]))
	off += 4
	e.Max = byteOrder.Uint32(buf[off:])
	off += 4
	copy(e.Scope[:], buf[off:off+5])
	off += 5
	e.Target = Tag(byteOrder.Uint32(buf[off:]))
	off += 4
	e.Name = Tag(byteOrder.Uint32(buf[off:]))
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// Serialize returns the wire form of e: header followed by payload, as a
// slice directly over e's backing buffer (no copy), matching the
// zero-copy send path new_event_data enables in event_system.cpp.
func (e *Event) Serialize() []byte {
	encodeHeader(e, e.raw[:HeaderSize])
	return e.raw[:HeaderSize+int(e.DataLen)]
}

// Deserialize copies a complete header+payload wire buffer into e,
// replacing its current contents. The socket receive path and the
// injected-buffer hook (DrainInjected) do not use it; they call
// deserializeFrame to walk a longer buffer incrementally.
func (e *Event) Deserialize(pool *Pool, buf []byte) error {
	if len(buf) < HeaderSize {
		return ErrFramingViolation
	}
	dataLen := byteOrder.Uint32(buf[0:4])
	if int(dataLen) > MaxFrameSize || len(buf) < HeaderSize+int(dataLen) {
		return ErrFramingViolation
	}
	e.Release()
	e.allocate(pool, int(dataLen))
	decodeHeader(e, buf[:HeaderSize])
	copy(e.payload(), buf[HeaderSize:HeaderSize+int(dataLen)])
	e.DataLen = dataLen
	e.pos = 0
	e.owns = true
	e.destroy = true
	return nil
}

// MaxFrameSize is the safety cap on a declared DataLen before framing is
// treated as corrupt (spec.md §7, framing violation edge case).
const MaxFrameSize = 16 << 20 // 16 MiB

// deserializeFrame attempts to materialize one Event from buf (a prefix
// of a socket's receive buffer). It reports how many bytes of buf were
// consumed and whether a full frame was available.
//
// This implements the post-6/2024 semantics spec.md §9 adopts for the
// open question on partial reads: a header straddling a read boundary is
// left entirely unconsumed (consumed == 0, ok == false) rather than
// partially decoded, so the caller always retries from an untouched
// buffer on the next tick instead of tracking a partially-decoded header
// across calls — the legacy pre-6/2024 behavior of silently dropping such
// events must not be reproduced.
func deserializeFrame(pool *Pool, buf []byte) (ev *Event, consumed int, ok bool, err error) {
	if len(buf) < HeaderSize {
		return nil, 0, false, nil
	}
	dataLen := byteOrder.Uint32(buf[0:4])
	if dataLen > MaxFrameSize {
		return nil, 0, false, ErrFramingViolation
	}
	total := HeaderSize + int(dataLen)
	if len(buf) < total {
		return nil, 0, false, nil
	}
	e := NewEvent(pool, 0, 0, int(dataLen))
	decodeHeader(e, buf[:HeaderSize])
	copy(e.payload(), buf[HeaderSize:total])
	e.DataLen = dataLen
	e.pos = 0
	return e, total, true, nil
}

func putI32(b []byte, v int32)   { byteOrder.PutUint32(b, uint32(v)) }
func putU32(b []byte, v uint32)  { byteOrder.PutUint32(b, v) }
func putI64(b []byte, v int64)   { byteOrder.PutUint64(b, uint64(v)) }
func putU16(b []byte, v uint16)  { byteOrder.PutUint16(b, v) }
func putF32(b []byte, v float32) { byteOrder.PutUint32(b, math.Float32bits(v)) }

func getI32(b []byte) int32   { return int32(byteOrder.Uint32(b)) }
func getU32(b []byte) uint32  { return byteOrder.Uint32(b) }
func getI64(b []byte) int64   { return int64(byteOrder.Uint64(b)) }
func getU16(b []byte) uint16  { return byteOrder.Uint16(b) }
func getF32(b []byte) float32 { return math.Float32frombits(byteOrder.Uint32(b)) }
