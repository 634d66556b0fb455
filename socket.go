package evnet

import "time"

// SockState is the transport state of one socket record.
// Grounded on the state machine in spec.md §3/§4.2 and original_source's
// network_socket.h state enum.
type SockState int

const (
	SockIdle SockState = iota
	SockStarting
	SockHandshaking
	SockConnected
	SockFailed
	SockTerminated
)

func (s SockState) String() string {
	switch s {
	case SockIdle:
		return "idle"
	case SockStarting:
		return "starting"
	case SockHandshaking:
		return "handshaking"
	case SockConnected:
		return "connected"
	case SockFailed:
		return "failed"
	case SockTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// SockRole distinguishes a client socket from the two server roles: the
// listening slot itself and a per-client slot it accepts into.
type SockRole int

const (
	RoleClient SockRole = iota
	RoleServerListener
	RoleServerAccepted
)

const dynBufMinCap = 256

// dynBuf is a growable byte buffer with independent read/write offsets,
// used for a socket's tx/rx/scratch buffers. It grows geometrically and
// never shrinks while live, matching spec.md §3's buffer invariant.
type dynBuf struct {
	data []byte
	r, w int
}

func (b *dynBuf) Len() int        { return b.w - b.r }
func (b *dynBuf) Bytes() []byte   { return b.data[b.r:b.w] }
func (b *dynBuf) Empty() bool     { return b.r == b.w }
func (b *dynBuf) reset()          { b.r, b.w = 0, 0 }
func (b *dynBuf) compact() {
	if b.r == 0 {
		return
	}
	n := copy(b.data, b.data[b.r:b.w])
	b.w = n
	b.r = 0
}

// grow ensures at least n more bytes of write room past w, compacting
// first and doubling capacity as needed.
func (b *dynBuf) grow(n int) {
	if cap(b.data)-b.w >= n {
		return
	}
	b.compact()
	if cap(b.data)-b.w >= n {
		return
	}
	need := b.w + n
	newCap := cap(b.data) * 2
	if newCap < dynBufMinCap {
		newCap = dynBufMinCap
	}
	if newCap < need {
		newCap = need
	}
	nd := make([]byte, newCap)
	copy(nd, b.data[:b.w])
	b.data = nd
}

// writeArea returns the free region past the current write offset, sized
// to hold at least min bytes, for a non-blocking read syscall to fill.
func (b *dynBuf) writeArea(min int) []byte {
	b.grow(min)
	return b.data[b.w:cap(b.data)]
}

func (b *dynBuf) advance(n int) { b.w += n }

func (b *dynBuf) consume(n int) {
	b.r += n
	if b.r == b.w {
		b.reset()
	}
}

func (b *dynBuf) append(p []byte) {
	b.grow(len(p))
	copy(b.data[b.w:], p)
	b.w += len(p)
}

// Socket is one entry in the socket table: a small state machine plus its
// buffers and addresses. Grounded on NetSocket in
// original_source/include/network/network_socket.h.
//
// spec.md §3 describes a fourth buffer — a "partially-deserialized event
// slot" separate from rxBuf. That slot is folded into rx here: a partial
// frame is simply the unconsumed prefix of rx, and re-peeking its 4-byte
// dataLen prefix on the next tick costs nothing, so a separate cached
// slot would only duplicate state already held in rx.Bytes().
type Socket struct {
	Index int
	Role  SockRole
	State SockState

	fd int

	Security SecurityLevel

	Src NetAddr
	Dst NetAddr

	Blocking  bool
	Broadcast bool

	ReconnectBudget int
	LastStateChange time.Time

	driver      HandshakeDriver
	driverState any

	tx  dynBuf
	rx  dynBuf
	pkt dynBuf

	EventsDelivered int64

	traceID [5]byte
}

func newSocket(index int, role SockRole, security SecurityLevel, reconnectBudget int) *Socket {
	return &Socket{
		Index:           index,
		Role:            role,
		State:           SockIdle,
		fd:              -1,
		Security:        security,
		ReconnectBudget: reconnectBudget,
		LastStateChange: time.Now(),
		traceID:         newTraceScope(),
	}
}

func (s *Socket) setState(state SockState) {
	s.State = state
	s.LastStateChange = time.Now()
}

// sinceStateChange reports how long the socket has held its current state.
func (s *Socket) sinceStateChange() time.Duration {
	return time.Since(s.LastStateChange)
}

// queueSend appends a fully-serialized frame to the socket's tx buffer for
// the poll loop to drain (spec.md §4.3 transmit path).
func (s *Socket) queueSend(frame []byte) {
	s.tx.append(frame)
}

// live reports whether the socket still occupies a table slot (i.e. has
// not reached terminated).
func (s *Socket) live() bool { return s.State != SockTerminated }
