package evnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// CallbackFunc is the single entry point application code registers to
// receive delivered events. The return value mirrors the source's
// int-returning callback: non-zero means "handled". userCtx replaces the
// C++ void* this-pointer idiom (spec.md §9).
type CallbackFunc func(ev *Event, userCtx any) int

var errPeerClosed = errors.New("evnet: peer closed connection")

// System is the process-local network runtime: the socket table,
// handshake engine, event pool and queue, and the processQueue poll
// loop, all behind one handle (spec.md §9 prefers an explicit handle
// over the source's global singleton). Grounded structurally on the
// embeddable client/driver shape of Atsika-aznet, generalized from "one
// storage driver" to "one socket table".
type System struct {
	cfg   *Config
	pool  *Pool
	queue *EventQueue

	sockets []*Socket

	callback CallbackFunc
	userCtx  any

	clock    monotonicClock
	governor *selectGovernor

	localIP     [4]byte
	initialized bool
}

// NewSystem builds a System from the supplied options, validating the
// resulting configuration.
func NewSystem(opts ...Option) (*System, error) {
	cfg := applyConfig(opts)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &System{
		cfg:      cfg,
		pool:     NewPool(),
		queue:    NewEventQueue(64),
		governor: newSelectGovernor(cfg.selectInterval),
	}, nil
}

// Initialize performs idempotent OS socket-API setup and resolves the
// local host name to an IP, recorded as the Src address of the sockets
// StartServer and StartClient open (they bind to 0.0.0.0).
func (s *System) Initialize() error {
	if s.initialized {
		return nil
	}
	ip, err := resolveIP(localHostName())
	if err != nil {
		s.tracef(traceError, "resolve local host: %v", err)
	}
	s.localIP = ip
	s.initialized = true
	return nil
}

func (s *System) allocSocket(role SockRole) *Socket {
	for i, sock := range s.sockets {
		if sock == nil {
			ns := newSocket(i, role, s.cfg.securityLevel, s.cfg.reconnectLimit)
			s.sockets[i] = ns
			return ns
		}
	}
	idx := len(s.sockets)
	ns := newSocket(idx, role, s.cfg.securityLevel, s.cfg.reconnectLimit)
	s.sockets = append(s.sockets, ns)
	return ns
}

// GetSock returns the socket record at index, if any.
func (s *System) GetSock(index int) (*Socket, bool) {
	if index < 0 || index >= len(s.sockets) || s.sockets[index] == nil {
		return nil, false
	}
	return s.sockets[index], true
}

// GetSockSrcIP returns the resolved source address of a socket, for
// diagnostics.
func (s *System) GetSockSrcIP(index int) (NetAddr, error) {
	sock, ok := s.GetSock(index)
	if !ok {
		return NetAddr{}, ErrUnknownSocket
	}
	return sock.Src, nil
}

func (s *System) freeSocket(sock *Socket) {
	if sock.driver != nil {
		if c, ok := sock.driver.(interface{ Close() error }); ok {
			c.Close()
		}
	}
	closeSocket(sock.fd)
	sock.fd = -1
	s.sockets[sock.Index] = nil
}

// StartServer creates a non-blocking listening socket bound to
// 0.0.0.0:port and records it in the socket table. Returns the socket
// index.
func (s *System) StartServer(port int) (int, error) {
	if err := s.Initialize(); err != nil {
		return -1, err
	}
	fd, err := newNonblockingSocket()
	if err != nil {
		return -1, err
	}
	if err := bindSocket(fd, NetAddr{Port: port}); err != nil {
		closeSocket(fd)
		return -1, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := listenSocket(fd, 16); err != nil {
		closeSocket(fd)
		return -1, err
	}
	sock := s.allocSocket(RoleServerListener)
	sock.fd = fd
	sock.Src = NetAddr{IP: s.localIP, Port: port}
	sock.Security = s.cfg.securityLevel
	sock.setState(SockConnected)
	return sock.Index, nil
}

// StartClient creates a non-blocking outbound socket optionally bound to
// localPort, without connecting it yet.
func (s *System) StartClient(localPort int) (int, error) {
	if err := s.Initialize(); err != nil {
		return -1, err
	}
	fd, err := newNonblockingSocket()
	if err != nil {
		return -1, err
	}
	if localPort > 0 {
		if err := bindSocket(fd, NetAddr{Port: localPort}); err != nil {
			closeSocket(fd)
			return -1, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	sock := s.allocSocket(RoleClient)
	sock.fd = fd
	sock.Src = NetAddr{IP: s.localIP, Port: localPort}
	sock.Security = s.cfg.securityLevel
	sock.setState(SockIdle)
	return sock.Index, nil
}

// ConnectToServer resolves name and arranges for socket slot (a fresh
// client socket, or the existing slot if >= 0) to connect to name:port on
// the next tick. Returns the socket index to use for Send.
func (s *System) ConnectToServer(name string, port int, block bool, slot int) (int, error) {
	ip, err := resolveIP(name)
	if err != nil {
		return -1, err
	}
	var sock *Socket
	if slot >= 0 {
		sock, _ = s.GetSock(slot)
	}
	if sock == nil {
		idx, err := s.StartClient(0)
		if err != nil {
			return -1, err
		}
		sock, _ = s.GetSock(idx)
	}
	sock.Dst = NetAddr{Name: name, IP: ip, Port: port}
	sock.Blocking = block
	sock.Security = s.cfg.securityLevel
	sock.ReconnectBudget = s.cfg.reconnectLimit
	sock.driver = nil
	sock.setState(SockStarting)
	return sock.Index, nil
}

// Send serializes ev and queues it on socket's tx buffer (or, when socket
// is -1, on the socket named by ev.TargetID). Reports false when the
// target is not connected.
func (s *System) Send(ev *Event, socket int) bool {
	idx := socket
	if idx < 0 {
		idx = int(ev.TargetID)
	}
	sock, ok := s.GetSock(idx)
	if !ok || sock.State != SockConnected {
		return false
	}
	frame := ev.Serialize()
	sock.queueSend(append([]byte(nil), frame...))
	s.governor.NotifyActive()
	return true
}

// CloseConnection emits a FIN-style event to the peer if possible, then
// tears the socket down at the next tick.
func (s *System) CloseConnection(index int) error {
	sock, ok := s.GetSock(index)
	if !ok {
		return ErrUnknownSocket
	}
	if sock.State == SockConnected {
		finName := NameClientFin
		if sock.Role != RoleClient {
			finName = NameServerFin
		}
		fin := NewEvent(s.pool, TargetNet, finName, 0)
		sock.queueSend(append([]byte(nil), fin.Serialize()...))
		fin.Release()
		// Best effort: the poll loop never drains a terminated socket.
		s.drainTx(sock)
	}
	sock.setState(SockTerminated)
	return nil
}

// CloseAll tears down every live socket.
func (s *System) CloseAll() error {
	for _, sock := range s.sockets {
		if sock != nil && sock.live() {
			s.CloseConnection(sock.Index)
		}
	}
	return nil
}

// SetUserCallback registers the function invoked once per delivered event.
func (s *System) SetUserCallback(fn CallbackFunc, userCtx any) {
	s.callback = fn
	s.userCtx = userCtx
}

func (s *System) emitLocal(sock *Socket, name Tag, code int32) {
	ev := NewEvent(s.pool, TargetNet, name, 4)
	if name == NameNetError {
		ev.AttachInt(code)
	}
	ev.SrcSock = int32(sock.Index)
	ev.TargetID = int32(sock.Index)
	s.queue.PushBack(ev)
}

func (s *System) readFromSocket(sock *Socket, buf []byte) (int, bool, error) {
	if ov, ok := sock.driver.(ioOverride); ok {
		return ov.ReadNonblocking(sock, buf)
	}
	return readSocket(sock.fd, buf)
}

func (s *System) writeFromSocket(sock *Socket, buf []byte) (int, bool, error) {
	if ov, ok := sock.driver.(ioOverride); ok {
		return ov.WriteNonblocking(sock, buf)
	}
	return writeSocket(sock.fd, buf)
}

// hasIOOverride reports whether sock's handshake driver took over its
// read/write path (TLS or both-mode post-upgrade). Such sockets no
// longer own a raw fd select() can watch — crypto/tls dup'd and wrapped
// it internally — so the poll loop treats them as always worth a
// deadline-bounded probe each tick instead of gating on select().
func hasIOOverride(sock *Socket) bool {
	_, ok := sock.driver.(ioOverride)
	return ok
}

// receivePath implements spec.md §4.3's receive path for one socket: a
// bounded read loop followed by a deserialize loop that leaves any
// partial frame untouched at the front of rx for the next tick.
func (s *System) receivePath(sock *Socket) error {
	for {
		area := sock.rx.writeArea(4096)
		n, wouldBlock, err := s.readFromSocket(sock, area)
		if err != nil {
			return err
		}
		if wouldBlock {
			break
		}
		if n == 0 {
			return errPeerClosed
		}
		sock.rx.advance(n)
		s.governor.NotifyActive()
		if n < len(area) {
			break
		}
	}
	for {
		ev, consumed, ok, err := deserializeFrame(s.pool, sock.rx.Bytes())
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		sock.rx.consume(consumed)
		ev.SrcSock = int32(sock.Index)
		if ev.TargetID == NullTargetID {
			ev.TargetID = int32(sock.Index)
		}
		s.queue.PushBack(ev)
		sock.EventsDelivered++
	}
	return nil
}

// drainTx implements spec.md §4.3's transmit path for one socket.
func (s *System) drainTx(sock *Socket) error {
	for !sock.tx.Empty() {
		n, wouldBlock, err := s.writeFromSocket(sock, sock.tx.Bytes())
		if err != nil {
			return err
		}
		if wouldBlock {
			return nil
		}
		if n == 0 {
			return nil
		}
		sock.tx.consume(n)
		s.governor.NotifyActive()
	}
	return nil
}

// doAccept drains every pending connection on a listening socket.
func (s *System) doAccept(listener *Socket) {
	for {
		fd, addr, wouldBlock, err := acceptSocket(listener.fd)
		if wouldBlock || err != nil {
			if err != nil {
				s.tracef(traceError, "accept on socket %d: %v", listener.Index, err)
			}
			return
		}
		child := s.allocSocket(RoleServerAccepted)
		child.fd = fd
		child.Dst = addr
		child.Security = listener.Security
		child.setState(SockHandshaking)
		driver, err := newHandshakeDriver(child.Security, s.cfg, true)
		if err != nil {
			s.emitLocal(child, NameNetError, NetHandshakeFail)
			child.setState(SockFailed)
			continue
		}
		child.driver = driver
		s.governor.NotifyActive()
	}
}

// driveHandshake advances one socket through TCP-connect completion (for
// clients) and then the security driver, per spec.md §4.2. A socket that
// has sat in SockHandshaking longer than the configured handshake deadline
// without completing is failed outright, so a peer that never finishes (or
// never starts) its side of the negotiation cannot wedge the socket table
// forever; the failure feeds the existing reconnect policy via SockFailed.
func (s *System) driveHandshake(sock *Socket, writableSet map[int]bool) {
	if sock.sinceStateChange() > s.cfg.handshakeDeadline {
		s.tracef(traceErrorHandshake, "socket %d handshake deadline exceeded", sock.Index)
		s.emitLocal(sock, NameNetError, NetHandshakeFail)
		sock.setState(SockFailed)
		return
	}
	if sock.Role == RoleClient && sock.driver == nil {
		if !writableSet[sock.fd] {
			return
		}
		if err := socketError(sock.fd); err != nil {
			s.emitLocal(sock, NameNetError, NetNotConnected)
			sock.setState(SockFailed)
			return
		}
		driver, err := newHandshakeDriver(sock.Security, s.cfg, false)
		if err != nil {
			s.emitLocal(sock, NameNetError, NetHandshakeFail)
			sock.setState(SockFailed)
			return
		}
		sock.driver = driver
	}
	if sock.driver == nil {
		return
	}
	done, err := sock.driver.Step(sock, s)
	if !done {
		return
	}
	if err != nil {
		s.tracef(traceErrorHandshake, "socket %d handshake failed: %v", sock.Index, err)
		s.emitLocal(sock, NameNetError, NetHandshakeFail)
		sock.setState(SockFailed)
		return
	}
	sock.setState(SockConnected)
	s.emitLocal(sock, NameConnAccepted, 0)
}

func (s *System) handlePeerClosed(sock *Socket) {
	if sock.Role == RoleClient {
		s.emitLocal(sock, NameServerFin, 0)
	} else {
		s.emitLocal(sock, NameClientFin, 0)
	}
	if sock.Role == RoleClient {
		sock.setState(SockFailed)
		return
	}
	sock.setState(SockTerminated)
}

func (s *System) handleReconnects(now time.Time) {
	for _, sock := range s.sockets {
		if sock == nil || sock.Role != RoleClient || sock.State != SockFailed {
			continue
		}
		if sock.ReconnectBudget <= 0 {
			sock.setState(SockTerminated)
			continue
		}
		if now.Sub(sock.LastStateChange) < s.cfg.reconnectInterval {
			continue
		}
		sock.ReconnectBudget--
		s.cfg.metrics.IncrementReconnects()
		closeSocket(sock.fd)
		fd, err := newNonblockingSocket()
		if err != nil {
			s.emitLocal(sock, NameNetError, NetBindFailed)
			continue
		}
		sock.fd = fd
		sock.driver = nil
		sock.setState(SockStarting)
	}
}

func (s *System) sweepTerminated() {
	for _, sock := range s.sockets {
		if sock != nil && sock.State == SockTerminated {
			s.freeSocket(sock)
		}
	}
}

// ProcessQueue runs one cooperative tick of the poll loop (spec.md §4.5)
// and returns the number of events dispatched to the user callback.
func (s *System) ProcessQueue() (int, error) {
	if err := s.cfg.ctx.Err(); err != nil {
		return 0, err
	}
	if s.clock.elapsed() < s.cfg.selectInterval {
		return 0, nil
	}
	s.clock.mark(time.Now())

	for _, sock := range s.sockets {
		if sock != nil && sock.State == SockStarting && sock.Role == RoleClient {
			_, err := connectSocket(sock.fd, sock.Dst)
			if err != nil {
				s.emitLocal(sock, NameNetError, NetNotConnected)
				sock.setState(SockFailed)
				continue
			}
			sock.setState(SockHandshaking)
		}
	}

	var readFDs, writeFDs []int
	writableWant := map[int]bool{}
	for _, sock := range s.sockets {
		if sock == nil || sock.fd < 0 {
			continue
		}
		switch sock.Role {
		case RoleServerListener:
			readFDs = append(readFDs, sock.fd)
		default:
			switch sock.State {
			case SockStarting:
				writeFDs = append(writeFDs, sock.fd)
				writableWant[sock.fd] = true
			case SockHandshaking:
				readFDs = append(readFDs, sock.fd)
				writeFDs = append(writeFDs, sock.fd)
				writableWant[sock.fd] = true
			case SockConnected:
				readFDs = append(readFDs, sock.fd)
				if !sock.tx.Empty() {
					writeFDs = append(writeFDs, sock.fd)
				}
			}
		}
	}

	readable, writable, err := selectReady(readFDs, writeFDs, s.governor.Timeout())
	if err != nil {
		return 0, err
	}
	readableSet := toSet(readable)
	writableSet := toSet(writable)

	for _, sock := range s.sockets {
		if sock == nil {
			continue
		}
		if sock.Role == RoleServerListener {
			if readableSet[sock.fd] {
				s.doAccept(sock)
			}
			continue
		}
		if sock.State != SockConnected {
			continue
		}
		if !readableSet[sock.fd] && !hasIOOverride(sock) {
			continue
		}
		if err := s.receivePath(sock); err != nil {
			if errors.Is(err, errPeerClosed) {
				s.handlePeerClosed(sock)
			} else if errors.Is(err, ErrFramingViolation) {
				s.emitLocal(sock, NameNetError, NetFramingError)
				sock.setState(SockFailed)
			} else {
				s.emitLocal(sock, NameNetError, NetDisconnected)
				sock.setState(SockFailed)
			}
		}
	}

	for _, sock := range s.sockets {
		if sock != nil && sock.State == SockHandshaking {
			s.driveHandshake(sock, writableSet)
		}
	}

	for _, sock := range s.sockets {
		if sock == nil || sock.State != SockConnected || sock.tx.Empty() {
			continue
		}
		if !writableSet[sock.fd] && !hasIOOverride(sock) {
			continue
		}
		if err := s.drainTx(sock); err != nil {
			s.emitLocal(sock, NameNetError, NetDisconnected)
			sock.setState(SockFailed)
		}
	}

	s.handleReconnects(time.Now())
	s.sweepTerminated()

	dispatched := 0
	for {
		ev, err := s.queue.PopFront()
		if err != nil {
			break
		}
		if s.callback != nil {
			s.callback(ev, s.userCtx)
		}
		s.cfg.metrics.IncrementEventsDispatched()
		ev.Consume()
		ev.Release()
		dispatched++
	}
	return dispatched, nil
}

func toSet(fds []int) map[int]bool {
	m := make(map[int]bool, len(fds))
	for _, fd := range fds {
		m[fd] = true
	}
	return m
}

// DebugDump writes a one-line summary of every live socket to w, the
// successor to the source's netList/netPrintAddr diagnostics.
func (s *System) DebugDump(w io.Writer) {
	for _, sock := range s.sockets {
		if sock == nil {
			continue
		}
		fmt.Fprintf(w, "socket %d role=%d state=%s src=%s dst=%s events=%d\n",
			sock.Index, sock.Role, sock.State, sock.Src, sock.Dst, sock.EventsDelivered)
	}
}

// contextErr is a small helper so callers can check for a cancelled
// System without importing context themselves.
func contextErr(ctx context.Context) error { return ctx.Err() }
