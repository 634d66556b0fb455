package evnet

import "fmt"

func init() {
	RegisterHandshakeDriver(SecurityBoth, newBothDriver)
}

// bothModeMagic is the literal plaintext preamble exchanged before the
// TLS upgrade. spec.md §9 notes the original's exact token is
// undocumented beyond "a literal string write"; this reimplementation
// picks "NETX1\n" and documents it here as the wire protocol constant.
const bothModeMagic = "NETX1\n"

// bothPhase tracks which leg of the plaintext round trip a bothDriver is
// on. The server reads the token and echoes it back, then upgrades; the
// client sends the token and must read the same token back before it
// begins the TLS upgrade (spec.md §4.2's client branch: "await the peer's
// response, then TLS-upgrade").
type bothPhase int

const (
	// Server phases: read the token, then write it back.
	phaseServerRecv bothPhase = iota
	phaseServerEcho
	// Client phases: write the token, then read the echo.
	phaseClientSend
	phaseClientRecvEcho
)

// bothDriver implements SecurityBoth: a short plaintext handshake over
// the raw fd, then handing off to an embedded tlsDriver for the TLS
// upgrade on the same descriptor. Grounded on spec.md §4.2's both-mode
// branch.
type bothDriver struct {
	cfg      *Config
	isServer bool
	phase    bothPhase

	preambleIn []byte // bytes accumulated while awaiting an incoming token
	sentOffset int    // bytes of the outgoing token already written
	upgraded   bool
	tls        *tlsDriver
}

func newBothDriver(cfg *Config, isServer bool) HandshakeDriver {
	d := &bothDriver{cfg: cfg, isServer: isServer}
	if isServer {
		d.phase = phaseServerRecv
	} else {
		d.phase = phaseClientSend
	}
	return d
}

func (d *bothDriver) Step(sock *Socket, sys *System) (bool, error) {
	if d.upgraded {
		return d.tls.Step(sock, sys)
	}
	switch d.phase {
	case phaseServerRecv:
		return d.recvToken(sock, phaseServerEcho)
	case phaseServerEcho:
		return d.sendToken(sock, func() { d.beginUpgrade() })
	case phaseClientSend:
		return d.sendToken(sock, func() { d.advanceToRecvEcho() })
	case phaseClientRecvEcho:
		return d.recvToken(sock, -1)
	}
	return true, fmt.Errorf("%w: unreachable both-mode phase", ErrHandshakeFailed)
}

// recvToken reads bothModeMagic off the wire, validating it byte-for-byte.
// next is the phase to transition to on success; a negative next means
// "finish the handshake by upgrading" instead of switching phases (used by
// the client's post-echo read).
func (d *bothDriver) recvToken(sock *Socket, next bothPhase) (bool, error) {
	need := len(bothModeMagic) - len(d.preambleIn)
	buf := make([]byte, need)
	n, wouldBlock, err := readSocket(sock.fd, buf)
	if err != nil {
		return true, err
	}
	if wouldBlock {
		return false, nil
	}
	if n == 0 {
		return true, fmt.Errorf("%w: peer closed during preamble", ErrHandshakeFailed)
	}
	d.preambleIn = append(d.preambleIn, buf[:n]...)
	if len(d.preambleIn) < len(bothModeMagic) {
		return false, nil
	}
	if string(d.preambleIn) != bothModeMagic {
		return true, fmt.Errorf("%w: bad preamble", ErrHandshakeFailed)
	}
	if next < 0 {
		d.beginUpgrade()
		return false, nil
	}
	d.preambleIn = nil
	d.sentOffset = 0
	d.phase = next
	return false, nil
}

// sendToken writes bothModeMagic to the wire and calls onDone once every
// byte has been written.
func (d *bothDriver) sendToken(sock *Socket, onDone func()) (bool, error) {
	remaining := []byte(bothModeMagic)[d.sentOffset:]
	n, wouldBlock, err := writeSocket(sock.fd, remaining)
	if err != nil {
		return true, err
	}
	if wouldBlock {
		return false, nil
	}
	d.sentOffset += n
	if d.sentOffset < len(bothModeMagic) {
		return false, nil
	}
	onDone()
	return false, nil
}

func (d *bothDriver) advanceToRecvEcho() {
	d.preambleIn = nil
	d.phase = phaseClientRecvEcho
}

func (d *bothDriver) beginUpgrade() {
	d.tls = newTLSDriver(d.cfg, d.isServer).(*tlsDriver)
	d.upgraded = true
}

func (d *bothDriver) ReadNonblocking(sock *Socket, buf []byte) (int, bool, error) {
	if !d.upgraded {
		return 0, true, nil
	}
	return d.tls.ReadNonblocking(sock, buf)
}

func (d *bothDriver) WriteNonblocking(sock *Socket, buf []byte) (int, bool, error) {
	if !d.upgraded {
		return 0, true, nil
	}
	return d.tls.WriteNonblocking(sock, buf)
}

func (d *bothDriver) Close() error {
	if d.tls == nil {
		return nil
	}
	return d.tls.Close()
}
