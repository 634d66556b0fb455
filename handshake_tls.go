package evnet

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"
)

func init() {
	RegisterHandshakeDriver(SecurityTLS, newTLSDriver)
}

// handshakeStepDeadline bounds each non-blocking Handshake()/Read()/
// Write() attempt on the wrapped net.Conn. crypto/tls only exposes a
// deadline-based non-blocking mode (there is no raw non-blocking TLS
// syscall the way there is for a plain socket), so each tick sets an
// imminent deadline and treats the resulting timeout as "would block,
// retry next tick" — the same cooperative contract the raw-socket path
// gets for free from EAGAIN.
const handshakeStepDeadline = 1 * time.Millisecond

// tlsDriver drives a non-blocking TLS handshake over a raw fd wrapped as
// a net.Conn, and then takes over the socket's read/write path for the
// lifetime of the connection. Grounded on spec.md §4.2's tls-only branch;
// crypto/tls is the only TLS engine in the pack independent of the
// dropped Azure SDK transports (see DESIGN.md).
type tlsDriver struct {
	cfg      *tls.Config
	isServer bool
	conn     *tls.Conn
}

func newTLSDriver(cfg *Config, isServer bool) HandshakeDriver {
	return &tlsDriver{cfg: buildTLSConfig(cfg, isServer), isServer: isServer}
}

func buildTLSConfig(cfg *Config, isServer bool) *tls.Config {
	tc := &tls.Config{InsecureSkipVerify: cfg.pathToCertDir == ""} //nolint:gosec // loopback/demo default; WithCertDir supplies a root pool otherwise
	if isServer && cfg.pathToCertFile != "" && cfg.pathToPrivateKey != "" {
		if cert, err := tls.LoadX509KeyPair(cfg.pathToCertFile, cfg.pathToPrivateKey); err == nil {
			tc.Certificates = []tls.Certificate{cert}
		}
	}
	if cfg.pathToCertDir != "" {
		pool := x509.NewCertPool()
		if entries, err := os.ReadDir(cfg.pathToCertDir); err == nil {
			for _, ent := range entries {
				if ent.IsDir() {
					continue
				}
				if data, err := os.ReadFile(filepath.Join(cfg.pathToCertDir, ent.Name())); err == nil {
					pool.AppendCertsFromPEM(data)
				}
			}
			tc.RootCAs = pool
			tc.InsecureSkipVerify = false
		}
	}
	return tc
}

func wrapFD(fd int) (net.Conn, error) {
	f := os.NewFile(uintptr(fd), "evnet-socket")
	if f == nil {
		return nil, fmt.Errorf("evnet: invalid fd %d", fd)
	}
	defer f.Close()
	return net.FileConn(f)
}

func (d *tlsDriver) Step(sock *Socket, sys *System) (bool, error) {
	if sock.fd < 0 {
		return true, ErrHandshakeFailed
	}
	if d.conn == nil {
		nc, err := wrapFD(sock.fd)
		if err != nil {
			return true, err
		}
		sock.fd = -1 // wrapFD closed the original descriptor number; the net.Conn owns its own dup now
		if d.isServer {
			d.conn = tls.Server(nc, d.cfg)
		} else {
			d.conn = tls.Client(nc, d.cfg)
		}
	}
	d.conn.SetDeadline(time.Now().Add(handshakeStepDeadline))
	err := d.conn.Handshake()
	if err == nil {
		return true, nil
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return false, nil
	}
	return true, fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
}

func (d *tlsDriver) ReadNonblocking(sock *Socket, buf []byte) (int, bool, error) {
	if d.conn == nil {
		return 0, true, nil
	}
	d.conn.SetReadDeadline(time.Now().Add(handshakeStepDeadline))
	n, err := d.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, true, nil
		}
		return n, false, err
	}
	return n, false, nil
}

func (d *tlsDriver) WriteNonblocking(sock *Socket, buf []byte) (int, bool, error) {
	if d.conn == nil {
		return 0, true, nil
	}
	d.conn.SetWriteDeadline(time.Now().Add(handshakeStepDeadline))
	n, err := d.conn.Write(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return n, true, nil
		}
		return n, false, err
	}
	return n, false, nil
}

func (d *tlsDriver) Close() error {
	if d.conn == nil {
		return nil
	}
	return d.conn.Close()
}
