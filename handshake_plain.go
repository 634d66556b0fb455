package evnet

func init() {
	RegisterHandshakeDriver(SecurityPlainTCP, newPlainDriver)
}

// plainDriver is the trivial handshake for SecurityPlainTCP: there is
// nothing to negotiate beyond the TCP 3-way handshake the connect/accept
// syscalls already completed, so the first Step call always succeeds.
// Grounded on spec.md §4.2's "transition to connected immediately" branch.
type plainDriver struct{}

func newPlainDriver(cfg *Config, isServer bool) HandshakeDriver { return &plainDriver{} }

func (d *plainDriver) Step(sock *Socket, sys *System) (bool, error) {
	return true, nil
}
