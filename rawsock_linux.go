//go:build linux

package evnet

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Raw non-blocking socket plumbing. Grounded stylistically on the
// mdlayher/socket wrapper vendored into other_examples
// (moby/vendor/github.com/mdlayher/socket/conn.go), which wraps the same
// unix.Socket/Bind/Listen/Accept4/Connect/Select primitives behind a
// small Go-friendly surface. golang.org/x/sys/unix is the only package in
// the pack that exposes raw non-blocking socket syscalls; net.Conn's
// blocking model cannot express the single select()-driven tick loop
// spec.md §5 requires.

func newNonblockingSocket() (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, unix.IPPROTO_TCP)
	if err != nil {
		return -1, fmt.Errorf("evnet: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("evnet: setsockopt SO_REUSEADDR: %w", err)
	}
	return fd, nil
}

func sockaddrFromAddr(addr NetAddr) *unix.SockaddrInet4 {
	return &unix.SockaddrInet4{Port: addr.Port, Addr: addr.IP}
}

func addrFromSockaddr(sa unix.Sockaddr) NetAddr {
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		return NetAddr{IP: in4.Addr, Port: in4.Port}
	}
	return NetAddr{}
}

func bindSocket(fd int, local NetAddr) error {
	if err := unix.Bind(fd, sockaddrFromAddr(local)); err != nil {
		return fmt.Errorf("evnet: bind: %w", err)
	}
	return nil
}

func listenSocket(fd int, backlog int) error {
	if backlog < 1 {
		backlog = 1
	}
	if err := unix.Listen(fd, backlog); err != nil {
		return fmt.Errorf("evnet: listen: %w", err)
	}
	return nil
}

// acceptSocket returns (fd, addr, wouldBlock, err). wouldBlock is true
// when there is no pending connection yet; the caller should not treat
// this as an error (spec.md §7, transient network class).
func acceptSocket(fd int) (int, NetAddr, bool, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return -1, NetAddr{}, true, nil
		}
		return -1, NetAddr{}, false, fmt.Errorf("evnet: accept: %w", err)
	}
	return nfd, addrFromSockaddr(sa), false, nil
}

// connectSocket issues a non-blocking connect. inProgress is true when the
// 3-way handshake has not completed synchronously and the caller must
// poll writability on subsequent ticks.
func connectSocket(fd int, remote NetAddr) (inProgress bool, err error) {
	err = unix.Connect(fd, sockaddrFromAddr(remote))
	if err == nil {
		return false, nil
	}
	if err == unix.EINPROGRESS {
		return true, nil
	}
	return false, fmt.Errorf("evnet: connect: %w", err)
}

// socketError reads and clears SO_ERROR, reporting any asynchronous
// connect failure observed once a socket becomes writable.
func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return fmt.Errorf("evnet: getsockopt SO_ERROR: %w", err)
	}
	if errno != 0 {
		return fmt.Errorf("evnet: async connect failed: %w", unix.Errno(errno))
	}
	return nil
}

// readSocket reads available bytes into buf. wouldBlock is true when
// nothing is currently available; n==0,err==nil,wouldBlock==false means
// the peer closed the connection.
func readSocket(fd int, buf []byte) (n int, wouldBlock bool, err error) {
	n, err = unix.Read(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("evnet: read: %w", err)
	}
	return n, false, nil
}

// writeSocket writes as much of buf as the kernel will currently accept.
func writeSocket(fd int, buf []byte) (n int, wouldBlock bool, err error) {
	n, err = unix.Write(fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return 0, true, nil
		}
		return 0, false, fmt.Errorf("evnet: write: %w", err)
	}
	return n, false, nil
}

func closeSocket(fd int) error {
	if fd < 0 {
		return nil
	}
	return unix.Close(fd)
}

// selectReady partitions the given read/write candidate fd sets into
// those currently ready, blocking for at most timeout. This is the poll
// loop's main suspension point (spec.md §5); TLS-wrapped sockets
// additionally wait up to handshakeStepDeadline per probe.
func selectReady(readFDs, writeFDs []int, timeout time.Duration) (readable, writable []int, err error) {
	var rset, wset unix.FdSet
	maxFD := 0
	for _, fd := range readFDs {
		fdSet(&rset, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}
	for _, fd := range writeFDs {
		fdSet(&wset, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}
	if len(readFDs) == 0 && len(writeFDs) == 0 {
		time.Sleep(timeout)
		return nil, nil, nil
	}
	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	n, err := unix.Select(maxFD+1, &rset, &wset, nil, &tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("evnet: select: %w", err)
	}
	if n == 0 {
		return nil, nil, nil
	}
	for _, fd := range readFDs {
		if fdIsSet(&rset, fd) {
			readable = append(readable, fd)
		}
	}
	for _, fd := range writeFDs {
		if fdIsSet(&wset, fd) {
			writable = append(writable, fd)
		}
	}
	return readable, writable, nil
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
