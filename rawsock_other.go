//go:build !linux

package evnet

import (
	"errors"
	"time"
)

// Non-Linux platforms are not yet wired to a raw non-blocking socket
// backend: golang.org/x/sys/unix's FdSet layout and accept4/SOCK_NONBLOCK
// support vary enough across darwin/bsd that a single select()-based
// implementation needs per-OS tuning this runtime does not yet carry.
// Every entry point here except closeSocket (a no-op) returns
// errUnsupportedPlatform so a build on
// another GOOS fails loudly at run time rather than silently degrading.

var errUnsupportedPlatform = errors.New("evnet: raw socket backend not implemented for this platform")

func newNonblockingSocket() (int, error) { return -1, errUnsupportedPlatform }

func bindSocket(fd int, local NetAddr) error { return errUnsupportedPlatform }

func listenSocket(fd int, backlog int) error { return errUnsupportedPlatform }

func acceptSocket(fd int) (int, NetAddr, bool, error) {
	return -1, NetAddr{}, false, errUnsupportedPlatform
}

func connectSocket(fd int, remote NetAddr) (bool, error) { return false, errUnsupportedPlatform }

func socketError(fd int) error { return errUnsupportedPlatform }

func readSocket(fd int, buf []byte) (int, bool, error) { return 0, false, errUnsupportedPlatform }

func writeSocket(fd int, buf []byte) (int, bool, error) { return 0, false, errUnsupportedPlatform }

func closeSocket(fd int) error { return nil }

func selectReady(readFDs, writeFDs []int, timeout time.Duration) ([]int, []int, error) {
	time.Sleep(timeout)
	return nil, nil, errUnsupportedPlatform
}
