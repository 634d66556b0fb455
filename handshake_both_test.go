package evnet

import (
	"testing"

	"golang.org/x/sys/unix"
)

// TestBothDriverEchoesPreambleBeforeUpgrading drives the client and server
// halves of bothDriver over a real connected fd pair and checks that both
// sides complete the token round trip (the client sends it and reads the
// echo, the server reads it and echoes it) before either transitions to
// the TLS upgrade, per spec.md §4.2's client branch.
func TestBothDriverEchoesPreambleBeforeUpgrading(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		t.Fatalf("Socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	cfg := applyConfig(nil)
	clientSock := &Socket{fd: fds[0]}
	serverSock := &Socket{fd: fds[1]}
	client := newBothDriver(cfg, false).(*bothDriver)
	server := newBothDriver(cfg, true).(*bothDriver)

	// Drive both sides in lockstep. Each Step only ever does one
	// nonblocking-sized read or write, so this converges in a bounded
	// number of rounds for a 6-byte token.
	for round := 0; round < 20 && !(client.upgraded && server.upgraded); round++ {
		if !server.upgraded {
			if _, err := server.Step(serverSock, nil); err != nil {
				t.Fatalf("server.Step: %v", err)
			}
		}
		if !client.upgraded {
			if _, err := client.Step(clientSock, nil); err != nil {
				t.Fatalf("client.Step: %v", err)
			}
		}
	}

	if !client.upgraded || !server.upgraded {
		t.Fatalf("handshake did not converge: client.upgraded=%v server.upgraded=%v", client.upgraded, server.upgraded)
	}
	if client.phase != phaseClientRecvEcho {
		t.Fatalf("client never reached the await-echo phase before upgrading: phase=%v", client.phase)
	}
	if server.phase != phaseServerEcho {
		t.Fatalf("server never reached the echo phase before upgrading: phase=%v", server.phase)
	}
}
