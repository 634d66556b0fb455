package evnet

import (
	"fmt"
	"net"
)

// NetAddr is a resolved endpoint: symbolic name, dotted IPv4 and port.
// Grounded on NetAddr in original_source/include/network/network_socket.h,
// dropping the raw sockaddr_in the C++ struct carried alongside — Go's
// net package already gives us that when we need it at the syscall layer.
type NetAddr struct {
	Name string
	IP   [4]byte
	Port int
}

func (a NetAddr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", a.IP[0], a.IP[1], a.IP[2], a.IP[3], a.Port)
}

// IsZero reports whether the address has never been resolved.
func (a NetAddr) IsZero() bool {
	return a.IP == [4]byte{} && a.Port == 0 && a.Name == ""
}

// resolveIP resolves a host name or dotted-quad literal to its first IPv4
// address, mirroring netResolveServerIP / getStrToIP in network_system.h.
func resolveIP(name string) ([4]byte, error) {
	if name == "" || name == "0.0.0.0" {
		return [4]byte{}, nil
	}
	ips, err := net.LookupIP(name)
	if err != nil {
		return [4]byte{}, fmt.Errorf("evnet: resolve %q: %w", name, err)
	}
	for _, ip := range ips {
		if v4 := ip.To4(); v4 != nil {
			var out [4]byte
			copy(out[:], v4)
			return out, nil
		}
	}
	return [4]byte{}, fmt.Errorf("evnet: %q has no IPv4 address", name)
}

func localHostName() string {
	host, err := net.LookupAddr("127.0.0.1")
	if err == nil && len(host) > 0 {
		return host[0]
	}
	name, err := net.LookupCNAME("localhost")
	if err == nil && name != "" {
		return name
	}
	return "localhost"
}
