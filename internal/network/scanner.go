package network

import (
	"fmt"
	"net"
)

// Scanner checks whether TCP ports are available on the host machine.
//
// It asks the operating system directly with net.Listen rather than parsing
// /proc/net/* or calling external commands like `lsof`, which may require
// elevated permissions.
type Scanner struct {
	// host is the address probed. An empty host probes all interfaces.
	host string
}

// NewScanner creates a Scanner probing the given host ("" for all interfaces).
func NewScanner(host string) *Scanner {
	return &Scanner{host: host}
}

// IsPortAvailable checks whether a single TCP port is free.
//
// If the listen succeeds the port is available and the listener is
// closed immediately. Returns false if the port is in use or invalid.
func (s *Scanner) IsPortAvailable(port int) bool {
	if port < 1 || port > 65535 {
		return false
	}
	listener, err := net.Listen("tcp", net.JoinHostPort(s.host, fmt.Sprint(port)))
	if err != nil {
		return false
	}
	_ = listener.Close()
	return true
}

// FindAvailablePort scans the range [startPort, endPort] (inclusive) and
// returns the first free TCP port.
//
// The search is sequential from startPort upward, so the same free port
// is selected consistently across runs.
func (s *Scanner) FindAvailablePort(startPort, endPort int) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if s.IsPortAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available tcp port found in range %d-%d", startPort, endPort)
}
