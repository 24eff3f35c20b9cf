package testutils

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// GetFreePort returns a free TCP port on the specified host.
func GetFreePort(t *testing.T, host string) int {
	t.Helper()

	ln, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	require.NoError(t, err, "Setup: failed to listen on tcp")
	defer ln.Close()
	addr, ok := ln.Addr().(*net.TCPAddr)
	require.True(t, ok, "Setup: expected TCPAddr")
	return addr.Port
}

// PortOpen checks if something is listening on the TCP address addr.
func PortOpen(t *testing.T, addr string) bool {
	t.Helper()

	conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
	if err != nil {
		return false
	}
	defer conn.Close()
	return true
}

// WaitForPortClosed waits until nothing listens on addr anymore, failing the test after timeout.
func WaitForPortClosed(t *testing.T, addr string, timeout time.Duration) {
	t.Helper()

	require.Eventually(t, func() bool {
		return !PortOpen(t, addr)
	}, timeout, 20*time.Millisecond, "Port %s should have been closed", addr)
}
