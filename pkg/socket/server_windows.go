//go:build windows

package socket

import (
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// Administrators and SYSTEM only
const pipeSecurity = "D:P(A;;GA;;;BA)(A;;GA;;;SY)"

// createListener creates a Windows named pipe listener
func (s *Server) createListener() (net.Listener, error) {
	listener, err := winio.ListenPipe(s.socketPath, &winio.PipeConfig{
		SecurityDescriptor: pipeSecurity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create named pipe: %w", err)
	}
	return listener, nil
}

// Named pipes vanish with their last handle
func (s *Server) removeSocket() {}

// dialSocket connects to a Windows named pipe
func dialSocket(socketPath string) (net.Conn, error) {
	return winio.DialPipe(socketPath, nil)
}
