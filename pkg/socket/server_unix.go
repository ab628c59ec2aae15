//go:build !windows

package socket

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
)

// createListener creates a Unix domain socket listener
func (s *Server) createListener() (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// Remove stale socket from a previous run
	s.removeSocket()

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create unix socket: %w", err)
	}

	if err := os.Chmod(s.socketPath, 0660); err != nil {
		s.logger.Error(err, "Failed to set socket permissions")
	}

	return listener, nil
}

func (s *Server) removeSocket() {
	_ = os.Remove(s.socketPath)
}

// dialSocket connects to a Unix domain socket
func dialSocket(socketPath string) (net.Conn, error) {
	return net.Dial("unix", socketPath)
}
