package socket

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/dnsconf"
	"github.com/ishanjain/dohwrap/pkg/probe"
	"github.com/ishanjain/dohwrap/pkg/supervisor"
)

// Commands understood by the server
const (
	CmdStatus  = "status"
	CmdList    = "list"
	CmdRefresh = "refresh"
	CmdProbe   = "probe"
)

// Controller is implemented by the daemon
type Controller interface {
	GetStatus() StatusResponse
	ListInterfaces() []dnsconf.InterfaceResult
	Refresh() bool
	Probe(ctx context.Context) []probe.Result
}

// Command represents a command from dohctl
type Command struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// Response represents a response to the client
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StatusResponse contains daemon status information
type StatusResponse struct {
	Version       string          `json:"version"`
	InstallDir    string          `json:"install_dir"`
	AllowList     string          `json:"allow_list"`
	MissingPolicy string          `json:"missing_policy"`
	Managed       int             `json:"managed"`
	Proxy         supervisor.Info `json:"proxy"`
	LastPass      *dnsconf.Pass   `json:"last_pass,omitempty"`
}

// RefreshResponse reports whether a pass was queued
type RefreshResponse struct {
	Queued bool `json:"queued"`
}

// Server handles control socket communication
type Server struct {
	socketPath string
	daemon     Controller
	logger     logr.Logger

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// NewServer creates a new control socket server
func NewServer(socketPath string, daemon Controller, logger logr.Logger) *Server {
	return &Server{
		socketPath: socketPath,
		daemon:     daemon,
		logger:     logger,
	}
}

// Start starts the control socket server
func (s *Server) Start() error {
	listener, err := s.createListener()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("Control socket started", "path", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop(listener)
	return nil
}

// Stop stops the control socket server
func (s *Server) Stop() error {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()

	if listener == nil {
		return nil
	}
	err := listener.Close()
	s.wg.Wait()
	s.removeSocket()
	return err
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := listener.Accept()
		if err != nil {
			// Server stopped
			return
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	var cmd Command
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&cmd); err != nil {
		s.send(conn, Response{Error: fmt.Sprintf("failed to decode command: %v", err)})
		return
	}

	s.logger.V(1).Info("Received command", "command", cmd.Command, "args", cmd.Args)

	s.send(conn, s.executeCommand(cmd))
}

func (s *Server) executeCommand(cmd Command) Response {
	switch cmd.Command {
	case CmdStatus:
		return ok(s.daemon.GetStatus())

	case CmdList:
		return ok(s.daemon.ListInterfaces())

	case CmdRefresh:
		return ok(RefreshResponse{Queued: s.daemon.Refresh()})

	case CmdProbe:
		return ok(s.daemon.Probe(context.Background()))

	default:
		return Response{Error: fmt.Sprintf("unknown command: %s", cmd.Command)}
	}
}

func ok(data any) Response {
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{Error: fmt.Sprintf("failed to encode response: %v", err)}
	}
	return Response{Success: true, Data: raw}
}

func (s *Server) send(conn net.Conn, resp Response) {
	if err := json.NewEncoder(conn).Encode(resp); err != nil {
		s.logger.Error(err, "Failed to send response")
	}
}
