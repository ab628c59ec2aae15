package supervisor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/metrics"
)

// ErrStart is wrapped by every error returned when the proxy cannot be started
var ErrStart = errors.New("failed to start proxy")

// Status represents the proxy process status
type Status string

const (
	StatusStopped Status = "stopped"
	StatusRunning Status = "running"
	StatusExited  Status = "exited"
	StatusFailed  Status = "failed" // Failed to start
)

// Info contains information about the proxy process
type Info struct {
	Status    Status    `json:"status"`
	PID       int       `json:"pid,omitempty"`
	StartTime time.Time `json:"start_time,omitempty"`
	ExitCode  int       `json:"exit_code"`
	Error     string    `json:"error,omitempty"`
}

// Config holds supervisor configuration
type Config struct {
	// Dir is the working directory of the proxy
	Dir string
	// Path is the proxy executable, see config.Config.ProxyPath
	Path string

	// Args is passed to the proxy as a single space-joined string
	Args string

	// Out receives every stdout and stderr line of the proxy
	Out io.Writer

	Metrics *metrics.Metrics
	Logger  logr.Logger
}

// Supervisor runs the DoH proxy and relays its output
type Supervisor struct {
	dir     string
	path    string
	args    string
	out     *lineWriter
	metrics *metrics.Metrics
	logger  logr.Logger

	mu   sync.RWMutex
	info Info
}

// New creates a new supervisor
func New(cfg Config) *Supervisor {
	return &Supervisor{
		dir:     cfg.Dir,
		path:    cfg.Path,
		args:    cfg.Args,
		out:     &lineWriter{w: cfg.Out},
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		info:    Info{Status: StatusStopped},
	}
}

// Path returns the executable the supervisor launches
func (s *Supervisor) Path() string {
	return s.path
}

// Run starts the proxy and blocks until it exits, returning its exit code.
// The proxy is not restarted.
func (s *Supervisor) Run(ctx context.Context) (int, error) {
	path := s.Path()

	cmd := exec.CommandContext(ctx, path)
	cmd.Dir = s.dir
	setArgs(cmd, path, s.args)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.failed(fmt.Errorf("%w: stdout pipe: %w", ErrStart, err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.failed(fmt.Errorf("%w: stderr pipe: %w", ErrStart, err))
	}

	if err := cmd.Start(); err != nil {
		return s.failed(fmt.Errorf("%w %s: %w", ErrStart, path, err))
	}

	s.mu.Lock()
	s.info = Info{
		Status:    StatusRunning,
		PID:       cmd.Process.Pid,
		StartTime: time.Now(),
	}
	s.mu.Unlock()
	s.metrics.SetProxyUp(true)

	s.logger.Info("Started DoH proxy", "path", path, "pid", cmd.Process.Pid, "args", s.args)

	// Both streams must be drained before Wait closes the pipes
	var wg sync.WaitGroup
	wg.Add(2)
	go s.relay(&wg, stdout)
	go s.relay(&wg, stderr)
	wg.Wait()

	err = cmd.Wait()
	s.metrics.SetProxyUp(false)

	code := cmd.ProcessState.ExitCode()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		s.setExited(code, err)
		return code, fmt.Errorf("failed to wait for proxy: %w", err)
	}

	s.setExited(code, nil)
	s.logger.Info("DoH proxy exited", "code", code)
	return code, nil
}

// Status returns the current process information
func (s *Supervisor) Status() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

func (s *Supervisor) failed(err error) (int, error) {
	s.mu.Lock()
	s.info = Info{Status: StatusFailed, ExitCode: -1, Error: err.Error()}
	s.mu.Unlock()
	return -1, err
}

func (s *Supervisor) setExited(code int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.info.Status = StatusExited
	s.info.ExitCode = code
	if err != nil {
		s.info.Error = err.Error()
	}
}

// relay copies pipe to the output one line at a time
func (s *Supervisor) relay(wg *sync.WaitGroup, pipe io.Reader) {
	defer wg.Done()

	scanner := bufio.NewScanner(pipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.out.WriteLine(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		s.logger.V(1).Info("Proxy output relay stopped", "error", err.Error())
		// keep the child from blocking on a full pipe
		_, _ = io.Copy(io.Discard, pipe)
	}
}

// lineWriter serializes whole lines from concurrent relays
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lineWriter) WriteLine(line string) {
	if l.w == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, line)
}
