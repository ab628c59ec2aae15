package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helperEnv = "DOHWRAP_HELPER_PROCESS"

// TestHelperProcess is the fake proxy started by the tests below
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}

	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}

	wd, _ := os.Getwd()
	fmt.Fprintf(os.Stdout, "cwd %s\n", wd)
	fmt.Fprintf(os.Stdout, "args %s\n", strings.Join(args, "|"))
	for i := 0; i < 3; i++ {
		fmt.Fprintf(os.Stdout, "out %d\n", i)
		fmt.Fprintf(os.Stderr, "err %d\n", i)
	}
	os.Exit(3)
}

// syncBuffer is a bytes.Buffer safe for the relay goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Split(strings.TrimRight(b.buf.String(), "\n"), "\n")
}

func TestRunRelaysOutput(t *testing.T) {
	t.Setenv(helperEnv, "1")

	exe, err := os.Executable()
	require.NoError(t, err)
	dir := t.TempDir()

	out := &syncBuffer{}
	s := New(Config{
		Dir:     dir,
		Path:    exe,
		Args:    strings.Join([]string{"-test.run=TestHelperProcess", "--", "--listen", "0.0.0.0:53"}, " "),
		Out:     out,
		Metrics: metrics.New(),
		Logger:  logr.Discard(),
	})
	assert.Equal(t, StatusStopped, s.Status().Status)

	code, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, code)

	lines := out.Lines()
	assert.Contains(t, lines, "args --listen|0.0.0.0:53")
	for i := 0; i < 3; i++ {
		assert.Contains(t, lines, fmt.Sprintf("out %d", i))
		assert.Contains(t, lines, fmt.Sprintf("err %d", i))
	}

	resolvedDir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	var cwd string
	for _, l := range lines {
		if strings.HasPrefix(l, "cwd ") {
			cwd = strings.TrimPrefix(l, "cwd ")
		}
	}
	resolvedCwd, err := filepath.EvalSymlinks(cwd)
	require.NoError(t, err)
	assert.Equal(t, resolvedDir, resolvedCwd)

	info := s.Status()
	assert.Equal(t, StatusExited, info.Status)
	assert.Equal(t, 3, info.ExitCode)
	assert.NotZero(t, info.PID)
	assert.False(t, info.StartTime.IsZero())
}

func TestRunMissingExecutable(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{
		Dir:    dir,
		Path:   filepath.Join(dir, "doh-proxy-missing"),
		Out:    &bytes.Buffer{},
		Logger: logr.Discard(),
	})
	assert.Equal(t, filepath.Join(dir, "doh-proxy-missing"), s.Path())

	done := make(chan error, 1)
	go func() {
		_, err := s.Run(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrStart))
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not fail fast on a missing executable")
	}

	info := s.Status()
	assert.Equal(t, StatusFailed, info.Status)
	assert.Equal(t, -1, info.ExitCode)
	assert.NotEmpty(t, info.Error)
}

func TestLineWriterKeepsLinesWhole(t *testing.T) {
	var buf bytes.Buffer
	lw := &lineWriter{w: &buf}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				lw.WriteLine(fmt.Sprintf("goroutine-%d line-%03d", g, i))
			}
		}(g)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 400)
	for _, l := range lines {
		assert.Regexp(t, `^goroutine-\d line-\d{3}$`, l)
	}

	// nil writer discards
	(&lineWriter{}).WriteLine("dropped")
}
