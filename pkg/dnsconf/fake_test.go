package dnsconf

import (
	"context"
	"sync"
)

type call struct {
	Interface string
	Servers   []string
}

// recorder is a Configurator that keeps the calls made and the resulting DNS state
type recorder struct {
	mu    sync.Mutex
	calls []call
	state map[string][]string
	fail  map[string]error
}

func newRecorder() *recorder {
	return &recorder{state: map[string][]string{}, fail: map[string]error{}}
}

func (r *recorder) ApplyDNSServers(_ context.Context, iface string, servers []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, call{Interface: iface, Servers: append([]string(nil), servers...)})
	if err := r.fail[iface]; err != nil {
		return err
	}
	r.state[iface] = append([]string(nil), servers...)
	return nil
}

func (r *recorder) snapshot() ([]call, map[string][]string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state := make(map[string][]string, len(r.state))
	for k, v := range r.state {
		state[k] = v
	}
	return append([]call(nil), r.calls...), state
}
