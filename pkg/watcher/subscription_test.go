package watcher

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNotifier calls back once per value sent on fire
type fakeNotifier struct {
	fire       chan struct{}
	subscribed chan struct{}
	err        error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{fire: make(chan struct{}), subscribed: make(chan struct{}, 64)}
}

func (n *fakeNotifier) Subscribe(ctx context.Context, callback func()) error {
	select {
	case n.subscribed <- struct{}{}:
	default:
	}
	if n.err != nil {
		return n.err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.fire:
			callback()
		}
	}
}

func TestSubscriptionRunsHandlerPerEvent(t *testing.T) {
	notifier := newFakeNotifier()
	var runs atomic.Int32
	done := make(chan struct{}, 10)

	s := New(Config{
		Notifier: notifier,
		Handler: func(context.Context) {
			runs.Add(1)
			done <- struct{}{}
		},
		Metrics: metrics.New(),
		Logger:  logr.Discard(),
	})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	<-notifier.subscribed
	notifier.fire <- struct{}{}
	waitRun(t, done)
	notifier.fire <- struct{}{}
	waitRun(t, done)

	assert.Equal(t, int32(2), runs.Load())
}

func TestSubscriptionHandlerRunsNeverOverlap(t *testing.T) {
	notifier := newFakeNotifier()
	release := make(chan struct{})
	started := make(chan struct{}, 10)
	var active, maxActive, runs atomic.Int32

	s := New(Config{
		Notifier: notifier,
		Handler: func(context.Context) {
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			started <- struct{}{}
			<-release
			active.Add(-1)
			runs.Add(1)
		},
		QueueSize: 1,
		Logger:    logr.Discard(),
	})
	require.NoError(t, s.Start(context.Background()))

	<-notifier.subscribed
	notifier.fire <- struct{}{}
	waitRun(t, started)

	// worker is busy, one event fits in the queue, the rest are coalesced
	for i := 0; i < 5; i++ {
		notifier.fire <- struct{}{}
	}
	assert.False(t, s.Trigger(SourceControl))

	close(release)
	waitRun(t, started)

	assert.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), maxActive.Load())

	s.Stop()
	assert.Equal(t, int32(2), runs.Load())
}

func TestSubscriptionTriggerBeforeStart(t *testing.T) {
	done := make(chan struct{}, 1)
	s := New(Config{
		Handler: func(context.Context) { done <- struct{}{} },
		Logger:  logr.Discard(),
	})

	assert.True(t, s.Trigger(SourceAllowList))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	waitRun(t, done)
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := New(Config{
		Notifier: newFakeNotifier(),
		Handler:  func(context.Context) {},
		Logger:   logr.Discard(),
	})

	// Stop before Start is a no-op
	s.Stop()

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	s.Stop()
	s.Stop()
}

func TestSubscriptionNotifierFailure(t *testing.T) {
	notifier := newFakeNotifier()
	notifier.err = errors.New("no netlink")

	done := make(chan struct{}, 1)
	s := New(Config{
		Notifier: notifier,
		Handler: func(context.Context) {
			select {
			case done <- struct{}{}:
			default:
			}
		},
		RetryDelay: 10 * time.Millisecond,
		Logger:     logr.Discard(),
	})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	<-notifier.subscribed

	// programmatic triggers still work without OS notifications
	s.Trigger(SourceSchedule)
	waitRun(t, done)

	// and the subscription keeps being retried
	<-notifier.subscribed
	<-notifier.subscribed
}

// flakyNotifier delivers one event and fails on its first subscription,
// then behaves like a healthy subscription
type flakyNotifier struct {
	calls atomic.Int32
	fire  chan struct{}
}

func (n *flakyNotifier) Subscribe(ctx context.Context, callback func()) error {
	if n.calls.Add(1) == 1 {
		callback()
		return errors.New("netlink receive: no buffer space available")
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.fire:
			callback()
		}
	}
}

func TestSubscriptionResubscribesAfterFailure(t *testing.T) {
	notifier := &flakyNotifier{fire: make(chan struct{})}

	done := make(chan struct{}, 16)
	s := New(Config{
		Notifier:   notifier,
		Handler:    func(context.Context) { done <- struct{}{} },
		QueueSize:  4,
		RetryDelay: 10 * time.Millisecond,
		Metrics:    metrics.New(),
		Logger:     logr.Discard(),
	})
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	// the event delivered before the failure
	waitRun(t, done)
	// the catch-up pass queued on resubscribe
	waitRun(t, done)

	// events after the resubscribe still trigger passes
	select {
	case notifier.fire <- struct{}{}:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not resubscribed")
	}
	waitRun(t, done)

	assert.Equal(t, int32(2), notifier.calls.Load())
}

func waitRun(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
}
