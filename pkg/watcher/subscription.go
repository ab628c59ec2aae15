package watcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/ishanjain/dohwrap/pkg/metrics"
	"github.com/ishanjain/dohwrap/pkg/netif"
)

// Event sources
const (
	SourceNetwork     = "network"
	SourceAllowList   = "allowlist"
	SourceConfig      = "config"
	SourceSchedule    = "schedule"
	SourceControl     = "control"
	SourceResubscribe = "resubscribe"
)

const defaultRetryDelay = time.Second

var errAlreadyStarted = errors.New("subscription already started")

// Config holds subscription configuration
type Config struct {
	Notifier netif.Notifier

	// Handler runs once per dequeued event
	Handler func(ctx context.Context)

	// QueueSize bounds the pending events, default 1
	QueueSize int

	// RetryDelay is the wait before resubscribing after the notifier returns, default 1s
	RetryDelay time.Duration

	Metrics *metrics.Metrics
	Logger  logr.Logger
}

// Subscription turns OS network-change notifications into handler runs.
// Events land on a bounded queue drained by a single worker, so handler runs
// never overlap. When the queue is full the event is dropped: every queued
// event already triggers a full recomputation.
type Subscription struct {
	notifier netif.Notifier
	handler  func(ctx context.Context)
	metrics  *metrics.Metrics
	logger   logr.Logger

	queue      chan string
	retryDelay time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a new subscription
func New(cfg Config) *Subscription {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return &Subscription{
		notifier:   cfg.Notifier,
		handler:    cfg.Handler,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		queue:      make(chan string, cfg.QueueSize),
		retryDelay: cfg.RetryDelay,
	}
}

// Start subscribes to the notifier and starts the worker
func (s *Subscription) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(2)
	go s.worker(ctx)
	go s.subscribe(ctx)

	return nil
}

// Stop cancels the OS subscription and waits for the worker to finish.
// It is safe to call more than once.
func (s *Subscription) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

// Trigger queues a handler run. It reports false when the queue is full.
func (s *Subscription) Trigger(source string) bool {
	select {
	case s.queue <- source:
		s.metrics.ObserveEvent(source, true)
		return true
	default:
		s.logger.V(1).Info("Change already pending, event coalesced", "source", source)
		s.metrics.ObserveEvent(source, false)
		return false
	}
}

// subscribe keeps an OS subscription open until ctx is cancelled. When the
// notifier returns early it resubscribes after retryDelay and queues a pass,
// since changes may have been missed in between.
func (s *Subscription) subscribe(ctx context.Context) {
	defer s.wg.Done()

	if s.notifier == nil {
		return
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			s.Trigger(SourceResubscribe)
		}

		err := s.notifier.Subscribe(ctx, func() {
			s.Trigger(SourceNetwork)
		})
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			s.logger.Error(err, "Network change subscription ended, resubscribing", "delay", s.retryDelay.String())
		} else {
			s.logger.Info("Network change subscription closed, resubscribing", "delay", s.retryDelay.String())
		}

		timer := time.NewTimer(s.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Subscription) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case source := <-s.queue:
			s.logger.Info("Network change detected, updating DNS", "source", source)
			s.handler(ctx)
		}
	}
}
