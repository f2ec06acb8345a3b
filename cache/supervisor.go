package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quizdesk/quizdesk/internal/metrics"
	"github.com/quizdesk/quizdesk/log"
)

const defaultProbeInterval = 30 * time.Second

// Supervisor owns the two cache variants and decides which one serves
// requests. Redis errors are never propagated: the operation is retried
// against the in-process store and the supervisor goes into degraded
// mode. Degraded mode is sticky until a reconnect probe succeeds.
type Supervisor struct {
	remote *RedisCache
	local  *LocalCache

	degraded   atomic.Bool
	probeEvery time.Duration
	logger     log.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Option configures a Supervisor.
type Option func(*Supervisor)

// WithProbeInterval overrides the reconnect probe interval.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Supervisor) { s.probeEvery = d }
}

// NewSupervisor creates the cache supervisor. A nil remote means no
// Redis was configured: the supervisor serves from the in-process
// store permanently and runs no probe loop.
func NewSupervisor(remote *RedisCache, logger log.Logger, opts ...Option) *Supervisor {
	s := &Supervisor{
		remote:     remote,
		local:      NewLocalCache(),
		probeEvery: defaultProbeInterval,
		logger:     logger,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if remote == nil {
		s.degraded.Store(true)
		return s
	}

	if err := remote.Ping(context.Background()); err != nil {
		s.markDegraded(context.Background(), err)
	}
	go s.probeLoop()

	return s
}

func (s *Supervisor) markDegraded(ctx context.Context, err error) {
	if s.degraded.CompareAndSwap(false, true) {
		metrics.CacheFallbackTotal.Inc()
		s.logger.Warn(ctx, "cache degraded to in-process store", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func (s *Supervisor) probeLoop() {
	ticker := time.NewTicker(s.probeEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.degraded.Load() {
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := s.remote.Ping(ctx)
			cancel()
			if err == nil && s.degraded.CompareAndSwap(true, false) {
				s.logger.Info(context.Background(), "cache reconnected to redis")
			}
		case <-s.done:
			return
		}
	}
}

func (s *Supervisor) remoteActive() bool {
	return s.remote != nil && !s.degraded.Load()
}

func (s *Supervisor) Get(ctx context.Context, key string) (string, bool, error) {
	if s.remoteActive() {
		val, ok, err := s.remote.Get(ctx, key)
		if err == nil {
			return val, ok, nil
		}
		s.markDegraded(ctx, err)
	}
	return s.local.Get(ctx, key)
}

func (s *Supervisor) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s.remoteActive() {
		err := s.remote.Set(ctx, key, value, ttl)
		if err == nil {
			return nil
		}
		s.markDegraded(ctx, err)
	}
	return s.local.Set(ctx, key, value, ttl)
}

// Delete removes the key from both variants so an entry written during
// a degraded window cannot resurface after reconnect.
func (s *Supervisor) Delete(ctx context.Context, key string) error {
	if s.remoteActive() {
		if err := s.remote.Delete(ctx, key); err != nil {
			s.markDegraded(ctx, err)
		}
	}
	return s.local.Delete(ctx, key)
}

func (s *Supervisor) Clear(ctx context.Context) error {
	if s.remoteActive() {
		if err := s.remote.Clear(ctx); err != nil {
			s.markDegraded(ctx, err)
		}
	}
	return s.local.Clear(ctx)
}

// Status reports which backend is active. Entry counts are only
// tracked for the in-process store.
func (s *Supervisor) Status() Status {
	if s.remoteActive() {
		return Status{Backend: BackendRedis, Entries: -1}
	}
	return Status{Backend: BackendLocal, Entries: s.local.Len()}
}

// Close stops the probe loop and the local expiry goroutine.
func (s *Supervisor) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.local.Close()
	})
}

var _ Cache = (*Supervisor)(nil)
