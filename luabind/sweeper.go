package luabind

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// ---------------------------------------------------------------------------
// Sweeper: periodic collection of unreachable objects
// ---------------------------------------------------------------------------

// SweepStats holds statistics from a single sweep.
type SweepStats struct {
	Collected     int
	Live          int
	SweepDuration time.Duration
	Timestamp     time.Time
}

// Sweeper periodically runs Binding.Sweep through a Worker so objects
// whose userdata Lua dropped are collected even while no script runs.
type Sweeper struct {
	w        *Worker
	interval time.Duration
	forceGC  bool
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // protects start/stop lifecycle

	sweepCount atomic.Uint64
	lastStats  atomic.Value // *SweepStats
}

// DefaultSweepInterval is used when a non-positive interval is given.
const DefaultSweepInterval = 5 * time.Second

// NewSweeper creates a Sweeper. With forceGC set, each sweep first runs
// the Go collector so pending cleanups are reported.
func NewSweeper(w *Worker, interval time.Duration, forceGC bool) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &Sweeper{
		w:        w,
		interval: interval,
		forceGC:  forceGC,
	}
	s.enabled.Store(true)
	return s
}

// Start begins the periodic sweep goroutine. Calling Start on a running
// Sweeper does nothing.
func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stop != nil {
		return
	}
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	stopCh := s.stop
	stoppedCh := s.stopped
	go s.loop(stopCh, stoppedCh)
}

// Stop halts the sweep goroutine and waits for it to finish. It is safe to
// call Stop more than once or on a Sweeper that was never started.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	stopCh := s.stop
	stoppedCh := s.stopped
	s.stop = nil
	s.stopped = nil
	s.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled pauses or resumes sweeping without stopping the goroutine.
func (s *Sweeper) SetEnabled(enabled bool) {
	s.enabled.Store(enabled)
}

// Interval returns the sweep interval.
func (s *Sweeper) Interval() time.Duration {
	return s.interval
}

// SweepCount returns the number of sweeps performed.
func (s *Sweeper) SweepCount() uint64 {
	return s.sweepCount.Load()
}

// LastStats returns the most recent sweep's statistics, or nil.
func (s *Sweeper) LastStats() *SweepStats {
	v := s.lastStats.Load()
	if v == nil {
		return nil
	}
	return v.(*SweepStats)
}

// SweepNow performs an immediate sweep.
func (s *Sweeper) SweepNow() (*SweepStats, error) {
	return s.sweep()
}

func (s *Sweeper) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !s.enabled.Load() {
				continue
			}
			if _, err := s.sweep(); errors.Is(err, ErrWorkerStopped) {
				log.Warning("worker stopped before the sweeper")
				return
			} else if err != nil {
				log.Errorf("sweep: %s", err)
			}
		}
	}
}

func (s *Sweeper) sweep() (*SweepStats, error) {
	if s.forceGC {
		runtime.GC()
	}
	start := time.Now()
	v, err := s.w.Do(func(b *Binding) (any, error) {
		stats := &SweepStats{Timestamp: start}
		stats.Collected = b.Sweep()
		stats.Live = b.rt.Stats().Objects
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	stats := v.(*SweepStats)
	stats.SweepDuration = time.Since(start)

	s.sweepCount.Add(1)
	s.lastStats.Store(stats)
	return stats, nil
}
