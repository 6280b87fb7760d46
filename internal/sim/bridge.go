// Push-style telemetry bridge and the loop plumbing shared by its sources
package sim

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"racedash-sim/internal/telemetry"
)

// Bridge pushes telemetry, session documents and the running flag to one
// subscriber per stream. Registering again replaces the previous
// subscriber. Callbacks run on the stream's own goroutine, one at a time,
// and may themselves register callbacks or call Stop.
type Bridge interface {
	OnTelemetry(func(telemetry.Snapshot))
	OnSessionData(func(*telemetry.Session))
	OnRunningState(func(bool))
	Stop()
}

// Default stream periods.
const (
	DefaultTelemetryInterval = time.Second / 60
	DefaultSessionInterval   = 2 * time.Second
	DefaultRunningInterval   = time.Second
)

// Options configures a bridge. Zero durations fall back to the defaults.
type Options struct {
	TelemetryInterval time.Duration
	SessionInterval   time.Duration
	RunningInterval   time.Duration
	// Dataset replaces synthetic telemetry and the default session when
	// its halves are non-empty.
	Dataset telemetry.Dataset
	// Rand drives the synthetic driver; nil seeds from the clock.
	Rand telemetry.Rand
}

func (o Options) withDefaults() Options {
	if o.TelemetryInterval <= 0 {
		o.TelemetryInterval = DefaultTelemetryInterval
	}
	if o.SessionInterval <= 0 {
		o.SessionInterval = DefaultSessionInterval
	}
	if o.RunningInterval <= 0 {
		o.RunningInterval = DefaultRunningInterval
	}
	return o
}

type stream int

const (
	streamTelemetry stream = iota
	streamSession
	streamRunning
)

func (s stream) String() string {
	switch s {
	case streamTelemetry:
		return "telemetry"
	case streamSession:
		return "session"
	default:
		return "running"
	}
}

// loop is one running stream goroutine.
type loop struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	// delivering is set while the subscriber's callback runs.
	delivering atomic.Bool
}

// deliver runs a subscriber callback unless the loop has been cancelled.
// Stop and re-registration skip waiting for a loop that is delivering, so
// both may be called from inside the callback.
func (l *loop) deliver(fn func()) {
	l.delivering.Store(true)
	defer l.delivering.Store(false)
	if l.ctx.Err() != nil {
		return
	}
	fn()
}

// wait blocks until the loop has exited, unless it is inside a callback.
func (l *loop) wait() {
	if l.delivering.Load() {
		return
	}
	<-l.done
}

// loopGroup runs at most one goroutine per stream under a parent context.
type loopGroup struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	loops   map[stream]*loop
	stopped bool
}

func newLoopGroup(ctx context.Context) *loopGroup {
	ctx, cancel := context.WithCancel(ctx)
	return &loopGroup{ctx: ctx, cancel: cancel, loops: make(map[stream]*loop)}
}

// start replaces the loop for s. The previous loop has exited, or is
// finishing its last callback, before the new one starts. It is a no-op
// after stop.
func (g *loopGroup) start(s stream, run func(context.Context, *loop)) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	prev := g.loops[s]
	ctx, cancel := context.WithCancel(g.ctx)
	l := &loop{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	g.loops[s] = l
	g.mu.Unlock()

	if prev != nil {
		prev.cancel()
		prev.wait()
	}
	go func() {
		defer close(l.done)
		run(ctx, l)
	}()
}

// stop cancels every loop and waits for the ones not inside a callback.
// No callback starts after it returns. It reports whether this call did
// the stopping.
func (g *loopGroup) stop() bool {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return false
	}
	g.stopped = true
	g.cancel()
	loops := make([]*loop, 0, len(g.loops))
	for _, l := range g.loops {
		loops = append(loops, l)
	}
	g.mu.Unlock()

	for _, l := range loops {
		l.wait()
	}
	return true
}

// tick calls fn every period until ctx is done. With immediate set fn also
// runs once before the first tick. A slow fn drops ticks rather than
// queueing them.
func tick(ctx context.Context, period time.Duration, immediate bool, fn func()) {
	if immediate && ctx.Err() == nil {
		fn()
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			fn()
		}
	}
}
