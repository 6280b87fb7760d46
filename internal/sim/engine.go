package sim

import (
	"context"
	"math/rand"
	"time"

	"racedash-sim/internal/logging"
	"racedash-sim/internal/telemetry"
)

// MockBridge is the synthetic telemetry engine. Without a telemetry
// dataset it drives a simulated driver from the baseline snapshot; with
// one it cycles through the recorded snapshots. Sessions cycle through the
// session dataset or repeat the default session.
type MockBridge struct {
	opts  Options
	loops *loopGroup

	// Owned by whichever telemetry loop is live; handed over when a new
	// subscriber replaces the loop.
	gen      *telemetry.Generator
	teleIdx  int
	sessions []*telemetry.Session
}

// NewMockBridge creates an engine. Nothing runs until a callback is
// registered; cancelling ctx has the same effect as Stop except that Stop
// also waits.
func NewMockBridge(ctx context.Context, opts Options) *MockBridge {
	opts = opts.withDefaults()
	r := opts.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	sessions := opts.Dataset.Sessions
	if len(sessions) == 0 {
		sessions = []*telemetry.Session{telemetry.DefaultSession()}
	}
	return &MockBridge{
		opts:     opts,
		loops:    newLoopGroup(ctx),
		gen:      telemetry.NewGenerator(telemetry.Baseline(), r),
		sessions: sessions,
	}
}

// OnTelemetry delivers one snapshot per telemetry interval.
func (b *MockBridge) OnTelemetry(cb func(telemetry.Snapshot)) {
	b.loops.start(streamTelemetry, func(ctx context.Context, l *loop) {
		log := logging.FromContext(ctx)
		log.Debug("telemetry loop started", "interval", b.opts.TelemetryInterval)
		tick(ctx, b.opts.TelemetryInterval, false, func() {
			s := b.nextTelemetry()
			l.deliver(func() { cb(s) })
		})
		log.Debug("telemetry loop stopped")
	})
}

func (b *MockBridge) nextTelemetry() telemetry.Snapshot {
	if recorded := b.opts.Dataset.Telemetry; len(recorded) > 0 {
		s := recorded[b.teleIdx%len(recorded)]
		b.teleIdx = (b.teleIdx + 1) % len(recorded)
		return s
	}
	return b.gen.Next()
}

// OnSessionData delivers the current session immediately and then the
// next one every session interval.
func (b *MockBridge) OnSessionData(cb func(*telemetry.Session)) {
	b.loops.start(streamSession, func(ctx context.Context, l *loop) {
		idx := 0
		tick(ctx, b.opts.SessionInterval, true, func() {
			s := b.sessions[idx]
			idx = (idx + 1) % len(b.sessions)
			l.deliver(func() { cb(s) })
		})
	})
}

// OnRunningState reports true immediately and then every running
// interval.
func (b *MockBridge) OnRunningState(cb func(bool)) {
	b.loops.start(streamRunning, func(ctx context.Context, l *loop) {
		tick(ctx, b.opts.RunningInterval, true, func() {
			l.deliver(func() { cb(true) })
		})
	})
}

// Stop halts all streams and waits for them to exit. It is idempotent,
// safe to call before any registration and safe to call from a callback.
func (b *MockBridge) Stop() {
	b.loops.stop()
}
