package sim

import (
	"context"

	"racedash-sim/internal/irsdk"
	"racedash-sim/internal/logging"
	"racedash-sim/internal/telemetry"
)

// SDKBridge turns a pull-style SDK into the push contract. Telemetry is
// polled every telemetry interval and only delivered while the SDK is
// running; a session is delivered whenever its YAML text changes.
type SDKBridge struct {
	sdk   irsdk.SDK
	opts  Options
	loops *loopGroup
}

// NewSDKBridge starts the SDK and returns a bridge over it.
func NewSDKBridge(ctx context.Context, sdk irsdk.SDK, opts Options) *SDKBridge {
	sdk.StartSDK()
	return &SDKBridge{
		sdk:   sdk,
		opts:  opts.withDefaults(),
		loops: newLoopGroup(ctx),
	}
}

func (b *SDKBridge) OnTelemetry(cb func(telemetry.Snapshot)) {
	b.loops.start(streamTelemetry, func(ctx context.Context, l *loop) {
		tick(ctx, b.opts.TelemetryInterval, false, func() {
			if !b.sdk.WaitForData(b.opts.TelemetryInterval) || !b.sdk.IsRunning() {
				return
			}
			if snap := b.sdk.TelemetryData(); !snap.IsZero() {
				l.deliver(func() { cb(snap) })
			}
		})
	})
}

func (b *SDKBridge) OnSessionData(cb func(*telemetry.Session)) {
	b.loops.start(streamSession, func(ctx context.Context, l *loop) {
		log := logging.FromContext(ctx)
		var last string
		tick(ctx, b.opts.SessionInterval, true, func() {
			text := b.sdk.SessionData()
			if text == "" || text == last {
				return
			}
			sess, err := telemetry.ParseSession([]byte(text))
			if err != nil {
				log.Warn("skipping unreadable session data", "err", err)
				return
			}
			last = text
			l.deliver(func() { cb(sess) })
		})
	})
}

func (b *SDKBridge) OnRunningState(cb func(bool)) {
	b.loops.start(streamRunning, func(ctx context.Context, l *loop) {
		tick(ctx, b.opts.RunningInterval, true, func() {
			running := b.sdk.IsRunning()
			l.deliver(func() { cb(running) })
		})
	})
}

// Stop halts all streams, then stops the SDK. Only the first call has any
// effect.
func (b *SDKBridge) Stop() {
	if b.loops.stop() {
		b.sdk.StopSDK()
	}
}
