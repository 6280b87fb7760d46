package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"racedash-sim/internal/telemetry"
)

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

func sessionNamed(track string) *telemetry.Session {
	s := &telemetry.Session{}
	s.WeekendInfo.TrackName = track
	return s
}

func waitFor[T any](t *testing.T, ch <-chan T, d time.Duration) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(d):
		var zero T
		t.Fatalf("timed out after %v", d)
		return zero
	}
}

func TestMockBridgeSessionsCycle(t *testing.T) {
	sessions := []*telemetry.Session{sessionNamed("a"), sessionNamed("b"), sessionNamed("c")}
	b := NewMockBridge(context.Background(), Options{
		SessionInterval: 5 * time.Millisecond,
		Dataset:         telemetry.Dataset{Sessions: sessions},
	})
	defer b.Stop()

	got := make(chan *telemetry.Session, 8)
	b.OnSessionData(func(s *telemetry.Session) {
		select {
		case got <- s:
		default:
		}
	})
	var seen []*telemetry.Session
	for range 4 {
		seen = append(seen, waitFor(t, got, time.Second))
	}
	for i, want := range []string{"a", "b", "c", "a"} {
		if seen[i].WeekendInfo.TrackName != want {
			t.Fatalf("delivery %d = %q, want %q", i, seen[i].WeekendInfo.TrackName, want)
		}
	}
	if seen[3] != seen[0] {
		t.Fatal("fourth delivery should be the first session again")
	}
}

func TestMockBridgeDefaultSessionImmediately(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{SessionInterval: time.Hour})
	defer b.Stop()
	got := make(chan *telemetry.Session, 1)
	b.OnSessionData(func(s *telemetry.Session) { got <- s })
	s := waitFor(t, got, 200*time.Millisecond)
	if s.WeekendInfo.TrackName != telemetry.DefaultSession().WeekendInfo.TrackName {
		t.Fatalf("unexpected session %q", s.WeekendInfo.TrackName)
	}
}

func TestMockBridgeRunningImmediately(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{RunningInterval: time.Hour})
	defer b.Stop()
	got := make(chan bool, 1)
	b.OnRunningState(func(r bool) { got <- r })
	if !waitFor(t, got, 200*time.Millisecond) {
		t.Fatal("mock engine must report running")
	}
}

func TestMockBridgeTelemetryRate(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{})
	var count, bad atomic.Int32
	b.OnTelemetry(func(s telemetry.Snapshot) {
		count.Add(1)
		ch, ok := s.Get(telemetry.ChannelABSActive)
		if !ok || ch.Type != telemetry.Bool || len(ch.Values) != 1 {
			bad.Add(1)
		}
	})
	time.Sleep(time.Second)
	b.Stop()

	if n := count.Load(); n < 40 || n > 65 {
		t.Fatalf("expected about 60 snapshots per second, got %d", n)
	}
	if bad.Load() != 0 {
		t.Fatalf("%d snapshots had a malformed %s", bad.Load(), telemetry.ChannelABSActive)
	}
}

func TestMockBridgeSyntheticDriver(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{
		TelemetryInterval: time.Millisecond,
		Rand:              fixedRand(0.99),
	})
	defer b.Stop()
	got := make(chan telemetry.Snapshot, 1)
	b.OnTelemetry(func(s telemetry.Snapshot) {
		select {
		case got <- s:
		default:
		}
	})
	s := waitFor(t, got, time.Second)
	if abs, _ := s.Bool(telemetry.ChannelABSActive); !abs {
		t.Fatal("heavy braking with a high draw should engage ABS")
	}
	if gear, _ := s.Int(telemetry.ChannelGear); gear != 3 {
		t.Fatalf("gear = %d, want 3", gear)
	}
	if !s.Has("CarIdxPosition") {
		t.Fatal("baseline channels should carry forward")
	}
}

func TestMockBridgeDatasetTelemetryCycles(t *testing.T) {
	first := telemetry.NewSnapshot(telemetry.NewChannel(telemetry.ChannelBrake, telemetry.Float, "%", 0.1))
	second := telemetry.NewSnapshot(telemetry.NewChannel(telemetry.ChannelBrake, telemetry.Float, "%", 0.9))
	b := NewMockBridge(context.Background(), Options{
		TelemetryInterval: time.Millisecond,
		Dataset:           telemetry.Dataset{Telemetry: []telemetry.Snapshot{first, second}},
	})
	defer b.Stop()

	got := make(chan telemetry.Snapshot, 16)
	b.OnTelemetry(func(s telemetry.Snapshot) {
		select {
		case got <- s:
		default:
		}
	})
	want := []telemetry.Snapshot{first, second, first}
	for i, w := range want {
		if s := waitFor(t, got, time.Second); !s.Equal(w) {
			t.Fatalf("delivery %d did not match the recorded snapshot", i)
		}
	}
}

func TestMockBridgeStopIsIdempotent(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{})
	b.Stop()
	b.Stop()

	var calls atomic.Int32
	b.OnRunningState(func(bool) { calls.Add(1) })
	b.OnTelemetry(func(telemetry.Snapshot) { calls.Add(1) })
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("registration after Stop must not deliver, got %d calls", calls.Load())
	}
}

func TestMockBridgeNoCallbacksAfterStop(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{
		TelemetryInterval: time.Millisecond,
		SessionInterval:   time.Millisecond,
		RunningInterval:   time.Millisecond,
	})
	var calls atomic.Int32
	b.OnTelemetry(func(telemetry.Snapshot) { calls.Add(1) })
	b.OnSessionData(func(*telemetry.Session) { calls.Add(1) })
	b.OnRunningState(func(bool) { calls.Add(1) })
	time.Sleep(20 * time.Millisecond)
	b.Stop()

	after := calls.Load()
	if after == 0 {
		t.Fatal("expected deliveries before Stop")
	}
	time.Sleep(20 * time.Millisecond)
	// Each stream may finish the one callback it was already running.
	if extra := calls.Load() - after; extra > 3 {
		t.Fatalf("callbacks ran after Stop returned: %d -> %d", after, calls.Load())
	}
}

func TestMockBridgeReregisterReplaces(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{TelemetryInterval: time.Millisecond})
	defer b.Stop()

	var first, second atomic.Int32
	b.OnTelemetry(func(telemetry.Snapshot) { first.Add(1) })
	time.Sleep(10 * time.Millisecond)
	b.OnTelemetry(func(telemetry.Snapshot) { second.Add(1) })

	frozen := first.Load()
	time.Sleep(20 * time.Millisecond)
	if first.Load() > frozen+1 {
		t.Fatal("replaced subscriber still receives snapshots")
	}
	if second.Load() == 0 {
		t.Fatal("new subscriber receives nothing")
	}
}

func TestMockBridgeContextCancelStopsLoops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := NewMockBridge(ctx, Options{TelemetryInterval: time.Millisecond})
	var calls atomic.Int32
	b.OnTelemetry(func(telemetry.Snapshot) { calls.Add(1) })
	time.Sleep(10 * time.Millisecond)
	cancel()
	time.Sleep(10 * time.Millisecond)
	frozen := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != frozen {
		t.Fatal("loops kept running after the context was cancelled")
	}
	b.Stop()
}

func TestMockBridgeStopFromCallback(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{TelemetryInterval: time.Millisecond})
	var calls atomic.Int32
	returned := make(chan struct{})
	b.OnTelemetry(func(telemetry.Snapshot) {
		if calls.Add(1) == 3 {
			b.Stop()
			close(returned)
		}
	})
	waitFor(t, returned, time.Second)

	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 3 {
		t.Fatalf("expected delivery to end at the stopping callback, got %d calls", n)
	}
	b.Stop()
}

func TestMockBridgeRunningStopFromCallback(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{TelemetryInterval: time.Millisecond})
	var tele atomic.Int32
	b.OnTelemetry(func(telemetry.Snapshot) { tele.Add(1) })
	returned := make(chan struct{})
	b.OnRunningState(func(bool) {
		b.Stop()
		close(returned)
	})
	waitFor(t, returned, time.Second)

	frozen := tele.Load()
	time.Sleep(20 * time.Millisecond)
	if tele.Load() > frozen+1 {
		t.Fatalf("telemetry kept flowing after Stop from another stream: %d -> %d", frozen, tele.Load())
	}
}

func TestMockBridgeReregisterFromCallback(t *testing.T) {
	b := NewMockBridge(context.Background(), Options{TelemetryInterval: time.Millisecond})
	defer b.Stop()

	var second atomic.Int32
	swapped := make(chan struct{})
	var once atomic.Bool
	b.OnTelemetry(func(telemetry.Snapshot) {
		if once.CompareAndSwap(false, true) {
			b.OnTelemetry(func(telemetry.Snapshot) { second.Add(1) })
			close(swapped)
		}
	})
	waitFor(t, swapped, time.Second)

	time.Sleep(20 * time.Millisecond)
	if second.Load() == 0 {
		t.Fatal("subscriber registered from a callback receives nothing")
	}
}
