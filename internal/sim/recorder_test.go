package sim

import (
	"context"
	"testing"
	"time"

	"racedash-sim/internal/telemetry"
)

// manualBridge hands its callbacks to the test instead of running loops.
type manualBridge struct {
	tele    func(telemetry.Snapshot)
	session func(*telemetry.Session)
	running func(bool)
	stopped int
	// attached is closed once the last stream is registered, if set.
	attached chan struct{}
}

func (b *manualBridge) OnTelemetry(cb func(telemetry.Snapshot))   { b.tele = cb }
func (b *manualBridge) OnSessionData(cb func(*telemetry.Session)) { b.session = cb }
func (b *manualBridge) Stop()                                     { b.stopped++ }

func (b *manualBridge) OnRunningState(cb func(bool)) {
	b.running = cb
	if b.attached != nil {
		close(b.attached)
	}
}

func TestRecorderBatchesFrames(t *testing.T) {
	w := &recordingWriter{}
	r := NewRecorder(w, 3)
	r.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	b := &manualBridge{}
	r.Attach(context.Background(), b)

	for range 4 {
		b.tele(telemetry.Baseline())
	}
	if w.batches != 1 || w.frames != 3 {
		t.Fatalf("expected one flushed batch of 3, got %d/%d", w.batches, w.frames)
	}
	r.Flush(context.Background())
	if w.batches != 2 || w.frames != 4 {
		t.Fatalf("flush should write the remainder, got %d/%d", w.batches, w.frames)
	}

	st := r.Status()
	if st.Frames != 4 || st.RunID != r.RunID() || st.RunID == "" {
		t.Fatalf("unexpected status %+v", st)
	}
	snap, at := r.Telemetry()
	if snap.IsZero() || at.IsZero() {
		t.Fatal("latest snapshot not kept")
	}
}

func TestRecorderSessionAndRunning(t *testing.T) {
	w := &recordingWriter{}
	r := NewRecorder(w, 0)
	b := &manualBridge{}
	r.Attach(context.Background(), b)

	b.session(telemetry.DefaultSession())
	if w.sessions != 1 || r.Session() == nil {
		t.Fatalf("session not recorded")
	}
	if st := r.Status(); st.Track == "" || st.Sessions != 1 {
		t.Fatalf("unexpected status %+v", st)
	}

	b.running(true)
	b.running(true)
	b.running(false)
	if len(w.running) != 2 || !w.running[0] || w.running[1] {
		t.Fatalf("running changes should be forwarded once each, got %v", w.running)
	}
	if r.Running() {
		t.Fatal("Running should report the last value")
	}
}

func TestRecorderPlainWriter(t *testing.T) {
	w := &collectWriter{}
	r := NewRecorder(w, 2)
	b := &manualBridge{}
	r.Attach(context.Background(), b)
	b.session(telemetry.DefaultSession())
	b.tele(telemetry.Baseline())
	b.tele(telemetry.Baseline())
	if len(w.frames) != 2 || w.frames[0].Seq != 1 || w.frames[1].Seq != 2 {
		t.Fatalf("frames not written in order: %+v", w.frames)
	}
}

func TestRecorderRunStopsBridge(t *testing.T) {
	w := &recordingWriter{}
	r := NewRecorder(w, 100)
	b := &manualBridge{attached: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, b)
		close(done)
	}()
	<-b.attached
	cancel()
	<-done
	if b.stopped != 1 {
		t.Fatalf("bridge stopped %d times", b.stopped)
	}
}
