package irsdk

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"racedash-sim/internal/logging"
	"racedash-sim/internal/telemetry"
)

type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

// gatedLoader blocks both loads until gate is closed.
type gatedLoader struct {
	gate chan struct{}
	err  error
}

func (l gatedLoader) LoadSession(ctx context.Context) (string, error) {
	select {
	case <-l.gate:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if l.err != nil {
		return "", l.err
	}
	return telemetry.DefaultSessionYAML(), nil
}

func (l gatedLoader) LoadTelemetry(ctx context.Context) (telemetry.Snapshot, error) {
	select {
	case <-l.gate:
	case <-ctx.Done():
		return telemetry.Snapshot{}, ctx.Err()
	}
	return telemetry.Baseline(), nil
}

func waitReady(t *testing.T, m *MockSDK) {
	t.Helper()
	select {
	case <-m.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("mock sdk never finished loading")
	}
}

func TestIsRunningStartBeforeLoad(t *testing.T) {
	gate := make(chan struct{})
	m := NewMockSDK(context.Background(), gatedLoader{gate: gate}, WithLogger(logging.Discard()))

	if !m.StartSDK() {
		t.Fatal("StartSDK should report success")
	}
	if m.IsRunning() {
		t.Fatal("must not be running before data loads")
	}
	if !m.WaitForData(time.Millisecond) {
		t.Fatal("WaitForData should report the started flag")
	}
	if got := m.TelemetryData(); !got.IsZero() {
		t.Fatalf("expected empty telemetry before load, got %v", got.Names())
	}
	if m.SessionData() != "" {
		t.Fatal("expected empty session before load")
	}

	close(gate)
	waitReady(t, m)
	if !m.IsRunning() {
		t.Fatal("expected running once data loaded")
	}
}

func TestIsRunningLoadBeforeStart(t *testing.T) {
	m := NewMockSDK(context.Background(), BaselineLoader{}, WithLogger(logging.Discard()))
	waitReady(t, m)

	if m.IsRunning() {
		t.Fatal("must not be running before StartSDK")
	}
	if m.WaitForData(0) {
		t.Fatal("WaitForData should be false before StartSDK")
	}
	m.StartSDK()
	if !m.IsRunning() {
		t.Fatal("expected running after StartSDK")
	}
	m.StopSDK()
	if m.IsRunning() {
		t.Fatal("expected not running after StopSDK")
	}
	if m.SessionData() == "" {
		t.Fatal("StopSDK must not drop loaded data")
	}
}

func TestLoadFailureKeepsMockNotReady(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	gate := make(chan struct{})
	close(gate)
	m := NewMockSDK(context.Background(), gatedLoader{gate: gate, err: errors.New("disk gone")}, WithLogger(log))
	waitReady(t, m)
	m.StartSDK()

	if m.IsRunning() {
		t.Fatal("failed load must keep the mock not running")
	}
	if m.SessionData() != "" || !m.TelemetryData().IsZero() {
		t.Fatal("failed load must not publish partial data")
	}
	if !strings.Contains(buf.String(), "disk gone") {
		t.Fatalf("expected load error to be logged, got %q", buf.String())
	}
}

func TestDirLoaderMissingFiles(t *testing.T) {
	m := NewMockSDK(context.Background(), DirLoader{Dir: t.TempDir()}, WithLogger(logging.Discard()))
	waitReady(t, m)
	m.StartSDK()
	if m.IsRunning() {
		t.Fatal("empty dataset directory must keep the mock not running")
	}
}

func TestTelemetryDataOverlaysDriverAids(t *testing.T) {
	m := NewMockSDK(context.Background(), BaselineLoader{},
		WithRand(fixedRand(0.99)), WithLogger(logging.Discard()))
	waitReady(t, m)

	snap := m.TelemetryData()
	if abs, _ := snap.Bool(telemetry.ChannelABSActive); !abs {
		t.Error("hard baseline braking with a high draw should engage ABS")
	}
	if tc, _ := snap.Bool(telemetry.ChannelTCToggle); tc {
		t.Error("light baseline throttle should keep TC off")
	}
	if lvl, _ := snap.Int(telemetry.ChannelABSSetting); lvl != 3 {
		t.Errorf("dcABS=%d, want 3", lvl)
	}
	if lvl, _ := snap.Int(telemetry.ChannelTCSetting); lvl != 3 {
		t.Errorf("dcTractionControl=%d, want 3", lvl)
	}
	if brake, _ := snap.Float(telemetry.ChannelBrake); brake != 0.78 {
		t.Errorf("pedals must not be jittered, brake=%v", brake)
	}
	if !slices.Equal(snap.Names(), telemetry.Baseline().Names()) {
		t.Error("overlay must keep the baseline channel order")
	}
}

func TestTelemetryDataAdvancesOncePerTick(t *testing.T) {
	var mu sync.Mutex
	now := time.Unix(1000, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	m := NewMockSDK(context.Background(), BaselineLoader{},
		WithClock(clock), WithRand(fixedRand(0.5)), WithLogger(logging.Discard()))
	waitReady(t, m)

	m.TelemetryData()
	m.TelemetryVariable(telemetry.ChannelGear)
	m.TelemetryVariableAt(0)
	if v := m.DataVersion(); v != 1 {
		t.Fatalf("DataVersion=%d after reads within one tick, want 1", v)
	}

	mu.Lock()
	now = now.Add(DefaultTickInterval)
	mu.Unlock()
	m.TelemetryData()
	if v := m.DataVersion(); v != 2 {
		t.Fatalf("DataVersion=%d after one tick, want 2", v)
	}
}

func TestTelemetryVariableLookup(t *testing.T) {
	m := NewMockSDK(context.Background(), BaselineLoader{}, WithLogger(logging.Discard()))
	waitReady(t, m)

	if gear, ok := m.TelemetryVariable(telemetry.ChannelGear); !ok || gear.Values[0] != 3 {
		t.Errorf("Gear lookup=%+v,%v", gear, ok)
	}
	if _, ok := m.TelemetryVariable("NoSuchChannel"); ok {
		t.Error("unknown name should be absent")
	}
	first, ok := m.TelemetryVariableAt(0)
	if !ok || first.Name != telemetry.Baseline().Names()[0] {
		t.Errorf("index 0 = %q,%v", first.Name, ok)
	}
	if _, ok := m.TelemetryVariableAt(telemetry.Baseline().Len()); ok {
		t.Error("out of range index should be absent")
	}
}

func TestBroadcastLogsCommand(t *testing.T) {
	var buf bytes.Buffer
	m := NewMockSDK(context.Background(), BaselineLoader{},
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	waitReady(t, m)

	m.Broadcast(Pit(PitFuel, 40))
	out := buf.String()
	if !strings.Contains(out, "pretending to trigger SDK call") || !strings.Contains(out, "PitCommand") {
		t.Fatalf("unexpected log output: %q", out)
	}
}

func TestMockLogsToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.NewContext(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))
	m := NewMockSDK(ctx, BaselineLoader{})
	waitReady(t, m)

	m.Broadcast(Telem(TelemRestart))
	if !strings.Contains(buf.String(), "pretending to trigger SDK call") {
		t.Fatalf("broadcast not logged through the context logger: %q", buf.String())
	}
}

func TestMockInstancesAreIndependent(t *testing.T) {
	a := NewMockSDK(context.Background(), BaselineLoader{}, WithRand(fixedRand(0.99)), WithLogger(logging.Discard()))
	b := NewMockSDK(context.Background(), BaselineLoader{}, WithRand(fixedRand(0.1)), WithLogger(logging.Discard()))
	waitReady(t, a)
	waitReady(t, b)

	if abs, _ := a.TelemetryData().Bool(telemetry.ChannelABSActive); !abs {
		t.Fatal("expected ABS active on a")
	}
	if abs, _ := b.TelemetryData().Bool(telemetry.ChannelABSActive); abs {
		t.Fatal("state leaked from a into b")
	}
}

func TestOpenPrefersNative(t *testing.T) {
	native := NewMockSDK(context.Background(), BaselineLoader{}, WithLogger(logging.Discard()))
	if got := Open(context.Background(), native, BaselineLoader{}); got != SDK(native) {
		t.Fatal("Open should return the native SDK when available")
	}
	ctx := logging.NewContext(context.Background(), logging.Discard())
	if _, ok := Open(ctx, nil, BaselineLoader{}).(*MockSDK); !ok {
		t.Fatal("Open should fall back to the mock SDK")
	}
}
