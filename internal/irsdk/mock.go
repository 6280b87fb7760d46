package irsdk

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"racedash-sim/internal/logging"
	"racedash-sim/internal/telemetry"
)

// DefaultTickInterval is how often the mock advances its driver state.
const DefaultTickInterval = time.Second / 60

// MockSDK emulates the native SDK from a Loader. Data loads once in the
// background; until it has loaded, and until StartSDK is called, the mock
// reports not running. Each instance owns its own driver state.
type MockSDK struct {
	log   *slog.Logger
	clock func() time.Time
	tick  time.Duration

	started atomic.Bool
	ready   chan struct{}

	mu       sync.Mutex
	rand     telemetry.Rand
	loaded   bool
	session  string
	baseline telemetry.Snapshot
	state    telemetry.DriverState
	current  telemetry.Snapshot
	stepped  time.Time
	version  int
}

// Option configures a MockSDK.
type Option func(*MockSDK)

// WithRand sets the randomness source. It is only used under the mock's
// lock.
func WithRand(r telemetry.Rand) Option {
	return func(m *MockSDK) { m.rand = r }
}

// WithClock sets the time source used to pace driver state updates.
func WithClock(now func() time.Time) Option {
	return func(m *MockSDK) { m.clock = now }
}

// WithTickInterval sets the minimum time between driver state updates.
// Zero advances on every TelemetryData call.
func WithTickInterval(d time.Duration) Option {
	return func(m *MockSDK) { m.tick = d }
}

// WithLogger overrides the logger taken from the constructor's context.
func WithLogger(l *slog.Logger) Option {
	return func(m *MockSDK) { m.log = l }
}

// NewMockSDK returns a mock and starts loading its data. It never fails;
// a load error is logged and leaves the mock permanently not ready.
func NewMockSDK(ctx context.Context, loader Loader, opts ...Option) *MockSDK {
	m := &MockSDK{
		log:   logging.FromContext(ctx),
		clock: time.Now,
		tick:  DefaultTickInterval,
		ready: make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	if m.rand == nil {
		m.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	go m.load(ctx, loader)
	return m
}

func (m *MockSDK) load(ctx context.Context, loader Loader) {
	defer close(m.ready)

	var (
		session string
		snap    telemetry.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := loader.LoadSession(gctx)
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		session = s
		return nil
	})
	g.Go(func() error {
		t, err := loader.LoadTelemetry(gctx)
		if err != nil {
			return fmt.Errorf("load telemetry: %w", err)
		}
		snap = t
		return nil
	})
	if err := g.Wait(); err != nil {
		m.log.Error("mock sdk data unavailable", "error", err)
		return
	}

	m.mu.Lock()
	m.session = session
	m.baseline = snap
	m.loaded = true
	m.mu.Unlock()
	m.log.Debug("mock sdk data loaded", "channels", snap.Len())
}

// Ready is closed once the background load has finished, whether or not
// it succeeded.
func (m *MockSDK) Ready() <-chan struct{} { return m.ready }

func (m *MockSDK) StartSDK() bool {
	m.started.Store(true)
	return true
}

func (m *MockSDK) StopSDK() {
	m.started.Store(false)
}

// IsRunning reports whether the SDK was started and its data has loaded.
func (m *MockSDK) IsRunning() bool {
	if !m.started.Load() {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loaded
}

// WaitForData returns immediately with the started flag.
func (m *MockSDK) WaitForData(time.Duration) bool {
	return m.started.Load()
}

// SessionData returns the loaded session YAML, or "" before load.
func (m *MockSDK) SessionData() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// TelemetryData returns the baseline with the driver aids overlaid. The
// driver state advances at most once per tick interval; calls within the
// same interval see the same snapshot.
func (m *MockSDK) TelemetryData() telemetry.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.loaded {
		return telemetry.Snapshot{}
	}
	now := m.clock()
	if m.current.IsZero() || now.Sub(m.stepped) >= m.tick {
		brake, _ := m.baseline.Float(telemetry.ChannelBrake)
		throttle, _ := m.baseline.Float(telemetry.ChannelThrottle)
		m.state = m.state.Activate(brake, throttle, m.rand)
		m.current = telemetry.Overlay(m.baseline, m.state)
		m.stepped = now
		m.version++
	}
	return m.current
}

// TelemetryVariable looks a channel up by name.
func (m *MockSDK) TelemetryVariable(name string) (telemetry.Channel, bool) {
	return m.TelemetryData().Get(name)
}

// TelemetryVariableAt looks a channel up by its position in the snapshot.
func (m *MockSDK) TelemetryVariableAt(index int) (telemetry.Channel, bool) {
	return m.TelemetryData().At(index)
}

// Broadcast only logs the command.
func (m *MockSDK) Broadcast(cmd Command) {
	m.log.Info("pretending to trigger SDK call", "msg", cmd.Msg.String(), "args", cmd.Args())
}

// DataVersion counts driver state updates.
func (m *MockSDK) DataVersion() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}
