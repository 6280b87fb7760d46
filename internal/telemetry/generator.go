package telemetry

// Rand is the randomness source of the driver simulation. It returns a
// uniform float in [0,1); *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// DriverState is the mutable state behind synthetic snapshots. It is owned
// by exactly one engine and only ever observed through derived snapshots.
type DriverState struct {
	ABSActive  bool
	TCActive   bool
	ABSSetting int
	TCSetting  int
}

const (
	absEngageBrake    = 0.7
	absEngageDraw     = 0.7
	absReleaseBrake   = 0.3
	tcEngageThrottle  = 0.8
	tcEngageDraw      = 0.6
	tcReleaseThrottle = 0.4
	settingDriftDraw  = 0.95
	settingLevels     = 4
	pedalJitter       = 0.05
	demoGear          = 3
	demoSpeed         = 44.0
)

// Activate applies the ABS/TC activation rules and the settings drift for
// one tick. Inside the hysteresis bands the previous flags are kept.
//
// Draw order: ABS, TC, ABS drift (plus a level draw when it fires), TC drift
// (plus a level draw when it fires).
func (st DriverState) Activate(brake, throttle float64, r Rand) DriverState {
	absDraw := r.Float64()
	switch {
	case brake > absEngageBrake && absDraw > absEngageDraw:
		st.ABSActive = true
	case brake < absReleaseBrake:
		st.ABSActive = false
	}

	tcDraw := r.Float64()
	switch {
	case throttle > tcEngageThrottle && tcDraw > tcEngageDraw:
		st.TCActive = true
	case throttle < tcReleaseThrottle:
		st.TCActive = false
	}

	st.ABSSetting = driftSetting(st.ABSSetting, r)
	st.TCSetting = driftSetting(st.TCSetting, r)
	return st
}

// driftSetting resamples a level from {0,1,2,3} with probability 0.05.
func driftSetting(level int, r Rand) int {
	if r.Float64() <= settingDriftDraw {
		return level
	}
	return min(int(r.Float64()*settingLevels), settingLevels-1)
}

// jitter nudges a pedal value by up to ±0.05 and clamps it to [0,1].
func jitter(v float64, r Rand) float64 {
	v += r.Float64()*2*pedalJitter - pedalJitter
	return max(0, min(1, v))
}

// Overlay writes the driver state into a snapshot: BrakeABSactive always,
// the TC toggle and ABS/TC level channels only when base already defines
// them.
func Overlay(base Snapshot, st DriverState) Snapshot {
	chs := []Channel{channelOf(base, ChannelABSActive, Bool, "").WithBool(st.ABSActive)}
	if ch, ok := base.Get(ChannelTCToggle); ok {
		chs = append(chs, ch.WithBool(st.TCActive))
	}
	if ch, ok := base.Get(ChannelABSSetting); ok {
		chs = append(chs, ch.WithValues(float64(st.ABSSetting)))
	}
	if ch, ok := base.Get(ChannelTCSetting); ok {
		chs = append(chs, ch.WithValues(float64(st.TCSetting)))
	}
	return base.With(chs...)
}

// Step derives the next synthetic snapshot from prev. Brake and Throttle
// are jittered, Gear and Speed pinned, driver aids overlaid; every other
// channel carries forward. prev is left untouched.
func Step(prev Snapshot, st DriverState, r Rand) (Snapshot, DriverState) {
	brake, _ := prev.Float(ChannelBrake)
	throttle, _ := prev.Float(ChannelThrottle)

	st = st.Activate(brake, throttle, r)

	next := prev.With(
		channelOf(prev, ChannelBrake, Float, "%").WithValues(jitter(brake, r)),
		channelOf(prev, ChannelThrottle, Float, "%").WithValues(jitter(throttle, r)),
		channelOf(prev, ChannelGear, Int, "").WithValues(demoGear),
		channelOf(prev, ChannelSpeed, Float, "m/s").WithValues(demoSpeed),
	)
	return Overlay(next, st), st
}

func channelOf(s Snapshot, name string, typ VarType, unit string) Channel {
	if ch, ok := s.Get(name); ok {
		return ch
	}
	return Channel{Name: name, Unit: unit, Length: 1, Type: typ}
}

// Generator produces a stream of synthetic snapshots, one per Next call.
type Generator struct {
	state DriverState
	prev  Snapshot
	rand  Rand
}

// NewGenerator starts a generator from a baseline snapshot.
func NewGenerator(baseline Snapshot, r Rand) *Generator {
	return &Generator{prev: baseline, rand: r}
}

// Next advances the simulation by one tick.
func (g *Generator) Next() Snapshot {
	g.prev, g.state = Step(g.prev, g.state, g.rand)
	return g.prev
}

// State returns the current driver state.
func (g *Generator) State() DriverState {
	return g.state
}
