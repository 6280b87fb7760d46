// Recorded rows shared by sinks and replay
package telemetry

import "time"

// Frame is one recorded telemetry snapshot.
type Frame struct {
	RunID     string    `json:"run_id"`
	Seq       uint64    `json:"seq"`
	Telemetry Snapshot  `json:"telemetry"`
	Timestamp time.Time `json:"ts"`
}

// SessionFrame is one recorded session document.
type SessionFrame struct {
	RunID     string    `json:"run_id"`
	Seq       uint64    `json:"seq"`
	Session   *Session  `json:"session"`
	Timestamp time.Time `json:"ts"`
}

// Inputs is the flattened pedal/driver-aid view of a snapshot. Optional
// aids are nil when the snapshot does not carry them.
type Inputs struct {
	Brake      float64 `json:"brake"`
	Throttle   float64 `json:"throttle"`
	Clutch     float64 `json:"clutch"`
	Gear       int     `json:"gear"`
	Speed      float64 `json:"speed"`
	ABSActive  bool    `json:"absActive"`
	TCActive   *bool   `json:"tcActive,omitempty"`
	ABSSetting *int    `json:"absSetting,omitempty"`
	TCSetting  *int    `json:"tcSetting,omitempty"`
}

// InputsOf extracts the input view used by overlays and sinks.
func InputsOf(s Snapshot) Inputs {
	var in Inputs
	in.Brake, _ = s.Float(ChannelBrake)
	in.Throttle, _ = s.Float(ChannelThrottle)
	in.Clutch, _ = s.Float(ChannelClutch)
	in.Gear, _ = s.Int(ChannelGear)
	in.Speed, _ = s.Float(ChannelSpeed)
	in.ABSActive, _ = s.Bool(ChannelABSActive)
	if v, ok := s.Bool(ChannelTCToggle); ok {
		in.TCActive = &v
	}
	if v, ok := s.Int(ChannelABSSetting); ok {
		in.ABSSetting = &v
	}
	if v, ok := s.Int(ChannelTCSetting); ok {
		in.TCSetting = &v
	}
	return in
}
