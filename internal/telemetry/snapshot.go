package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Core channels every delivered snapshot carries.
const (
	ChannelBrake     = "Brake"
	ChannelThrottle  = "Throttle"
	ChannelClutch    = "Clutch"
	ChannelGear      = "Gear"
	ChannelSpeed     = "Speed"
	ChannelABSActive = "BrakeABSactive"
)

// Optional driver-aid channels. Absent means unknown, not zero.
const (
	ChannelTCToggle   = "dcTractionControlToggle"
	ChannelABSSetting = "dcABS"
	ChannelTCSetting  = "dcTractionControl"
)

// RequiredChannels lists the channels consumers depend on.
var RequiredChannels = []string{ChannelBrake, ChannelThrottle, ChannelGear, ChannelSpeed, ChannelABSActive}

// Snapshot is the complete instantaneous telemetry state: an ordered
// mapping from channel name to Channel. A Snapshot is a value; With returns
// a new snapshot and never touches the receiver.
type Snapshot struct {
	order []string
	vars  map[string]Channel
}

// NewSnapshot builds a snapshot from channels in the given order. A later
// channel with the same name replaces an earlier one in place.
func NewSnapshot(chs ...Channel) Snapshot {
	return Snapshot{}.With(chs...)
}

// Len reports the number of channels.
func (s Snapshot) Len() int { return len(s.order) }

// IsZero reports whether the snapshot has no channels.
func (s Snapshot) IsZero() bool { return len(s.order) == 0 }

// Names returns the channel names in insertion order.
func (s Snapshot) Names() []string { return slices.Clone(s.order) }

// Has reports whether the channel is present.
func (s Snapshot) Has(name string) bool {
	_, ok := s.vars[name]
	return ok
}

// Get looks up a channel by name.
func (s Snapshot) Get(name string) (Channel, bool) {
	ch, ok := s.vars[name]
	if !ok {
		return Channel{}, false
	}
	return ch.clone(), true
}

// At looks up a channel by its position in insertion order.
func (s Snapshot) At(i int) (Channel, bool) {
	if i < 0 || i >= len(s.order) {
		return Channel{}, false
	}
	return s.Get(s.order[i])
}

// Float returns the first value of a channel.
func (s Snapshot) Float(name string) (float64, bool) {
	ch, ok := s.vars[name]
	if !ok {
		return 0, false
	}
	return ch.Float(0)
}

// Bool returns the first value of a channel as a boolean.
func (s Snapshot) Bool(name string) (bool, bool) {
	ch, ok := s.vars[name]
	if !ok {
		return false, false
	}
	return ch.Bool(0)
}

// Int returns the first value of a channel as an integer.
func (s Snapshot) Int(name string) (int, bool) {
	ch, ok := s.vars[name]
	if !ok {
		return 0, false
	}
	return ch.Int(0)
}

// With returns a copy of s with the given channels set. Existing channels
// keep their position; new ones are appended.
func (s Snapshot) With(chs ...Channel) Snapshot {
	out := Snapshot{
		order: make([]string, len(s.order), len(s.order)+len(chs)),
		vars:  make(map[string]Channel, len(s.vars)+len(chs)),
	}
	copy(out.order, s.order)
	for k, v := range s.vars {
		out.vars[k] = v
	}
	for _, ch := range chs {
		if _, ok := out.vars[ch.Name]; !ok {
			out.order = append(out.order, ch.Name)
		}
		out.vars[ch.Name] = ch.clone()
	}
	return out
}

// Missing returns the required channels absent from s.
func (s Snapshot) Missing(required ...string) []string {
	var missing []string
	for _, name := range required {
		if !s.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// Equal reports whether both snapshots hold the same channels in the same
// order with equal values.
func (s Snapshot) Equal(o Snapshot) bool {
	if !slices.Equal(s.order, o.order) {
		return false
	}
	for _, name := range s.order {
		a, b := s.vars[name], o.vars[name]
		if a.Name != b.Name || a.Unit != b.Unit || a.Type != b.Type || a.Length != b.Length ||
			a.Description != b.Description || a.CountAsTime != b.CountAsTime ||
			!slices.Equal(a.Values, b.Values) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the snapshot as an object keyed by channel name,
// preserving insertion order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.vars[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by channel name, keeping the
// document order.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("snapshot: expected object, got %v", tok)
	}
	var chs []Channel
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("snapshot: expected key, got %v", tok)
		}
		var ch Channel
		if err := dec.Decode(&ch); err != nil {
			return fmt.Errorf("snapshot channel %s: %w", key, err)
		}
		ch.Name = key
		chs = append(chs, ch)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = NewSnapshot(chs...)
	return nil
}
