package telemetry

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
)

// VarType is the scalar kind of a telemetry channel. The numbering matches
// the native SDK variable header.
type VarType int

const (
	Char VarType = iota
	Bool
	Int
	BitField
	Float
	Double
)

func (t VarType) String() string {
	switch t {
	case Char:
		return "char"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case BitField:
		return "bitfield"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return fmt.Sprintf("VarType(%d)", int(t))
	}
}

// Channel is one named measurement captured into a snapshot. Values holds
// Length scalars; booleans are stored as 0/1 and integers as whole numbers.
// A Channel is treated as immutable once it is part of a Snapshot.
type Channel struct {
	Name        string
	Description string
	Unit        string
	CountAsTime bool
	Length      int
	Type        VarType
	Values      []float64
}

// NewChannel defines a channel with the given values. Length is taken from
// the number of values.
func NewChannel(name string, typ VarType, unit string, values ...float64) Channel {
	return Channel{
		Name:   name,
		Unit:   unit,
		Length: len(values),
		Type:   typ,
		Values: slices.Clone(values),
	}
}

// WithValues returns a copy of c carrying new values. The definition
// (name, unit, type) is kept.
func (c Channel) WithValues(values ...float64) Channel {
	c.Values = slices.Clone(values)
	if c.Length < len(values) {
		c.Length = len(values)
	}
	return c
}

// WithBool is WithValues for a single boolean sample.
func (c Channel) WithBool(v bool) Channel {
	return c.WithValues(boolValue(v))
}

// Float returns the i-th value as a float.
func (c Channel) Float(i int) (float64, bool) {
	if i < 0 || i >= len(c.Values) {
		return 0, false
	}
	return c.Values[i], true
}

// Int returns the i-th value truncated to an integer.
func (c Channel) Int(i int) (int, bool) {
	v, ok := c.Float(i)
	return int(v), ok
}

// Bool returns the i-th value as a boolean (non-zero is true).
func (c Channel) Bool(i int) (bool, bool) {
	v, ok := c.Float(i)
	return v != 0, ok
}

func (c Channel) clone() Channel {
	c.Values = slices.Clone(c.Values)
	return c
}

func boolValue(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// channelJSON mirrors the variable layout the native SDK bindings emit.
type channelJSON struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Unit        string            `json:"unit"`
	CountAsTime bool              `json:"countAsTime"`
	Length      int               `json:"length"`
	VarType     VarType           `json:"varType"`
	Value       []json.RawMessage `json:"value"`
}

// MarshalJSON writes booleans as JSON booleans and integer kinds without a
// fractional part.
func (c Channel) MarshalJSON() ([]byte, error) {
	out := channelJSON{
		Name:        c.Name,
		Description: c.Description,
		Unit:        c.Unit,
		CountAsTime: c.CountAsTime,
		Length:      c.Length,
		VarType:     c.Type,
		Value:       make([]json.RawMessage, 0, len(c.Values)),
	}
	for _, v := range c.Values {
		var raw []byte
		var err error
		switch c.Type {
		case Bool:
			raw, err = json.Marshal(v != 0)
		case Int, BitField, Char:
			raw, err = json.Marshal(int64(v))
		default:
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("channel %s: value %v is not representable", c.Name, v)
			}
			raw, err = json.Marshal(v)
		}
		if err != nil {
			return nil, err
		}
		out.Value = append(out.Value, raw)
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts booleans and numbers in the value array.
func (c *Channel) UnmarshalJSON(b []byte) error {
	var in channelJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	values := make([]float64, 0, len(in.Value))
	for i, raw := range in.Value {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("channel %s value %d: %w", in.Name, i, err)
		}
		switch x := v.(type) {
		case bool:
			values = append(values, boolValue(x))
		case float64:
			values = append(values, x)
		default:
			return fmt.Errorf("channel %s value %d: unsupported %T", in.Name, i, v)
		}
	}
	length := in.Length
	if length == 0 {
		length = len(values)
	}
	*c = Channel{
		Name:        in.Name,
		Description: in.Description,
		Unit:        in.Unit,
		CountAsTime: in.CountAsTime,
		Length:      length,
		Type:        in.VarType,
		Values:      values,
	}
	return nil
}
