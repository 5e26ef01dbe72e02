package sensor

import (
	"encoding/json"
	"fmt"
	"strings"

	"missionlink/codec"
)

const maxSubTypes = 6

// SnapshotSize is the length of the full configuration broadcast by the device.
var SnapshotSize = func() int {
	n := 0
	for _, t := range Types {
		n += 2 * t.SubTypes()
	}
	return n
}()

// RoundRate rounds a rate in milliseconds down to a multiple of 10.
func RoundRate(ms uint16) uint16 {
	return ms - ms%10
}

// Configuration maps every (sensor type, sub-type) pair to an update rate
// in milliseconds. A zero rate disables the stream. The zero value is a
// valid, fully disabled configuration.
type Configuration struct {
	rates [len(Types)][maxSubTypes]uint16
	dirty bool
}

// Rate returns the configured rate for sub-type s of sensor type t.
func (c *Configuration) Rate(t Type, s SubType) uint16 {
	if int(t) >= len(c.rates) || int(s) >= t.SubTypes() {
		return 0
	}
	return c.rates[t][s]
}

// Set assigns a rate, rounded down to a multiple of 10. Enabling one of the
// two raw pressure widths disables the other. It reports whether anything
// changed.
func (c *Configuration) Set(t Type, s SubType, ms uint16) bool {
	if int(t) >= len(c.rates) || int(s) >= t.SubTypes() {
		return false
	}
	ms = RoundRate(ms)
	if c.rates[t][s] == ms {
		return false
	}
	c.rates[t][s] = ms

	if t == Pressure && ms != 0 {
		switch s {
		case PressureSingleByte:
			c.rates[t][PressureDoubleByte] = 0
		case PressureDoubleByte:
			c.rates[t][PressureSingleByte] = 0
		}
	}
	c.dirty = true
	return true
}

// Dirty reports whether Set changed anything since the last ClearDirty.
func (c *Configuration) Dirty() bool { return c.dirty }

func (c *Configuration) ClearDirty() { c.dirty = false }

// IsZero reports whether every stream is disabled.
func (c *Configuration) IsZero() bool {
	return c.rates == [len(Types)][maxSubTypes]uint16{}
}

// Equal compares rates only.
func (c *Configuration) Equal(o *Configuration) bool {
	return c.rates == o.rates
}

// Clone returns a copy with the dirty flag cleared.
func (c *Configuration) Clone() Configuration {
	return Configuration{rates: c.rates}
}

// SerializeDelta encodes the rates that differ from reference, for the
// sensor types available on deviceType:
//
//	[typeId, payloadLen, (subTypeId, rateLE16)...]...
//
// Sensor types without changes are omitted.
func (c *Configuration) SerializeDelta(reference *Configuration, deviceType DeviceType) []byte {
	w := codec.NewWriter(2 * (2 + 3*maxSubTypes))
	for _, t := range deviceType.SensorTypes() {
		block := codec.NewWriter(3 * maxSubTypes)
		for i := 0; i < t.SubTypes(); i++ {
			rate := c.rates[t][i]
			if rate == reference.rates[t][i] {
				continue
			}
			block.Uint8(uint8(i))
			block.Uint16(rate)
		}
		if block.Len() == 0 {
			continue
		}
		w.Uint8(uint8(t))
		w.Uint8(uint8(block.Len()))
		w.Write(block.Bytes())
	}
	return w.Bytes()
}

// ApplyDelta merges a delta produced by SerializeDelta into c.
func (c *Configuration) ApplyDelta(b []byte) error {
	r := codec.NewReader(b)
	for r.Len() > 0 {
		rawType, err := r.Uint8()
		if err != nil {
			return err
		}
		t, err := ParseType(rawType)
		if err != nil {
			return err
		}
		size, err := r.Uint8()
		if err != nil {
			return err
		}
		block, err := r.Sub(int(size))
		if err != nil {
			return err
		}
		for block.Len() > 0 {
			rawSub, err := block.Uint8()
			if err != nil {
				return err
			}
			s, err := t.ParseSubType(rawSub)
			if err != nil {
				return err
			}
			rate, err := block.Uint16()
			if err != nil {
				return err
			}
			c.Set(t, s, rate)
		}
	}
	return nil
}

// ReadConfiguration decodes the full snapshot the device broadcasts: one
// u16 per declared sub-type of every sensor type, in canonical order.
func ReadConfiguration(r *codec.Reader) (Configuration, error) {
	var c Configuration
	for _, t := range Types {
		for i := 0; i < t.SubTypes(); i++ {
			rate, err := r.Uint16()
			if err != nil {
				return Configuration{}, fmt.Errorf("reading %s %s rate: %w", t, t.SubTypeName(SubType(i)), err)
			}
			c.rates[t][i] = rate
		}
	}
	return c, nil
}

// ParseConfiguration decodes a full configuration snapshot.
func ParseConfiguration(b []byte) (Configuration, error) {
	return ReadConfiguration(codec.NewReader(b))
}

// Snapshot encodes c in the full snapshot format.
func (c *Configuration) Snapshot() []byte {
	w := codec.NewWriter(SnapshotSize)
	for _, t := range Types {
		for i := 0; i < t.SubTypes(); i++ {
			w.Uint16(c.rates[t][i])
		}
	}
	return w.Bytes()
}

func (c Configuration) String() string {
	var parts []string
	for _, t := range Types {
		for i := 0; i < t.SubTypes(); i++ {
			if rate := c.rates[t][i]; rate != 0 {
				parts = append(parts, fmt.Sprintf("%s.%s=%dms", t, t.SubTypeName(SubType(i)), rate))
			}
		}
	}
	if len(parts) == 0 {
		return "disabled"
	}
	return strings.Join(parts, " ")
}

// MarshalJSON encodes the rates as {"motion": {"acceleration": 20, ...}, ...}.
func (c Configuration) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]uint16, len(Types))
	for _, t := range Types {
		rates := make(map[string]uint16, t.SubTypes())
		for i := 0; i < t.SubTypes(); i++ {
			rates[t.SubTypeName(SubType(i))] = c.rates[t][i]
		}
		out[t.String()] = rates
	}
	return json.Marshal(out)
}
