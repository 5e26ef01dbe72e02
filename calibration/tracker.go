// Package calibration tracks the IMU's per-axis calibration quality.
package calibration

import (
	"fmt"
	"strings"

	"missionlink/codec"
	"missionlink/observe"
)

// Status is the calibration quality of one axis.
type Status uint8

const (
	Unreliable Status = iota
	Low
	Medium
	High
)

var statusNames = [...]string{"unreliable", "low", "medium", "high"}

// ParseStatus maps a wire byte to a Status.
func ParseStatus(v uint8) (Status, error) {
	if int(v) >= len(statusNames) {
		return 0, codec.UnknownValue("calibration status", v)
	}
	return Status(v), nil
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Axis is a calibrated IMU component.
type Axis uint8

const (
	Accelerometer Axis = iota
	Gyroscope
	Magnetometer
	Quaternion

	numAxes
)

var axisNames = [numAxes]string{"accelerometer", "gyroscope", "magnetometer", "quaternion"}

func (a Axis) String() string {
	if a < numAxes {
		return axisNames[a]
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

// Statuses holds one Status per Axis, indexed by Axis.
type Statuses [numAxes]Status

// FullyCalibrated reports whether every axis is High.
func (s Statuses) FullyCalibrated() bool {
	for _, v := range s {
		if v != High {
			return false
		}
	}
	return true
}

func (s Statuses) String() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = Axis(i).String() + "=" + v.String()
	}
	return strings.Join(parts, " ")
}

// Tracker holds the latest calibration message.
type Tracker struct {
	Statuses        observe.Value[Statuses]
	FullyCalibrated observe.Value[bool]
	// Calibrated fires once for every false to true transition of
	// FullyCalibrated.
	Calibrated observe.Event[Statuses]
}

// Parse reads one status byte per axis. On error the tracker is left
// unchanged.
func (t *Tracker) Parse(b []byte) error {
	r := codec.NewReader(b)
	var next Statuses
	for i := range next {
		raw, err := r.Uint8()
		if err != nil {
			return fmt.Errorf("reading %s calibration: %w", Axis(i), err)
		}
		s, err := ParseStatus(raw)
		if err != nil {
			return err
		}
		next[i] = s
	}

	was := t.FullyCalibrated.Get()
	now := next.FullyCalibrated()

	t.Statuses.Set(next)
	if now != was {
		t.FullyCalibrated.Set(now)
		if now {
			t.Calibrated.Emit(next)
		}
	}
	return nil
}

// Reset returns every axis to Unreliable without notifying.
func (t *Tracker) Reset() {
	t.Statuses.Reset()
	t.FullyCalibrated.Reset()
}
