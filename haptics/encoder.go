// Package haptics encodes vibration commands for the mission's DRV2605
// haptic driver.
package haptics

import (
	"fmt"
	"math"
	"strings"
	"time"

	"missionlink/codec"
)

// Kind selects how the device interprets a vibration sequence.
type Kind uint8

const (
	WaveformEffect Kind = 1
	Waveform       Kind = 2
)

const (
	// MaxEffects is the sequencer depth of the driver.
	MaxEffects = 8
	// MaxSegments bounds a waveform command.
	MaxSegments = 20

	maxAmplitude = 126
	delayUnit    = 10 * time.Millisecond
	// The delay travels as one byte of 10ms units, so 2550ms is the
	// longest a segment can hold.
	maxDelay = 255 * delayUnit
)

func (e Effect) String() string {
	if e >= 1 && e <= maxEffect {
		return effectNames[e-1]
	}
	return fmt.Sprintf("Effect(%d)", uint8(e))
}

// LookupEffect finds an effect by its camel-case name, ignoring case.
func LookupEffect(name string) (Effect, bool) {
	for i, n := range effectNames {
		if strings.EqualFold(n, name) {
			return Effect(i + 1), true
		}
	}
	return 0, false
}

// Segment is one step of a free-form waveform.
type Segment struct {
	// Amplitude in [0,1].
	Amplitude float64
	Delay     time.Duration
}

// EncodeEffects builds a waveform-effect command. Effects past MaxEffects
// are dropped.
func EncodeEffects(effects ...Effect) ([]byte, error) {
	if len(effects) > MaxEffects {
		effects = effects[:MaxEffects]
	}
	w := codec.NewWriter(1 + len(effects))
	w.Uint8(uint8(WaveformEffect))
	for _, e := range effects {
		if e < 1 || e > maxEffect {
			return nil, codec.UnknownValue("waveform effect", uint8(e))
		}
		w.Uint8(uint8(e))
	}
	return w.Bytes(), nil
}

// EncodeWaveform builds a waveform command. Segments past MaxSegments are
// dropped; amplitudes and delays are clamped to what the driver accepts.
func EncodeWaveform(segments ...Segment) []byte {
	if len(segments) > MaxSegments {
		segments = segments[:MaxSegments]
	}
	w := codec.NewWriter(1 + 2*len(segments))
	w.Uint8(uint8(Waveform))
	for _, s := range segments {
		amp := math.Max(0, math.Min(1, s.Amplitude))
		w.Uint8(uint8(math.Round(amp * maxAmplitude)))

		delay := s.Delay
		if delay < 0 {
			delay = 0
		} else if delay > maxDelay {
			delay = maxDelay
		}
		w.Uint8(uint8(delay / delayUnit))
	}
	return w.Bytes()
}
