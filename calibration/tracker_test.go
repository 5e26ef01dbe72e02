package calibration

import (
	"errors"
	"testing"

	"github.com/matryer/is"

	"missionlink/codec"
)

func TestFullyCalibratedFiresOnce(t *testing.T) {
	is := is.New(t)

	var tr Tracker
	fired := 0
	tr.Calibrated.Subscribe(func(Statuses) { fired++ })

	is.NoErr(tr.Parse([]byte{3, 3, 3, 3}))
	is.NoErr(tr.Parse([]byte{3, 3, 3, 3}))

	is.True(tr.FullyCalibrated.Get())
	is.Equal(fired, 1)
	is.Equal(tr.Statuses.Version(), uint64(2))
}

func TestPartialCalibration(t *testing.T) {
	is := is.New(t)

	var tr Tracker
	fired := 0
	tr.Calibrated.Subscribe(func(Statuses) { fired++ })

	is.NoErr(tr.Parse([]byte{3, 3, 3, 2}))

	is.True(!tr.FullyCalibrated.Get())
	is.Equal(fired, 0)
	is.Equal(tr.Statuses.Get()[Quaternion], Medium)
}

func TestRecalibrationFiresAgain(t *testing.T) {
	is := is.New(t)

	var tr Tracker
	fired := 0
	tr.Calibrated.Subscribe(func(Statuses) { fired++ })

	for _, b := range [][]byte{{3, 3, 3, 3}, {3, 1, 3, 3}, {3, 3, 3, 3}} {
		is.NoErr(tr.Parse(b))
	}
	is.Equal(fired, 2)
}

func TestInvalidCalibrationLeavesState(t *testing.T) {
	is := is.New(t)

	var tr Tracker
	is.NoErr(tr.Parse([]byte{1, 2, 3, 0}))

	err := tr.Parse([]byte{3, 3, 4, 3})
	is.True(errors.Is(err, codec.ErrUnknownEnumValue))

	err = tr.Parse([]byte{3, 3})
	is.True(errors.Is(err, codec.ErrTruncatedData))

	is.Equal(tr.Statuses.Get(), Statuses{Low, Medium, High, Unreliable})
	is.Equal(tr.Statuses.Version(), uint64(1))
}
