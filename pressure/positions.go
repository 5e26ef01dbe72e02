package pressure

import (
	"github.com/go-gl/mathgl/mgl64"

	"missionlink/sensor"
)

// Cells is the number of pressure sensors on an insole.
const Cells = 16

// Sensor centers in millimetres on a 93.257 x 265.069 left insole outline.
var anchorsMM = [Cells][2]float64{
	{59.55, 32.3},
	{33.1, 42.15},
	{69.5, 55.5},
	{44.11, 64.8},
	{20.3, 71.9},
	{63.8, 81.1},
	{41.44, 90.8},
	{19.2, 102.8},
	{48.3, 119.7},
	{17.8, 130.5},
	{43.3, 177.7},
	{18.0, 177.0},
	{43.3, 200.6},
	{18.0, 200.0},
	{43.5, 242.0},
	{18.55, 242.1},
}

const (
	insoleWidth  = 93.257
	insoleHeight = 265.069
)

var leftPositions, rightPositions = func() (l, r [Cells]mgl64.Vec2) {
	for i, a := range anchorsMM {
		x, y := a[0]/insoleWidth, a[1]/insoleHeight
		l[i] = mgl64.Vec2{x, y}
		r[i] = mgl64.Vec2{1 - x, y}
	}
	return
}()

// Positions returns the normalized cell anchors for deviceType.
func Positions(deviceType sensor.DeviceType) [Cells]mgl64.Vec2 {
	if deviceType == sensor.RightInsole {
		return rightPositions
	}
	return leftPositions
}
