package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/matryer/is"

	"missionlink/sensor"
	"missionlink/transport"
)

const sample = `
listen: ":9000"
scanTimeout: 5s
missions:
  - id: left
    name: Left Insole
    sensors:
      pressure:
        pressureSingleByte: 45
      motion:
        quaternion: 20
  - id: right
    transport: udp
    host: 192.168.1.41
    connect: false
`

func writeConfig(is *is.I, t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "missionlink.yaml")
	is.NoErr(os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestThatTheFileIsLoaded(t *testing.T) {
	is := is.New(t)

	cfg, err := Load(writeConfig(is, t, sample))
	is.NoErr(err)

	is.Equal(cfg.Listen, ":9000")
	is.Equal(cfg.ScanTimeout, 5*time.Second)
	is.Equal(cfg.Adapter, "hci0") // default kept
	is.Equal(cfg.TickInterval, time.Second)
	is.Equal(len(cfg.Missions), 2)

	left := cfg.Missions[0]
	kind, err := left.Kind()
	is.NoErr(err)
	is.Equal(kind, transport.BLE)
	is.True(left.AutoConnect())

	c, err := left.Configuration()
	is.NoErr(err)
	is.Equal(c.Rate(sensor.Pressure, sensor.PressureSingleByte), uint16(40))
	is.Equal(c.Rate(sensor.Motion, sensor.Quaternion), uint16(20))

	right := cfg.Missions[1]
	kind, err = right.Kind()
	is.NoErr(err)
	is.Equal(kind, transport.UDP)
	is.Equal(right.Port, 9999) // default udp port
	is.True(!right.AutoConnect())
}

func TestThatEnvironmentOverridesTheFile(t *testing.T) {
	is := is.New(t)

	t.Setenv("MISSIONLINK_LISTEN", "127.0.0.1:8081")
	t.Setenv("MISSIONLINK_DEBUG", "true")

	cfg, err := Load(writeConfig(is, t, sample))
	is.NoErr(err)

	is.Equal(cfg.Listen, "127.0.0.1:8081")
	is.True(cfg.Debug)
}

func TestThatAnEmptyPathUsesDefaults(t *testing.T) {
	is := is.New(t)

	cfg, err := Load("")
	is.NoErr(err)
	is.Equal(cfg.Listen, ":8080")
	is.Equal(len(cfg.Missions), 0)
}

func TestThatInvalidMissionsAreRejected(t *testing.T) {
	for name, content := range map[string]string{
		"missing id":        "missions:\n  - name: x\n",
		"duplicate id":      "missions:\n  - id: a\n    name: x\n  - id: a\n    name: y\n",
		"unknown transport": "missions:\n  - id: a\n    transport: serial\n",
		"ble without match": "missions:\n  - id: a\n",
		"unknown sensor":    "missions:\n  - id: a\n    name: x\n    sensors:\n      heart: {rate: 10}\n",
		"unknown sub-type":  "missions:\n  - id: a\n    name: x\n    sensors:\n      motion: {spin: 10}\n",
	} {
		t.Run(name, func(t *testing.T) {
			is := is.New(t)

			_, err := Load(writeConfig(is, t, content))
			is.True(errors.Is(err, ErrInvalid))
		})
	}
}
