// Package config loads the bridge daemon's configuration from a YAML file,
// with environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"

	"missionlink/sensor"
	"missionlink/transport"
	"missionlink/transport/udp"
)

// PathEnv names the variable that points at the config file.
const PathEnv = "MISSIONLINK_CONFIG"

var ErrInvalid = errors.New("invalid configuration")

// Config is the daemon configuration.
type Config struct {
	Listen       string        `yaml:"listen" env:"MISSIONLINK_LISTEN"`
	Debug        bool          `yaml:"debug" env:"MISSIONLINK_DEBUG"`
	Adapter      string        `yaml:"adapter" env:"MISSIONLINK_ADAPTER"`
	ScanTimeout  time.Duration `yaml:"scanTimeout" env:"MISSIONLINK_SCAN_TIMEOUT"`
	TickInterval time.Duration `yaml:"tickInterval"`
	Missions     []Mission     `yaml:"missions"`
}

// Mission describes one device the daemon connects to.
type Mission struct {
	ID        string `yaml:"id"`
	Transport string `yaml:"transport"`
	// BLE: the advertised local name, the address, or both.
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	// UDP
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Sensors maps sensor type to sub-type to rate in ms, applied on
	// connect.
	Sensors map[string]map[string]uint16 `yaml:"sensors"`
	Connect *bool                        `yaml:"connect"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:       ":8080",
		Adapter:      "hci0",
		ScanTimeout:  10 * time.Second,
		TickInterval: time.Second,
	}
}

// Load reads path, applies environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every mission entry and fills in defaults.
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	seen := make(map[string]bool)
	for i := range c.Missions {
		m := &c.Missions[i]
		if m.ID == "" {
			return fmt.Errorf("%w: mission %d has no id", ErrInvalid, i)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate mission %q", ErrInvalid, m.ID)
		}
		seen[m.ID] = true

		kind, err := m.Kind()
		if err != nil {
			return err
		}
		switch kind {
		case transport.BLE:
			if m.Name == "" && m.Address == "" {
				return fmt.Errorf("%w: mission %q needs a name or an address", ErrInvalid, m.ID)
			}
		case transport.UDP:
			if m.Port == 0 {
				m.Port = udp.DefaultPort
			}
		}
		if _, err := m.Configuration(); err != nil {
			return err
		}
	}
	return nil
}

// Kind returns the mission's transport. BLE is the default.
func (m *Mission) Kind() (transport.Kind, error) {
	switch m.Transport {
	case "", "ble":
		return transport.BLE, nil
	case "udp":
		return transport.UDP, nil
	}
	return 0, fmt.Errorf("%w: mission %q has unknown transport %q", ErrInvalid, m.ID, m.Transport)
}

// AutoConnect reports whether the daemon connects the mission at start.
func (m *Mission) AutoConnect() bool {
	return m.Connect == nil || *m.Connect
}

// Configuration builds the sensor configuration from Sensors.
func (m *Mission) Configuration() (sensor.Configuration, error) {
	var c sensor.Configuration
	for typeName, rates := range m.Sensors {
		t, ok := sensor.LookupType(typeName)
		if !ok {
			return c, fmt.Errorf("%w: mission %q has unknown sensor %q", ErrInvalid, m.ID, typeName)
		}
		for subName, ms := range rates {
			sub, ok := t.LookupSubType(subName)
			if !ok {
				return c, fmt.Errorf("%w: mission %q has unknown %s sub-type %q", ErrInvalid, m.ID, t, subName)
			}
			c.Set(t, sub, ms)
		}
	}
	return c, nil
}
