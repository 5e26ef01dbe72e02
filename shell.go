package main

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell/v2"

	"missionlink/haptics"
	"missionlink/mission"
	"missionlink/sensor"
)

const commandTimeout = 15 * time.Second

var errUsage = errors.New("wrong number of arguments")

// shell builds the interactive shell. Commands taking a mission id complete
// it from the registry.
func (d *daemon) shell(ctx context.Context) *ishell.Shell {
	missionIDs := func([]string) []string { return d.reg.IDs() }

	// withMission resolves the first argument and runs fn with a bounded
	// context.
	withMission := func(c *ishell.Context, minArgs int, fn func(context.Context, *mission.Mission) error) {
		if len(c.Args) < minArgs {
			c.Err(errUsage)
			return
		}
		m, err := d.reg.Get(c.Args[0])
		if err != nil {
			c.Err(err)
			return
		}
		cmdCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if err := fn(cmdCtx, m); err != nil {
			c.Err(err)
		}
	}

	shell := ishell.New()
	shell.Println("missionlink shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "missions",
		Help: "list missions and their status",
		Func: func(c *ishell.Context) {
			for _, ms := range d.reg.Snapshot().Missions {
				c.Printf("%-12s %-20s %-12s %-4s %-13s battery %3d%%  %.0f msg/s\n",
					ms.ID, ms.Name, ms.Type, ms.Transport, ms.Status, ms.BatteryLevel, ms.SensorDataRate)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "state",
		Completer: missionIDs,
		Help:      "state <mission>",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(errUsage)
				return
			}
			s, err := d.reg.Mission(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			b, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(string(b))
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name: "scan",
		Help: "scan [seconds]: list advertising missions",
		Func: func(c *ishell.Context) {
			seconds := 5
			if len(c.Args) > 0 {
				seconds, _ = strconv.Atoi(c.Args[0])
			}
			scanner, err := d.bluetooth()
			if err != nil {
				c.Err(err)
				return
			}
			found, err := scanner.Discover(ctx, time.Duration(seconds)*time.Second)
			if err != nil {
				c.Err(err)
				return
			}
			for _, p := range found {
				c.Printf("%s  %-20s %d dBm\n", p.Address.String(), p.Name, p.RSSI)
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "connect",
		Completer: missionIDs,
		Help:      "connect <mission>",
		Func: func(c *ishell.Context) {
			withMission(c, 1, func(ctx context.Context, m *mission.Mission) error {
				mc, _ := d.missionConfig(c.Args[0])
				return d.connect(ctx, mc, m)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "disconnect",
		Completer: missionIDs,
		Help:      "disconnect <mission>",
		Func: func(c *ishell.Context) {
			withMission(c, 1, func(_ context.Context, m *mission.Mission) error {
				return m.Disconnect()
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "rate",
		Completer: missionIDs,
		Help:      "rate <mission> <sensor> <sub-type> <ms>",
		Func: func(c *ishell.Context) {
			withMission(c, 4, func(ctx context.Context, m *mission.Mission) error {
				t, ok := sensor.LookupType(c.Args[1])
				if !ok {
					return errors.New("unknown sensor " + c.Args[1])
				}
				sub, ok := t.LookupSubType(c.Args[2])
				if !ok {
					return errors.New("unknown " + t.String() + " sub-type " + c.Args[2])
				}
				ms, err := strconv.ParseUint(c.Args[3], 10, 16)
				if err != nil {
					return err
				}
				return m.SetSensorRate(ctx, t, sub, uint16(ms))
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "clear",
		Completer: missionIDs,
		Help:      "clear <mission>: disable every sensor stream",
		Func: func(c *ishell.Context) {
			withMission(c, 1, func(ctx context.Context, m *mission.Mission) error {
				return m.ClearSensorDataConfiguration(ctx)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "vibrate",
		Completer: missionIDs,
		Help:      "vibrate <mission> <effect...>",
		Func: func(c *ishell.Context) {
			withMission(c, 2, func(ctx context.Context, m *mission.Mission) error {
				var effects []haptics.Effect
				for _, name := range c.Args[1:] {
					e, ok := haptics.LookupEffect(name)
					if !ok {
						return errors.New("unknown effect " + name)
					}
					effects = append(effects, e)
				}
				return m.Vibrate(ctx, effects...)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "recalibrate",
		Completer: missionIDs,
		Help:      "recalibrate <mission>: reset the center of mass range",
		Func: func(c *ishell.Context) {
			withMission(c, 1, func(_ context.Context, m *mission.Mission) error {
				m.RecalibrateCenterOfMass()
				return nil
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "name",
		Completer: missionIDs,
		Help:      "name <mission> <name>",
		Func: func(c *ishell.Context) {
			withMission(c, 2, func(ctx context.Context, m *mission.Mission) error {
				return m.SetName(ctx, strings.Join(c.Args[1:], " "))
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "wifi",
		Completer: missionIDs,
		Help:      "wifi <mission> <ssid> <password>: join a network",
		Func: func(c *ishell.Context) {
			withMission(c, 3, func(ctx context.Context, m *mission.Mission) error {
				if err := m.SetWifiSSID(ctx, c.Args[1]); err != nil {
					return err
				}
				if err := m.SetWifiPassword(ctx, c.Args[2]); err != nil {
					return err
				}
				return m.SetWifiShouldConnect(ctx, true)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "udp",
		Completer: missionIDs,
		Help:      "udp <mission>: move a mission on WiFi to its UDP link",
		Func: func(c *ishell.Context) {
			withMission(c, 1, func(ctx context.Context, m *mission.Mission) error {
				ip := m.IPAddress.Get()
				if !m.WifiIsConnected.Get() || ip == "" {
					return errors.New("mission is not on WiFi")
				}
				mc, _ := d.missionConfig(c.Args[0])
				mc.ID = c.Args[0]
				next, err := d.manager(ctx, mc, ip)
				if err != nil {
					return err
				}
				c.Printf("switching %s to %s\n", c.Args[0], ip)
				return m.SwapTransport(ctx, next)
			})
		},
	})

	return shell
}
