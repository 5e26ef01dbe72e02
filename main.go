// missionlink bridges Ukaton missions (motion modules and pressure insoles)
// to local clients.
//
// Responsibilities:
//   - BLE (BlueZ) or UDP :9999 → connect to every configured mission
//   - decode motion, pressure and calibration data per mission
//   - WebSocket /ws → broadcast mission snapshots every tick and on change
//   - HTTP /api → mission state and commands
//   - interactive shell on stdin
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"missionlink/config"
	"missionlink/hub"
	"missionlink/mission"
	"missionlink/transport"
	"missionlink/transport/ble"
	"missionlink/transport/udp"
)

// UDP missions answer GetType only once their socket is up.
const deviceTypeTimeout = 10 * time.Second

type daemon struct {
	cfg     config.Config
	log     *logrus.Logger
	reg     *hub.Registry
	scanner *ble.Scanner
	adapter *bluetooth.Adapter
}

func main() {
	configPath := flag.String("config", os.Getenv(config.PathEnv), "Path to the YAML configuration")
	listen := flag.String("listen", "", "Override the ip:port to listen on")
	debug := flag.Bool("debug", false, "Enable debug logging")
	interactive := flag.Bool("shell", true, "Start the interactive shell")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *debug || cfg.Debug {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d := &daemon{
		cfg:     cfg,
		log:     log,
		reg:     hub.NewRegistry(log),
		adapter: bluetooth.DefaultAdapter,
	}

	for _, mc := range cfg.Missions {
		if err := d.add(ctx, mc); err != nil {
			log.WithField("mission", mc.ID).Errorf("skipping: %v", err)
		}
	}

	wsHub := hub.New(log)
	d.reg.SetStateHandler(wsHub.HandleState)
	go d.reg.Run(ctx, cfg.TickInterval)

	srv := &http.Server{Addr: cfg.Listen, Handler: hub.NewRouter(d.reg, wsHub, log)}
	go func() {
		log.Infof("HTTP/WS server on %s", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP listen: %v", err)
		}
	}()

	if *interactive {
		go func() {
			d.shell(ctx).Run()
			stop()
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdown)
	wsHub.Close()

	for _, id := range d.reg.IDs() {
		m, err := d.reg.Remove(id)
		if err != nil {
			continue
		}
		if err := m.Disconnect(); err != nil {
			log.WithField("mission", id).Warnf("disconnect: %v", err)
		}
	}
}

// add builds the mission described by mc, registers it and connects it when
// configured to.
func (d *daemon) add(ctx context.Context, mc config.Mission) error {
	log := d.log.WithField("mission", mc.ID)

	manager, err := d.manager(ctx, mc, "")
	if err != nil {
		return err
	}
	m := mission.New(manager, mission.WithLogger(log))
	if err := d.reg.Add(mc.ID, m); err != nil {
		return err
	}
	if !mc.AutoConnect() {
		return nil
	}
	return d.connect(ctx, mc, m)
}

// manager returns the transport for mc. host overrides the configured UDP
// host.
func (d *daemon) manager(ctx context.Context, mc config.Mission, host string) (transport.Manager, error) {
	log := d.log.WithField("mission", mc.ID)

	kind, err := mc.Kind()
	if err != nil {
		return nil, err
	}
	if host != "" {
		kind = transport.UDP
	}

	switch kind {
	case transport.UDP:
		if host == "" {
			host = mc.Host
		}
		if mc.Port == 0 {
			mc.Port = udp.DefaultPort
		}
		return udp.NewManager(host, udp.WithPort(mc.Port), udp.WithLogger(log)), nil

	default:
		scanner, err := d.bluetooth()
		if err != nil {
			return nil, err
		}
		scanCtx, cancel := context.WithTimeout(ctx, d.cfg.ScanTimeout)
		defer cancel()

		p, err := scanner.Find(scanCtx, ble.Match{Name: mc.Name, Address: mc.Address})
		if err != nil {
			return nil, err
		}
		gatt := ble.NewBlueZ(d.adapter, d.cfg.Adapter, p.Address, log)
		return ble.NewManager(gatt, ble.WithLogger(log)), nil
	}
}

// bluetooth enables the adapter on first use.
func (d *daemon) bluetooth() (*ble.Scanner, error) {
	if d.scanner != nil {
		return d.scanner, nil
	}
	s, err := ble.NewScanner(d.adapter, d.log)
	if err != nil {
		return nil, err
	}
	if err := s.Enable(); err != nil {
		return nil, err
	}
	d.scanner = s
	return s, nil
}

// connect connects m and applies the configured sensor rates once the
// mission has said what it is.
func (d *daemon) connect(ctx context.Context, mc config.Mission, m *mission.Mission) error {
	if err := m.Connect(ctx); err != nil {
		return err
	}
	c, err := mc.Configuration()
	if err != nil {
		return err
	}
	if c.IsZero() {
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, deviceTypeTimeout)
	defer cancel()
	if _, err := m.WaitDeviceType(waitCtx); err != nil {
		return err
	}
	return m.SetSensorDataConfiguration(ctx, c)
}

func (d *daemon) missionConfig(id string) (config.Mission, bool) {
	for _, mc := range d.cfg.Missions {
		if mc.ID == id {
			return mc, true
		}
	}
	return config.Mission{}, false
}
