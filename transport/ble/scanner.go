package ble

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// ErrNotFound is returned when a scan ends without a matching peripheral.
var ErrNotFound = errors.New("peripheral not found")

// Peripheral is an advertising mission.
type Peripheral struct {
	Name    string            `json:"name"`
	Address bluetooth.Address `json:"-"`
	RSSI    int16             `json:"rssi"`
}

// Match selects peripherals during a scan. An empty Match accepts any
// peripheral advertising the mission service.
type Match struct {
	Name    string
	Address string
}

func (m Match) accepts(name, address string, advertisesService bool) bool {
	switch {
	case m.Address != "":
		return strings.EqualFold(m.Address, address)
	case m.Name != "":
		return m.Name == name
	default:
		return advertisesService
	}
}

// Scanner finds missions. Scans are single shot: there is no background
// reconnect loop.
type Scanner struct {
	adapter *bluetooth.Adapter
	service bluetooth.UUID
	log     logrus.FieldLogger

	mu       sync.Mutex
	scanning bool
}

// NewScanner returns a Scanner on adapter.
func NewScanner(adapter *bluetooth.Adapter, log logrus.FieldLogger) (*Scanner, error) {
	service, err := bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("mission service uuid: %w", err)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scanner{
		adapter: adapter,
		service: service,
		log:     log.WithField("component", "Scanner"),
	}, nil
}

// Enable initializes the adapter.
func (s *Scanner) Enable() error {
	s.log.Info("enabling adapter")
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w", err)
	}
	return nil
}

// scan runs the adapter scan until fn returns false or ctx is done.
func (s *Scanner) scan(ctx context.Context, fn func(Peripheral, bool) bool) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return errors.New("scan already in progress")
	}
	s.scanning = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.scanning = false
		s.mu.Unlock()
	}()

	stop := context.AfterFunc(ctx, func() { _ = s.adapter.StopScan() })
	defer stop()

	err := s.adapter.Scan(func(a *bluetooth.Adapter, r bluetooth.ScanResult) {
		p := Peripheral{Name: r.LocalName(), Address: r.Address, RSSI: r.RSSI}
		if !fn(p, r.HasServiceUUID(s.service)) {
			_ = a.StopScan()
		}
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

// Find scans until a peripheral matches m or ctx is done.
func (s *Scanner) Find(ctx context.Context, m Match) (Peripheral, error) {
	var found *Peripheral
	err := s.scan(ctx, func(p Peripheral, advertisesService bool) bool {
		if !m.accepts(p.Name, p.Address.String(), advertisesService) {
			return true
		}
		s.log.Infof("found %s at %s", p.Name, p.Address.String())
		found = &p
		return false
	})
	if err != nil {
		return Peripheral{}, err
	}
	if found == nil {
		if ctx.Err() != nil {
			return Peripheral{}, fmt.Errorf("%w: %v", ErrNotFound, ctx.Err())
		}
		return Peripheral{}, ErrNotFound
	}
	return *found, nil
}

// Discover lists the missions advertising within d.
func (s *Scanner) Discover(ctx context.Context, d time.Duration) ([]Peripheral, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	seen := make(map[string]int)
	var out []Peripheral
	err := s.scan(ctx, func(p Peripheral, advertisesService bool) bool {
		if !advertisesService {
			return true
		}
		if i, ok := seen[p.Address.String()]; ok {
			out[i].RSSI = p.RSSI
			return true
		}
		seen[p.Address.String()] = len(out)
		out = append(out, p)
		return true
	})
	return out, err
}
