package mission

import (
	"context"
	"time"

	"missionlink/sensor"
	"missionlink/transport"
)

// watchdog resends the configuration when sensor data stops arriving while
// streams are enabled. The device forgets its configuration when it resets.
func (m *Mission) watchdog(ctx context.Context, gen uint64) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		payload, ok := m.resync(gen)
		if !ok {
			continue
		}
		m.log.Warnf("no sensor data for %s, resending configuration", m.silence)
		if err := m.send(ctx, transport.SetSensorDataConfigurations, payload); err != nil {
			m.log.Warnf("watchdog: %v", err)
		}
	}
}

// resync returns the configuration delta to resend, if any.
func (m *Mission) resync(gen uint64) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.config.IsZero() {
		return nil, false
	}
	if m.now().Sub(m.lastSensorData) <= m.silence {
		return nil, false
	}
	var zero sensor.Configuration
	return m.config.SerializeDelta(&zero, m.deviceType), true
}

func (m *Mission) pollRSSI(ctx context.Context, gen uint64, reader transport.RSSIReader) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.rssiInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		skip := gen != m.gen || m.now().Sub(m.lastRSSI) < m.rssiInterval-rssiJitter
		m.mu.Unlock()
		if skip {
			continue
		}

		rssi, err := reader.ReadRSSI(ctx)

		m.mu.Lock()
		if gen == m.gen {
			m.lastRSSI = m.now()
			if err == nil {
				m.RSSI.Set(rssi)
			}
		}
		m.mu.Unlock()

		if err != nil && ctx.Err() == nil {
			m.log.Debugf("reading rssi: %v", err)
		}
	}
}
