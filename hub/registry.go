// Package hub aggregates the bridge's missions into snapshots and streams
// them to websocket clients.
package hub

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"missionlink/calibration"
	"missionlink/mission"
	"missionlink/transport"
)

var (
	ErrDuplicateMission = errors.New("mission already registered")
	ErrUnknownMission   = errors.New("unknown mission")
)

// MissionState is one mission's entry in a Snapshot.
type MissionState struct {
	ID string `json:"id"`
	mission.State
	// SensorDataRate is sensor data messages per second over the last tick.
	SensorDataRate float64 `json:"sensorDataRate"`
}

// Snapshot is the state broadcast to websocket clients.
type Snapshot struct {
	ElapsedSec float64        `json:"elapsedSec"`
	Connected  int            `json:"connected"`
	Missions   []MissionState `json:"missions"`
}

// StateHandler is called with every new snapshot.
type StateHandler func(s *Snapshot)

type entry struct {
	id      string
	mission *mission.Mission
	unsub   []func()

	messages atomic.Uint64
	rate     float64
	lastTick time.Time
}

// Registry holds the missions the bridge serves.
type Registry struct {
	log logrus.FieldLogger
	now func() time.Time

	mu        sync.RWMutex
	entries   map[string]*entry
	startedAt time.Time
	onState   StateHandler

	// changed is signalled from observer callbacks, which run under the
	// mission lock and so must not call back into the mission.
	changed chan struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		log:       log.WithField("component", "Hub"),
		now:       time.Now,
		entries:   make(map[string]*entry),
		startedAt: time.Now(),
		changed:   make(chan struct{}, 1),
	}
}

// SetStateHandler sets the callback for new snapshots.
func (r *Registry) SetStateHandler(handler StateHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onState = handler
}

// Add registers m under id.
func (r *Registry) Add(id string, m *mission.Mission) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateMission, id)
	}
	e := &entry{id: id, mission: m, lastTick: r.now()}
	e.unsub = append(e.unsub,
		m.SensorData.Subscribe(func(uint64) { e.messages.Add(1) }),
		m.Status.Subscribe(func(s transport.Status) {
			r.log.WithField("mission", id).Infof("status %s", s)
			r.notify()
		}),
		m.Name.Subscribe(func(string) { r.notify() }),
		m.Calibration.Calibrated.Subscribe(func(s calibration.Statuses) {
			r.log.WithField("mission", id).Infof("fully calibrated: %s", s)
			r.notify()
		}),
	)
	r.entries[id] = e
	return nil
}

// Remove unregisters id. The mission is left as it is.
func (r *Registry) Remove(id string) (*mission.Mission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMission, id)
	}
	for _, unsub := range e.unsub {
		unsub()
	}
	delete(r.entries, id)
	return e.mission, nil
}

// Get returns the mission registered under id.
func (r *Registry) Get(id string) (*mission.Mission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMission, id)
	}
	return e.mission, nil
}

// IDs returns the registered ids in order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ResetSession restarts the elapsed time and the rate counters.
func (r *Registry) ResetSession() {
	r.mu.Lock()
	r.startedAt = r.now()
	for _, e := range r.entries {
		e.messages.Store(0)
		e.rate = 0
		e.lastTick = r.startedAt
	}
	r.mu.Unlock()

	r.notify()
}

// Mission returns the snapshot entry for id.
func (r *Registry) Mission(id string) (MissionState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return MissionState{}, fmt.Errorf("%w: %s", ErrUnknownMission, id)
	}
	return e.state(), nil
}

// Snapshot returns the current state of every mission.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() *Snapshot {
	s := &Snapshot{
		ElapsedSec: r.now().Sub(r.startedAt).Seconds(),
		Missions:   make([]MissionState, 0, len(r.entries)),
	}
	for _, e := range r.entries {
		ms := e.state()
		if ms.Status == transport.Connected {
			s.Connected++
		}
		s.Missions = append(s.Missions, ms)
	}
	sort.Slice(s.Missions, func(i, j int) bool { return s.Missions[i].ID < s.Missions[j].ID })
	return s
}

func (e *entry) state() MissionState {
	return MissionState{ID: e.id, State: e.mission.State(), SensorDataRate: e.rate}
}

// Tick updates the sensor data rates and broadcasts a snapshot.
func (r *Registry) Tick() {
	r.mu.Lock()
	now := r.now()
	for _, e := range r.entries {
		if dt := now.Sub(e.lastTick).Seconds(); dt > 0 {
			e.rate = float64(e.messages.Swap(0)) / dt
		}
		e.lastTick = now
	}
	r.mu.Unlock()

	r.broadcast()
}

// Run ticks every interval and broadcasts on mission changes until ctx is
// done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Tick()
		case <-r.changed:
			r.broadcast()
		}
	}
}

func (r *Registry) notify() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

func (r *Registry) broadcast() {
	r.mu.RLock()
	handler := r.onState
	if handler == nil {
		r.mu.RUnlock()
		return
	}
	s := r.snapshotLocked()
	r.mu.RUnlock()

	handler(s)
}
