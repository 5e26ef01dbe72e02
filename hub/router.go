package hub

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"

	"missionlink/haptics"
	"missionlink/mission"
	"missionlink/sensor"
	"missionlink/transport"
)

type router struct {
	reg *Registry
	hub *Hub
	log logrus.FieldLogger
}

// VibrateRequest is the body of POST /api/missions/{id}/vibrate. Either
// Effects or Waveform is used, Effects first.
type VibrateRequest struct {
	Effects  []string `json:"effects,omitempty"`
	Waveform []struct {
		Amplitude float64 `json:"amplitude"`
		DelayMS   int     `json:"delayMs"`
	} `json:"waveform,omitempty"`
}

// RateRequest is the body of POST /api/missions/{id}/rate.
type RateRequest struct {
	Sensor  string `json:"sensor"`
	SubType string `json:"subType"`
	Rate    uint16 `json:"rate"`
}

// NewRouter serves the websocket stream on /ws and the mission API under
// /api.
func NewRouter(reg *Registry, h *Hub, log logrus.FieldLogger) chi.Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	rt := &router{reg: reg, hub: h, log: log.WithField("component", "HTTP")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: rt.log, NoColor: true}))
	r.Use(middleware.Recoverer)

	r.Get("/health", rt.health)
	r.Get("/ws", h.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", rt.snapshot)
		r.Post("/session/reset", rt.resetSession)

		r.Route("/missions", func(r chi.Router) {
			r.Get("/", rt.listMissions)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", rt.getMission)
				r.Post("/connect", rt.connect)
				r.Post("/disconnect", rt.disconnect)
				r.Post("/recalibrate", rt.recalibrate)
				r.Post("/vibrate", rt.vibrate)
				r.Post("/rate", rt.rate)
			})
		})
	})

	return r
}

func (rt *router) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (rt *router) snapshot(w http.ResponseWriter, r *http.Request) {
	rt.writeJSON(w, r, http.StatusOK, rt.reg.Snapshot())
}

func (rt *router) resetSession(w http.ResponseWriter, r *http.Request) {
	rt.reg.ResetSession()
	w.WriteHeader(http.StatusNoContent)
}

func (rt *router) listMissions(w http.ResponseWriter, r *http.Request) {
	rt.writeJSON(w, r, http.StatusOK, rt.reg.Snapshot().Missions)
}

func (rt *router) getMission(w http.ResponseWriter, r *http.Request) {
	s, err := rt.reg.Mission(chi.URLParam(r, "id"))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, s)
}

func (rt *router) connect(w http.ResponseWriter, r *http.Request) {
	rt.withMission(w, r, func(m *mission.Mission) error {
		return m.Connect(r.Context())
	})
}

func (rt *router) disconnect(w http.ResponseWriter, r *http.Request) {
	rt.withMission(w, r, func(m *mission.Mission) error {
		return m.Disconnect()
	})
}

func (rt *router) recalibrate(w http.ResponseWriter, r *http.Request) {
	rt.withMission(w, r, func(m *mission.Mission) error {
		m.RecalibrateCenterOfMass()
		return nil
	})
}

func (rt *router) vibrate(w http.ResponseWriter, r *http.Request) {
	var req VibrateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var effects []haptics.Effect
	for _, name := range req.Effects {
		e, ok := haptics.LookupEffect(name)
		if !ok {
			http.Error(w, "unknown effect "+name, http.StatusBadRequest)
			return
		}
		effects = append(effects, e)
	}
	segments := make([]haptics.Segment, 0, len(req.Waveform))
	for _, s := range req.Waveform {
		segments = append(segments, haptics.Segment{
			Amplitude: s.Amplitude,
			Delay:     time.Duration(s.DelayMS) * time.Millisecond,
		})
	}
	if len(effects) == 0 && len(segments) == 0 {
		http.Error(w, "no effects or waveform", http.StatusBadRequest)
		return
	}

	rt.withMission(w, r, func(m *mission.Mission) error {
		if len(effects) > 0 {
			return m.Vibrate(r.Context(), effects...)
		}
		return m.VibrateWaveform(r.Context(), segments...)
	})
}

func (rt *router) rate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	t, ok := sensor.LookupType(req.Sensor)
	if !ok {
		http.Error(w, "unknown sensor "+req.Sensor, http.StatusBadRequest)
		return
	}
	sub, ok := t.LookupSubType(req.SubType)
	if !ok {
		http.Error(w, "unknown "+t.String()+" sub-type "+req.SubType, http.StatusBadRequest)
		return
	}

	rt.withMission(w, r, func(m *mission.Mission) error {
		return m.SetSensorRate(r.Context(), t, sub, req.Rate)
	})
}

func (rt *router) withMission(w http.ResponseWriter, r *http.Request, fn func(*mission.Mission) error) {
	m, err := rt.reg.Get(chi.URLParam(r, "id"))
	if err != nil {
		rt.writeError(w, err)
		return
	}
	if err := fn(m); err != nil {
		rt.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *router) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func (rt *router) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnknownMission):
		status = http.StatusNotFound
	case errors.Is(err, transport.ErrNotConnected),
		errors.Is(err, transport.ErrTransportUnavailable),
		errors.Is(err, transport.ErrWifiUnavailable),
		errors.Is(err, mission.ErrDeviceTypeUnknown):
		status = http.StatusServiceUnavailable
	case errors.Is(err, transport.ErrMessageTypeNotSupported),
		errors.Is(err, mission.ErrInvalidName):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
