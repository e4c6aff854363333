package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/sensorflow/sensorflow/artifact"
	"github.com/sensorflow/sensorflow/health"
	"github.com/sensorflow/sensorflow/health/events"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 20

// machineModel is the published model slot for one machine.
type machineModel struct {
	holder health.ModelHolder
	mu     sync.Mutex // guards id
	id     string
}

func (m *machineModel) snapshot() (string, *health.TrainedModel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.holder.Load()
}

func (m *machineModel) publish(id string, model *health.TrainedModel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	m.holder.Publish(model)
}

// Server holds per-machine models and optionally persists them to a Store.
type Server struct {
	store      artifact.Store // nil disables persistence
	fit        health.FitConfig
	classifier health.ClassifierConfig

	mu       sync.RWMutex
	machines map[string]*machineModel
}

// NewServer creates a Server. store may be nil.
func NewServer(store artifact.Store, fit health.FitConfig, classifier health.ClassifierConfig) *Server {
	return &Server{
		store:      store,
		fit:        fit,
		classifier: classifier,
		machines:   make(map[string]*machineModel),
	}
}

// Restore publishes every record found in the store, keyed by machine.
func (s *Server) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	keys, err := s.store.List(ctx)
	if err != nil {
		return err
	}
	for _, key := range keys {
		rec, err := s.store.Get(ctx, key)
		if err != nil {
			return err
		}
		model, err := rec.TrainedModel()
		if err != nil {
			return err
		}
		s.slot(key).publish(rec.ID, model)
	}
	logrus.Infof("restored %d machine models", len(keys))
	return nil
}

func (s *Server) slot(machine string) *machineModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.machines[machine]
	if !ok {
		m = &machineModel{}
		s.machines[machine] = m
	}
	return m
}

func (s *Server) lookup(machine string) (string, *health.TrainedModel) {
	s.mu.RLock()
	m, ok := s.machines[machine]
	s.mu.RUnlock()
	if !ok {
		return "", nil
	}
	return m.snapshot()
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) listMachines(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	names := make([]string, 0, len(s.machines))
	for name := range s.machines {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string]any{"machines": names})
}

func (s *Server) fitModel(w http.ResponseWriter, r *http.Request) {
	machine := mux.Vars(r)["machine"]
	req := fitRequest{Config: s.fit}
	if !decodeBody(w, r, &req) {
		return
	}
	samples := toSamples(req.Samples)
	model, err := health.Fit(samples, req.Baseline.toRange(), req.Config)
	if err != nil {
		writeHealthError(w, err)
		return
	}
	if req.Sensors != nil {
		if len(req.Sensors) != model.Dims() {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%d sensor names for %d sensors", len(req.Sensors), model.Dims()))
			return
		}
		model.SensorNames = req.Sensors
	}

	id := uuid.New().String()
	if s.store != nil {
		rec, err := artifact.NewRecord(id, machine, model)
		if err == nil {
			err = s.store.Put(r.Context(), machine, rec)
		}
		if err != nil {
			logrus.Errorf("persisting model for %s: %v", machine, err)
			writeError(w, http.StatusInternalServerError, "persisting model failed")
			return
		}
	}
	s.slot(machine).publish(id, model)
	logrus.Infof("published model %s for machine %s", id, machine)
	writeJSON(w, http.StatusCreated, summarize(machine, id, model))
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	machine := mux.Vars(r)["machine"]
	id, model := s.lookup(machine)
	if model == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no model for machine %q", machine))
		return
	}
	writeJSON(w, http.StatusOK, summarize(machine, id, model))
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	machine := mux.Vars(r)["machine"]
	id, model := s.lookup(machine)
	if model == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no model for machine %q", machine))
		return
	}
	req := scoreRequest{Classifier: s.classifier}
	if !decodeBody(w, r, &req) {
		return
	}
	trace := events.NewTrace(machine)
	scored, err := health.ScoreRecorded(toSamples(req.Samples), model, req.Classifier, trace)
	if err != nil {
		writeHealthError(w, err)
		return
	}
	resp := scoreResponse{
		Machine: machine,
		ModelID: id,
		Samples: make([]scoredJSON, len(scored)),
		Events:  toEventsJSON(events.Segment(scored)),
		Summary: events.Summarize(trace),
	}
	for i, sc := range scored {
		resp.Samples[i] = toScoredJSON(sc)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) contributions(w http.ResponseWriter, r *http.Request) {
	machine := mux.Vars(r)["machine"]
	_, model := s.lookup(machine)
	if model == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no model for machine %q", machine))
		return
	}
	var req struct {
		Values []float64 `json:"values"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	ranked, err := health.Contributions(req.Values, model)
	if err != nil {
		writeHealthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"machine": machine, "contributions": ranked})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return false
	}
	return true
}

// writeHealthError maps the engine's error taxonomy onto status codes.
func writeHealthError(w http.ResponseWriter, err error) {
	var degenerate *health.DegenerateBaselineError
	switch {
	case errors.As(err, &degenerate), errors.Is(err, health.ErrDegenerateBaseline):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, health.ErrDimensionMismatch), errors.Is(err, health.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, health.ErrModelNotFitted):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logrus.Errorf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// writeJSON encodes before writing the header so an unencodable body
// becomes a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logrus.Errorf("encoding response: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logrus.Warnf("writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
