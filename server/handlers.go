package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dispatch-sim/dispatch-sim/sim"
	"github.com/dispatch-sim/dispatch-sim/sim/store"
)

const maxRequestBytes = 10 << 20

// scheduleRequest is the body of POST /v1/schedules and the first message of /v1/stream.
type scheduleRequest struct {
	System        json.RawMessage `json:"system"`
	Policy        string          `json:"policy"`
	Expression    string          `json:"expression"`
	ScheduleLabel string          `json:"schedule_label"`
}

type scheduleResponse struct {
	ID          string           `json:"id,omitempty"`
	Schedule    *sim.Schedule    `json:"schedule"`
	Metrics     *sim.Metrics     `json:"metrics"`
	Assignments []sim.Assignment `json:"assignments"`
}

// build decodes and validates the system and resolves the policy. Every
// error it returns is a client error.
func (req *scheduleRequest) build() (*sim.System, sim.Policy, error) {
	if len(req.System) == 0 || string(req.System) == "null" {
		return nil, nil, errors.New("system is required")
	}
	sys, err := sim.DecodeSystemJSON(bytes.NewReader(req.System))
	if err != nil {
		return nil, nil, err
	}
	cfg := sim.RunConfig{Policy: req.Policy, Expression: req.Expression, ScheduleLabel: req.ScheduleLabel}
	policy, err := cfg.BuildPolicy()
	if err != nil {
		return nil, nil, err
	}
	return sys, policy, nil
}

// policyLabel bounds the metric label to known policy names.
func policyLabel(name, expression string) string {
	switch {
	case name == "" && expression != "":
		return sim.ExprPolicyName
	case name == "":
		return "fcfs"
	case sim.IsValidPolicy(name):
		return name
	default:
		return "invalid"
	}
}

// execute dispatches sys, records metrics, and persists the run when a store
// is configured. onAssign may be nil.
func (s *Server) execute(ctx context.Context, req *scheduleRequest, sys *sim.System, policy sim.Policy, onAssign func(sim.Assignment)) (*scheduleResponse, error) {
	label := policyLabel(req.Policy, req.Expression)
	eng := sim.NewEngine()
	eng.OnAssign = func(a sim.Assignment) {
		s.metrics.AssignmentsTotal.Inc()
		if onAssign != nil {
			onAssign(a)
		}
	}

	res, err := eng.Simulate(ctx, sys, policy)
	if err != nil {
		s.metrics.RunsTotal.WithLabelValues(label, OutcomeFailed).Inc()
		return nil, err
	}
	s.metrics.RunsTotal.WithLabelValues(label, OutcomeOK).Inc()
	s.metrics.Makespan.WithLabelValues(label).Observe(res.Schedule.Time)

	resp := &scheduleResponse{Schedule: res.Schedule, Metrics: res.Metrics, Assignments: res.Assignments}
	if s.store != nil {
		run := store.NewRun(sys, res)
		if err := s.store.SaveRun(ctx, run); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
		resp.ID = run.ID
	}
	return resp, nil
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	sys, policy, err := req.build()
	if err != nil {
		s.metrics.RunsTotal.WithLabelValues(policyLabel(req.Policy, req.Expression), OutcomeRejected).Inc()
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.execute(r.Context(), &req, sys, policy, nil)
	if err != nil {
		s.log.WithError(err).Warn("schedule failed")
		respondError(w, r, statusFor(err), err.Error())
		return
	}
	status := http.StatusOK
	if resp.ID != "" {
		status = http.StatusCreated
	}
	respondJSON(w, status, resp)
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, r, http.StatusServiceUnavailable, "run history is not configured")
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		respondError(w, r, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, r, http.StatusServiceUnavailable, "run history is not configured")
		return
	}
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, run)
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	names := append(sim.BuiltinPolicyNames(), sim.ExprPolicyName)
	respondJSON(w, http.StatusOK, map[string]any{"policies": names})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
		"store":  s.store != nil,
	})
}
