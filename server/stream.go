package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dispatch-sim/dispatch-sim/sim"
)

const streamReadTimeout = 30 * time.Second

// Stream message types.
const (
	MessageAssignment = "assignment"
	MessageSchedule   = "schedule"
	MessageError      = "error"
)

// streamMessage is one server → client websocket frame.
type streamMessage struct {
	Type       string          `json:"type"`
	Assignment *sim.Assignment `json:"assignment,omitempty"`
	ID         string          `json:"id,omitempty"`
	Schedule   *sim.Schedule   `json:"schedule,omitempty"`
	Metrics    *sim.Metrics    `json:"metrics,omitempty"`
	Error      string          `json:"error,omitempty"`
	Status     int             `json:"status,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleStream reads one schedule request from the client, then sends an
// assignment frame per committed operation followed by a single schedule (or
// error) frame, and closes.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	s.metrics.StreamClients.Inc()
	defer s.metrics.StreamClients.Dec()

	conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	var req scheduleRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.closeWithError(conn, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	conn.SetReadDeadline(time.Time{})

	sys, policy, err := req.build()
	if err != nil {
		s.metrics.RunsTotal.WithLabelValues(policyLabel(req.Policy, req.Expression), OutcomeRejected).Inc()
		s.closeWithError(conn, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	var writeErr error
	onAssign := func(a sim.Assignment) {
		if writeErr != nil {
			return
		}
		if err := conn.WriteJSON(streamMessage{Type: MessageAssignment, Assignment: &a}); err != nil {
			writeErr = err
			cancel()
		}
	}

	resp, err := s.execute(ctx, &req, sys, policy, onAssign)
	if writeErr != nil {
		s.log.WithError(writeErr).Info("stream client went away")
		return
	}
	if err != nil {
		s.closeWithError(conn, statusFor(err), err.Error())
		return
	}
	if err := conn.WriteJSON(streamMessage{Type: MessageSchedule, ID: resp.ID, Schedule: resp.Schedule, Metrics: resp.Metrics}); err != nil {
		s.log.WithError(err).Info("stream client went away")
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

func (s *Server) closeWithError(conn *websocket.Conn, status int, msg string) {
	if err := conn.WriteJSON(streamMessage{Type: MessageError, Error: msg, Status: status}); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "error"))
}
