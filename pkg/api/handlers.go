package api

import (
	"encoding/json"
	"net/http"

	"github.com/ddn-qa/robotel/pkg/listener"
)

// Event is one lifecycle event posted by the Robot Framework shim.
type Event struct {
	Type   string               `json:"type"`
	Suite  string               `json:"suite,omitempty"`
	Name   string               `json:"name,omitempty"`
	Tags   []string             `json:"tags,omitempty"`
	Status string               `json:"status,omitempty"`
	Result *listener.TestResult `json:"result,omitempty"`
}

// Lifecycle event types.
const (
	EventSuiteStart = "suite-start"
	EventTestStart  = "test-start"
	EventTestEnd    = "test-end"
	EventSuiteEnd   = "suite-end"
	EventRunEnd     = "run-end"
)

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"run_id": s.listener.RunID(),
	})
}

// handleEvent dispatches one lifecycle event to the listener. The listener
// swallows its own telemetry failures, so every well-formed event is
// acknowledged with 202.
func (s *server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var ev Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{"invalid event payload"})

		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case EventSuiteStart:
		s.listener.StartSuite(ev.Suite)
	case EventTestStart:
		s.listener.StartTest(ev.Name, ev.Tags)
	case EventTestEnd:
		if ev.Result == nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{"test-end event requires a result"})

			return
		}

		s.listener.EndTest(r.Context(), ev.Result)
	case EventSuiteEnd:
		s.listener.EndSuite(r.Context(), ev.Suite, ev.Status)
	case EventRunEnd:
		s.listener.Close(r.Context())
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{"unknown event type"})

		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
