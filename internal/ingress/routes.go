package ingress

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fluxgate/eventpipe/internal/events"
	"github.com/fluxgate/eventpipe/internal/ingress/middleware"
)

const statsHealthCheckTimeout = 2 * time.Second

type (
	// livenessResponse is the literal body of GET /.
	livenessResponse struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}

	// publishAccepted is the literal body of a 202 response from POST /publish.
	publishAccepted struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}

	// brokerErrorBody is the literal body of a 500 response from POST /publish.
	brokerErrorBody struct {
		Error string `json:"error"`
	}

	// uptimeStats is the first half of GET /stats' literal response shape.
	uptimeStats struct {
		ReceivedAPI      int64 `json:"received_api"`
		UniqueProcessed  int64 `json:"unique_processed"`
		DuplicateDropped int64 `json:"duplicate_dropped"`
	}

	// systemState is the second half of GET /stats' literal response shape.
	systemState struct {
		DatabaseRows int64 `json:"database_rows"`
		QueueDepth   int64 `json:"queue_depth"`
	}

	// statsResponse is the literal response body of GET /stats. No
	// performance_metrics field — an earlier test generation assumed one,
	// but it was never part of the server's actual behavior.
	statsResponse struct {
		UptimeStats uptimeStats `json:"uptime_stats"`
		SystemState systemState `json:"system_state"`
	}
)

// setupRoutes registers every HTTP route for the ingress server using Go
// 1.22+ method-pattern routing. Each endpoint is registered twice: once
// under its required method, and once under the bare path so any other
// method on that same path falls through to a handler that renders a
// custom RFC 7807 405 — the bare pattern is less specific, so the mux only
// reaches it when the method-qualified pattern didn't match.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleRoot)

	mux.HandleFunc("POST /publish", s.handlePublish)
	mux.HandleFunc("/publish", methodNotAllowed(s.logger, "Only POST is allowed on /publish"))

	mux.HandleFunc("GET /events", s.handleEvents)
	mux.HandleFunc("/events", methodNotAllowed(s.logger, "Only GET is allowed on /events"))

	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("/stats", methodNotAllowed(s.logger, "Only GET is allowed on /stats"))
}

// methodNotAllowed returns a handler that always renders a 405 problem body,
// registered against the bare path pattern so it only runs when no
// method-qualified pattern for that path matched.
func methodNotAllowed(logger *slog.Logger, detail string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteErrorResponse(w, r, logger, MethodNotAllowed(detail))
	}
}

// handleRoot answers liveness probes on the literal root and renders the
// catch-all 404 for any other path, since "/" is the only pattern that
// matches unregistered paths.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))

		return
	}

	if r.Method != http.MethodGet {
		WriteErrorResponse(w, r, s.logger, MethodNotAllowed("Only GET is allowed on /"))

		return
	}

	writeJSON(w, s.logger, r, http.StatusOK, livenessResponse{Status: "alive", Service: serviceName})
}

// handlePublish validates and enqueues an Event. Only reached for POST
// /publish; setupRoutes routes every other method on that path to
// methodNotAllowed.
//
// Response codes:
//   - 202 Accepted: event validated and pushed to the broker
//   - 422 Unprocessable Entity: validation failure (received is not incremented)
//   - 500 Internal Server Error: broker failure (received has already been incremented)
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	var e events.Event

	decoder := json.NewDecoder(io.LimitReader(r.Body, s.config.MaxRequestSize))
	if err := decoder.Decode(&e); err != nil {
		writeValidationError(w, s.logger, r, "invalid JSON: "+err.Error())

		return
	}

	if err := s.validator.Validate(e); err != nil {
		writeValidationError(w, s.logger, r, err.Error())

		return
	}

	s.counters.IncReceived()

	payload, err := json.Marshal(e)
	if err != nil {
		s.logger.Error("failed to marshal event for the broker",
			slog.String("correlation_id", correlationID), slog.String("error", err.Error()))
		writeJSON(w, s.logger, r, http.StatusInternalServerError, brokerErrorBody{Error: "Internal Broker Error"})

		return
	}

	if err := s.broker.PushLeft(r.Context(), string(payload)); err != nil {
		s.logger.Error("failed to push event onto the broker",
			slog.String("correlation_id", correlationID),
			slog.String("topic", e.Topic), slog.String("event_id", e.EventID),
			slog.String("error", err.Error()))
		writeJSON(w, s.logger, r, http.StatusInternalServerError, brokerErrorBody{Error: "Internal Broker Error"})

		return
	}

	writeJSON(w, s.logger, r, http.StatusAccepted, publishAccepted{Status: "queued", ID: e.EventID})
}

// writeValidationError renders a 422 with a descriptive plain JSON body —
// the literal shape the original spec pins, not an RFC 7807 problem.
func writeValidationError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, detail string) {
	writeJSON(w, logger, r, http.StatusUnprocessableEntity, brokerErrorBody{Error: detail})
}

// handleEvents lists stored ProcessedEvents, optionally filtered by topic.
// Only reached for GET /events; setupRoutes routes every other method on
// that path to methodNotAllowed.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")

	limit := DefaultListLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	rows, err := s.store.ListEvents(r.Context(), topic, limit)
	if err != nil {
		s.logger.Error("failed to list events", slog.String("error", err.Error()))
		writeJSON(w, s.logger, r, http.StatusInternalServerError, brokerErrorBody{Error: "Internal Store Error"})

		return
	}

	if rows == nil {
		rows = []events.ProcessedEvent{}
	}

	writeJSON(w, s.logger, r, http.StatusOK, rows)
}

// handleStats reports the received, unique-processed, and duplicate-dropped
// counters (total latency is not reported), the current row count, and the
// current queue depth. Only reached for GET /stats; setupRoutes routes
// every other method on that path to methodNotAllowed.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statsHealthCheckTimeout)
	defer cancel()

	snap := s.counters.Snapshot()

	rowCount, err := s.store.CountEvents(ctx)
	if err != nil {
		s.logger.Warn("stats: failed to count stored events", slog.String("error", err.Error()))
	}

	queueDepth, err := s.broker.Length(ctx)
	if err != nil {
		s.logger.Warn("stats: broker unreachable, reporting zero depth", slog.String("error", err.Error()))

		queueDepth = 0
	}

	writeJSON(w, s.logger, r, http.StatusOK, statsResponse{
		UptimeStats: uptimeStats{
			ReceivedAPI:      snap.Received,
			UniqueProcessed:  snap.UniqueProcessed,
			DuplicateDropped: snap.DuplicateDropped,
		},
		SystemState: systemState{
			DatabaseRows: rowCount,
			QueueDepth:   queueDepth,
		},
	})
}

// writeJSON marshals body and writes it with the given status code. Marshal
// failures are logged and fall back to a 500 RFC 7807 problem, since at
// that point no literal response shape can be honored anyway.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logger.Error("failed to marshal response body", slog.String("error", err.Error()))
		WriteErrorResponse(w, r, logger, NewProblemDetail(http.StatusInternalServerError, "Internal Server Error", "failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write response body", slog.String("error", err.Error()))
	}
}
