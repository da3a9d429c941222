package http

import (
	"context"
	"net/http"
	"time"

	"saldo/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]any{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady performs readiness check with dependency verification
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{}

	if s.ready == nil {
		checks["storage"] = "not_configured"
	} else if err := s.ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err.Error())
		checks["storage"] = "failed: " + err.Error()
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["storage"] = "ok"
	}

	if s.hub == nil {
		checks["realtime"] = "disabled"
	} else {
		checks["realtime"] = "ok"
	}

	NewJSONResponse().
		Status(httpStatus).
		Body(map[string]any{
			"status":    status,
			"timestamp": s.now().UTC().Format(time.RFC3339),
			"checks":    checks,
		}).
		Write(w)
}

// handleMetrics reports the counters kept by the middleware and caches.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	dm := s.detector.GetMetrics()

	connections := 0
	if s.hub != nil {
		connections = s.hub.Connections()
	}

	NewJSONResponse().Body(map[string]any{
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
		"requests": map[string]int64{
			"total":              tm.TotalRequests,
			"failed":             tm.FailedRequests,
			"last_response_usec": tm.AverageResponseTime,
		},
		"rate_limit": map[string]int64{
			"hits":    rm.TotalHits,
			"clients": rm.ClientCount,
		},
		"security": map[string]int64{
			"suspicious_requests": dm.SuspiciousRequests,
			"invalid_ip_attempts": dm.InvalidIPAttempts,
		},
		"ledgers_cached":        s.ledgers.Cached(),
		"websocket_connections": connections,
	}).Write(w)
}

// handleWebsocket streams the owner's ledger events.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		ErrorResponse(http.StatusServiceUnavailable, CodeUnavailable, "realtime updates are disabled").Write(w)
		return
	}
	owner, err := ownerID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.hub.Serve(w, r, owner)
}
