package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/audit"
	"github.com/teralabs/queuewatch/internal/config"
	"github.com/teralabs/queuewatch/internal/queue"
)

// maxUpdateBody bounds the ingestion payload. The schema already caps
// every field, so anything near this limit is garbage by definition.
const maxUpdateBody = 64 << 10

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// validateServerName is the business-rule stage for routes keyed by the
// path server: shape first, then the allow-list.
func (s *Server) validateServerName(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server := chi.URLParam(r, "server")

		if !config.ServerNamePattern.MatchString(server) {
			s.audit.Event(audit.EventInvalidServerName, r, zap.String("serverName", server))
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid server name format"})
			return
		}
		if !s.serverAllowed(server) {
			s.audit.Event(audit.EventUnauthorizedServer, r, zap.String("serverName", server))
			respondJSON(w, http.StatusForbidden, map[string]string{"error": "Server not authorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) serverAllowed(server string) bool {
	for _, allowed := range s.config.AllowedServers {
		if server == allowed {
			return true
		}
	}
	return false
}

func (s *Server) handleGetQueues(w http.ResponseWriter, r *http.Request) {
	server := chi.URLParam(r, "server")
	dungeons, battlegrounds, lastUpdated := s.store.SnapshotAll()

	respondJSON(w, http.StatusOK, map[string]any{
		"server": server,
		"data": map[string]any{
			"dungeons":    filterRows(dungeons, server),
			"bgs":         filterRows(battlegrounds, server),
			"lastUpdated": lastUpdated.UTC().Format(time.RFC3339),
		},
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGetQueuesByKind(w http.ResponseWriter, r *http.Request) {
	server := chi.URLParam(r, "server")
	kind, ok := queue.KindFromPath(chi.URLParam(r, "type"))
	if !ok {
		s.audit.Event(audit.EventInvalidQueueType, r, zap.String("queueType", chi.URLParam(r, "type")))
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid queue type"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"server":    server,
		"type":      kind.String(),
		"data":      filterRows(s.store.Snapshot(kind), server),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// filterRows keeps only one server's rows, preserving snapshot order.
func filterRows(rows []queue.Row, server string) []queue.Row {
	out := make([]queue.Row, 0, len(rows))
	for _, row := range rows {
		if row.Server == server {
			out = append(out, row)
		}
	}
	return out
}

// handleUpdate runs the post-credential gate stages in order: schema,
// then the business rules, then admission control. Only a fully clean
// request mutates the store.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	pathServer := chi.URLParam(r, "server")

	// Violation specifics go to the audit log only; callers get one
	// generic rejection regardless of what failed.
	req, details, err := decodeUpdate(http.MaxBytesReader(w, r.Body, maxUpdateBody))
	if err != nil {
		s.audit.Event(audit.EventValidationError, r,
			zap.String("fingerprint", Fingerprint(r)),
			zap.Strings("details", details))
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Validation failed"})
		return
	}

	if !config.ServerNamePattern.MatchString(req.Server) {
		s.audit.Event(audit.EventInvalidServerName, r, zap.String("serverName", req.Server))
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid server name format"})
		return
	}
	if !s.serverAllowed(req.Server) {
		s.audit.Event(audit.EventUnauthorizedServer, r, zap.String("serverName", req.Server))
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "Server not authorized"})
		return
	}
	if req.Server != pathServer {
		s.audit.Event(audit.EventServerNameMismatch, r,
			zap.String("pathServer", pathServer),
			zap.String("bodyServer", req.Server))
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Server name in body must match URL path"})
		return
	}

	kind, ok := queue.KindFromWire(req.Type)
	if !ok {
		s.audit.Event(audit.EventInvalidQueueType, r, zap.Int("queueType", req.Type))
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid queue type"})
		return
	}

	instances := req.Instances
	if kind == queue.KindDungeons {
		instances = s.normalizer.Normalize(instances)
	}

	increase := req.MatchingState == 1
	if increase && s.exceedsCeiling(kind, req.Server, instances) {
		s.audit.Event(audit.EventQueueLimitExceeded, r,
			zap.String("serverName", req.Server),
			zap.Int("limit", s.config.MaxQueueEntries))
		respondJSON(w, http.StatusTooManyRequests, map[string]string{"error": "Queue entry limit exceeded"})
		return
	}

	s.store.Apply(kind, req.Server, instances, req.Players, increase)

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"server":    req.Server,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// exceedsCeiling checks whether admitting the request would push one
// server's live entry count past the configured ceiling. The check and
// the apply are not atomic; a racing writer can overshoot by at most
// one request's worth of instances, which the ceiling tolerates.
func (s *Server) exceedsCeiling(kind queue.Kind, server string, instances []string) bool {
	fresh := 0
	seen := make(map[string]struct{}, len(instances))
	for _, instance := range instances {
		if _, dup := seen[instance]; dup {
			continue
		}
		seen[instance] = struct{}{}
		if !s.store.Has(kind, server, instance) {
			fresh++
		}
	}
	return s.store.Live(kind, server)+fresh > s.config.MaxQueueEntries
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	server := chi.URLParam(r, "server")
	s.store.Clear()
	s.logger.Info("queue state cleared",
		zap.String("server", server),
		zap.String("requestID", middleware.GetReqID(r.Context())))

	respondJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"server":    server,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
