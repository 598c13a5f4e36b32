package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/audit"
	"github.com/teralabs/queuewatch/internal/config"
	"github.com/teralabs/queuewatch/internal/queue"
)

// Server holds the ingestion endpoints' dependencies. The store is
// injected, never global; handlers reach state only through it.
type Server struct {
	store      *queue.Store
	normalizer *queue.Normalizer
	config     *config.ServerConfig
	audit      *audit.Logger
	logger     *zap.Logger
}

// NewServer wires the handler set.
func NewServer(store *queue.Store, normalizer *queue.Normalizer, cfg *config.ServerConfig, auditLog *audit.Logger, logger *zap.Logger) *Server {
	return &Server{
		store:      store,
		normalizer: normalizer,
		config:     cfg,
		audit:      auditLog,
		logger:     logger,
	}
}

// NewRouter builds the HTTP surface. The gate stages run in a fixed
// order: origin allow-list, fingerprinting, then per-route credential,
// schema, and business-rule checks. liveHandler, when non-nil, serves
// the websocket snapshot stream.
func NewRouter(s *Server, liveHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(s.corsMiddleware)
	r.Use(s.timeoutMiddleware)
	r.Use(s.ipAllowlistMiddleware)
	r.Use(fingerprintMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/health", s.handleHealth)

		v1.Route("/servers/{server}/queues", func(q chi.Router) {
			q.Group(func(g chi.Router) {
				g.Use(s.validateServerName)
				g.Get("/", s.handleGetQueues)
				if liveHandler != nil {
					g.Get("/live", liveHandler.ServeHTTP)
				}
				g.Get("/{type}", s.handleGetQueuesByKind)
			})

			// Credential before the business-rule stage; the update
			// handler runs schema validation between the two itself.
			q.Group(func(m chi.Router) {
				m.Use(s.requireAPIKey)
				m.Post("/", s.handleUpdate)
				m.With(s.validateServerName).Delete("/", s.handleClear)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "Endpoint not found"})
	})

	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range s.config.AllowedOrigins {
			if origin == allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
