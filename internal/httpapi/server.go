// Package httpapi serves the facegate HTTP surface: the access decision
// endpoints (current and legacy), identity administration, audit read-back,
// health and metrics.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/facegate/internal/auth"
	"github.com/BrandonDHaskell/facegate/internal/facegate/service"
	"github.com/BrandonDHaskell/facegate/internal/facegate/store"
)

// Authorizer checks an Authorization header for a scope.
type Authorizer interface {
	Authorize(header, scope string) (*auth.Claims, error)
}

// EvidenceReader returns a stored probe image by its audit evidence path.
type EvidenceReader interface {
	Open(rel string) ([]byte, error)
}

type Dependencies struct {
	Logger        *zap.Logger
	Addr          string
	AccessService *service.AccessService
	Registry      *service.IdentityRegistry
	Audit         store.AuditStore

	// Extractor is used for image-based enrollment. Optional.
	Extractor service.FeatureExtractor
	// Evidence serves /v1/audit/{seq}/evidence. Optional.
	Evidence EvidenceReader
	// Authorizer gates every route except health and metrics. nil disables
	// authentication.
	Authorizer Authorizer
	// MetricsHandler defaults to promhttp.Handler().
	MetricsHandler http.Handler
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	access     *service.AccessService
	registry   *service.IdentityRegistry
	audit      store.AuditStore
	extractor  service.FeatureExtractor
	evidence   EvidenceReader
	authorizer Authorizer
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		logger:     logger,
		access:     d.AccessService,
		registry:   d.Registry,
		audit:      d.Audit,
		extractor:  d.Extractor,
		evidence:   d.Evidence,
		authorizer: d.Authorizer,
	}

	metricsHandler := d.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.requireScope(auth.ScopeDecide))
		r.Post("/v1/access", s.handleAccess)
		r.Post("/analyze/", s.handleLegacyAnalyze)
		r.Post("/api/v1/search_face", s.handleLegacySearchFace)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.requireScope(auth.ScopeAuditRead))
		r.Get("/api/v1/logs", s.handleLegacyLogs)
		r.Get("/v1/audit", s.handleListAudit)
		r.Get("/v1/audit/{seq}/evidence", s.handleAuditEvidence)
	})

	r.Route("/v1/admin/identities", func(r chi.Router) {
		r.Use(s.requireScope(auth.ScopeAdmin))
		r.Post("/", s.handleEnroll)
		r.Get("/", s.handleListIdentities)
		r.Get("/{id}", s.handleGetIdentity)
		r.Put("/{id}/access_level", s.handleUpdateAccessLevel)
		r.Post("/{id}/deactivate", s.handleSetActive(false))
		r.Post("/{id}/reactivate", s.handleSetActive(true))
	})

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
