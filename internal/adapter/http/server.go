package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/flood-risk-engine/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Simulator runs region-set simulations.
type Simulator interface {
	SimulateRegionSet(ctx context.Context, params domain.SimulationParameters) (domain.Simulation, error)
}

// Regions lists reference regions.
type Regions interface {
	Provinces() []domain.AdministrativeRegion
	Municipalities(province string) []domain.AdministrativeRegion
	Neighborhoods(municipality, province string) []domain.AdministrativeRegion
}

// Boundaries returns the boundary features of one administrative level.
type Boundaries interface {
	Resolve(ctx context.Context, countryCode string, level domain.Level) ([]domain.PolygonFeature, error)
}

// ElevationLookup returns the elevation of a single point in metres.
type ElevationLookup interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}

// HistoryStore reads recorded simulations.
type HistoryStore interface {
	History(ctx context.Context, limit int) ([]domain.SimulationSummary, error)
	Simulation(ctx context.Context, id string) (domain.Simulation, error)
}

// Deps are the collaborators behind the API routes. History and Boundaries
// may be nil; without Boundaries region listings carry no coordinates.
type Deps struct {
	Ready       sharedobs.ReadinessChecker
	Simulator   Simulator
	Regions     Regions
	Boundaries  Boundaries
	CountryCode string
	Elevation   ElevationLookup
	History     HistoryStore
}

// Server exposes the simulation API plus health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// A cold simulation waits on boundary downloads and many elevation batches.
			WriteTimeout: 5 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(deps.Ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/simulate", s.handleSimulate)
	mux.HandleFunc("GET /api/provinces", s.handleProvinces)
	mux.HandleFunc("GET /api/municipalities", s.handleMunicipalities)
	mux.HandleFunc("GET /api/bairros", s.handleNeighborhoods)
	mux.HandleFunc("GET /api/elevation", s.handleElevation)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryDetail)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
