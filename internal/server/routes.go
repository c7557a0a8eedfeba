package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"permitscope/internal/config"
	"permitscope/internal/dataset"
	"permitscope/internal/handlers"
	"permitscope/internal/handlers/api"
	"permitscope/internal/metrics"
	"permitscope/internal/session"
)

// Deps carries the shared components the routes need.
type Deps struct {
	Loader   *dataset.Loader
	Registry *dataset.Registry
	Manifest *config.Manifest
	Sessions *session.Manager
	Clock    clockwork.Clock
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

// RegisterRoutes registers all application routes.
func (s *Server) RegisterRoutes(d Deps) {
	// Initialize handlers
	dashboardHandler := handlers.NewDashboardHandler(s.Cfg, d.Registry, d.Manifest)
	probeHandler := handlers.NewProbeHandler(s.Cfg.DataDir, d.Registry)
	datasetHandler := api.NewDatasetHandler(d.Loader, d.Registry, d.Logger)
	buildHandler := api.NewBuildHandler(d.Clock, d.Logger, d.Metrics)
	chartHandler := api.NewChartHandler(d.Manifest)
	audienceHandler := api.NewAudienceHandler(d.Clock, d.Logger)
	exportHandler := api.NewExportHandler(d.Logger)

	withSession := handlers.SessionMiddleware(d.Sessions)

	// Pages
	s.App.Get("/", withSession, dashboardHandler.Index)
	s.App.Get("/audiences", withSession, dashboardHandler.Audiences)

	// Dataset API
	s.App.Get("/api/states", withSession, datasetHandler.States)
	s.App.Post("/api/datasets/load", withSession, datasetHandler.Load)

	// Filter builds and charts
	s.App.Post("/api/build", withSession, buildHandler.Build)
	s.App.Get("/api/charts/fields", chartHandler.Fields)
	s.App.Get("/api/charts/defaults", withSession, chartHandler.Defaults)
	s.App.Get("/api/charts/:field", withSession, chartHandler.Histogram)

	// Saved audiences
	s.App.Post("/api/audiences", withSession, audienceHandler.Save)
	s.App.Get("/api/audiences", withSession, audienceHandler.List)
	s.App.Get("/api/audiences/:name", withSession, audienceHandler.Get)
	s.App.Delete("/api/audiences/:name", withSession, audienceHandler.Delete)
	s.App.Delete("/api/audiences", withSession, audienceHandler.Clear)

	// Export
	s.App.Get("/api/export.csv", withSession, exportHandler.CSV)

	// Probes and metrics
	s.App.Get("/healthz", probeHandler.Liveness)
	s.App.Get("/readyz", probeHandler.Readiness)
	s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
