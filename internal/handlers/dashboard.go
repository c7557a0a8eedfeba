package handlers

import (
	"github.com/gofiber/fiber/v3"

	"permitscope/internal/config"
	"permitscope/internal/dataset"
	"permitscope/internal/engine"
)

// DashboardHandler renders the explorer pages.
type DashboardHandler struct {
	cfg      *config.Config
	registry *dataset.Registry
	manifest *config.Manifest
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(cfg *config.Config, registry *dataset.Registry, manifest *config.Manifest) *DashboardHandler {
	return &DashboardHandler{cfg: cfg, registry: registry, manifest: manifest}
}

// Index renders the main explorer page: available states, what the
// session has loaded, and the current filter result summary.
func (h *DashboardHandler) Index(c fiber.Ctx) error {
	sess := SessionFromCtx(c)

	data := fiber.Map{
		"Title":           "Explorer",
		"AvailableStates": h.registry.States(),
		"ChartFields":     engine.ChartFields,
		"Defaults":        h.manifest.Defaults,
		"HasDataset":      false,
	}

	if sess != nil {
		if ds := sess.Dataset(); ds != nil {
			res := engine.Build(ds, sess.Filters(), sess.ExcludedIDs())
			data["HasDataset"] = true
			data["LoadedStates"] = ds.States
			data["Warnings"] = ds.Warnings
			data["Summary"] = engine.Summarize(res)
			data["Filters"] = sess.Filters()
		}
		data["Audiences"] = sess.Audiences()
	}

	return c.Render("index", MergeBranding(data, h.cfg))
}

// Audiences renders the saved-audience management page.
func (h *DashboardHandler) Audiences(c fiber.Ctx) error {
	sess := SessionFromCtx(c)

	data := fiber.Map{
		"Title": "Audiences",
	}
	if sess != nil {
		data["Audiences"] = sess.Audiences()
		data["HasDataset"] = sess.Dataset() != nil
	}

	return c.Render("audiences", MergeBranding(data, h.cfg))
}
