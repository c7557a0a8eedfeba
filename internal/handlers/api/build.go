package api

import (
	"encoding/json"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"

	"permitscope/internal/engine"
	"permitscope/internal/handlers"
	"permitscope/internal/metrics"
	"permitscope/internal/models"
)

// sampleSize caps how many matches a build response carries inline.
const sampleSize = 25

// BuildHandler runs filter passes over the session's dataset.
type BuildHandler struct {
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewBuildHandler creates a new API build handler.
func NewBuildHandler(clock clockwork.Clock, logger *slog.Logger, m *metrics.Metrics) *BuildHandler {
	return &BuildHandler{clock: clock, logger: logger, metrics: m}
}

type buildResponse struct {
	TotalProperties    int            `json:"total_properties"`
	MatchingProperties int            `json:"matching_properties"`
	MatchingPermits    int            `json:"matching_permits"`
	FinalCount         int            `json:"final_count"`
	Summary            engine.Summary `json:"summary"`
	Sample             []models.Match `json:"sample"`
	Message            string         `json:"message,omitempty"`
}

// Build applies a filter configuration to the session's dataset and
// returns counts, summary statistics, and a sample of the matches. The
// configuration becomes the session's active filters. Without a loaded
// dataset the result is empty rather than an error, so the page can
// render its empty state.
func (h *BuildHandler) Build(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}

	var filters engine.Filters
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &filters); err != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid filter body")
		}
	}

	ds := sess.Dataset()
	if ds == nil {
		return jsonSuccess(c, buildResponse{Message: "no dataset loaded"})
	}

	sess.SetFilters(filters)

	start := h.clock.Now()
	res := engine.Build(ds, filters, sess.ExcludedIDs())
	summary := engine.Summarize(res)
	h.metrics.AudienceBuilds.Inc()
	h.metrics.BuildDuration.Observe(h.clock.Since(start).Seconds())

	h.logger.Debug("filter build",
		"total", res.TotalProperties,
		"matching", res.MatchingProperties,
		"final", res.FinalCount(),
	)

	sample := res.Matches
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	return jsonSuccess(c, buildResponse{
		TotalProperties:    res.TotalProperties,
		MatchingProperties: res.MatchingProperties,
		MatchingPermits:    res.MatchingPermits,
		FinalCount:         res.FinalCount(),
		Summary:            summary,
		Sample:             sample,
	})
}
