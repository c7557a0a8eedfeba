package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"permitscope/internal/config"
	"permitscope/internal/engine"
	"permitscope/internal/handlers"
)

// ChartHandler serves chart-ready distribution data.
type ChartHandler struct {
	manifest *config.Manifest
}

// NewChartHandler creates a new API chart handler.
func NewChartHandler(manifest *config.Manifest) *ChartHandler {
	return &ChartHandler{manifest: manifest}
}

// Fields returns the fields histograms can be requested for.
func (h *ChartHandler) Fields(c fiber.Ctx) error {
	return jsonSuccess(c, engine.ChartFields)
}

// Histogram returns distribution data for one field of the current filter
// result. Query params: bins (default 30), trim=false to keep outliers.
func (h *ChartHandler) Histogram(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}
	ds := sess.Dataset()
	if ds == nil {
		return jsonError(c, fiber.StatusConflict, "no dataset loaded")
	}

	bins, _ := strconv.Atoi(c.Query("bins", "30"))
	trim := c.Query("trim", "true") != "false"

	res := engine.Build(ds, sess.Filters(), sess.ExcludedIDs())
	hist, err := engine.FieldHistogram(res, c.Params("field"), bins, trim)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownField) {
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to build histogram")
	}

	return jsonSuccess(c, hist)
}

type fieldBounds struct {
	Field string  `json:"field"`
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
}

// Defaults returns slider bounds per chart field: the observed range of
// the loaded data, falling back to configured defaults when a field has
// no values or no dataset is loaded.
func (h *ChartHandler) Defaults(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)

	var res engine.Result
	if sess != nil {
		if ds := sess.Dataset(); ds != nil {
			res = engine.Build(ds, engine.Filters{}, nil)
		}
	}

	d := h.manifest.Defaults
	fallbacks := map[string][2]float64{
		"squareFootage":    {d.SquareFootage.Min, d.SquareFootage.Max},
		"yearBuilt":        {float64(d.YearBuilt.Min), float64(d.YearBuilt.Max)},
		"beds":             {d.Beds.Min, d.Beds.Max},
		"baths":            {d.Baths.Min, d.Baths.Max},
		"saleYear":         {float64(d.SaleYear.Min), float64(d.SaleYear.Max)},
		"salePrice":        {d.SalePrice.Min, d.SalePrice.Max},
		"permitYear":       {float64(d.PermitYear.Min), float64(d.PermitYear.Max)},
		"saleToPermitDays": {float64(d.SaleToPermitDays.Min), float64(d.SaleToPermitDays.Max)},
	}

	out := make([]fieldBounds, 0, len(engine.ChartFields))
	for _, field := range engine.ChartFields {
		fb := fallbacks[field]
		values, err := engine.FieldValues(res, field)
		if err != nil {
			continue
		}
		lo, hi := engine.SafeRange(values, fb[0], fb[1])
		out = append(out, fieldBounds{Field: field, Lo: lo, Hi: hi})
	}

	return jsonSuccess(c, out)
}
