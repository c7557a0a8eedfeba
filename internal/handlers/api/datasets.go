package api

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"permitscope/internal/dataset"
	"permitscope/internal/handlers"
)

var validate = validator.New()

// DatasetHandler serves dataset discovery and loading via JSON API.
type DatasetHandler struct {
	loader   *dataset.Loader
	registry *dataset.Registry
	logger   *slog.Logger
}

// NewDatasetHandler creates a new API dataset handler.
func NewDatasetHandler(loader *dataset.Loader, registry *dataset.Registry, logger *slog.Logger) *DatasetHandler {
	return &DatasetHandler{loader: loader, registry: registry, logger: logger}
}

type stateInfo struct {
	State  string `json:"state"`
	Loaded bool   `json:"loaded"`
}

// States returns the states with a matches file available, flagged with
// whether the session currently has them loaded.
func (h *DatasetHandler) States(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)

	loaded := map[string]bool{}
	if sess != nil {
		if ds := sess.Dataset(); ds != nil {
			for _, s := range ds.States {
				loaded[s] = true
			}
		}
	}

	states := h.registry.States()
	out := make([]stateInfo, 0, len(states))
	for _, s := range states {
		out = append(out, stateInfo{State: s, Loaded: loaded[s]})
	}

	return jsonSuccess(c, out)
}

type loadRequest struct {
	States []string `json:"states" validate:"required,min=1,dive,len=2"`
}

type loadResponse struct {
	States     []string `json:"states"`
	Properties int      `json:"properties"`
	Permits    int      `json:"permits"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Load reads the matches files for the requested states and makes the
// merged dataset the session's working set. Loading replaces whatever was
// loaded before; saved audiences survive.
func (h *DatasetHandler) Load(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}

	var body loadRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "states must be two-letter codes")
	}

	ds, err := h.loader.LoadAll(c.Context(), body.States)
	if err != nil {
		switch {
		case errors.Is(err, dataset.ErrInvalidState):
			return jsonError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, dataset.ErrDatasetNotFound):
			return jsonError(c, fiber.StatusNotFound, err.Error())
		case errors.Is(err, dataset.ErrParse):
			return jsonError(c, fiber.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("dataset load failed", "states", body.States, "error", err)
			return jsonError(c, fiber.StatusInternalServerError, "failed to load dataset")
		}
	}

	sess.SetDataset(ds)

	return jsonSuccess(c, loadResponse{
		States:     ds.States,
		Properties: ds.PropertyCount(),
		Permits:    ds.PermitCount(),
		Warnings:   ds.Warnings,
	})
}
