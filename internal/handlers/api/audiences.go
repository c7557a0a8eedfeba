package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jonboulle/clockwork"

	"permitscope/internal/engine"
	"permitscope/internal/handlers"
	"permitscope/internal/session"
	"permitscope/internal/validation"
)

// AudienceHandler manages saved audiences via JSON API.
type AudienceHandler struct {
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewAudienceHandler creates a new API audience handler.
func NewAudienceHandler(clock clockwork.Clock, logger *slog.Logger) *AudienceHandler {
	return &AudienceHandler{clock: clock, logger: logger}
}

type saveAudienceRequest struct {
	Name string `json:"name"`
}

type audienceInfo struct {
	Name      string    `json:"name"`
	Size      int       `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Save captures the current filter result as a named audience. The
// audience's properties are excluded from later builds, and the active
// filters reset so the next audience starts fresh.
func (h *AudienceHandler) Save(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}

	var body saveAudienceRequest
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if !validation.ValidateAudienceName(body.Name) {
		return jsonError(c, fiber.StatusBadRequest, "invalid audience name")
	}

	ds := sess.Dataset()
	if ds == nil {
		return jsonError(c, fiber.StatusConflict, "no dataset loaded")
	}

	res := engine.Build(ds, sess.Filters(), sess.ExcludedIDs())
	a, err := sess.SaveAudience(body.Name, res.PropertyIDs(), h.clock.Now())
	if err != nil {
		switch {
		case errors.Is(err, session.ErrAudienceExists):
			return jsonError(c, fiber.StatusConflict, "audience already exists")
		case errors.Is(err, session.ErrNoDataset):
			return jsonError(c, fiber.StatusConflict, "no dataset loaded")
		default:
			return jsonError(c, fiber.StatusInternalServerError, "failed to save audience")
		}
	}

	h.logger.Info("audience saved", "name", a.Name, "size", a.Size())

	return jsonSuccess(c, audienceInfo{Name: a.Name, Size: a.Size(), CreatedAt: a.CreatedAt})
}

// audienceParam extracts the audience name path parameter. Names may
// contain spaces, which arrive percent-encoded.
func audienceParam(c fiber.Ctx) string {
	name := c.Params("name")
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

// List returns the session's saved audiences.
func (h *AudienceHandler) List(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}

	audiences := sess.Audiences()
	out := make([]audienceInfo, 0, len(audiences))
	for _, a := range audiences {
		out = append(out, audienceInfo{Name: a.Name, Size: a.Size(), CreatedAt: a.CreatedAt})
	}
	return jsonSuccess(c, out)
}

type audienceDetail struct {
	audienceInfo
	Summary engine.Summary `json:"summary"`
}

// Get returns one saved audience with summary statistics over its slice
// of the loaded dataset.
func (h *AudienceHandler) Get(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}

	a, err := sess.Audience(audienceParam(c))
	if err != nil {
		return jsonError(c, fiber.StatusNotFound, "audience not found")
	}

	res := engine.SelectAudience(sess.Dataset(), a)

	return jsonSuccess(c, audienceDetail{
		audienceInfo: audienceInfo{Name: a.Name, Size: a.Size(), CreatedAt: a.CreatedAt},
		Summary:      engine.Summarize(res),
	})
}

// Delete removes one saved audience, returning its properties to the
// working pool.
func (h *AudienceHandler) Delete(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}

	name := audienceParam(c)
	if err := sess.DeleteAudience(name); err != nil {
		return jsonError(c, fiber.StatusNotFound, "audience not found")
	}
	return jsonSuccess(c, fiber.Map{"deleted": name})
}

// Clear removes every saved audience.
func (h *AudienceHandler) Clear(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}

	n := sess.ClearAudiences()
	return jsonSuccess(c, fiber.Map{"deleted": n})
}
