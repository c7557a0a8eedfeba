package api

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"permitscope/internal/engine"
	"permitscope/internal/handlers"
	"permitscope/internal/models"
)

// ExportHandler serves CSV downloads of filter results and audiences.
type ExportHandler struct {
	logger *slog.Logger
}

// NewExportHandler creates a new API export handler.
func NewExportHandler(logger *slog.Logger) *ExportHandler {
	return &ExportHandler{logger: logger}
}

var exportHeader = []string{
	"property_id", "address", "city", "state", "zip_code",
	"property_type", "year_built", "beds", "baths", "square_footage",
	"last_sale_date", "last_sale_price",
	"permit_count", "permit_ids", "permit_data",
}

// CSV streams the current filter result as a CSV download. With
// ?audience=<name>, the named audience is exported instead.
func (h *ExportHandler) CSV(c fiber.Ctx) error {
	sess := handlers.SessionFromCtx(c)
	if sess == nil {
		return jsonError(c, fiber.StatusInternalServerError, "no session")
	}
	ds := sess.Dataset()
	if ds == nil {
		return jsonError(c, fiber.StatusConflict, "no dataset loaded")
	}

	name := c.Query("audience", "")
	filename := "matches.csv"

	var res engine.Result
	if name != "" {
		a, err := sess.Audience(name)
		if err != nil {
			return jsonError(c, fiber.StatusNotFound, "audience not found")
		}
		res = engine.SelectAudience(ds, a)
		filename = fmt.Sprintf("audience_%s.csv", name)
	} else {
		res = engine.Build(ds, sess.Filters(), sess.ExcludedIDs())
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to write csv")
	}
	for i := range res.Matches {
		if err := w.Write(exportRow(&res.Matches[i])); err != nil {
			return jsonError(c, fiber.StatusInternalServerError, "failed to write csv")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to write csv")
	}

	h.logger.Info("csv export", "rows", res.FinalCount(), "audience", name)

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// exportRow flattens one match into a CSV record. Permit details ride
// along as a JSON column so a row stays one property.
func exportRow(m *models.Match) []string {
	p := &m.Property

	ids := make([]string, len(m.Permits))
	type permitOut struct {
		ID       string   `json:"id"`
		FileDate string   `json:"file_date,omitempty"`
		Category *string  `json:"category,omitempty"`
		Cost     *float64 `json:"cost,omitempty"`
	}
	permits := make([]permitOut, len(m.Permits))
	for i := range m.Permits {
		pm := &m.Permits[i]
		ids[i] = pm.ID
		permits[i] = permitOut{ID: pm.ID, Category: pm.Category, Cost: pm.Cost}
		if pm.FileDate != nil {
			permits[i].FileDate = pm.FileDate.Format("2006-01-02")
		}
	}
	permitJSON, _ := json.Marshal(permits)

	return []string{
		p.ID,
		p.Address(),
		p.City,
		p.State,
		p.ZipCode,
		strOrEmpty(p.PropertyType),
		intOrEmpty(p.YearBuilt),
		floatOrEmpty(p.Beds),
		floatOrEmpty(p.Baths),
		floatOrEmpty(p.SquareFootage),
		dateOrEmpty(p.LastSaleDate),
		floatOrEmpty(p.LastSalePrice),
		strconv.Itoa(len(m.Permits)),
		strings.Join(ids, ";"),
		string(permitJSON),
	}
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func dateOrEmpty(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format("2006-01-02")
}
