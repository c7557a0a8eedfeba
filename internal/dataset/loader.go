// Package dataset locates, parses, and normalizes per-state matches files.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"permitscope/internal/metrics"
	"permitscope/internal/models"
	"permitscope/internal/validation"
)

// Domain-level dataset error sentinels.
var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrParse           = errors.New("dataset could not be parsed")
	ErrInvalidState    = errors.New("invalid state code")
)

// Loader reads one matches file per state into an in-memory record set.
type Loader struct {
	dataDir  string
	manifest map[string]string // state -> explicit path override
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewLoader creates a loader rooted at dataDir. manifest may be nil.
func NewLoader(dataDir string, manifest map[string]string, clock clockwork.Clock, logger *slog.Logger, m *metrics.Metrics) *Loader {
	return &Loader{
		dataDir:  dataDir,
		manifest: manifest,
		clock:    clock,
		logger:   logger,
		metrics:  m,
	}
}

// rawMatch is one entry of a matches file: a property paired with the
// permit it matched. Properties recur across entries when more than one
// permit matched them.
type rawMatch struct {
	Property json.RawMessage `json:"property"`
	Permit   json.RawMessage `json:"permit"`
}

// rawProperty tolerates the loose typing of upstream files: identifiers
// and numerics arrive as either strings or numbers, and several field
// names have drifted across file generations.
type rawProperty struct {
	ID            any    `json:"id"`
	AddressLine1  string `json:"addressLine1"`
	AddressLine2  string `json:"addressLine2"`
	City          string `json:"city"`
	State         string `json:"state"`
	ZipCode       string `json:"zipCode"`
	County        string `json:"county"`
	PropertyType  string `json:"propertyType"`
	YearBuilt     any    `json:"yearBuilt"`
	Bedrooms      any    `json:"bedrooms"`
	Bathrooms     any    `json:"bathrooms"`
	SquareFootage any    `json:"squareFootage"`

	LastSaleDate string `json:"lastSaleDate"`
	SaleDate     string `json:"saleDate"`

	LastSalePrice  any `json:"lastSalePrice"`
	LastSaleAmount any `json:"lastSaleAmount"`
	SalePrice      any `json:"salePrice"`
	SaleAmount     any `json:"saleAmount"`
}

type rawPermit struct {
	PermitID    any    `json:"permit_id"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Contractor  string `json:"contractor"`
	Cost        any    `json:"cost"`

	FileDate   string `json:"file_date"`
	FileDate2  string `json:"fileDate"`
	PermitDate string `json:"permitDate"`
	IssueDate  string `json:"issueDate"`
	IssueDate2 string `json:"issue_date"`
}

// Load reads and parses the matches file for one state. Malformed entries
// are skipped with a recorded warning; a missing file or undecodable JSON
// is reported through the error sentinels, never a panic.
func (l *Loader) Load(ctx context.Context, state string) (*models.Dataset, error) {
	state = validation.NormalizeStateCode(state)
	if !validation.ValidateStateCode(state) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidState, state)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := l.pathForState(state)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			l.countLoad(state, "not_found")
			return nil, fmt.Errorf("%w: no matches file for state %s", ErrDatasetNotFound, state)
		}
		l.countLoad(state, "error")
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		l.countLoad(state, "parse_error")
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, filepath.Base(path), err)
	}

	ds := l.buildDataset(state, entries)
	l.countLoad(state, "ok")
	if l.metrics != nil {
		l.metrics.PropertiesLoaded.WithLabelValues(state).Set(float64(ds.PropertyCount()))
		l.metrics.PermitsLoaded.WithLabelValues(state).Set(float64(ds.PermitCount()))
	}
	l.logger.Info("dataset loaded",
		"state", state,
		"properties", ds.PropertyCount(),
		"permits", ds.PermitCount(),
		"skipped", len(ds.Warnings),
	)

	return ds, nil
}

// LoadAll loads and merges the datasets for several states. States whose
// file is missing or unparsable are folded into the dataset warnings; the
// call fails only when no state loads at all.
func (l *Loader) LoadAll(ctx context.Context, states []string) (*models.Dataset, error) {
	merged := &models.Dataset{}
	loaded := 0
	for _, state := range states {
		ds, err := l.Load(ctx, state)
		if err != nil {
			if errors.Is(err, ErrDatasetNotFound) || errors.Is(err, ErrParse) || errors.Is(err, ErrInvalidState) {
				merged.Warnings = append(merged.Warnings, err.Error())
				continue
			}
			return nil, err
		}
		merged.Merge(ds)
		loaded++
	}
	if loaded == 0 {
		return nil, fmt.Errorf("%w: none of the requested states loaded", ErrDatasetNotFound)
	}
	return merged, nil
}

// buildDataset decodes entries and groups property/permit pairs into
// matches, preserving first-seen property order. Duplicate permit IDs are
// kept as distinct records.
func (l *Loader) buildDataset(state string, entries []json.RawMessage) *models.Dataset {
	ds := &models.Dataset{
		States:   []string{state},
		LoadedAt: l.clock.Now().UTC(),
	}
	index := make(map[string]int) // property ID -> position in ds.Matches

	for i, entry := range entries {
		var raw rawMatch
		if err := json.Unmarshal(entry, &raw); err != nil {
			l.skip(ds, state, "malformed_entry", fmt.Sprintf("%s entry %d: %v", state, i, err))
			continue
		}
		if len(raw.Property) == 0 {
			l.skip(ds, state, "missing_property", fmt.Sprintf("%s entry %d: no property object", state, i))
			continue
		}

		var rp rawProperty
		if err := json.Unmarshal(raw.Property, &rp); err != nil {
			l.skip(ds, state, "malformed_property", fmt.Sprintf("%s entry %d: %v", state, i, err))
			continue
		}
		id := asString(rp.ID)
		if id == "" {
			l.skip(ds, state, "missing_property_id", fmt.Sprintf("%s entry %d: property has no id", state, i))
			continue
		}

		pos, seen := index[id]
		if !seen {
			ds.Matches = append(ds.Matches, models.Match{Property: normalizeProperty(id, state, rp)})
			pos = len(ds.Matches) - 1
			index[id] = pos
		}

		if len(raw.Permit) == 0 {
			continue
		}
		var rpm rawPermit
		if err := json.Unmarshal(raw.Permit, &rpm); err != nil {
			l.skip(ds, state, "malformed_permit", fmt.Sprintf("%s entry %d: %v", state, i, err))
			continue
		}
		permitID := asString(rpm.PermitID)
		if permitID == "" {
			l.skip(ds, state, "missing_permit_id", fmt.Sprintf("%s entry %d: permit has no id", state, i))
			continue
		}
		ds.Matches[pos].Permits = append(ds.Matches[pos].Permits, normalizePermit(permitID, id, state, rpm))
	}

	return ds
}

func (l *Loader) skip(ds *models.Dataset, state, reason, warning string) {
	ds.Warnings = append(ds.Warnings, warning)
	if l.metrics != nil {
		l.metrics.RecordsSkipped.WithLabelValues(state, reason).Inc()
	}
	l.logger.Warn("skipped match entry", "state", state, "reason", reason)
}

func (l *Loader) countLoad(state, outcome string) {
	if l.metrics != nil {
		l.metrics.DatasetLoads.WithLabelValues(state, outcome).Inc()
	}
}

// pathForState resolves a state's matches file: manifest override first,
// then <dataDir>/<STATE>_matches.json, then <dataDir>/<STATE>/<STATE>_matches.json.
func (l *Loader) pathForState(state string) string {
	if p, ok := l.manifest[state]; ok && p != "" {
		return p
	}
	flat := filepath.Join(l.dataDir, state+"_matches.json")
	if _, err := os.Stat(flat); err == nil {
		return flat
	}
	nested := filepath.Join(l.dataDir, state, state+"_matches.json")
	if _, err := os.Stat(nested); err == nil {
		return nested
	}
	return flat
}

func normalizeProperty(id, state string, rp rawProperty) models.PropertyRecord {
	p := models.PropertyRecord{
		ID:           id,
		AddressLine1: strings.TrimSpace(rp.AddressLine1),
		AddressLine2: strings.TrimSpace(rp.AddressLine2),
		City:         strings.TrimSpace(rp.City),
		State:        state, // the file's state wins over the record's
		ZipCode:      strings.TrimSpace(rp.ZipCode),
		County:       strings.TrimSpace(rp.County),
	}

	if t := strings.TrimSpace(rp.PropertyType); t != "" && !strings.EqualFold(t, "unknown") {
		p.PropertyType = &t
	}
	if y, ok := asInt(rp.YearBuilt); ok {
		p.YearBuilt = &y
	}
	if v, ok := asFloat(rp.Bedrooms); ok {
		p.Beds = &v
	}
	if v, ok := asFloat(rp.Bathrooms); ok {
		p.Baths = &v
	}
	if v, ok := asFloat(rp.SquareFootage); ok {
		p.SquareFootage = &v
	}
	if t, ok := parseDate(firstNonEmpty(rp.LastSaleDate, rp.SaleDate)); ok {
		p.LastSaleDate = &t
	}
	for _, candidate := range []any{rp.LastSalePrice, rp.LastSaleAmount, rp.SalePrice, rp.SaleAmount} {
		if v, ok := asFloat(candidate); ok {
			p.LastSalePrice = &v
			break
		}
	}

	return p
}

func normalizePermit(id, propertyID, state string, rpm rawPermit) models.PermitRecord {
	pm := models.PermitRecord{
		ID:          id,
		PropertyID:  propertyID,
		State:       state,
		Description: strings.TrimSpace(rpm.Description),
	}

	if c := strings.TrimSpace(rpm.Category); c != "" {
		pm.Category = &c
	}
	if c := strings.TrimSpace(rpm.Contractor); c != "" {
		pm.Contractor = &c
	}
	if v, ok := asFloat(rpm.Cost); ok {
		pm.Cost = &v
	}
	filed := firstNonEmpty(rpm.FileDate, rpm.FileDate2, rpm.PermitDate, rpm.IssueDate, rpm.IssueDate2)
	if t, ok := parseDate(filed); ok {
		pm.FileDate = &t
	}

	return pm
}

// dateLayouts are tried in order; all parse into UTC.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// asString renders a loosely typed identifier. Numeric IDs print without a
// decimal point when they are whole numbers.
func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return ""
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func asInt(v any) (int, bool) {
	f, ok := asFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
