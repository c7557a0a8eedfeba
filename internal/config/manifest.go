package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest represents the structure of the datasets.yaml file. It declares
// where each state's matches file lives and the default bounds the
// dashboard offers for each filter. Everything in it is optional; states
// without an entry resolve to <DATA_DIR>/<STATE>_matches.json.
type Manifest struct {
	Datasets []DatasetEntry `yaml:"datasets"`
	Defaults RangeDefaults  `yaml:"defaults"`
}

// DatasetEntry maps a state code to an explicit matches file path.
type DatasetEntry struct {
	State string `yaml:"state"`
	Path  string `yaml:"path"`
}

// IntRange is an inclusive integer filter bound.
type IntRange struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// FloatRange is an inclusive float filter bound.
type FloatRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// RangeDefaults holds the slider bounds presented before any data-driven
// range is computed.
type RangeDefaults struct {
	YearBuilt        IntRange   `yaml:"year_built" json:"year_built"`
	SaleYear         IntRange   `yaml:"sale_year" json:"sale_year"`
	PermitYear       IntRange   `yaml:"permit_year" json:"permit_year"`
	SaleToPermitDays IntRange   `yaml:"sale_to_permit_days" json:"sale_to_permit_days"`
	Beds             FloatRange `yaml:"beds" json:"beds"`
	Baths            FloatRange `yaml:"baths" json:"baths"`
	SquareFootage    FloatRange `yaml:"square_footage" json:"square_footage"`
	SalePrice        FloatRange `yaml:"sale_price" json:"sale_price"`
}

// LoadManifest loads the YAML dataset manifest. Path is determined by the
// CONFIG_FILE env var, defaulting to "datasets.yaml". A missing file is not
// an error; defaults still apply.
func LoadManifest() (*Manifest, error) {
	path := getEnv("CONFIG_FILE", "datasets.yaml")

	var m Manifest
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m.applyDefaults()
			return &m, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m.applyDefaults()

	return &m, nil
}

// applyDefaults fills unset range bounds with the dashboard's stock slider
// ranges.
func (m *Manifest) applyDefaults() {
	d := &m.Defaults
	if d.YearBuilt == (IntRange{}) {
		d.YearBuilt = IntRange{Min: 1800, Max: 2023}
	}
	if d.SaleYear == (IntRange{}) {
		d.SaleYear = IntRange{Min: 1900, Max: 2023}
	}
	if d.PermitYear == (IntRange{}) {
		d.PermitYear = IntRange{Min: 1950, Max: 2024}
	}
	if d.SaleToPermitDays == (IntRange{}) {
		// +/- 20 years
		d.SaleToPermitDays = IntRange{Min: -7300, Max: 7300}
	}
	if d.Beds == (FloatRange{}) {
		d.Beds = FloatRange{Min: 0, Max: 10}
	}
	if d.Baths == (FloatRange{}) {
		d.Baths = FloatRange{Min: 0, Max: 10}
	}
	if d.SquareFootage == (FloatRange{}) {
		d.SquareFootage = FloatRange{Min: 0, Max: 10000}
	}
	if d.SalePrice == (FloatRange{}) {
		d.SalePrice = FloatRange{Min: 0, Max: 2000000}
	}
}

// PathForState returns the configured matches file path for a state, or
// empty when the manifest has no entry for it.
func (m *Manifest) PathForState(state string) string {
	if m == nil {
		return ""
	}
	for i := range m.Datasets {
		if m.Datasets[i].State == state {
			return m.Datasets[i].Path
		}
	}
	return ""
}

// DatasetPaths returns all manifest entries as a state -> path map.
func (m *Manifest) DatasetPaths() map[string]string {
	if m == nil || len(m.Datasets) == 0 {
		return nil
	}
	paths := make(map[string]string, len(m.Datasets))
	for _, e := range m.Datasets {
		paths[e.State] = e.Path
	}
	return paths
}
