// Package config provides job loading, per-project configuration and user
// settings for hecmeta.
package config

import "time"

// Dialect names the modeling tool whose project files are read.
type Dialect string

const (
	DialectRAS          Dialect = "ras"
	DialectHMS          Dialect = "hms"
	DialectFIA          Dialect = "fia"
	DialectConsequences Dialect = "consequences"
)

// Dialects lists every supported dialect in display order.
func Dialects() []Dialect {
	return []Dialect{DialectRAS, DialectHMS, DialectFIA, DialectConsequences}
}

// Software returns the display name of the dialect's modeling tool.
func (d Dialect) Software() string {
	switch d {
	case DialectRAS:
		return "HEC-RAS"
	case DialectHMS:
		return "HEC-HMS"
	case DialectFIA:
		return "HEC-FIA"
	case DialectConsequences:
		return "Go-Consequences"
	}
	return string(d)
}

// KeyOrder selects how top-level document keys are ordered on output.
type KeyOrder string

const (
	// KeyOrderSchema orders keys by the JSON Schema properties list and
	// drops keys the schema does not name.
	KeyOrderSchema KeyOrder = "schema"
	// KeyOrderTemplate keeps the template's own key order.
	KeyOrderTemplate KeyOrder = "template"
)

// Job is the root structure of a YAML job file.
type Job struct {
	OutputDir   string          `yaml:"output_dir"`
	TemplateDir string          `yaml:"template_dir,omitempty"`
	KeyOrder    KeyOrder        `yaml:"key_order,omitempty"`
	Registry    *RegistryConfig `yaml:"registry,omitempty"`
	Projects    []Project       `yaml:"projects"`
}

// Project is the complete input of one extraction. It is built once from a
// job file or command line flags, validated, and handed to a driver by value.
type Project struct {
	Dialect Dialect `yaml:"dialect"`

	// ProjectFile is the primary project file (.prj, .hms, or main.go).
	ProjectFile string `yaml:"project_file"`

	// BoundaryFile is a shapefile, GeoJSON or GeoPackage with the model
	// boundary. Required for every dialect except consequences.
	BoundaryFile string `yaml:"boundary_file,omitempty"`

	// BoundaryLayer names the GeoPackage layer to read. Empty selects the
	// first feature table.
	BoundaryLayer string `yaml:"boundary_layer,omitempty"`

	// FallbackCRS is assigned to a boundary without its own CRS.
	FallbackCRS string `yaml:"fallback_crs,omitempty"`

	// TimeSeriesDir is an extra directory of DSS files (HMS).
	TimeSeriesDir string `yaml:"time_series_dir,omitempty"`

	Keywords  []string `yaml:"keywords,omitempty"`
	ProjectID string   `yaml:"project_id,omitempty"`

	Consequences ConsequencesConfig `yaml:"consequences,omitempty"`

	// Filled from the job when empty.
	OutputDir   string   `yaml:"output_dir,omitempty"`
	TemplateDir string   `yaml:"template_dir,omitempty"`
	KeyOrder    KeyOrder `yaml:"key_order,omitempty"`
}

// ConsequencesConfig holds the Go-Consequences settings that have no home in
// its main.go.
type ConsequencesConfig struct {
	ProjectName        string `yaml:"project_name,omitempty"`
	ProjectDescription string `yaml:"project_description,omitempty"`
	ModelDataDir       string `yaml:"model_data_dir,omitempty"`
	ModelOutputDir     string `yaml:"model_output_dir,omitempty"`

	// RunTable is a CSV file describing several runs. When empty a single
	// run is described by SimulationName and SimulationDescription.
	RunTable              string `yaml:"run_table,omitempty"`
	SimulationName        string `yaml:"simulation_name,omitempty"`
	SimulationDescription string `yaml:"simulation_description,omitempty"`

	// Explicit layers override those found in main.go and the data directory.
	HazardLayer    string `yaml:"hazard_layer,omitempty"`
	InventoryLayer string `yaml:"inventory_layer,omitempty"`
	ResultsLayer   string `yaml:"results_layer,omitempty"`
}

// RegistryConfig points at a model registry that accepts the written
// documents.
type RegistryConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}
