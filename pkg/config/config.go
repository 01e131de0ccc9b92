package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads and validates a job file. Relative paths inside the job are
// resolved against the job file's directory.
func Load(_ context.Context, path string) (*Job, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided job path is expected
	if err != nil {
		return nil, fmt.Errorf("reading job file: %w", err)
	}

	job := DefaultConfig()
	if err := yaml.Unmarshal(data, job); err != nil {
		return nil, fmt.Errorf("parsing job file: %w", err)
	}

	job.applyEnvironmentOverrides()
	job.resolvePaths(filepath.Dir(path))
	job.applyJobDefaults()

	if err := Validate(job); err != nil {
		return nil, fmt.Errorf("validating job: %w", err)
	}

	return job, nil
}

// Validate checks a job for errors and fills registry defaults.
func Validate(job *Job) error {
	if len(job.Projects) == 0 {
		return errors.New("projects: at least one project is required")
	}

	if err := validateKeyOrder(job.KeyOrder); err != nil {
		return fmt.Errorf("key_order: %w", err)
	}

	for i := range job.Projects {
		if err := ValidateProject(&job.Projects[i]); err != nil {
			return fmt.Errorf("projects[%d] (%s): %w", i, job.Projects[i].ProjectFile, err)
		}
	}

	if job.Registry != nil {
		if err := validateRegistry(job.Registry); err != nil {
			return fmt.Errorf("registry: %w", err)
		}
	}

	return nil
}

// ValidateProject checks one project's settings for its dialect.
func ValidateProject(p *Project) error {
	if p.ProjectFile == "" {
		return errors.New("project_file is required")
	}

	if p.KeyOrder == "" {
		p.KeyOrder = DefaultKeyOrder
	}
	if err := validateKeyOrder(p.KeyOrder); err != nil {
		return fmt.Errorf("key_order: %w", err)
	}
	if p.OutputDir == "" {
		p.OutputDir = DefaultOutputDir
	}

	switch p.Dialect {
	case DialectRAS, DialectHMS, DialectFIA:
		if p.BoundaryFile == "" {
			return fmt.Errorf("boundary_file is required for %s projects", p.Dialect)
		}
	case DialectConsequences:
		return validateConsequences(&p.Consequences)
	default:
		return fmt.Errorf("invalid dialect %q (must be ras, hms, fia, or consequences)", p.Dialect)
	}
	return nil
}

func validateConsequences(c *ConsequencesConfig) error {
	if c.ProjectName == "" {
		return errors.New("consequences.project_name is required")
	}
	if c.ProjectDescription == "" {
		return errors.New("consequences.project_description is required")
	}
	if c.RunTable == "" && c.SimulationName == "" {
		return errors.New("consequences: either run_table or simulation_name is required")
	}
	if c.RunTable != "" && c.SimulationName != "" {
		return errors.New("consequences: run_table and simulation_name are mutually exclusive")
	}
	return nil
}

func validateKeyOrder(k KeyOrder) error {
	switch k {
	case KeyOrderSchema, KeyOrderTemplate, "":
		return nil
	default:
		return fmt.Errorf("invalid value %q (must be schema or template)", k)
	}
}

func validateRegistry(r *RegistryConfig) error {
	if r.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(r.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("url must have a host")
	}

	r.Token = expandEnvVar(r.Token)

	if r.Timeout <= 0 {
		r.Timeout = DefaultRegistryTimeout
	}
	return nil
}

func (j *Job) resolvePaths(base string) {
	j.OutputDir = resolvePath(base, j.OutputDir)
	j.TemplateDir = resolvePath(base, j.TemplateDir)
	for i := range j.Projects {
		p := &j.Projects[i]
		p.ProjectFile = resolvePath(base, p.ProjectFile)
		p.BoundaryFile = resolvePath(base, p.BoundaryFile)
		p.TimeSeriesDir = resolvePath(base, p.TimeSeriesDir)
		p.OutputDir = resolvePath(base, p.OutputDir)
		p.TemplateDir = resolvePath(base, p.TemplateDir)

		c := &p.Consequences
		c.ModelDataDir = resolvePath(base, c.ModelDataDir)
		c.ModelOutputDir = resolvePath(base, c.ModelOutputDir)
		c.RunTable = resolvePath(base, c.RunTable)
		c.HazardLayer = resolvePath(base, c.HazardLayer)
		c.InventoryLayer = resolvePath(base, c.InventoryLayer)
		c.ResultsLayer = resolvePath(base, c.ResultsLayer)
	}
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}
