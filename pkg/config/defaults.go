package config

import (
	"os"
	"time"
)

// Default values for configuration.
const (
	DefaultOutputDir       = "output"
	DefaultKeyOrder        = KeyOrderSchema
	DefaultRegistryTimeout = 10 * time.Second
)

// Environment variable names.
const (
	EnvOutputDir     = "HECMETA_OUTPUT_DIR"
	EnvTemplateDir   = "HECMETA_TEMPLATE_DIR"
	EnvRegistryURL   = "HECMETA_REGISTRY_URL"
	EnvRegistryToken = "HECMETA_REGISTRY_TOKEN"
)

// DefaultConfig returns a job with sensible defaults and no projects.
func DefaultConfig() *Job {
	return &Job{
		OutputDir: DefaultOutputDir,
		KeyOrder:  DefaultKeyOrder,
		Projects:  []Project{},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the job.
func (j *Job) applyEnvironmentOverrides() {
	if dir := os.Getenv(EnvOutputDir); dir != "" {
		j.OutputDir = dir
	}
	if dir := os.Getenv(EnvTemplateDir); dir != "" {
		j.TemplateDir = dir
	}
	if u := os.Getenv(EnvRegistryURL); u != "" {
		if j.Registry == nil {
			j.Registry = &RegistryConfig{}
		}
		j.Registry.URL = u
	}
	if tok := os.Getenv(EnvRegistryToken); tok != "" && j.Registry != nil {
		j.Registry.Token = tok
	}
}

// applyJobDefaults copies job-wide settings into projects that do not set
// their own.
func (j *Job) applyJobDefaults() {
	for i := range j.Projects {
		p := &j.Projects[i]
		if p.OutputDir == "" {
			p.OutputDir = j.OutputDir
		}
		if p.TemplateDir == "" {
			p.TemplateDir = j.TemplateDir
		}
		if p.KeyOrder == "" {
			p.KeyOrder = j.KeyOrder
		}
	}
}
