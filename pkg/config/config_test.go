package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	return path
}

func TestLoad_ValidJob(t *testing.T) {
	content := `
output_dir: out
projects:
  - dialect: ras
    project_file: Amite/Amite.prj
    boundary_file: Amite/boundary.shp
    keywords: [levee, amite]
    project_id: P00813
  - dialect: consequences
    project_file: gc/main.go
    output_dir: /tmp/elsewhere
    consequences:
      project_name: Amite GC
      project_description: Structure damages
      run_table: gc/runs.csv
`
	path := writeTempFile(t, "job.yaml", content)
	base := filepath.Dir(path)

	job, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(job.Projects) != 2 {
		t.Fatalf("Projects = %d, want 2", len(job.Projects))
	}
	ras := job.Projects[0]
	if ras.ProjectFile != filepath.Join(base, "Amite", "Amite.prj") {
		t.Errorf("ProjectFile = %q, want it resolved against the job directory", ras.ProjectFile)
	}
	if ras.OutputDir != filepath.Join(base, "out") {
		t.Errorf("OutputDir = %q, want the job output_dir", ras.OutputDir)
	}
	if ras.KeyOrder != KeyOrderSchema {
		t.Errorf("KeyOrder = %q, want %q", ras.KeyOrder, KeyOrderSchema)
	}
	if len(ras.Keywords) != 2 || ras.ProjectID != "P00813" {
		t.Errorf("Keywords = %v, ProjectID = %q", ras.Keywords, ras.ProjectID)
	}

	gc := job.Projects[1]
	if gc.OutputDir != "/tmp/elsewhere" {
		t.Errorf("OutputDir = %q, want project override", gc.OutputDir)
	}
	if gc.Consequences.RunTable != filepath.Join(base, "gc", "runs.csv") {
		t.Errorf("RunTable = %q", gc.Consequences.RunTable)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	if _, err := Load(context.Background(), "/nonexistent/job.yaml"); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempFile(t, "invalid.yaml", `invalid: yaml: content: [`)
	if _, err := Load(context.Background(), path); err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvOutputDir, "/srv/registry-drop")
	t.Setenv(EnvRegistryURL, "https://registry.example.com/api")
	t.Setenv(EnvRegistryToken, "secret")

	path := writeTempFile(t, "job.yaml", `
projects:
  - dialect: hms
    project_file: /data/Amite.hms
    boundary_file: /data/boundary.geojson
`)
	job, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if job.Projects[0].OutputDir != "/srv/registry-drop" {
		t.Errorf("OutputDir = %q, want env override", job.Projects[0].OutputDir)
	}
	if job.Registry == nil || job.Registry.Token != "secret" {
		t.Fatalf("Registry = %+v, want env url and token", job.Registry)
	}
	if job.Registry.Timeout != DefaultRegistryTimeout {
		t.Errorf("Registry.Timeout = %v, want %v", job.Registry.Timeout, DefaultRegistryTimeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr string
	}{
		{
			name:    "no projects",
			job:     Job{},
			wantErr: "at least one project",
		},
		{
			name:    "missing project file",
			job:     Job{Projects: []Project{{Dialect: DialectRAS, BoundaryFile: "b.shp"}}},
			wantErr: "project_file is required",
		},
		{
			name:    "unknown dialect",
			job:     Job{Projects: []Project{{Dialect: "swmm", ProjectFile: "x.inp"}}},
			wantErr: `invalid dialect "swmm"`,
		},
		{
			name:    "boundary required for fia",
			job:     Job{Projects: []Project{{Dialect: DialectFIA, ProjectFile: "a.prj"}}},
			wantErr: "boundary_file is required for fia",
		},
		{
			name: "consequences needs a run",
			job: Job{Projects: []Project{{
				Dialect:      DialectConsequences,
				ProjectFile:  "main.go",
				Consequences: ConsequencesConfig{ProjectName: "gc", ProjectDescription: "d"},
			}}},
			wantErr: "either run_table or simulation_name",
		},
		{
			name: "consequences run modes are exclusive",
			job: Job{Projects: []Project{{
				Dialect:     DialectConsequences,
				ProjectFile: "main.go",
				Consequences: ConsequencesConfig{
					ProjectName: "gc", ProjectDescription: "d",
					RunTable: "runs.csv", SimulationName: "s1",
				},
			}}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "bad key order",
			job:     Job{KeyOrder: "alpha", Projects: []Project{{Dialect: DialectRAS, ProjectFile: "a.prj", BoundaryFile: "b.shp"}}},
			wantErr: "key_order",
		},
		{
			name: "registry scheme",
			job: Job{
				Projects: []Project{{Dialect: DialectRAS, ProjectFile: "a.prj", BoundaryFile: "b.shp"}},
				Registry: &RegistryConfig{URL: "ftp://registry"},
			},
			wantErr: "scheme must be http or https",
		},
		{
			name: "valid",
			job: Job{
				Projects: []Project{{Dialect: DialectRAS, ProjectFile: "a.prj", BoundaryFile: "b.shp"}},
				Registry: &RegistryConfig{URL: "http://localhost:8080", Timeout: time.Second},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.job)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateProject_FillsDefaults(t *testing.T) {
	p := Project{Dialect: DialectHMS, ProjectFile: "a.hms", BoundaryFile: "b.shp"}
	if err := ValidateProject(&p); err != nil {
		t.Fatalf("ValidateProject() error = %v", err)
	}
	if p.OutputDir != DefaultOutputDir || p.KeyOrder != KeyOrderSchema {
		t.Errorf("defaults not applied: OutputDir=%q KeyOrder=%q", p.OutputDir, p.KeyOrder)
	}
}

func TestDefaultConfig(t *testing.T) {
	job := DefaultConfig()
	if job.OutputDir != DefaultOutputDir {
		t.Errorf("OutputDir = %q, want %q", job.OutputDir, DefaultOutputDir)
	}
	if job.Projects == nil {
		t.Error("Projects should be non-nil")
	}
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("HECMETA_TEST_TOKEN", "abc")
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"$HECMETA_TEST_TOKEN", "abc"},
		{"${HECMETA_TEST_TOKEN}", "abc"},
	}
	for _, tt := range tests {
		if got := expandEnvVar(tt.in); got != tt.want {
			t.Errorf("expandEnvVar(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDialects(t *testing.T) {
	if got := len(Dialects()); got != 4 {
		t.Errorf("Dialects() returned %d, want 4", got)
	}
}
