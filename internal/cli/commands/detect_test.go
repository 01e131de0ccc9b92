package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/detector"
)

func formatFor(t *testing.T, d config.Dialect) *detector.ProjectFormat {
	t.Helper()
	for _, f := range detector.DefaultFormats() {
		if f.Dialect == d {
			return f
		}
	}
	t.Fatalf("no format for %s", d)
	return nil
}

func TestGenerateStarterJob(t *testing.T) {
	tests := []struct {
		dialect config.Dialect
		file    string
		check   func(t *testing.T, p config.Project)
	}{
		{
			dialect: config.DialectHMS,
			file:    "/data/Amite/Amite.hms",
			check: func(t *testing.T, p config.Project) {
				if p.BoundaryFile != "/data/Amite/CHANGE_ME.shp" {
					t.Errorf("BoundaryFile = %q", p.BoundaryFile)
				}
			},
		},
		{
			dialect: config.DialectConsequences,
			file:    "/data/Amite/main.go",
			check: func(t *testing.T, p config.Project) {
				if p.BoundaryFile != "" {
					t.Errorf("BoundaryFile = %q, want empty", p.BoundaryFile)
				}
				if p.Consequences.ProjectName != "Amite" {
					t.Errorf("ProjectName = %q, want Amite", p.Consequences.ProjectName)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			match := &detector.FormatMatch{Format: formatFor(t, tt.dialect), Confidence: 0.75}

			data, err := generateStarterJob(tt.file, match)
			if err != nil {
				t.Fatalf("generateStarterJob() error = %v", err)
			}
			text := string(data)
			for _, want := range []string{"# Generated by: hecmeta detect", "75% confidence", "output_dir: output"} {
				if !strings.Contains(text, want) {
					t.Errorf("job missing %q:\n%s", want, text)
				}
			}

			var job config.Job
			if err := yaml.Unmarshal(data, &job); err != nil {
				t.Fatalf("generated job is not valid YAML: %v", err)
			}
			if len(job.Projects) != 1 {
				t.Fatalf("Projects = %d, want 1", len(job.Projects))
			}
			p := job.Projects[0]
			if p.Dialect != tt.dialect || p.ProjectFile != tt.file {
				t.Errorf("project = %+v", p)
			}
			tt.check(t, p)
		})
	}
}

func TestWriteStarterJob_Success(t *testing.T) {
	jobPath := filepath.Join(t.TempDir(), "job.yaml")
	result := &detector.DetectionResult{
		Matches: []detector.FormatMatch{{Format: formatFor(t, config.DialectRAS), Confidence: 1.0}},
	}

	var buf bytes.Buffer
	if err := writeStarterJob(&buf, result, "/data/Amite/Amite.prj", jobPath); err != nil {
		t.Fatalf("writeStarterJob() error = %v", err)
	}

	data, err := os.ReadFile(jobPath)
	if err != nil {
		t.Fatalf("job file not written: %v", err)
	}
	if !strings.Contains(string(data), "dialect: ras") {
		t.Errorf("job missing dialect:\n%s", data)
	}
	if !strings.Contains(buf.String(), "Wrote starter job to: "+jobPath) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWriteStarterJob_FileExists(t *testing.T) {
	jobPath := filepath.Join(t.TempDir(), "existing.yaml")
	writeFile(t, jobPath, "existing: content")

	result := &detector.DetectionResult{
		Matches: []detector.FormatMatch{{Format: formatFor(t, config.DialectRAS), Confidence: 1.0}},
	}
	err := writeStarterJob(&bytes.Buffer{}, result, "/data/Amite.prj", jobPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("expected already exists error, got %v", err)
	}

	data, _ := os.ReadFile(jobPath)
	if string(data) != "existing: content" {
		t.Error("existing file was modified")
	}
}

func TestWriteStarterJob_NoMatch(t *testing.T) {
	jobPath := filepath.Join(t.TempDir(), "job.yaml")

	err := writeStarterJob(&bytes.Buffer{}, &detector.DetectionResult{}, "/data/notes.txt", jobPath)
	if err == nil || !strings.Contains(err.Error(), "no project format detected") {
		t.Errorf("expected no format error, got %v", err)
	}
	if _, err := os.Stat(jobPath); !os.IsNotExist(err) {
		t.Error("job file should not be written")
	}
}

func TestOutputDetectText_NoMatch(t *testing.T) {
	var buf bytes.Buffer
	result := &detector.DetectionResult{SampledLines: 3}

	if err := outputDetectText(&buf, result, "notes.txt", &DetectOptions{}); err != nil {
		t.Fatalf("outputDetectText() error = %v", err)
	}
	if !strings.Contains(buf.String(), "No project format detected.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestOutputDetectText_WithMatch(t *testing.T) {
	var buf bytes.Buffer
	result := &detector.DetectionResult{
		SampledLines: 10,
		Matches: []detector.FormatMatch{
			{Format: formatFor(t, config.DialectRAS), Confidence: 1.0, MatchCount: 6, SampleLine: "Proj Title=Amite", Extension: true},
			{Format: formatFor(t, config.DialectFIA), Confidence: 0.125, MatchCount: 1, Extension: true},
		},
		AmbiguityNote: "check the dialect",
	}

	if err := outputDetectText(&buf, result, "Amite.prj", &DetectOptions{ShowAll: true}); err != nil {
		t.Fatalf("outputDetectText() error = %v", err)
	}

	out := buf.String()
	checks := []string{
		"Detected Format: HEC-RAS project",
		"Dialect: ras",
		"Confidence: 100.0% (6/10 lines matched)",
		"Proj Title=Amite",
		"Note: check the dialect",
		"  - dialect: ras",
		"project_file: Amite.prj",
		"--- Alternative formats detected ---",
		"2. HEC-FIA project",
	}
	for _, check := range checks {
		if !strings.Contains(out, check) {
			t.Errorf("output missing %q:\n%s", check, out)
		}
	}
	if strings.Contains(out, "WARNING") {
		t.Errorf("unexpected extension warning:\n%s", out)
	}
}

func TestOutputDetectText_ExtensionMismatch(t *testing.T) {
	var buf bytes.Buffer
	result := &detector.DetectionResult{
		SampledLines: 4,
		Matches: []detector.FormatMatch{
			{Format: formatFor(t, config.DialectHMS), Confidence: 0.5, MatchCount: 3, Extension: false},
		},
	}

	if err := outputDetectText(&buf, result, "Amite.txt", &DetectOptions{}); err != nil {
		t.Fatalf("outputDetectText() error = %v", err)
	}
	if !strings.Contains(buf.String(), "WARNING: HEC-HMS project files usually end in [.hms]") {
		t.Errorf("expected extension warning:\n%s", buf.String())
	}
}

func TestOutputDetectJSON(t *testing.T) {
	result := &detector.DetectionResult{
		SampledLines: 10,
		Matches: []detector.FormatMatch{
			{Format: formatFor(t, config.DialectRAS), Confidence: 1.0, MatchCount: 6, Extension: true},
			{Format: formatFor(t, config.DialectFIA), Confidence: 0.125, MatchCount: 1},
		},
	}

	tests := []struct {
		name    string
		showAll bool
		want    int
	}{
		{"best only", false, 1},
		{"all", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := outputDetectJSON(&buf, result, "Amite.prj", &DetectOptions{ShowAll: tt.showAll}); err != nil {
				t.Fatalf("outputDetectJSON() error = %v", err)
			}

			var out JSONOutput
			if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if len(out.Matches) != tt.want {
				t.Fatalf("Matches = %d, want %d", len(out.Matches), tt.want)
			}
			if out.Matches[0].Dialect != "ras" || !out.Matches[0].Extension {
				t.Errorf("best match = %+v", out.Matches[0])
			}
			if out.File != "Amite.prj" || out.SampledLines != 10 {
				t.Errorf("output = %+v", out)
			}
		})
	}
}

func TestRunDetect_MissingFile(t *testing.T) {
	err := runDetect(context.Background(), &bytes.Buffer{}, "/nonexistent/Amite.prj", &DetectOptions{})
	if err == nil || !strings.Contains(err.Error(), "project file not found") {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestRunDetect_HMSProject(t *testing.T) {
	projectFile, _ := writeHMSProject(t)

	var buf bytes.Buffer
	cmd := NewDetectCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"-o", "json", projectFile})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	var out JSONOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if len(out.Matches) == 0 || out.Matches[0].Dialect != "hms" {
		t.Errorf("expected hms, got %+v", out.Matches)
	}
}

func TestRunDetect_WriteJob(t *testing.T) {
	projectFile, _ := writeHMSProject(t)
	jobPath := filepath.Join(t.TempDir(), "job.yaml")

	var buf bytes.Buffer
	if err := runDetect(context.Background(), &buf, projectFile, &DetectOptions{Output: "text", SampleSize: 50, WriteJob: jobPath}); err != nil {
		t.Fatalf("runDetect() error = %v", err)
	}

	data, err := os.ReadFile(jobPath)
	if err != nil {
		t.Fatalf("job file not written: %v", err)
	}
	if !strings.Contains(string(data), "dialect: hms") {
		t.Errorf("job missing dialect:\n%s", data)
	}
	if !strings.Contains(buf.String(), "Detected Format: HEC-HMS project") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
