package commands

import (
	"os"
	"path/filepath"
	"testing"
)

const boundaryGeoJSON = `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {},
  "geometry": {"type": "Polygon", "coordinates": [[[-91,30],[-90,30],[-90,31],[-91,31],[-91,30]]]}}]}`

var hmsProject = map[string]string{
	"Amite.hms": `Project: Amite
     Description: Amite River HMS model
     Version: 4.9
End:

Basin: Upper Amite
     Filename: Upper_Amite.basin
End:

Precipitation: Met 1
     Filename: Met_1.met
End:

Control: Jan (2016)
     Filename: Jan__2016_.control
End:
`,
	"Amite.run": `Run: Run 1
     Basin: Upper Amite
     DSS File: Run_1.dss
     Precip: Met 1
     Control: Jan (2016)
End:
`,
	"Upper_Amite.basin": `Basin: Upper Amite
     Description: Upper Amite subbasins
End:

Subbasin: S1
     Canopy: Simple
     LossRate: Deficit Constant
     Transform: Clark
End:
`,
	"Met_1.met": `Meteorology: Met 1
     Precipitation Method: Gridded Precipitation
End:
`,
	"Jan__2016_.control": `Control: Jan (2016)
     Start Date: 1 January 2016
     Start Time: 00:00
     End Date: 31 January 2016
     Time Interval: 15
End:
`,
	"maps/outline.geojson": boundaryGeoJSON,
}

// writeHMSProject lays out a one-run HEC-HMS project and returns the paths
// of its project file and boundary.
func writeHMSProject(t *testing.T) (projectFile, boundary string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "Amite")
	for name, content := range hmsProject {
		writeFile(t, filepath.Join(dir, name), content)
	}
	return filepath.Join(dir, "Amite.hms"), filepath.Join(dir, "maps", "outline.geojson")
}

// writeJob writes a job file naming one HMS project.
func writeJob(t *testing.T, projectFile, boundary, extra string) string {
	t.Helper()
	job := filepath.Join(t.TempDir(), "job.yaml")
	writeFile(t, job, `output_dir: `+filepath.Join(t.TempDir(), "output")+`
projects:
  - dialect: hms
    project_file: `+projectFile+`
    boundary_file: `+boundary+`
`+extra)
	return job
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

// resetExitCode restores the package exit code after a test.
func resetExitCode(t *testing.T) {
	t.Helper()
	ExitCode = 0
	t.Cleanup(func() { ExitCode = 0 })
}
