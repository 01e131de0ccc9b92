package ras

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/hdf"
	"github.com/waterinstitute/hecmeta/pkg/output"
)

const boundaryGeoJSON = `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {},
  "geometry": {"type": "Polygon", "coordinates": [[[-91,30],[-90,30],[-90,31],[-91,31],[-91,30]]]}}]}`

// fakeHDF serves attributes keyed by "<group>/<name>".
type fakeHDF map[string]string

func (f fakeHDF) StringAttr(group, name string) (string, error) {
	if v, ok := f[group+"/"+name]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%s/%s: %w", group, name, hdf.ErrNoAttribute)
}

func (f fakeHDF) Close() error { return nil }

func opener(files map[string]fakeHDF) hdf.Opener {
	return func(path string) (hdf.Container, error) {
		if f, ok := files[filepath.Base(path)]; ok {
			return f, nil
		}
		return nil, fmt.Errorf("opening %s: %w", path, os.ErrNotExist)
	}
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeProject lays out a two-plan project in which only p01 has results.
func writeProject(t *testing.T) config.Project {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Amite")

	prj := write(t, dir, "Amite.prj", strings.Join([]string{
		"Proj Title=Amite",
		"Current Plan=p01",
		"Geom File=g01",
		"Unsteady File=u01",
		"Plan File=p01",
		"Plan File=p02",
		"BEGIN DESCRIPTION:",
		"Amite River basin model",
		"for the 2016 flood.",
		"END DESCRIPTION:",
	}, "\n"))

	write(t, dir, "Amite.p01", strings.Join([]string{
		"Plan Title=Base Plan",
		"Short Identifier=Base",
		"Simulation Date=01JAN2016,0000,31JAN2016,2400",
		"Geom File=g01",
		"Flow File=u01",
		"Computation Interval=1MIN",
		"DSS Output File=dss",
		"BEGIN DESCRIPTION:",
		"August 2016 event",
		"END DESCRIPTION:",
	}, "\n"))
	write(t, dir, "Amite.p01.hdf", "")
	write(t, dir, "Amite.p02", "Plan Title=No Results\nGeom File=g01\nFlow File=u01\n")
	write(t, dir, "Amite.g01", "Geom Title=Optimized Geometry\n")
	write(t, dir, "Amite.u01", strings.Join([]string{
		"Flow Title=August 2016",
		"Boundary Location=Amite River,Upper,1000,,,,,",
		"DSS File=Data\\inflow.dss",
		"DSS Path=/AMITE/UPPER/FLOW//1HOUR/OBS/",
		"Met BC=Precipitation|DSS Filename=Data\\precip.dss",
		"DSS File=Data\\inflow.dss",
	}, "\n"))

	boundary := write(t, root, "Amite/Features/boundary.geojson", boundaryGeoJSON)
	return config.Project{
		Dialect:      config.DialectRAS,
		ProjectFile:  prj,
		BoundaryFile: boundary,
		Keywords:     []string{"LWI"},
		ProjectID:    "P00813",
		OutputDir:    filepath.Join(t.TempDir(), "output"),
	}
}

func results() map[string]fakeHDF {
	return map[string]fakeHDF{
		"Amite.p01.hdf": {
			"//Projection":                 `PROJCS["NAD83 / UTM zone 15N",AUTHORITY["EPSG","26915"]]`,
			"Geometry/Terrain Filename":    `.\Terrain\Terrain.hdf`,
			"Geometry/Land Cover Filename": `.\Land Cover\LandCover.hdf`,
		},
	}
}

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc
}

func locations(files any) map[string]any {
	out := make(map[string]any)
	list, _ := files.([]any)
	for _, f := range list {
		m := f.(map[string]any)
		out[m["title"].(string)] = m["location"]
	}
	return out
}

func TestExtract_PlanWithoutResultsIsSkipped(t *testing.T) {
	cfg := writeProject(t)
	d := New(WithOpener(opener(results())))

	res := extract.RunProject(context.Background(), d, cfg)
	require.Equal(t, output.OutcomeSucceeded, res.Outcome, res.Status)
	assert.True(t, strings.HasPrefix(res.Status, "HEC-RAS extraction complete. Output files located at: "))

	require.Len(t, res.Documents, 2)
	assert.Equal(t, "Amite_p01_simulation.json", res.Documents[0].Name)
	assert.Equal(t, "Amite_model_application.json", res.Documents[1].Name)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Amite.p02")

	_, err := os.Stat(filepath.Join(res.OutputDir, "Amite_wkt.yml"))
	assert.NoError(t, err, "boundary side-car")
}

func TestExtract_SimulationDocument(t *testing.T) {
	cfg := writeProject(t)
	res := extract.RunProject(context.Background(), New(WithOpener(opener(results()))), cfg)
	require.Equal(t, output.OutcomeSucceeded, res.Outcome, res.Status)

	sim := readDoc(t, res.Documents[0].Path)
	assert.Equal(t, "Base Plan", sim["title"])
	assert.Equal(t, "August 2016 event", sim["description"])
	assert.Equal(t, []any{"2016-01-01", "2016-01-31"}, sim["temporal_extent"])
	assert.Equal(t, "1MIN", sim["temporal_resolution"])
	assert.Equal(t, "POLYGON((-91 30,-90 30,-90 31,-91 31,-91 30))", sim["spatial_extent"])
	assert.Equal(t, "EPSG:4326", sim["coordinate_system"])
	for _, key := range []string{"_id", "type", "model_software", "model_application", "parameters", "linked_resources"} {
		assert.NotContains(t, sim, key)
	}

	inputs := locations(sim["input_files"])
	assert.Equal(t, "Amite/Data/inflow.dss", inputs["DSS File"])
	assert.Equal(t, "Amite/Data/precip.dss", inputs["Met BC Precipitation|DSS Filename"])
	assert.Equal(t, "Amite/Terrain/Terrain.hdf", inputs["Terrain"])
	assert.Equal(t, "Amite/Land Cover/LandCover.hdf", inputs["Land cover"])
	assert.NotContains(t, inputs, "Infiltration")
	assert.Equal(t, "Amite/Amite.prj", inputs["prj file"])
	assert.Equal(t, "Amite/Features/boundary.geojson", inputs["Model Boundary"])
	assert.Equal(t, "Amite/Amite.b01", inputs["b file"])
	assert.Equal(t, "Amite/Amite.g01", inputs["g file"])
	assert.Equal(t, "Amite/Amite.c01", inputs["c file"])
	assert.Equal(t, "Amite/Amite.u01.hdf", inputs["u hdf file"])

	outputs := locations(sim["output_files"])
	assert.Equal(t, "Amite/Amite.dss", outputs["output dss file"])
	assert.Equal(t, "Amite/Amite.p01", outputs["p file"])
	assert.Equal(t, "Amite/Amite.p01.hdf", outputs["p hdf file"])
}

func TestExtract_ModelApplicationDocument(t *testing.T) {
	cfg := writeProject(t)
	res := extract.RunProject(context.Background(), New(WithOpener(opener(results()))), cfg)
	require.Equal(t, output.OutcomeSucceeded, res.Outcome, res.Status)

	app := readDoc(t, res.Documents[1].Path)
	assert.Equal(t, "Amite HEC-RAS Model", app["title"])
	assert.Equal(t, "Project Description: Amite River basin model for the 2016 flood.\nSimulations: Base Plan", app["description"])
	assert.Equal(t, "Amite River basin model for the 2016 flood.", app["purpose"])
	assert.Equal(t, []any{"hec-ras", "hec", "ras", "hydraulic", "model", "LWI", "P00813"}, app["keywords"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, app["application_date"])
	assert.Equal(t, "EPSG:4326", app["grid"].(map[string]any)["coordinate_system"])
	assert.Equal(t, []any{"POLYGON((-91 30,-90 30,-90 31,-91 31,-91 30))"}, app["spatial_extent"])
	assert.NotContains(t, app, "authors")
	assert.NotContains(t, app, "temporal_extent")

	inputs := locations(app["common_input_files"])
	assert.Equal(t, "Amite/Amite.prj", inputs["Model Project file"])
	outputs := locations(app["common_output_files"])
	assert.Equal(t, map[string]any{"p file for Base Plan": "Amite/Amite.p01"}, outputs)
}

func TestExtract_Idempotent(t *testing.T) {
	cfg := writeProject(t)
	d := New(WithOpener(opener(results())))

	first := extract.RunProject(context.Background(), d, cfg)
	require.Equal(t, output.OutcomeSucceeded, first.Outcome, first.Status)
	before, err := os.ReadFile(first.Documents[0].Path)
	require.NoError(t, err)

	second := extract.RunProject(context.Background(), d, cfg)
	require.Equal(t, output.OutcomeSucceeded, second.Outcome, second.Status)
	after, err := os.ReadFile(second.Documents[0].Path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestExtract_MissingProjection(t *testing.T) {
	cfg := writeProject(t)

	boundary := filepath.Join(filepath.Dir(cfg.BoundaryFile), "boundary.shp")
	w, err := shp.Create(boundary, shp.POLYGON)
	require.NoError(t, err)
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: 0}}}))
	w.Write(&poly)
	w.Close()
	cfg.BoundaryFile = boundary

	status := extract.Run(context.Background(), New(WithOpener(opener(nil))), cfg)
	assert.True(t, strings.HasPrefix(status, "HEC-RAS extraction failed"), status)
	assert.Contains(t, status, "missing projection")

	entries, err := os.ReadDir(filepath.Join(cfg.OutputDir, "ras", "Amite"))
	if err == nil {
		assert.Empty(t, entries)
	}
}

func TestExtract_ProjectionFromResults(t *testing.T) {
	cfg := writeProject(t)
	cfg.FallbackCRS = "EPSG:4326"
	p, err := New().ReadProject(context.Background(), cfg)
	require.NoError(t, err)

	d := New(WithOpener(opener(results())))
	wkt := d.projection(context.Background(), p, filepath.Join(p.Dir, "Amite.p01.hdf"))
	assert.Contains(t, wkt, "NAD83 / UTM zone 15N")
	assert.Empty(t, d.projection(context.Background(), p, filepath.Join(p.Dir, "Amite.p09.hdf")))
	assert.Len(t, p.Warnings, 1)
}

func TestExtract_NoPlans(t *testing.T) {
	cfg := writeProject(t)
	dir := filepath.Dir(cfg.ProjectFile)
	require.NoError(t, os.Remove(filepath.Join(dir, "Amite.p01.hdf")))

	res := extract.RunProject(context.Background(), New(WithOpener(opener(nil))), cfg)
	assert.Equal(t, output.OutcomeFailed, res.Outcome)
	assert.Contains(t, res.Status, "no simulations found")
}

func TestDSSInputs(t *testing.T) {
	lines := []string{
		"DSS File=inflow.dss",
		"DSS Path=/A/B/FLOW//1HOUR/RUN/",
		"Met BC=Precipitation|DSS Filename=precip.dss",
		"DSS File=inflow.dss",
		"DSS File=",
		"Use DSS=True",
	}
	got := dssInputs(lines)
	want := []dssInput{
		{title: "DSS File", location: "inflow.dss"},
		{title: "Met BC Precipitation|DSS Filename", location: "precip.dss"},
	}
	assert.Equal(t, want, got)
}

func TestDescription(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  string
	}{
		{"block", []string{"Plan Title=A", "BEGIN DESCRIPTION:", "line one", "line two", "END DESCRIPTION:"}, "line one line two"},
		{"no block", []string{"Plan Title=A"}, ""},
		{"unterminated", []string{"BEGIN DESCRIPTION:", "text"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := tt.lines
			var skipped []int
			for i, l := range lines {
				if !strings.Contains(l, "=") {
					skipped = append(skipped, i)
				}
			}
			if got := description(lines, skipped); got != tt.want {
				t.Errorf("description() = %q, want %q", got, tt.want)
			}
		})
	}
}
