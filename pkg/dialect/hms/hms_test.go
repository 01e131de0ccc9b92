package hms

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/output"
)

const boundaryGeoJSON = `{"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {},
  "geometry": {"type": "Polygon", "coordinates": [[[-91,30],[-90,30],[-90,31],[-91,31],[-91,30]]]}}]}`

var fixture = map[string]string{
	"Amite.hms": `Project: Amite
     Description: Amite River HMS model
     Version: 4.9
     DSS File Name: Amite.dss
End:

Basin: Upper Amite
     Filename: Upper_Amite.basin
     Description: Upper basin
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

Run: Broken
     Basin: Missing Basin
     DSS File: Broken.dss
     Precip: Met 1
     Control: Jan (2016)
End:
`,
	"Upper_Amite.basin": `Basin: Upper Amite
     Description: Upper Amite subbasins
     Version: 4.9
End:

Subbasin: S1
     Description: First subbasin
     Canopy: Simple
     LossRate: Deficit Constant
     Transform: Clark
     Baseflow: Recession
End:

Subbasin: S2
     Canopy: Simple
     LossRate: Green and Ampt
     Transform: Clark
End:

Reach: R1
     Route: Muskingum Cunge
End:
`,
	"Met_1.met": `Meteorology: Met 1
     Description: Gridded precipitation
     Precipitation Method: Gridded Precipitation
End:
`,
	"Jan__2016_.control": `Control: Jan (2016)
     Description: January 2016
     Start Date: 1 January 2016
     Start Time: 00:00
     End Date: 31  January 2016
     Time Interval: 15
End:
`,
	"Amite.gage": `Gage: G1
     Gage Type: Precipitation
     DSS File Name: data\precip.dss
End:

Gage: G2
     Gage Type: Precipitation
     DSS File Name: data\precip.dss
End:

Gage: G3
     Gage Type: Flow
     DSS File Name: data\flow.dss
End:

Gage: G4
     Gage Type: Stage
     DSS File Name: C:\Models\Amite\Inflow.dss
End:
`,
}

func writeProject(t *testing.T) config.Project {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "Amite")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "maps"), 0o755))
	for name, content := range fixture {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	boundary := filepath.Join(dir, "maps", "outline.geojson")
	require.NoError(t, os.WriteFile(boundary, []byte(boundaryGeoJSON), 0o644))

	series := filepath.Join(root, "timeseries")
	require.NoError(t, os.MkdirAll(series, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(series, "observed.flow.dss"), nil, 0o644))

	return config.Project{
		Dialect:       config.DialectHMS,
		ProjectFile:   filepath.Join(dir, "Amite.hms"),
		BoundaryFile:  boundary,
		TimeSeriesDir: series,
		Keywords:      []string{"LWI"},
		OutputDir:     filepath.Join(t.TempDir(), "output"),
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

func byTitle(files any) map[string]map[string]any {
	out := make(map[string]map[string]any)
	list, _ := files.([]any)
	for _, f := range list {
		m := f.(map[string]any)
		out[m["title"].(string)] = m
	}
	return out
}

func run(t *testing.T) output.ProjectResult {
	t.Helper()
	res := extract.RunProject(context.Background(), New(), writeProject(t))
	require.Equal(t, output.OutcomeSucceeded, res.Outcome, res.Status)
	return res
}

func TestExtract_Documents(t *testing.T) {
	res := run(t)

	require.Len(t, res.Documents, 3)
	assert.Equal(t, "Amite_Run_1_simulation.json", res.Documents[0].Name)
	assert.Equal(t, "Amite_Broken_simulation.json", res.Documents[1].Name)
	assert.Equal(t, "Amite_model_application.json", res.Documents[2].Name)
	assert.True(t, strings.HasPrefix(res.Status, "HEC-HMS extraction complete."))

	var missingBasin bool
	for _, w := range res.Warnings {
		if strings.Contains(w, "simulation=Broken") && strings.Contains(w, "Missing_Basin.basin") {
			missingBasin = true
		}
	}
	assert.True(t, missingBasin, "warnings = %v", res.Warnings)
}

func TestExtract_SimulationDocument(t *testing.T) {
	res := run(t)
	sim := readDoc(t, res.Documents[0].Path)

	assert.Equal(t, "Amite HEC-HMS Simulation: Run 1", sim["title"])
	assert.Equal(t,
		"Basin: Upper Amite, Upper Amite subbasins. Meteorology: Met 1, Gridded precipitation. Control: Jan (2016), January 2016.",
		sim["description"])
	assert.Equal(t, []any{"2016-01-01", "2016-01-31"}, sim["temporal_extent"])
	assert.Equal(t, "15 Minutes", sim["temporal_resolution"])
	assert.Equal(t, "EPSG:4326", sim["coordinate_system"])
	assert.NotContains(t, sim, "type")
	assert.NotContains(t, sim, "model_application")

	assert.Equal(t, []any{
		map[string]any{"parameter": "Canopy", "value": []any{"Simple"}},
		map[string]any{"parameter": "LossRate", "value": []any{"Deficit Constant", "Green and Ampt"}},
		map[string]any{"parameter": "Transform", "value": []any{"Clark"}},
		map[string]any{"parameter": "Baseflow", "value": []any{"Recession"}},
		map[string]any{"parameter": "Route", "value": []any{"Muskingum Cunge"}},
		map[string]any{"parameter": "Precipitation Method", "value": "Gridded Precipitation"},
	}, sim["parameters"])

	inputs := byTitle(sim["input_files"])
	require.Contains(t, inputs, "Precipitation DSS File")
	assert.Equal(t, "Amite/data/precip.dss", inputs["Precipitation DSS File"]["location"])
	assert.Equal(t, "Parsed from Amite.gage file", inputs["Precipitation DSS File"]["description"])
	assert.Equal(t, "Amite/data/flow.dss", inputs["Flow DSS File"]["location"])
	assert.Equal(t, "C:/Models/Amite/Inflow.dss", inputs["Stage DSS File"]["location"])
	assert.Equal(t, "Amite/Upper_Amite.basin", inputs["Basin File"]["location"])
	assert.Equal(t, "Upper Amite subbasins", inputs["Basin File"]["description"])
	assert.Equal(t, "Amite/Met_1.met", inputs["Meteorology File"]["location"])
	assert.Equal(t, "Amite/Jan__2016_.control", inputs["Control File"]["location"])
	assert.Len(t, sim["input_files"], 6)

	outputs := byTitle(sim["output_files"])
	assert.Equal(t, "Amite/Run_1.dss", outputs["Output DSS File"]["location"])
	assert.Nil(t, outputs["Output DSS File"]["description"])
}

func TestExtract_DegradedRun(t *testing.T) {
	res := run(t)
	sim := readDoc(t, res.Documents[1].Path)

	assert.Equal(t, "Amite HEC-HMS Simulation: Broken", sim["title"])
	assert.True(t, strings.HasPrefix(sim["description"].(string), "Basin: Missing Basin. Meteorology: Met 1"))
	inputs := byTitle(sim["input_files"])
	assert.Nil(t, inputs["Basin File"]["location"])
	assert.Equal(t, []any{
		map[string]any{"parameter": "Precipitation Method", "value": "Gridded Precipitation"},
	}, sim["parameters"])
}

func TestExtract_ModelApplicationDocument(t *testing.T) {
	res := run(t)
	app := readDoc(t, res.Documents[2].Path)

	assert.Equal(t, "Amite HEC-HMS Model", app["title"])
	assert.Equal(t, "Amite River HMS model", app["description"])
	assert.Equal(t, "Amite River HMS model", app["purpose"])
	assert.Equal(t, []any{"hec-hms", "hec", "hms", "hydrology", "model", "LWI"}, app["keywords"])
	assert.Equal(t, "POLYGON((-91 30,-90 30,-90 31,-91 31,-91 30))", app["spatial_extent"])
	assert.Equal(t, "EPSG:4326", app["grid"].(map[string]any)["coordinate_system"])

	inputs := byTitle(app["common_input_files"])
	assert.Equal(t, "Amite/Amite.hms", inputs["Project File"]["location"])
	assert.Equal(t, "Amite/*.basin", inputs["Basin Files"]["location"])
	assert.Equal(t, "Amite/*.met", inputs["Meteorological Model Files"]["location"])
	assert.Equal(t, "timeseries/observed.flow.dss", inputs["observed"]["location"])
	assert.Contains(t, inputs, "Precipitation DSS File")

	outputs := byTitle(app["common_output_files"])
	assert.Equal(t, "Amite/Amite.dss", outputs["Project Output DSS File"]["location"])
}

func TestExtract_MissingRunFile(t *testing.T) {
	cfg := writeProject(t)
	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(cfg.ProjectFile), "Amite.run")))

	status := extract.Run(context.Background(), New(), cfg)
	assert.True(t, strings.HasPrefix(status, "HEC-HMS extraction failed: discovering simulations: reading run file"), status)
}

func TestMethods(t *testing.T) {
	lines := []string{
		"Subbasin: S1",
		"     LossRate: SCS",
		"     LossRate: SCS",
		"     Transform: Clark",
		"     Route:",
	}
	got := methods(lines)
	require.Len(t, got, len(basinMethods))
	assert.Equal(t, []string{}, got[0].Value)
	assert.Equal(t, []string{"SCS"}, got[1].Value)
	assert.Equal(t, []string{"Clark"}, got[2].Value)
	assert.Equal(t, []string{}, got[4].Value)
}

func TestComponentFile(t *testing.T) {
	path := componentFile(".control")("/data/Amite", "Jan (2016) run")
	assert.Equal(t, filepath.Join("/data/Amite", "Jan__2016__run.control"), path)
}
