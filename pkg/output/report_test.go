package output

import (
	"time"
)

func createTestReport() *Report {
	results := []ProjectResult{
		{
			Project:     "Amite",
			Dialect:     "ras",
			ProjectFile: "/data/Amite/Amite.prj",
			OutputDir:   "output/ras/Amite",
			Outcome:     OutcomeSucceeded,
			Status:      "HEC-RAS extraction complete: output/ras/Amite",
			Documents: []Document{
				{Kind: KindSimulation, Name: "Amite_p01_simulation.json", Bytes: 2048},
				{Kind: KindModelApplication, Name: "Amite_model_application.json", Bytes: 1024},
			},
			Warnings: []string{"plan Amite.p02 excluded: companion Amite.p02.hdf not found"},
		},
		{
			Project:     "Lafitte",
			Dialect:     "fia",
			ProjectFile: "/data/Lafitte/Lafitte.prj",
			Outcome:     OutcomeFailed,
			Status: "HEC-FIA extraction failed: resolving boundary: boundary.shp: missing projection" +
				"\n  caused by: boundary.shp: missing projection" +
				"\n    caused by: missing projection",
		},
	}
	return NewReport(results, "job.yaml", time.Now().Add(-time.Second))
}
