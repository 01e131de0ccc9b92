package hms

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/waterinstitute/hecmeta/pkg/extract"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

var (
	simulationDrop = []string{"_id", "model_application", "model_software", "linked_resources", "type"}

	modelApplicationDrop = []string{
		"_id", "linked_resources", "common_parameters", "common_software_version", "authors",
		"spatial_extent_resolved", "spatial_valid_extent_resolved", "spatial_valid_extent",
		"temporal_extent", "temporal_resolution",
	}
)

// SimulationDocument implements extract.Driver.
func (d *Driver) SimulationDocument(p *extract.Project, s *extract.Simulation) (extract.Fill, error) {
	st := p.Data.(*project)
	r := s.Data.(*run)
	rec := s.Record

	temporal := []any{}
	start, startErr := parser.ParseHMSDate(rec.Get("Control Start Date"))
	end, endErr := parser.ParseHMSDate(rec.Get("Control End Date"))
	if startErr == nil && endErr == nil {
		temporal = []any{parser.FormatDate(start), parser.FormatDate(end)}
	}

	var resolution any
	if interval := rec.Get("Control Time Interval"); interval != "" {
		resolution = interval + " Minutes"
	}

	description := strings.Join([]string{
		summary("Basin", rec.Get("Basin"), rec.Get("Basin Description")),
		summary("Meteorology", rec.Get("Precip"), rec.Get("Meteorology Description")),
		summary("Control", rec.Get("Control"), rec.Get("Control Description")),
	}, " ")

	inputs := append([]template.FileRef{}, st.gages...)
	inputs = append(inputs,
		p.File("Basin File", rec.Get("Basin Description"), r.basinPath),
		p.File("Meteorology File", rec.Get("Meteorology Description"), r.metPath),
		p.File("Control File", rec.Get("Control Description"), r.controlPath),
	)

	var outputs []template.FileRef
	if dss := rec.Get("DSS File"); dss != "" {
		outputs = append(outputs, template.File("Output DSS File", "", p.Ref(dss)))
	}

	return extract.Fill{
		Record: rec,
		Spec: template.Spec{
			Drop: simulationDrop,
			Values: []template.Assignment{
				template.Assign("$.title", fmt.Sprintf("%s HEC-HMS Simulation: %s", p.Name, s.Name)),
				template.Assign("$.description", description),
				template.Assign("$.spatial_extent", p.SpatialExtent()),
				template.Assign("$.coordinate_system", p.CoordinateSystem()),
				template.Assign("$.temporal_extent", temporal),
				template.Assign("$.temporal_resolution", resolution),
				template.Assign("$.parameters", r.parameters),
				template.Assign("$.input_files", inputs),
				template.Assign("$.output_files", outputs),
			},
		},
	}, nil
}

// summary renders "Basin: Upper, description." or "Basin: Upper." when
// the component has no description.
func summary(label, name, description string) string {
	if description == "" {
		return fmt.Sprintf("%s: %s.", label, name)
	}
	return fmt.Sprintf("%s: %s, %s.", label, name, strings.TrimSuffix(description, "."))
}

// ModelApplicationDocument implements extract.Driver.
func (d *Driver) ModelApplicationDocument(p *extract.Project, _ []*extract.Simulation) (extract.Fill, error) {
	st := p.Data.(*project)

	pattern := func(ext string) string {
		return filepath.Join(p.Dir, "*"+ext)
	}
	inputs := []template.FileRef{
		p.File("Project File", "The HMS Project File", p.Config.ProjectFile),
		p.File("Basin Files", "There may be multiple basins in the HMS model project", pattern(".basin")),
		p.File("Meteorological Model Files", "There may be multiple Meteorological Models", pattern(".met")),
		p.File("Control Specification Files", "There may be multiple control specifications.", pattern(".control")),
	}
	inputs = append(inputs, st.extraDSS...)
	inputs = append(inputs, st.gages...)

	outputs := []template.FileRef{}
	if st.outputDSS != "" {
		outputs = append(outputs, template.File("Project Output DSS File", "", p.Ref(st.outputDSS)))
	}

	appDate, _ := extract.FileDate(p.Config.ProjectFile)
	return extract.Fill{
		Record: p.Record,
		Spec: template.Spec{
			Drop: modelApplicationDrop,
			Bindings: []template.Binding{
				template.Bind("Description", "$.description"),
				template.Bind("Description", "$.purpose"),
			},
			Values: []template.Assignment{
				template.Assign("$.title", st.title+" HEC-HMS Model"),
				template.Assign("$.application_date", nullable(appDate)),
				template.Assign("$.grid.coordinate_system", p.CoordinateSystem()),
				template.Assign("$.spatial_extent", p.SpatialExtent()),
				template.Assign("$.common_input_files", inputs),
				template.Assign("$.common_output_files", outputs),
			},
			Append: []template.Assignment{template.Assign("$.keywords", p.Keywords())},
		},
	}, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
