package extract

import (
	"context"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/parser"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

// Driver is one format's instantiation of the extraction pipeline.
// The Extractor calls the methods in declaration order.
type Driver interface {
	// Dialect returns the dialect the driver reads.
	Dialect() config.Dialect

	// ReadProject reads the primary project file. An error aborts the
	// project.
	ReadProject(ctx context.Context, cfg config.Project) (*Project, error)

	// ResolveBoundary sets p.Boundary, writing the boundary side-car into
	// sidecarDir. An error aborts the project; drivers whose boundary is
	// optional log a warning and return nil instead.
	ResolveBoundary(ctx context.Context, p *Project, sidecarDir string) error

	// DiscoverSimulations lists the project's simulations. Returning an
	// empty list is equivalent to ErrNoSimulations.
	DiscoverSimulations(ctx context.Context, p *Project) ([]*Simulation, error)

	// ResolveSimulation follows the simulation's file references. An error
	// skips only this simulation.
	ResolveSimulation(ctx context.Context, p *Project, s *Simulation) error

	// SimulationDocument describes how to fill the simulation template.
	SimulationDocument(p *Project, s *Simulation) (Fill, error)

	// ModelApplicationDocument describes how to fill the model application
	// template from the project and the simulations that were written.
	ModelApplicationDocument(p *Project, sims []*Simulation) (Fill, error)
}

// Fill pairs the record a template is bound from with the merge spec.
type Fill struct {
	Record *parser.Record
	Spec   template.Spec
}
