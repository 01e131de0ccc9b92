package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/output"
	"github.com/waterinstitute/hecmeta/pkg/template"
)

// Extractor runs drivers and writes their documents.
type Extractor struct {
	loader   *template.Loader
	writer   *output.Writer
	keyOrder config.KeyOrder
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLoader replaces the template loader built from the project config.
func WithLoader(l *template.Loader) Option {
	return func(e *Extractor) {
		e.loader = l
	}
}

// WithWriter replaces the output writer built from the project config.
func WithWriter(w *output.Writer) Option {
	return func(e *Extractor) {
		e.writer = w
	}
}

// WithKeyOrder overrides the configured key order.
func WithKeyOrder(o config.KeyOrder) Option {
	return func(e *Extractor) {
		e.keyOrder = o
	}
}

// New returns an Extractor for cfg.
func New(cfg config.Project, opts ...Option) *Extractor {
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = config.DefaultOutputDir
	}
	e := &Extractor{
		loader:   template.NewLoader(cfg.TemplateDir),
		writer:   output.NewWriter(outDir),
		keyOrder: cfg.KeyOrder,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.keyOrder == "" {
		e.keyOrder = config.DefaultKeyOrder
	}
	return e
}

// Extract processes one project. The returned result lists every document
// written, including those written before a failure.
func (e *Extractor) Extract(ctx context.Context, d Driver, cfg config.Project) (*output.ProjectResult, error) {
	dialect := d.Dialect()
	res := &output.ProjectResult{
		Dialect:     string(dialect),
		ProjectFile: cfg.ProjectFile,
		Outcome:     output.OutcomeFailed,
	}
	log := ctxlog.FromContext(ctx).With("dialect", string(dialect))
	ctx = ctxlog.WithLogger(ctx, log)

	p, err := d.ReadProject(ctx, cfg)
	if err != nil {
		return res, fmt.Errorf("reading project %s: %w", cfg.ProjectFile, err)
	}
	res.Project = p.Name
	dir := e.writer.ProjectDir(string(dialect), p.Name)
	res.OutputDir = dir
	log = log.With("project", p.Name)
	ctx = ctxlog.WithLogger(ctx, log)
	defer func() { res.Warnings = p.Warnings }()

	if err := d.ResolveBoundary(ctx, p, dir); err != nil {
		return res, fmt.Errorf("resolving boundary: %w", err)
	}

	sims, err := d.DiscoverSimulations(ctx, p)
	if err != nil {
		return res, fmt.Errorf("discovering simulations: %w", err)
	}
	if len(sims) == 0 {
		return res, ErrNoSimulations
	}
	log.Info("simulations discovered", "count", len(sims))

	var written []*Simulation
	for _, s := range sims {
		doc, err := e.simulation(ctx, d, p, s)
		if err != nil {
			p.Warn(ctx, "simulation skipped", "simulation", s.Name, "error", err)
			continue
		}
		w, err := e.writer.WriteJSON(dir, output.SimulationName(p.Name, s.Name), doc)
		if err != nil {
			return res, fmt.Errorf("writing simulation %s: %w", s.Name, err)
		}
		w.Kind = output.KindSimulation
		res.Documents = append(res.Documents, w)
		written = append(written, s)
		log.Debug("simulation written", "simulation", s.Name, "path", w.Path)
	}
	if len(written) == 0 {
		return res, fmt.Errorf("%w: all %d discovered simulation(s) were skipped", ErrNoSimulations, len(sims))
	}

	fill, err := d.ModelApplicationDocument(p, written)
	if err != nil {
		return res, fmt.Errorf("building model application: %w", err)
	}
	doc, err := e.merge(dialect, template.ModelApplication, fill)
	if err != nil {
		return res, fmt.Errorf("building model application: %w", err)
	}
	w, err := e.writer.WriteJSON(dir, output.ModelApplicationName(p.Name), doc)
	if err != nil {
		return res, fmt.Errorf("writing model application: %w", err)
	}
	w.Kind = output.KindModelApplication
	res.Documents = append(res.Documents, w)

	res.Outcome = output.OutcomeSucceeded
	res.Status = fmt.Sprintf("%s extraction complete. Output files located at: %s", dialect.Software(), dir)
	log.Info("project extracted", "documents", len(res.Documents), "output_dir", dir)
	return res, nil
}

func (e *Extractor) simulation(ctx context.Context, d Driver, p *Project, s *Simulation) (*template.Document, error) {
	if err := d.ResolveSimulation(ctx, p, s); err != nil {
		return nil, err
	}
	fill, err := d.SimulationDocument(p, s)
	if err != nil {
		return nil, err
	}
	return e.merge(d.Dialect(), template.Simulation, fill)
}

func (e *Extractor) merge(dialect config.Dialect, kind template.Kind, fill Fill) (*template.Document, error) {
	tpl, err := e.loader.Template(string(dialect), kind)
	if err != nil {
		return nil, err
	}
	spec := fill.Spec
	if spec.Order == nil && e.keyOrder == config.KeyOrderSchema {
		order, err := e.loader.Order(kind)
		if err != nil {
			return nil, err
		}
		spec.Order = order
	}
	doc, err := template.Merge(tpl, fill.Record, spec)
	if err != nil {
		return nil, err
	}
	if err := checkTitle(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

var errNoTitle = errors.New("document has no title")

func checkTitle(doc *template.Document) error {
	v, ok := doc.Get("title")
	if !ok || v == nil {
		return errNoTitle
	}
	if s, isString := v.(string); isString && s == "" {
		return errNoTitle
	}
	return nil
}
