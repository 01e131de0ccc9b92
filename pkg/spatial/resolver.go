// Package spatial resolves a project's boundary into a WGS84 WKT polygon and
// the display name of the boundary's original CRS.
package spatial

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/waterinstitute/hecmeta/internal/ctxlog"
)

// Mode selects the geometry a boundary is reduced to.
type Mode int

const (
	// Envelope reduces the layer to its bounding rectangle.
	Envelope Mode = iota
	// Geometry keeps the feature geometry; several polygon features become
	// one MultiPolygon.
	Geometry
)

func (m Mode) String() string {
	if m == Geometry {
		return "geometry"
	}
	return "envelope"
}

// Result is a resolved boundary: WGS84 WKT and the original CRS display name.
type Result struct {
	WKT string
	CRS string
}

// Options configure Resolve.
type Options struct {
	// Layer names the GeoPackage layer to read.
	Layer string

	// FallbackCRS is assigned when the file carries no CRS.
	FallbackCRS string

	Mode Mode

	// SidecarDir and SidecarName, when both set, make Resolve write the
	// <name>_wkt.yml side-car into SidecarDir.
	SidecarDir  string
	SidecarName string
}

// Resolve reads the vector file at path and returns its boundary.
//
// A file without a CRS takes opts.FallbackCRS; with neither, the error wraps
// ErrMissingProjection. Read and reprojection failures are *ExtentError.
func Resolve(ctx context.Context, path string, opts Options) (Result, error) {
	layer, err := Open(ctx, path, opts.Layer)
	if err != nil {
		return Result{}, err
	}
	return FromLayer(ctx, layer, opts)
}

// FromLayer resolves the boundary of an already opened layer.
func FromLayer(ctx context.Context, layer *Layer, opts Options) (Result, error) {
	src := layer.CRS
	if src == "" {
		src = opts.FallbackCRS
	}
	if src == "" {
		return Result{}, fmt.Errorf("%s: %w", layer.Path, ErrMissingProjection)
	}

	t, err := newTransformer(src)
	if err != nil {
		return Result{}, &ExtentError{Path: layer.Path, Err: err}
	}
	defer t.Close()

	g, err := boundaryGeometry(t, layer, opts.Mode)
	if err != nil {
		var extentErr *ExtentError
		if errors.As(err, &extentErr) {
			return Result{}, err
		}
		return Result{}, &ExtentError{Path: layer.Path, Err: err}
	}

	res := Result{WKT: wkt.MarshalString(g), CRS: DisplayName(src)}

	log := ctxlog.FromContext(ctx)
	log.Debug("boundary resolved", "path", layer.Path, "crs", res.CRS, "mode", opts.Mode.String())

	if opts.SidecarDir != "" && opts.SidecarName != "" {
		p, err := WriteSidecar(opts.SidecarDir, opts.SidecarName, res)
		if err != nil {
			return Result{}, fmt.Errorf("writing boundary side-car: %w", err)
		}
		log.Debug("boundary side-car written", "path", p)
	}
	return res, nil
}

func boundaryGeometry(t *transformer, layer *Layer, mode Mode) (orb.Geometry, error) {
	if mode == Envelope || len(layer.Geometries) == 0 {
		b, ok := layer.Bound()
		if !ok {
			return nil, extentError(layer.Path, "layer has no features")
		}
		wgs, err := t.envelope(b)
		if err != nil {
			return nil, err
		}
		return wgs.ToPolygon(), nil
	}

	var (
		polys  orb.MultiPolygon
		others []orb.Geometry
	)
	for _, g := range layer.Geometries {
		pg, err := t.geometry(g)
		if err != nil {
			return nil, err
		}
		switch v := pg.(type) {
		case orb.Polygon:
			polys = append(polys, v)
		case orb.MultiPolygon:
			polys = append(polys, v...)
		default:
			others = append(others, v)
		}
	}

	switch {
	case len(others) == 0 && len(polys) == 1:
		return polys[0], nil
	case len(others) == 0:
		return polys, nil
	case len(polys) == 0 && len(others) == 1:
		return others[0], nil
	}
	collection := orb.Collection(others)
	if len(polys) > 0 {
		collection = append(orb.Collection{polys}, others...)
	}
	return collection, nil
}
