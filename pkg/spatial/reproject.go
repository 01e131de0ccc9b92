package spatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/twpayne/go-proj/v10"
)

// densifyPoints is the number of points added along each envelope edge
// when bounds are reprojected, so curved edges in WGS84 are covered.
const densifyPoints = 21

// transformer projects points from a source CRS to WGS84 lon/lat.
type transformer struct {
	pj *proj.PJ
}

func newTransformer(src string) (*transformer, error) {
	if isWGS84(src) {
		return &transformer{}, nil
	}

	pj, err := proj.NewCRSToCRS(src, WGS84, nil)
	if err != nil {
		return nil, fmt.Errorf("creating transformation to %s: %w", WGS84, err)
	}
	defer pj.Destroy()

	norm, err := pj.NormalizeForVisualization()
	if err != nil {
		return nil, fmt.Errorf("normalizing axis order: %w", err)
	}
	return &transformer{pj: norm}, nil
}

func (t *transformer) Close() {
	if t.pj != nil {
		t.pj.Destroy()
		t.pj = nil
	}
}

// geometry returns a reprojected copy of g.
func (t *transformer) geometry(g orb.Geometry) (orb.Geometry, error) {
	if t.pj == nil {
		return orb.Clone(g), nil
	}

	var firstErr error
	out := project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		c, err := t.pj.Forward(proj.NewCoord(p[0], p[1], 0, 0))
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return p
		}
		return orb.Point{c[0], c[1]}
	})
	if firstErr != nil {
		return nil, fmt.Errorf("reprojecting: %w", firstErr)
	}
	return out, nil
}

// envelope reprojects a source-CRS bound and returns the WGS84 bound that
// contains it.
func (t *transformer) envelope(b orb.Bound) (orb.Bound, error) {
	if t.pj == nil {
		return b, nil
	}
	wgs, err := t.pj.ForwardBounds(proj.Bounds{
		XMin: b.Min[0],
		YMin: b.Min[1],
		XMax: b.Max[0],
		YMax: b.Max[1],
	}, densifyPoints)
	if err != nil {
		return orb.Bound{}, fmt.Errorf("reprojecting bounds: %w", err)
	}
	return orb.Bound{
		Min: orb.Point{wgs.XMin, wgs.YMin},
		Max: orb.Point{wgs.XMax, wgs.YMax},
	}, nil
}
