package spatial

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
)

func readShapefile(path string) (*Layer, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shapefile: %w", err)
	}
	defer r.Close()

	layer := &Layer{Path: path}
	box := r.BBox()
	layer.Declared = orb.Bound{Min: orb.Point{box.MinX, box.MinY}, Max: orb.Point{box.MaxX, box.MaxY}}

	for r.Next() {
		_, shape := r.Shape()
		if g := shapeGeometry(shape); g != nil {
			layer.Geometries = append(layer.Geometries, g)
		}
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("reading shapes: %w", err)
	}

	crs, err := readPrj(strings.TrimSuffix(path, filepath.Ext(path)) + ".prj")
	if err != nil {
		return nil, err
	}
	layer.CRS = crs
	return layer, nil
}

// readPrj returns the WKT stored in a shapefile's .prj side file, or "" when
// there is none.
func readPrj(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- sits next to the operator's boundary file
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func shapeGeometry(s shp.Shape) orb.Geometry {
	switch v := s.(type) {
	case *shp.Point:
		return orb.Point{v.X, v.Y}
	case *shp.PointZ:
		return orb.Point{v.X, v.Y}
	case *shp.PointM:
		return orb.Point{v.X, v.Y}
	case *shp.MultiPoint:
		return multiPoint(v.Points)
	case *shp.MultiPointZ:
		return multiPoint(v.Points)
	case *shp.MultiPointM:
		return multiPoint(v.Points)
	case *shp.PolyLine:
		return lines(v.Parts, v.Points)
	case *shp.PolyLineZ:
		return lines(v.Parts, v.Points)
	case *shp.PolyLineM:
		return lines(v.Parts, v.Points)
	case *shp.Polygon:
		return polygons(v.Parts, v.Points)
	case *shp.PolygonZ:
		return polygons(v.Parts, v.Points)
	case *shp.PolygonM:
		return polygons(v.Parts, v.Points)
	}
	return nil
}

func multiPoint(pts []shp.Point) orb.Geometry {
	mp := make(orb.MultiPoint, len(pts))
	for i, p := range pts {
		mp[i] = orb.Point{p.X, p.Y}
	}
	return mp
}

func splitParts(parts []int32, pts []shp.Point) [][]orb.Point {
	var out [][]orb.Point
	for i, start := range parts {
		end := int32(len(pts))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(pts) {
			continue
		}
		part := make([]orb.Point, 0, end-start)
		for _, p := range pts[start:end] {
			part = append(part, orb.Point{p.X, p.Y})
		}
		out = append(out, part)
	}
	return out
}

func lines(parts []int32, pts []shp.Point) orb.Geometry {
	var mls orb.MultiLineString
	for _, part := range splitParts(parts, pts) {
		mls = append(mls, orb.LineString(part))
	}
	if len(mls) == 1 {
		return mls[0]
	}
	return mls
}

// polygons groups shapefile rings: a clockwise ring starts a polygon and a
// counter-clockwise ring is a hole of the polygon before it.
func polygons(parts []int32, pts []shp.Point) orb.Geometry {
	var mp orb.MultiPolygon
	for _, part := range splitParts(parts, pts) {
		ring := orb.Ring(part)
		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			last := len(mp) - 1
			mp[last] = append(mp[last], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	switch len(mp) {
	case 0:
		return nil
	case 1:
		return mp[0]
	}
	return mp
}
