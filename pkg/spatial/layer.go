package spatial

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
)

// Layer is a vector dataset read into memory.
type Layer struct {
	Path string

	// CRS is the layer's CRS definition as read from the file: a WKT string
	// or an authority code. Empty when the file carries none.
	CRS string

	Geometries []orb.Geometry

	// Declared is the extent recorded in the file's metadata, when the
	// format keeps one.
	Declared orb.Bound
}

// Bound returns the envelope of every geometry, or the declared extent for a
// layer without decodable geometries.
func (l *Layer) Bound() (orb.Bound, bool) {
	if len(l.Geometries) == 0 {
		if l.Declared == (orb.Bound{}) {
			return orb.Bound{}, false
		}
		return l.Declared, true
	}
	b := l.Geometries[0].Bound()
	for _, g := range l.Geometries[1:] {
		b = b.Union(g.Bound())
	}
	return b, true
}

// Open reads the vector file at path. name selects a GeoPackage layer and is
// ignored by single-layer formats.
func Open(ctx context.Context, path, name string) (*Layer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &ExtentError{Path: path, Err: err}
	}

	var (
		layer *Layer
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp":
		layer, err = readShapefile(path)
	case ".geojson", ".json":
		layer, err = readGeoJSON(path)
	case ".gpkg":
		layer, err = readGeoPackage(ctx, path, name)
	default:
		err = fmt.Errorf("unsupported vector format %q", ext)
	}
	if err != nil {
		return nil, &ExtentError{Path: path, Err: err}
	}
	return layer, nil
}
