package spatial

import (
	"fmt"
	"os"

	"github.com/paulmach/orb/geojson"
)

// readGeoJSON reads a FeatureCollection, or a single Feature. A legacy "crs"
// member is honoured; without one the layer is WGS84 as RFC 7946 requires.
func readGeoJSON(path string) (*Layer, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied boundary
	if err != nil {
		return nil, err
	}

	layer := &Layer{Path: path, CRS: WGS84}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err == nil && fc.Type == "FeatureCollection" {
		for _, f := range fc.Features {
			if f.Geometry != nil {
				layer.Geometries = append(layer.Geometries, f.Geometry)
			}
		}
		if name := legacyCRSName(fc.ExtraMembers); name != "" {
			layer.CRS = crsFromURN(name)
		}
		return layer, nil
	}

	f, ferr := geojson.UnmarshalFeature(data)
	if ferr != nil {
		if err != nil {
			return nil, fmt.Errorf("decoding GeoJSON: %w", err)
		}
		return nil, fmt.Errorf("decoding GeoJSON: %w", ferr)
	}
	if f.Geometry != nil {
		layer.Geometries = append(layer.Geometries, f.Geometry)
	}
	return layer, nil
}

func legacyCRSName(members geojson.Properties) string {
	crs, ok := members["crs"].(map[string]any)
	if !ok {
		return ""
	}
	props, ok := crs["properties"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := props["name"].(string)
	return name
}
