package spatial

import (
	"fmt"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/waterinstitute/hecmeta/pkg/output"
)

type sidecar struct {
	SpatialExtent    string `yaml:"spatial_extent"`
	CoordinateSystem string `yaml:"coordinate_system"`
}

// SidecarName returns the side-car file name for a project.
func SidecarName(project string) string {
	return output.SanitizeName(project) + "_wkt.yml"
}

// WriteSidecar records r as <project>_wkt.yml in dir and returns its path.
// Nothing reads the file back; it is kept for inspecting a run.
func WriteSidecar(dir, project string, r Result) (string, error) {
	data, err := yaml.Marshal(sidecar{SpatialExtent: r.WKT, CoordinateSystem: r.CRS})
	if err != nil {
		return "", fmt.Errorf("encoding side-car: %w", err)
	}
	path := filepath.Join(dir, SidecarName(project))
	if err := output.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}
