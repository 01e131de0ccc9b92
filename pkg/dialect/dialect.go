// Package dialect maps dialect names to their format drivers.
package dialect

import (
	"errors"
	"fmt"

	"github.com/waterinstitute/hecmeta/pkg/config"
	"github.com/waterinstitute/hecmeta/pkg/dialect/consequences"
	"github.com/waterinstitute/hecmeta/pkg/dialect/fia"
	"github.com/waterinstitute/hecmeta/pkg/dialect/hms"
	"github.com/waterinstitute/hecmeta/pkg/dialect/ras"
	"github.com/waterinstitute/hecmeta/pkg/extract"
)

// ErrUnknownDialect is returned for a dialect with no driver.
var ErrUnknownDialect = errors.New("unknown dialect")

// New returns the driver for d.
func New(d config.Dialect) (extract.Driver, error) {
	switch d {
	case config.DialectRAS:
		return ras.New(), nil
	case config.DialectHMS:
		return hms.New(), nil
	case config.DialectFIA:
		return fia.New(), nil
	case config.DialectConsequences:
		return consequences.New(), nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownDialect, d)
}

// Parse converts a command line or job file name to a Dialect. Common
// aliases such as "hec-ras" and "go-consequences" are accepted.
func Parse(name string) (config.Dialect, error) {
	switch name {
	case "ras", "hec-ras", "HEC-RAS":
		return config.DialectRAS, nil
	case "hms", "hec-hms", "HEC-HMS":
		return config.DialectHMS, nil
	case "fia", "hec-fia", "HEC-FIA":
		return config.DialectFIA, nil
	case "consequences", "go-consequences", "Go-Consequences":
		return config.DialectConsequences, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownDialect, name)
}
