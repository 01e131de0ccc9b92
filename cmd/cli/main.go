// hecmeta extracts model registry metadata from HEC-RAS, HEC-HMS, HEC-FIA
// and Go-Consequences projects.
package main

import (
	"os"

	"github.com/waterinstitute/hecmeta/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
