package detector

import (
	"regexp"

	"github.com/waterinstitute/hecmeta/pkg/config"
)

// ProjectFormat describes how a dialect's primary project file looks.
type ProjectFormat struct {
	Dialect    config.Dialect
	Name       string           // Human-readable name
	Patterns   []*regexp.Regexp // Compiled line signatures (set during init)
	PatternStr []string         // Signature strings for display
	Extensions []string         // Usual project file extensions
	Examples   []string         // Example lines
}

// DefaultFormats returns the built-in project file formats.
func DefaultFormats() []*ProjectFormat {
	formats := []*ProjectFormat{
		{
			Dialect: config.DialectRAS,
			Name:    "HEC-RAS project",
			PatternStr: []string{
				`^Proj Title=`,
				`^Current Plan=`,
				`^(Geom|Unsteady|Steady|Plan) File=`,
				`^BEGIN DESCRIPTION:`,
			},
			Extensions: []string{".prj"},
			Examples:   []string{"Proj Title=Amite", "Plan File=p01"},
		},
		{
			Dialect: config.DialectHMS,
			Name:    "HEC-HMS project",
			PatternStr: []string{
				`^Project: `,
				`^(Basin|Precipitation|Control): `,
				`^\s+Filename: `,
				`^End:\s*$`,
			},
			Extensions: []string{".hms"},
			Examples:   []string{"Project: Amite", "     Filename: Upper.basin", "End:"},
		},
		{
			Dialect: config.DialectFIA,
			Name:    "HEC-FIA project",
			PatternStr: []string{
				`^(MapBegin|ManagerBegin)\s*$`,
				`^(MapEnd|ManagerEnd)\s*$`,
				`^ProjectDescription=`,
				`^Class=hec`,
			},
			Extensions: []string{".prj"},
			Examples:   []string{"ManagerBegin", "Class=hec2.fia.Simulation"},
		},
		{
			Dialect: config.DialectConsequences,
			Name:    "Go-Consequences program",
			PatternStr: []string{
				`^package main`,
				`hazardproviders\.Init`,
				`structureprovider\.Init`,
				`resultswriters\.Init`,
			},
			Extensions: []string{".go"},
			Examples:   []string{`hp, err := hazardproviders.Init("wse.tif")`},
		},
	}

	for _, f := range formats {
		f.Patterns = make([]*regexp.Regexp, len(f.PatternStr))
		for i, p := range f.PatternStr {
			f.Patterns[i] = regexp.MustCompile(p)
		}
	}

	return formats
}
