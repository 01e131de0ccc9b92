package consequences

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// callQuery captures package-qualified calls such as
// hazardproviders.Init("wse.tif").
const callQuery = `
(call_expression
	function: (selector_expression
		operand: (identifier) @pkg
		field: (field_identifier) @fn)
	arguments: (argument_list) @args)
`

// mainGo holds the layers a Go-Consequences main.go wires together.
type mainGo struct {
	hazard    string
	inventory string
	results   string
	// projection is the EPSG code the results writer reprojects to.
	projection string
}

type call struct {
	pkg  string
	fn   string
	args *sitter.Node
}

// readMainGo finds the first hazard provider, structure provider and
// results writer calls in src. A projected results writer wins over a plain
// one, which writes EPSG:4326.
func readMainGo(ctx context.Context, src []byte) (mainGo, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return mainGo{}, fmt.Errorf("parsing main.go: %w", err)
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(callQuery), golang.GetLanguage())
	if err != nil {
		return mainGo{}, fmt.Errorf("compiling call query: %w", err)
	}
	defer q.Close()
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var m mainGo
	var plain string
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		var c call
		for _, capture := range match.Captures {
			switch q.CaptureNameForId(capture.Index) {
			case "pkg":
				c.pkg = capture.Node.Content(src)
			case "fn":
				c.fn = capture.Node.Content(src)
			case "args":
				c.args = capture.Node
			}
		}
		if c.args == nil || !strings.HasPrefix(c.fn, "Init") {
			continue
		}

		path := firstString(c.args, src)
		switch c.pkg {
		case "hazardproviders":
			if m.hazard == "" {
				m.hazard = path
			}
		case "structureprovider":
			if m.inventory == "" {
				m.inventory = path
			}
		case "resultswriters":
			if !strings.HasPrefix(c.fn, "InitGpkResultsWriter") {
				continue
			}
			if strings.HasSuffix(c.fn, "_Projected") {
				if m.results == "" {
					m.results = path
					m.projection = lastArgument(c.args, src)
				}
			} else if plain == "" {
				plain = path
			}
		}
	}
	if m.results == "" && plain != "" {
		m.results = plain
		m.projection = "4326"
	}
	return m, nil
}

// firstString returns the first string literal under n in source order.
func firstString(n *sitter.Node, src []byte) string {
	switch n.Type() {
	case "interpreted_string_literal", "raw_string_literal":
		if s, err := strconv.Unquote(n.Content(src)); err == nil {
			return s
		}
		return ""
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if s := firstString(n.NamedChild(i), src); s != "" {
			return s
		}
	}
	return ""
}

func lastArgument(args *sitter.Node, src []byte) string {
	count := int(args.NamedChildCount())
	if count == 0 {
		return ""
	}
	last := strings.TrimSpace(args.NamedChild(count - 1).Content(src))
	if s, err := strconv.Unquote(last); err == nil {
		return s
	}
	return last
}
