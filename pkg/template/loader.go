// Package template fills registry document templates with extracted fields.
//
// A Template is a JSON object loaded from an embedded default or from a
// user directory. Merge copies it, deletes the keys a dialect never
// populates, assigns record fields and structured values to JSONPath
// targets, and orders the result by a JSON Schema's property list.
package template

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

//go:embed templates/*.json
var defaults embed.FS

// Kind is the document kind a template produces.
type Kind string

const (
	ModelApplication Kind = "model_application"
	Simulation       Kind = "simulation"
)

// Template is a parsed template document. Keys keeps the top-level order of
// the source file.
type Template struct {
	Name string
	keys []string
	data map[string]any
}

// Keys returns the top-level keys in file order.
func (t *Template) Keys() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Value returns the top-level value stored under key.
func (t *Template) Value(key string) (any, bool) {
	v, ok := t.data[key]
	return v, ok
}

// Loader reads templates and schemas, preferring files in Dir over the
// embedded defaults.
type Loader struct {
	Dir string
}

// NewLoader returns a Loader that overrides the defaults with files from
// dir. An empty dir uses only the defaults.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// TemplateName is the file name of a dialect's template of the given kind.
func TemplateName(dialect string, kind Kind) string {
	return dialect + "_" + string(kind) + ".json"
}

// SchemaName is the file name of the JSON Schema for kind.
func SchemaName(kind Kind) string {
	return string(kind) + "_schema.json"
}

// Template loads a fresh copy of the dialect's template for kind.
func (l *Loader) Template(dialect string, kind Kind) (*Template, error) {
	name := TemplateName(dialect, kind)
	data, err := l.read(name)
	if err != nil {
		return nil, err
	}
	t, err := ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	t.Name = name
	return t, nil
}

// Order returns the property order of the JSON Schema for kind.
func (l *Loader) Order(kind Kind) ([]string, error) {
	name := SchemaName(kind)
	data, err := l.read(name)
	if err != nil {
		return nil, err
	}
	order, err := SchemaOrder(data)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return order, nil
}

func (l *Loader) read(name string) ([]byte, error) {
	if l != nil && l.Dir != "" {
		data, err := os.ReadFile(filepath.Join(l.Dir, name))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
	}
	data, err := defaults.ReadFile("templates/" + name)
	if err != nil {
		return nil, fmt.Errorf("no template named %s: %w", name, err)
	}
	return data, nil
}

// ParseTemplate decodes a JSON object, remembering its top-level key order.
func ParseTemplate(data []byte) (*Template, error) {
	om := orderedmap.New[string, any]()
	if err := json.Unmarshal(data, om); err != nil {
		return nil, fmt.Errorf("decoding template: %w", err)
	}
	t := &Template{data: make(map[string]any, om.Len())}
	for pair := om.Oldest(); pair != nil; pair = pair.Next() {
		t.keys = append(t.keys, pair.Key)
		t.data[pair.Key] = pair.Value
	}
	return t, nil
}

// SchemaOrder returns the keys of a JSON Schema's top-level "properties"
// object in document order.
func SchemaOrder(data []byte) ([]string, error) {
	var schema struct {
		Properties *orderedmap.OrderedMap[string, json.RawMessage] `json:"properties"`
	}
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decoding schema: %w", err)
	}
	if schema.Properties == nil || schema.Properties.Len() == 0 {
		return nil, errors.New("schema has no properties")
	}
	order := make([]string, 0, schema.Properties.Len())
	for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
		order = append(order, pair.Key)
	}
	return order, nil
}
