package template

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ohler55/ojg/jp"

	"github.com/waterinstitute/hecmeta/pkg/parser"
)

// Binding copies the record field Field to the JSONPath Target.
type Binding struct {
	Field  string
	Target string
}

// Assignment sets Target to a computed Value.
type Assignment struct {
	Target string
	Value  any
}

// Bind is shorthand for Binding{Field: field, Target: target}.
func Bind(field, target string) Binding {
	return Binding{Field: field, Target: target}
}

// Assign is shorthand for Assignment{Target: target, Value: value}.
func Assign(target string, value any) Assignment {
	return Assignment{Target: target, Value: value}
}

// Spec describes how one dialect fills one template.
type Spec struct {
	// Drop lists top-level keys removed before anything is assigned.
	// Targets under a dropped key are skipped.
	Drop []string
	// Bindings are applied first, in order.
	Bindings []Binding
	// Values are applied after Bindings and win over them.
	Values []Assignment
	// Append adds the elements of each value, a slice, to the list at its
	// target. A null target becomes a new list.
	Append []Assignment
	// Order, when set, is the final top-level key order. Keys it does not
	// name are removed.
	Order []string
}

// Merge fills a copy of t from rec as described by spec. The template
// itself is left unchanged.
//
// A binding whose field is absent from rec assigns null, or an empty list
// when the template holds a list at the target.
func Merge(t *Template, rec *parser.Record, spec Spec) (*Document, error) {
	data := clone(t.data).(map[string]any)
	keys := append([]string(nil), t.keys...)

	dropped := make(map[string]bool, len(spec.Drop))
	for _, k := range spec.Drop {
		dropped[k] = true
		delete(data, k)
	}

	for _, b := range spec.Bindings {
		x, skip, err := target(b.Target, dropped)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		var value any
		if v, ok := rec.Lookup(b.Field); ok {
			value = strings.TrimSpace(v)
		} else if _, isList := x.First(data).([]any); isList {
			value = []any{}
		}
		if err := set(data, x, value); err != nil {
			return nil, fmt.Errorf("binding %s to %s: %w", b.Field, b.Target, err)
		}
	}

	for _, a := range spec.Values {
		x, skip, err := target(a.Target, dropped)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		if err := set(data, x, a.Value); err != nil {
			return nil, fmt.Errorf("assigning %s: %w", a.Target, err)
		}
	}

	for _, a := range spec.Append {
		x, skip, err := target(a.Target, dropped)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		var list []any
		switch cur := x.First(data).(type) {
		case nil:
		case []any:
			list = cur
		default:
			return nil, fmt.Errorf("appending to %s: target is %T, not a list", a.Target, cur)
		}
		extra, err := elements(a.Value)
		if err != nil {
			return nil, fmt.Errorf("appending to %s: %w", a.Target, err)
		}
		if err := set(data, x, append(list, extra...)); err != nil {
			return nil, fmt.Errorf("appending to %s: %w", a.Target, err)
		}
	}

	order := spec.Order
	if order == nil {
		order = keys
		seen := make(map[string]bool, len(keys))
		for _, k := range keys {
			seen[k] = true
		}
		var targets []string
		for _, b := range spec.Bindings {
			targets = append(targets, b.Target)
		}
		for _, a := range spec.Values {
			targets = append(targets, a.Target)
		}
		for _, a := range spec.Append {
			targets = append(targets, a.Target)
		}
		for _, path := range targets {
			if top := topKey(path); top != "" && !seen[top] {
				seen[top] = true
				order = append(order, top)
			}
		}
	}

	doc := NewDocument()
	for _, k := range order {
		if v, ok := data[k]; ok {
			doc.Set(k, v)
		}
	}
	return doc, nil
}

func target(path string, dropped map[string]bool) (jp.Expr, bool, error) {
	x, err := jp.ParseString(path)
	if err != nil {
		return nil, false, fmt.Errorf("invalid target %q: %w", path, err)
	}
	if len(x) < 2 {
		return nil, false, fmt.Errorf("invalid target %q: no key", path)
	}
	if top, ok := x[1].(jp.Child); ok && dropped[string(top)] {
		return x, true, nil
	}
	return x, false, nil
}

// set assigns value at x. Every container above the final step must exist,
// except that top-level keys are created.
func set(data map[string]any, x jp.Expr, value any) error {
	var parent any = data
	if len(x) > 2 {
		parent = x[:len(x)-1].First(data)
	}
	switch last := x[len(x)-1].(type) {
	case jp.Child:
		m, ok := parent.(map[string]any)
		if !ok {
			return fmt.Errorf("parent of %q is not an object", string(last))
		}
		m[string(last)] = value
	case jp.Nth:
		list, ok := parent.([]any)
		if !ok {
			return fmt.Errorf("parent of [%d] is not a list", int(last))
		}
		i := int(last)
		if i < 0 {
			i += len(list)
		}
		if i < 0 || i >= len(list) {
			return fmt.Errorf("index %d out of range for list of %d", int(last), len(list))
		}
		list[i] = value
	default:
		return fmt.Errorf("unsupported target step %T", last)
	}
	return nil
}

func topKey(path string) string {
	x, err := jp.ParseString(path)
	if err != nil || len(x) < 2 {
		return ""
	}
	if c, ok := x[1].(jp.Child); ok {
		return string(c)
	}
	return ""
}

func elements(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("value is %T, not a slice", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func clone(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}
