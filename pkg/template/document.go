package template

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Document is a merged template ready for serialization. Top-level keys
// keep the order they were set in.
type Document struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{m: orderedmap.New[string, any]()}
}

// Set assigns a top-level key, appending it when new.
func (d *Document) Set(key string, value any) {
	d.m.Set(key, value)
}

// Get returns the top-level value stored under key.
func (d *Document) Get(key string) (any, bool) {
	return d.m.Get(key)
}

// Keys returns the top-level keys in output order.
func (d *Document) Keys() []string {
	keys := make([]string, 0, d.m.Len())
	for pair := d.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Len returns the number of top-level keys.
func (d *Document) Len() int {
	return d.m.Len()
}

// MarshalJSON writes the keys in order. Values are encoded without HTML
// escaping so titles and paths keep characters such as '&'.
func (d *Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	first := true
	for pair := d.m.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := enc.Encode(pair.Key); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(pair.Value); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", pair.Key, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if b := buf.Bytes(); len(b) > 0 && b[len(b)-1] == '\n' {
		buf.Truncate(len(b) - 1)
	}
}
