package template

import (
	"bytes"
	"encoding/json"
)

// FileRef is one entry of an input or output file list.
type FileRef struct {
	Title         string    `json:"title"`
	SourceDataset *string   `json:"source_dataset"`
	Description   *string   `json:"description"`
	Location      Locations `json:"location"`
}

// File returns a FileRef for a single location with no source dataset. An
// empty location encodes as null.
func File(title, description, location string) FileRef {
	ref := FileRef{Title: title, Description: Str(description)}
	if location != "" {
		ref.Location = Locations{location}
	}
	return ref
}

// Locations is the location of a file entry. It encodes as null when empty,
// as a string when it holds one path, and as a list otherwise.
type Locations []string

// MarshalJSON implements json.Marshaler.
func (l Locations) MarshalJSON() ([]byte, error) {
	var v any
	switch len(l) {
	case 0:
		v = nil
	case 1:
		v = l[0]
	default:
		v = []string(l)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Locations) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*l = nil
	case string:
		*l = Locations{v}
	default:
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*l = list
	}
	return nil
}

// Parameter is one entry of a simulation parameter list.
type Parameter struct {
	Parameter string `json:"parameter"`
	Value     any    `json:"value"`
}

// Str returns a pointer to s, or nil when s is empty.
func Str(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
