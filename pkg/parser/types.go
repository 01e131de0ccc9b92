// Package parser turns the semi-structured text files written by HEC modeling
// tools into blocks and ordered field records.
package parser

// Block is a contiguous run of lines closed by a terminator token. The
// terminator itself is not part of the block.
type Block struct {
	// Start is the index of the block's first line in the source sequence.
	Start int

	// Lines holds the block content, header first.
	Lines []string
}

// Header returns the first non-blank line of the block, trimmed.
func (b Block) Header() string {
	for _, line := range b.Lines {
		if s := trim(line); s != "" {
			return s
		}
	}
	return ""
}

// Body returns the lines following the header.
func (b Block) Body() []string {
	for i, line := range b.Lines {
		if trim(line) != "" {
			return b.Lines[i+1:]
		}
	}
	return nil
}

// Record is an ordered string-to-string mapping. Keys keep the position of
// their first insertion; a later Set on the same key replaces the value.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Set assigns value to key.
func (r *Record) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// SetIfAbsent assigns value only when key has no value yet and reports
// whether the assignment happened.
func (r *Record) SetIfAbsent(key, value string) bool {
	if _, ok := r.values[key]; ok {
		return false
	}
	r.Set(key, value)
	return true
}

// Lookup returns the value stored under key and whether it was present.
func (r *Record) Lookup(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	v, ok := r.values[key]
	return v, ok
}

// Get returns the value stored under key with surrounding whitespace
// removed, or "" when absent.
func (r *Record) Get(key string) string {
	v, _ := r.Lookup(key)
	return trim(v)
}

// Delete removes key and returns its previous value.
func (r *Record) Delete(key string) (string, bool) {
	v, ok := r.values[key]
	if !ok {
		return "", false
	}
	delete(r.values, key)
	for i, k := range r.keys {
		if k == key {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
	return v, true
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Merge copies every field of other that r does not hold yet, in other's
// order, and returns how many were copied.
func (r *Record) Merge(other *Record) int {
	n := 0
	for _, k := range other.Keys() {
		v, _ := other.Lookup(k)
		if r.SetIfAbsent(k, v) {
			n++
		}
	}
	return n
}
