package parser

import "strings"

// ExtractFields builds a Record from lines of the form key<sep>value.
//
// The key is the trimmed text before the first separator and the value is
// the untrimmed remainder. Lines without the separator contribute nothing;
// their indices are returned so callers can recover free text such as
// multi-line descriptions.
func ExtractFields(lines []string, sep string) (*Record, []int) {
	rec := NewRecord()
	var skipped []int
	for i, line := range lines {
		key, value, ok := strings.Cut(line, sep)
		if !ok {
			skipped = append(skipped, i)
			continue
		}
		rec.Set(trim(key), value)
	}
	return rec, skipped
}

// Between returns the lines strictly between the begin and end markers,
// looking only at skipped line indices. The markers are compared after
// trimming. ok is false when either marker is missing.
func Between(lines []string, skipped []int, begin, end string) (text []string, ok bool) {
	from, to := -1, -1
	for _, idx := range skipped {
		if idx < 0 || idx >= len(lines) {
			continue
		}
		switch trim(lines[idx]) {
		case begin:
			if from < 0 {
				from = idx
			}
		case end:
			if from >= 0 && to < 0 {
				to = idx
			}
		}
	}
	if from < 0 || to < 0 {
		return nil, false
	}
	out := make([]string, 0, to-from-1)
	out = append(out, lines[from+1:to]...)
	return out, true
}
