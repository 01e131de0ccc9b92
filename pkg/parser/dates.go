package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar-date form written into output documents.
const DateLayout = "2006-01-02"

const (
	rasDateLayout = "02Jan2006"
	hmsDateLayout = "2 January 2006"
)

// hecEpoch is day zero of HEC time values.
var hecEpoch = time.Date(1899, time.December, 31, 0, 0, 0, 0, time.UTC)

// ParseRASDateRange parses a RAS plan "Simulation Date" value of the form
// DDMonYYYY,HHMM,DDMonYYYY,HHMM and returns the start and end dates. The
// clock parts are ignored; RAS writes midnight as 2400.
func ParseRASDateRange(value string) (start, end time.Time, err error) {
	parts := strings.Split(trim(value), ",")
	if len(parts) != 4 {
		return time.Time{}, time.Time{}, fmt.Errorf("simulation date %q: want 4 comma separated parts, got %d", value, len(parts))
	}
	start, err = time.Parse(rasDateLayout, trim(parts[0]))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("simulation start date: %w", err)
	}
	end, err = time.Parse(rasDateLayout, trim(parts[2]))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("simulation end date: %w", err)
	}
	return start, end, nil
}

// ParseHMSDate parses control-file dates such as "1 January 2020". Runs of
// whitespace between the parts are accepted.
func ParseHMSDate(value string) (time.Time, error) {
	normalized := strings.Join(strings.Fields(value), " ")
	t, err := time.Parse(hmsDateLayout, normalized)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", value, err)
	}
	return t, nil
}

// ParseEpochMillis converts a millisecond Unix timestamp to UTC.
func ParseEpochMillis(value string) (time.Time, error) {
	ms, err := strconv.ParseInt(trim(value), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing epoch milliseconds %q: %w", value, err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// ParseHECMinutes converts a HEC time value, minutes since 31 December 1899,
// to UTC.
func ParseHECMinutes(value string) (time.Time, error) {
	n, err := strconv.ParseInt(trim(value), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing HEC time %q: %w", value, err)
	}
	return hecEpoch.Add(time.Duration(n) * time.Minute), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
