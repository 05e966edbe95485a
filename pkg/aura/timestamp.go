package aura

import (
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseTimestamp parses an ISO-8601 timestamp. A trailing "Z" means UTC and
// values without an offset are taken as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// latest returns the record with the greatest timestamp. Missing or
// unparseable timestamps rank below every valid one; ties keep the earlier
// record. Nil for an empty list.
func latest(records []Record) Record {
	var (
		best   Record
		bestTS time.Time
		bestOK bool
	)
	for i, rec := range records {
		ts, ok := parseTimestamp(rec.Field("timestamp"))
		switch {
		case i == 0:
		case ok && (!bestOK || ts.After(bestTS)):
		default:
			continue
		}
		best, bestTS, bestOK = rec, ts, ok
	}
	return best
}
