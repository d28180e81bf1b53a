package app

import (
	"errors"
	"time"
)

// timestampLayout renders UTC as "+00:00" rather than "Z".
const timestampLayout = "2006-01-02T15:04:05-07:00"

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

// naive values carry no offset and are read as UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

var errDateTime = errors.New("invalid datetime format")

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errDateTime
}

func formatTimestamp(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(timestampLayout)
}

// parseRange reads start and end into unix seconds, collecting problems in verr.
func parseRange(verr *ValidationError, start, end string) (int64, int64) {
	var s, e int64
	if t, err := parseDateTime(start); err != nil {
		verr.Add("start", err.Error())
	} else {
		s = t.Unix()
	}
	if t, err := parseDateTime(end); err != nil {
		verr.Add("end", err.Error())
	} else {
		e = t.Unix()
	}
	if len(verr.Fields) == 0 && e < s {
		verr.Add(rootField, "end should not be earlier than start")
	}
	return s, e
}
