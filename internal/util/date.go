package util

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

var dateLayouts = []string{DateLayout, "02/01/2006", "2/1/2006", "02-01-2006", "02/01/06", time.RFC3339}

// ParseDate accepts ISO and day-first dates; anything else yields the zero time.
func ParseDate(input string) time.Time {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t
		}
	}
	return time.Time{}
}

func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
