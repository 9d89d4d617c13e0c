package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"devjourney/internal/errors"
	"devjourney/internal/session"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseWindow builds the analysis window. since accepts a duration back
// from now ("24h", "7d", "2w") or a date; until accepts a date. A bare
// date for until includes that whole day. When since is empty the window
// starts defaultHours before now.
func parseWindow(since, until string, defaultHours int, now time.Time) (session.Window, error) {
	var w session.Window

	if since == "" {
		w.Since = now.Add(-time.Duration(defaultHours) * time.Hour)
	} else {
		t, err := parseSince(since, now)
		if err != nil {
			return w, err
		}
		w.Since = t
	}

	if until != "" {
		t, dateOnly, err := parseDate(until)
		if err != nil {
			return w, invalidWindow("until", until, err)
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		w.Until = t
	}

	if !w.Until.IsZero() && !w.Since.Before(w.Until) {
		return w, errors.New(errors.InvalidInput, "--since must be before --until", nil, nil).
			WithDetails(map[string]string{"since": since, "until": until})
	}
	return w, nil
}

// parseSince resolves a relative duration or an absolute date.
func parseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := parseDuration(s); err == nil {
		if d <= 0 {
			return time.Time{}, invalidWindow("since", s, fmt.Errorf("duration must be positive"))
		}
		return now.Add(-d), nil
	}
	t, _, err := parseDate(s)
	if err != nil {
		return time.Time{}, invalidWindow("since", s, err)
	}
	return t, nil
}

// parseDuration extends time.ParseDuration with d (days) and w (weeks).
func parseDuration(s string) (time.Duration, error) {
	if n := len(s); n > 1 {
		unit := 24 * time.Hour
		switch s[n-1] {
		case 'w':
			unit *= 7
			fallthrough
		case 'd':
			v, err := strconv.Atoi(s[:n-1])
			if err != nil {
				return 0, err
			}
			return time.Duration(v) * unit, nil
		}
	}
	return time.ParseDuration(s)
}

// parseDate parses an absolute timestamp in local time. dateOnly reports
// whether the value had no time of day.
func parseDate(s string) (t time.Time, dateOnly bool, err error) {
	for _, layout := range dateLayouts {
		if t, err = time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, layout == "2006-01-02", nil
		}
	}
	return time.Time{}, false, fmt.Errorf("expected a duration like 24h or 7d, or a date like 2006-01-02")
}

func invalidWindow(flag, value string, cause error) error {
	return errors.New(errors.InvalidInput, fmt.Sprintf("invalid --%s value %q", flag, value), cause, nil).
		WithDetails(map[string]string{flag: value})
}
