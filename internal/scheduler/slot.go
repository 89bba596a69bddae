package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeLayout = "15:04"

var (
	// ErrInvalidDate indicates a date that is not a YYYY-MM-DD calendar day.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidTime indicates an unparseable time of day.
	ErrInvalidTime = errors.New("scheduler: invalid time")
)

var clockLayouts = []string{
	"15:04",
	"3:04 PM",
	"3:04PM",
	"03:04 PM",
	"3 PM",
	"3PM",
}

// NormalizeDate validates a YYYY-MM-DD date and returns it in canonical form.
func NormalizeDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return d.Format(time.DateOnly), nil
}

// NormalizeTime accepts 24-hour "15:04" or 12-hour "3:04 PM" input and
// returns the 24-hour form.
func NormalizeTime(value string) (string, error) {
	cleaned := strings.ToUpper(strings.TrimSpace(value))
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format(timeLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
}

// Today returns now's calendar day in loc as YYYY-MM-DD.
func Today(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(time.DateOnly)
}

// FormatClock renders a 24-hour time in the "10:00 AM" display form.
func FormatClock(clock string) string {
	t, err := time.Parse(timeLayout, clock)
	if err != nil {
		return clock
	}
	return t.Format("3:04 PM")
}
