// Package recurrence expands repeating session rules into concrete calendar
// dates.
package recurrence

import (
	"errors"
	"strings"
	"time"
)

// MaxOccurrences bounds a single expansion.
const MaxOccurrences = 52

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily repeats every Interval days.
	FrequencyDaily
	// FrequencyWeekly repeats every Interval weeks on the selected weekdays.
	FrequencyWeekly
)

// ParseFrequency accepts "daily" or "weekly" in any casing. An empty value
// means weekly.
func ParseFrequency(value string) (Frequency, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "weekly":
		return FrequencyWeekly, true
	case "daily":
		return FrequencyDaily, true
	}
	return FrequencyUnspecified, false
}

// ParseWeekday accepts full English weekday names or their three letter
// abbreviations in any casing.
func ParseWeekday(value string) (time.Weekday, bool) {
	name := strings.ToLower(strings.TrimSpace(value))
	if len(name) < 3 {
		return time.Sunday, false
	}
	for day := time.Sunday; day <= time.Saturday; day++ {
		full := strings.ToLower(day.String())
		if name == full || name == full[:3] {
			return day, true
		}
	}
	return time.Sunday, false
}

// Rule describes a repeating series of sessions.
//
// Generation stops at whichever comes first of Count occurrences or EndsOn
// (inclusive). At least one bound is required.
type Rule struct {
	SeriesID  string
	Frequency Frequency
	Interval  int
	Weekdays  []time.Weekday
	StartsOn  time.Time
	EndsOn    *time.Time
	Count     int
}

// GenerateOptions narrows what an expansion returns. Days before RangeStart
// are dropped but still count towards the rule's Count.
type GenerateOptions struct {
	RangeStart *time.Time
}

// Occurrence is one generated calendar day of a series.
type Occurrence struct {
	SeriesID string
	Index    int
	Date     time.Time
}

// DateString formats the occurrence day as YYYY-MM-DD.
func (o Occurrence) DateString() string {
	return o.Date.Format(time.DateOnly)
}

// Engine expands recurrence rules into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that evaluates calendar days in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

var (
	// ErrInvalidFrequency indicates the recurrence frequency is not supported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrInvalidWindow indicates the rule has neither a count nor an end bound.
	ErrInvalidWindow = errors.New("recurrence: generation window requires a count or an end bound")
	// ErrInvalidInterval indicates a negative interval.
	ErrInvalidInterval = errors.New("recurrence: interval must be positive")
	// ErrTooManyOccurrences indicates the rule expands past MaxOccurrences.
	ErrTooManyOccurrences = errors.New("recurrence: too many occurrences")
)

// GenerateOccurrences produces the series days within the configured window.
//
// Days are evaluated in the engine's location. Weekly rules without weekdays
// repeat on the weekday of StartsOn. Interval 0 is treated as 1.
func (e *Engine) GenerateOccurrences(rule Rule, opts GenerateOptions) ([]Occurrence, error) {
	loc := e.location
	if loc == nil {
		loc = time.UTC
	}
	if rule.Interval < 0 || rule.Count < 0 {
		return nil, ErrInvalidInterval
	}
	interval := rule.Interval
	if interval == 0 {
		interval = 1
	}

	start := midnight(rule.StartsOn, loc)

	var upperBound time.Time
	hasUpper := rule.EndsOn != nil
	if hasUpper {
		upperBound = midnight(*rule.EndsOn, loc)
	}
	if !hasUpper && rule.Count == 0 {
		return nil, ErrInvalidWindow
	}

	lowerBound := start
	if opts.RangeStart != nil {
		if rangeStart := midnight(*opts.RangeStart, loc); rangeStart.After(lowerBound) {
			lowerBound = rangeStart
		}
	}

	weekdaySet := make(map[time.Weekday]struct{}, len(rule.Weekdays))
	for _, day := range rule.Weekdays {
		weekdaySet[day] = struct{}{}
	}
	if rule.Frequency == FrequencyWeekly && len(weekdaySet) == 0 {
		weekdaySet[start.Weekday()] = struct{}{}
	}

	occurrences := make([]Occurrence, 0)
	generated := 0
	for current := start; !hasUpper || !current.After(upperBound); current = current.AddDate(0, 0, 1) {
		if rule.Count > 0 && generated == rule.Count {
			break
		}

		include, err := shouldInclude(rule.Frequency, interval, weekdaySet, start, current)
		if err != nil {
			return nil, err
		}
		if !include {
			continue
		}

		generated++
		if current.Before(lowerBound) {
			continue
		}
		if len(occurrences) == MaxOccurrences {
			return nil, ErrTooManyOccurrences
		}
		occurrences = append(occurrences, Occurrence{
			SeriesID: rule.SeriesID,
			Index:    generated - 1,
			Date:     current,
		})
	}

	return occurrences, nil
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	a := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	b := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func shouldInclude(freq Frequency, interval int, weekdaySet map[time.Weekday]struct{}, start, day time.Time) (bool, error) {
	switch freq {
	case FrequencyDaily:
		if daysBetween(start, day)%interval != 0 {
			return false, nil
		}
		if len(weekdaySet) == 0 {
			return true, nil
		}
		_, ok := weekdaySet[day.Weekday()]
		return ok, nil
	case FrequencyWeekly:
		weekStart := start.AddDate(0, 0, -int(start.Weekday()))
		if (daysBetween(weekStart, day)/7)%interval != 0 {
			return false, nil
		}
		_, ok := weekdaySet[day.Weekday()]
		return ok, nil
	case FrequencyUnspecified:
		fallthrough
	default:
		return false, ErrInvalidFrequency
	}
}
