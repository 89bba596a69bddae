// Package scheduler detects double-booked session slots and normalises the
// calendar date and time-of-day strings that identify a slot.
package scheduler

import (
	"sort"
	"time"
)

// Slot is a session occupying one (date, time) pair for its participants.
type Slot struct {
	EventID      string
	Participants []string
	Date         string
	Time         string
	Cancelled    bool
}

// Conflict details a participant who is already booked at the candidate slot.
type Conflict struct {
	WithEventID string
	Participant string
	Date        string
	Time        string
}

// DetectConflicts identifies conflicts for the candidate slot against existing ones.
// Cancelled slots never conflict, and a slot never conflicts with itself.
func DetectConflicts(existing []Slot, candidate Slot) []Conflict {
	if candidate.Cancelled {
		return nil
	}

	var conflicts []Conflict
	for _, slot := range existing {
		if slot.Cancelled || slot.EventID == candidate.EventID {
			continue
		}
		if slot.Date != candidate.Date || slot.Time != candidate.Time {
			continue
		}
		for _, participant := range candidate.Participants {
			if contains(slot.Participants, participant) {
				conflicts = append(conflicts, Conflict{
					WithEventID: slot.EventID,
					Participant: participant,
					Date:        slot.Date,
					Time:        slot.Time,
				})
			}
		}
	}
	return conflicts
}

// DetectBatchConflicts checks several candidates at once. Besides collisions
// with existing slots it reports candidates that collide with each other.
func DetectBatchConflicts(existing []Slot, candidates []Slot) []Conflict {
	var conflicts []Conflict
	accepted := make([]Slot, 0, len(existing)+len(candidates))
	accepted = append(accepted, existing...)
	for _, candidate := range candidates {
		conflicts = append(conflicts, DetectConflicts(accepted, candidate)...)
		accepted = append(accepted, candidate)
	}
	return conflicts
}

// Participants returns the distinct participant ids of the conflicts, sorted.
func Participants(conflicts []Conflict) []string {
	seen := make(map[string]struct{}, len(conflicts))
	out := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		if _, ok := seen[c.Participant]; ok {
			continue
		}
		seen[c.Participant] = struct{}{}
		out = append(out, c.Participant)
	}
	sort.Strings(out)
	return out
}

// Start combines a normalised date and time into an instant in loc.
func Start(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(time.DateOnly+" "+timeLayout, date+" "+clock, loc)
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
