package booking

import (
	"time"
)

// Slot is a bookable start time.
type Slot struct {
	Time  string    `json:"time"`
	Start time.Time `json:"start"`
}

// AvailabilityFunc reports whether a practitioner can take o at start.
type AvailabilityFunc func(o Offering, start time.Time) bool

// Schedule describes the opening hours. Slots start every Step from Open up to, but
// not including, Close.
type Schedule struct {
	Open     int
	Close    int
	Step     time.Duration
	Location *time.Location
}

// DefaultSchedule opens on the half hour from 9:00 to 17:30.
func DefaultSchedule(loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return Schedule{Open: 9, Close: 18, Step: 30 * time.Minute, Location: loc}
}

func (s Schedule) loc() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

func (s Schedule) step() time.Duration {
	if s.Step <= 0 {
		return 30 * time.Minute
	}
	return s.Step
}

// Starts lists every start time on date's calendar day, in schedule order.
func (s Schedule) Starts(date time.Time) []time.Time {
	date = date.In(s.loc())
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, s.loc())
	opens := day.Add(time.Duration(s.Open) * time.Hour)
	closes := day.Add(time.Duration(s.Close) * time.Hour)
	var out []time.Time
	for t := opens; t.Before(closes); t = t.Add(s.step()) {
		out = append(out, t)
	}
	return out
}

// Contains reports whether start is one of the schedule's start times.
func (s Schedule) Contains(start time.Time) bool {
	for _, t := range s.Starts(start) {
		if t.Equal(start) {
			return true
		}
	}
	return false
}

// Slots returns the starts on date that available accepts. A nil available accepts
// every start, so the result depends only on its inputs.
func (s Schedule) Slots(o Offering, date time.Time, available AvailabilityFunc) []Slot {
	starts := s.Starts(date)
	out := make([]Slot, 0, len(starts))
	for _, t := range starts {
		if available != nil && !available(o, t) {
			continue
		}
		out = append(out, Slot{Time: t.Format("15:04"), Start: t})
	}
	return out
}
