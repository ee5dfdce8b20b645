package domain

import "time"

// Interval is a half-open time span [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Intervals that
// merely touch at a boundary (one ends exactly when the other starts) do not
// overlap, so back-to-back reservations are allowed. Every overlap decision in
// the system goes through this predicate; the SQL exclusion constraint encodes
// the same half-open rule with tstzrange(starts_at, ends_at).
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// BusinessHours is the studio's daily booking window in wall-clock hours,
// e.g. Open=9, Close=17 for 9:00 AM to 5:00 PM.
type BusinessHours struct {
	Open  int
	Close int
}

// Window anchors the business hours to a calendar day. The day's time-of-day
// component is ignored.
func (h BusinessHours) Window(day time.Time) Interval {
	return Interval{
		Start: time.Date(day.Year(), day.Month(), day.Day(), h.Open, 0, 0, 0, day.Location()),
		End:   time.Date(day.Year(), day.Month(), day.Day(), h.Close, 0, 0, 0, day.Location()),
	}
}

// Slot is one bookable granule offered to clients. Slots are derived on every
// query and never persisted.
type Slot struct {
	Time      time.Time `json:"time"`
	Formatted string    `json:"formattedTime"`
}

// GenerateSlots enumerates the bookable slot start times for one day, stepping
// by slotMinutes from open to close. A candidate survives when it fits
// entirely before close, its start is not in the past relative to now, and it
// does not overlap any busy interval. Output is ascending by start time.
func GenerateSlots(day time.Time, hours BusinessHours, slotMinutes int, busy []Interval, now time.Time) []Slot {
	if slotMinutes <= 0 || hours.Close <= hours.Open {
		return nil
	}

	window := hours.Window(day)
	step := time.Duration(slotMinutes) * time.Minute

	var slots []Slot
	for t := window.Start; !t.Add(step).After(window.End); t = t.Add(step) {
		if t.Before(now) {
			continue
		}
		candidate := Interval{Start: t, End: t.Add(step)}
		if overlapsAny(candidate, busy) {
			continue
		}
		slots = append(slots, Slot{
			Time:      t,
			Formatted: t.Format("3:04 PM"),
		})
	}
	return slots
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(candidate, b) {
			return true
		}
	}
	return false
}
