package availability

import "github.com/clinicore/dentbook/services/clinic-api/internal/model"

// Interval is a half-open [Start, End) window of civil clock time.
type Interval struct {
	Start model.Minutes
	End   model.Minutes
}

// Overlaps reports whether [a1,a2) and [b1,b2) share at least one
// instant. This is the general interval-intersection test; it also
// covers full containment in either direction, which a boundary-only
// check misses.
func Overlaps(a1, a2, b1, b2 model.Minutes) bool {
	return a1 < b2 && b1 < a2
}

// OverlapsAny reports whether [start,end) intersects any busy interval.
func OverlapsAny(start, end model.Minutes, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// Slots enumerates the consecutive fixed-size candidate windows covering
// [workStart, workEnd). A trailing window that would extend past workEnd
// is discarded; no short slots are emitted. Output is ascending by start
// time and fully determined by its inputs.
func Slots(workStart, workEnd model.Minutes, slotMinutes int) []Interval {
	if slotMinutes <= 0 || workEnd <= workStart {
		return nil
	}
	step := model.Minutes(slotMinutes)

	var out []Interval
	for t := workStart; t+step <= workEnd; t += step {
		out = append(out, Interval{Start: t, End: t + step})
	}
	return out
}

// Mark resolves occupancy for candidate slots against the busy intervals
// read from the booking ledger. This is a read-time snapshot, not a
// reservation; the write path re-checks under its own transaction.
func Mark(candidates []Interval, busy []Interval) []model.TimeSlot {
	slots := make([]model.TimeSlot, 0, len(candidates))
	for _, c := range candidates {
		slots = append(slots, model.TimeSlot{
			Start:     c.Start,
			End:       c.End,
			Available: !OverlapsAny(c.Start, c.End, busy),
		})
	}
	return slots
}
