package calendar

import (
	"sort"
	"time"
)

// mergeRanges sorts busy ranges by start and merges overlapping or
// touching intervals into a minimal sorted set.
func mergeRanges(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]TimeRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []TimeRange{sorted[0]}
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !r.Start.After(last.End) {
			if r.End.After(last.End) {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// findWindow scans for the earliest start at or after earliest where a
// block of the given duration fits entirely within the working band
// [dayStart, cutoff] of a single day and does not overlap any busy
// range. Candidates past the cutoff roll over to the next day's
// dayStart. busy must be merged and sorted (see mergeRanges).
func findWindow(busy []TimeRange, earliest time.Time, d time.Duration, dayStart, cutoff TimeOfDay, horizon time.Time) (time.Time, bool) {
	cur := earliest
	for cur.Before(horizon) {
		if start := dayStart.On(cur); cur.Before(start) {
			cur = start
		}

		if cur.Add(d).After(cutoff.On(cur)) {
			cur = dayStart.On(cur.AddDate(0, 0, 1))
			continue
		}

		conflict := false
		for _, b := range busy {
			if b.Start.Before(cur.Add(d)) && b.End.After(cur) {
				// Overlap implies b.End > cur, so cur strictly advances.
				cur = b.End
				conflict = true
				break
			}
		}
		if !conflict {
			return cur, true
		}
	}
	return time.Time{}, false
}
