package schedule

// OccurrencesInRange returns, in start order, every occurrence that overlaps
// the open interval (rangeStart, rangeEnd). Occurrences touching the range only
// at an endpoint are left out. Consumption stops at the first occurrence that
// starts at or after rangeEnd, which keeps repeating meetings finite.
func OccurrencesInRange[M Recurring](meetings []M, rangeStart, rangeEnd int64) []Occurrence[M] {
	var out []Occurrence[M]
	merger := NewMerger(meetings)
	for occ := range merger.All() {
		if occ.Start >= rangeEnd {
			break
		}
		if occ.End > rangeStart {
			out = append(out, occ)
		}
	}
	return out
}
