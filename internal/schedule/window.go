package schedule

import (
	"time"

	"github.com/samber/mo"
)

// DefaultHorizon is how far past the requested start a free-window search runs
// before giving up. Nobody books meetings a decade out.
const DefaultHorizon = 60 * 60 * 24 * 365 * 10 * time.Second

type searchOptions struct {
	horizon int64
}

// SearchOption tweaks FindFirstFreeWindow.
type SearchOption func(*searchOptions)

// WithHorizon overrides DefaultHorizon. Non-positive values are ignored.
func WithHorizon(d time.Duration) SearchOption {
	return func(o *searchOptions) {
		if secs := int64(d / time.Second); secs > 0 {
			o.horizon = secs
		}
	}
}

// FindFirstFreeWindow returns the start of the first window of windowSize
// seconds, beginning at or after start, that no occurrence of any meeting
// overlaps. It returns None once the busy time runs past the search horizon,
// which is what happens with repeating meetings that never leave a large
// enough gap.
//
// meetings must not be pre-filtered by start: an occurrence that began before
// start but ends after it still pushes the window back.
func FindFirstFreeWindow[M Recurring](meetings []M, windowSize, start int64, opts ...SearchOption) mo.Option[int64] {
	o := searchOptions{horizon: int64(DefaultHorizon / time.Second)}
	for _, opt := range opts {
		opt(&o)
	}

	if len(meetings) == 0 {
		return mo.Some(start)
	}

	busyUntil := start
	merger := NewMerger(meetings)
	for {
		occ, ok := merger.Next()
		if !ok {
			return mo.Some(busyUntil)
		}
		if occ.Start-busyUntil >= windowSize {
			return mo.Some(busyUntil)
		}
		// never move backwards: a short meeting can end before a long one that started earlier
		busyUntil = max(busyUntil, occ.End)
		if busyUntil-start > o.horizon {
			return mo.None[int64]()
		}
	}
}
