package lesson

import (
	"errors"
	"sort"
	"time"

	"untisync/internal/untis"
)

// Stats summarizes one consolidation run for the caller's logging.
type Stats struct {
	Raw       int // records received
	Cancelled int // dropped: status "cancelled"
	Malformed int // skipped: missing/invalid required fields
	Output    int // lessons in the final sequence
}

// slotKey identifies one physical time slot for overlap merging.
type slotKey struct {
	start   time.Time
	end     time.Time
	subject string
}

// Consolidate runs the full pipeline over a batch of raw records:
// normalize and filter, merge entries occupying the identical slot, then
// coalesce back-to-back periods of the same class into single blocks.
//
// The result is strictly ordered by start instant and deterministic for a
// given input. Consolidate builds its own working lessons from raw, so no
// caller-held reference can alias into the merge.
func Consolidate(raw []untis.Lesson) ([]*Lesson, Stats) {
	stats := Stats{Raw: len(raw)}

	lessons := make([]*Lesson, 0, len(raw))
	for _, r := range raw {
		l, err := Normalize(r)
		if err != nil {
			if errors.Is(err, ErrCancelled) {
				stats.Cancelled++
			} else {
				stats.Malformed++
			}
			continue
		}
		lessons = append(lessons, l)
	}
	if len(lessons) == 0 {
		return nil, stats
	}

	merged := mergeOverlaps(lessons)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].StartAt().Before(merged[j].StartAt())
	})

	out := mergeContinuations(merged)
	stats.Output = len(out)
	return out, stats
}

// mergeOverlaps folds lessons sharing a (start, end, subject) slot into the
// first-seen representative. Sorting by (start, subject) first makes the
// choice of representative deterministic for ties.
func mergeOverlaps(lessons []*Lesson) []*Lesson {
	sort.SliceStable(lessons, func(i, j int) bool {
		si, sj := lessons[i].StartAt(), lessons[j].StartAt()
		if !si.Equal(sj) {
			return si.Before(sj)
		}
		return lessons[i].SubjectName < lessons[j].SubjectName
	})

	reps := make([]*Lesson, 0, len(lessons))
	index := make(map[slotKey]int, len(lessons))

	for _, l := range lessons {
		key := slotKey{start: l.StartAt(), end: l.EndAt(), subject: l.SubjectName}
		if i, ok := index[key]; ok {
			reps[i].absorb(l)
			continue
		}
		index[key] = len(reps)
		reps = append(reps, l)
	}
	return reps
}

// mergeContinuations walks the start-sorted list and fuses a candidate into
// the open lesson when the two are contiguous (open end == candidate start)
// and content-identical. The open lesson's end time is extended and the
// candidate's text fields merged in; everything else is finalized as-is.
func mergeContinuations(sorted []*Lesson) []*Lesson {
	if len(sorted) == 0 {
		return nil
	}

	out := []*Lesson{sorted[0]}
	for _, cur := range sorted[1:] {
		open := out[len(out)-1]
		if open.EndAt().Equal(cur.StartAt()) && open.sameContent(cur) {
			open.EndTime = cur.EndTime
			open.Info = MergeText(open.Info, cur.Info)
			open.LsText = MergeText(open.LsText, cur.LsText)
			open.SubstText = MergeText(open.SubstText, cur.SubstText)
			continue
		}
		out = append(out, cur)
	}
	return out
}
