package lesson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"untisync/internal/untis"
)

// raw builds a minimal raw record for one subject on 2025-09-15.
func raw(id int64, start, end int, subject string, mutate ...func(*untis.Lesson)) untis.Lesson {
	r := untis.Lesson{
		ID:        int64p(id),
		Date:      intp(20250915),
		StartTime: intp(start),
		EndTime:   intp(end),
		Subjects:  []untis.ElementRef{{ID: 1, Name: subject}},
		Teachers:  []untis.ElementRef{{ID: 2, Name: "Smith"}},
		Rooms:     []untis.ElementRef{{ID: 3, Name: "A101"}},
		Classes:   []untis.ElementRef{{ID: 4, Name: "9b"}},
	}
	for _, m := range mutate {
		m(&r)
	}
	return r
}

func TestConsolidateOverlap(t *testing.T) {
	// Two records for the identical slot, one supplying only a teacher and
	// one only a room, must fold into a single lesson carrying both.
	a := raw(1, 1000, 1050, "Mathematics", func(r *untis.Lesson) {
		r.Rooms = nil
	})
	b := raw(2, 1000, 1050, "Mathematics", func(r *untis.Lesson) {
		r.Teachers = nil
		r.Rooms = []untis.ElementRef{{ID: 3, Name: "B202"}}
	})

	out, stats := Consolidate([]untis.Lesson{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 2, stats.Raw)
	assert.Equal(t, 1, stats.Output)

	l := out[0]
	assert.Equal(t, int64(1), l.ID, "representative keeps the first-seen identifier")
	assert.True(t, l.Teachers.Has("Smith"))
	assert.True(t, l.Rooms.Has("B202"))
}

func TestConsolidateContinuation(t *testing.T) {
	a := raw(1, 800, 850, "Mathematics", func(r *untis.Lesson) {
		r.Info = "Room moved"
	})
	b := raw(2, 850, 940, "Mathematics", func(r *untis.Lesson) {
		r.Info = "Bring materials"
	})

	out, _ := Consolidate([]untis.Lesson{a, b})
	require.Len(t, out, 1)

	l := out[0]
	assert.Equal(t, 800, l.StartTime)
	assert.Equal(t, 940, l.EndTime)
	assert.Equal(t, "Room moved | Bring materials", l.Info)
}

func TestConsolidateDoesNotMergeDifferentSubjects(t *testing.T) {
	a := raw(1, 800, 850, "Mathematics")
	b := raw(2, 850, 940, "Physics")

	out, _ := Consolidate([]untis.Lesson{a, b})
	assert.Len(t, out, 2)
}

func TestConsolidateDoesNotMergeAcrossGaps(t *testing.T) {
	a := raw(1, 800, 850, "Mathematics")
	b := raw(2, 900, 950, "Mathematics")

	out, _ := Consolidate([]untis.Lesson{a, b})
	assert.Len(t, out, 2)
}

func TestConsolidateDoesNotMergeDifferentTeachers(t *testing.T) {
	a := raw(1, 800, 850, "Mathematics")
	b := raw(2, 850, 940, "Mathematics", func(r *untis.Lesson) {
		r.Teachers = []untis.ElementRef{{ID: 9, Name: "Jones"}}
	})

	out, _ := Consolidate([]untis.Lesson{a, b})
	assert.Len(t, out, 2)
}

func TestConsolidateDropsCancelled(t *testing.T) {
	a := raw(1, 800, 850, "Mathematics")
	b := raw(2, 900, 950, "Physics", func(r *untis.Lesson) {
		r.Code = "cancelled"
	})
	c := raw(3, 1000, 1050, "History")

	out, stats := Consolidate([]untis.Lesson{a, b, c})
	assert.Len(t, out, 2)
	assert.Equal(t, 1, stats.Cancelled)
}

func TestConsolidateSkipsMalformed(t *testing.T) {
	a := raw(1, 800, 850, "Mathematics")
	b := raw(2, 900, 950, "Physics", func(r *untis.Lesson) {
		r.StartTime = nil
	})

	out, stats := Consolidate([]untis.Lesson{a, b})
	require.Len(t, out, 1)
	assert.Equal(t, 1, stats.Malformed)
	assert.Equal(t, "Mathematics", out[0].SubjectName)
}

func TestConsolidateEmptyInput(t *testing.T) {
	out, stats := Consolidate(nil)
	assert.Empty(t, out)
	assert.Equal(t, Stats{}, stats)
}

func TestConsolidateOrderingAndUniqueness(t *testing.T) {
	input := []untis.Lesson{
		raw(5, 1100, 1150, "History"),
		raw(1, 800, 850, "Mathematics"),
		raw(2, 800, 850, "Mathematics"), // duplicate slot
		raw(4, 900, 950, "Physics"),
		raw(3, 800, 850, "Biology", func(r *untis.Lesson) {
			r.Teachers = []untis.ElementRef{{ID: 9, Name: "Jones"}}
		}),
	}

	out, _ := Consolidate(input)
	require.NotEmpty(t, out)

	type key struct {
		start, end int64
		subject    string
	}
	seen := make(map[key]bool)
	for i, l := range out {
		if i > 0 {
			assert.False(t, l.StartAt().Before(out[i-1].StartAt()),
				"output must be ordered by start instant")
		}
		k := key{l.StartAt().Unix(), l.EndAt().Unix(), l.SubjectName}
		assert.False(t, seen[k], "duplicate slot in output: %+v", k)
		seen[k] = true
	}
}

func TestConsolidateTieBrokenBySubjectName(t *testing.T) {
	// Same slot, different subjects: both survive, ordered deterministically.
	a := raw(1, 800, 850, "Physics")
	b := raw(2, 800, 850, "Biology", func(r *untis.Lesson) {
		r.Teachers = []untis.ElementRef{{ID: 9, Name: "Jones"}}
	})

	out, _ := Consolidate([]untis.Lesson{a, b})
	require.Len(t, out, 2)
	assert.Equal(t, "Biology", out[0].SubjectName)
	assert.Equal(t, "Physics", out[1].SubjectName)
}

// reraw converts a consolidated lesson back into wire shape so the pipeline
// can be re-run over its own output.
func reraw(l *Lesson) untis.Lesson {
	toRefs := func(s StringSet) []untis.ElementRef {
		var refs []untis.ElementRef
		for _, n := range s.Sorted() {
			refs = append(refs, untis.ElementRef{Name: n})
		}
		return refs
	}
	id := l.ID
	date := l.Date
	start := l.StartTime
	end := l.EndTime
	return untis.Lesson{
		ID:        &id,
		Date:      &date,
		StartTime: &start,
		EndTime:   &end,
		Subjects:  toRefs(l.Subjects),
		Teachers:  toRefs(l.Teachers),
		Rooms:     toRefs(l.Rooms),
		Classes:   toRefs(l.Classes),
		Info:      l.Info,
		LsText:    l.LsText,
		SubstText: l.SubstText,
		Code:      l.Code,
	}
}

func TestConsolidateIdempotent(t *testing.T) {
	input := []untis.Lesson{
		raw(1, 800, 850, "Mathematics", func(r *untis.Lesson) { r.Info = "Room moved" }),
		raw(2, 850, 940, "Mathematics", func(r *untis.Lesson) { r.Info = "Bring materials" }),
		raw(3, 1000, 1050, "Physics"),
		raw(4, 1000, 1050, "Physics"),
		raw(5, 1100, 1150, "History"),
	}

	first, _ := Consolidate(input)

	again := make([]untis.Lesson, 0, len(first))
	for _, l := range first {
		again = append(again, reraw(l))
	}
	second, stats := Consolidate(again)

	require.Equal(t, len(first), len(second), "no further merges may occur")
	assert.Equal(t, 0, stats.Cancelled)
	assert.Equal(t, 0, stats.Malformed)

	for i := range first {
		assert.Equal(t, first[i].StartTime, second[i].StartTime)
		assert.Equal(t, first[i].EndTime, second[i].EndTime)
		assert.Equal(t, first[i].SubjectName, second[i].SubjectName)
		assert.Equal(t, first[i].Info, second[i].Info)
		assert.True(t, first[i].Teachers.Equal(second[i].Teachers))
		assert.True(t, first[i].Rooms.Equal(second[i].Rooms))
		assert.True(t, first[i].Classes.Equal(second[i].Classes))
	}
}
