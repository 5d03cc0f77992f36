package lesson

import (
	"fmt"
	"time"

	"untisync/internal/untis"
)

// StatusCancelled is the only status code that removes a record from the
// pipeline. Matching is intentionally exact; other codes (e.g. "irregular"
// substitutions) pass through unfiltered.
const StatusCancelled = "cancelled"

// DefaultSubjectName is used when a record carries no subject at all.
const DefaultSubjectName = "Lesson"

const instantLayout = "200601021504"

// Lesson is the canonical in-memory representation a raw timetable entry is
// normalized into. It is mutated in place during the merge passes and must
// be treated as immutable once consolidation returns.
//
// Identifier, date and start time come from the first contributing raw
// record and stay stable across merges, so they are suitable for building a
// calendar-entry key.
type Lesson struct {
	ID        int64
	Date      int // YYYYMMDD
	StartTime int // HHMM
	EndTime   int // HHMM; extended by continuation merging

	// SubjectName is the display name of the primary subject, used as the
	// merge key alongside the time slot.
	SubjectName string

	Subjects StringSet
	Teachers StringSet
	Rooms    StringSet
	Classes  StringSet

	Info      string
	LsText    string
	SubstText string
	Code      string
}

// Normalize converts one raw record into a Lesson.
//
// It returns ErrCancelled for records with status "cancelled" and a
// ErrMalformed-wrapped error when a required numeric field is absent or does
// not form a valid instant. Long display names are preferred over short
// ones; a participant with neither contributes an empty string to its set
// (upstream leaves open whether that placeholder is intended — it is
// preserved here, not filtered).
func Normalize(raw untis.Lesson) (*Lesson, error) {
	if raw.Code == StatusCancelled {
		return nil, ErrCancelled
	}
	if raw.ID == nil || raw.Date == nil || raw.StartTime == nil || raw.EndTime == nil {
		return nil, fmt.Errorf("%w: missing id, date or time field", ErrMalformed)
	}

	l := &Lesson{
		ID:        *raw.ID,
		Date:      *raw.Date,
		StartTime: *raw.StartTime,
		EndTime:   *raw.EndTime,

		SubjectName: DefaultSubjectName,

		Subjects: nameSet(raw.Subjects),
		Teachers: nameSet(raw.Teachers),
		Rooms:    nameSet(raw.Rooms),
		Classes:  nameSet(raw.Classes),

		Info:      raw.Info,
		LsText:    raw.LsText,
		SubstText: raw.SubstText,
		Code:      raw.Code,
	}
	if len(raw.Subjects) > 0 {
		l.SubjectName = displayName(raw.Subjects[0])
	}

	if _, err := instant(l.Date, l.StartTime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if _, err := instant(l.Date, l.EndTime); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return l, nil
}

// StartAt returns the start instant in timezone-naive calendar time. The
// render boundary attaches the configured zone.
func (l *Lesson) StartAt() time.Time {
	t, _ := instant(l.Date, l.StartTime)
	return t
}

// EndAt returns the end instant in timezone-naive calendar time.
func (l *Lesson) EndAt() time.Time {
	t, _ := instant(l.Date, l.EndTime)
	return t
}

// absorb folds other into l: participant sets are unioned and the free-text
// fields merged. Identifier, date, start time and status stay untouched.
func (l *Lesson) absorb(other *Lesson) {
	l.Subjects.Merge(other.Subjects)
	l.Teachers.Merge(other.Teachers)
	l.Rooms.Merge(other.Rooms)
	l.Classes.Merge(other.Classes)
	l.Info = MergeText(l.Info, other.Info)
	l.LsText = MergeText(l.LsText, other.LsText)
	l.SubstText = MergeText(l.SubstText, other.SubstText)
}

// sameContent reports whether two lessons describe the same class: equal
// subject name and equal teacher, room and class sets. Text fields do not
// participate.
func (l *Lesson) sameContent(other *Lesson) bool {
	return l.SubjectName == other.SubjectName &&
		l.Teachers.Equal(other.Teachers) &&
		l.Rooms.Equal(other.Rooms) &&
		l.Classes.Equal(other.Classes)
}

// instant combines a YYYYMMDD date and an HHMM time (zero-padded to four
// digits) into a naive instant.
func instant(date, hhmm int) (time.Time, error) {
	return time.Parse(instantLayout, fmt.Sprintf("%d%04d", date, hhmm))
}

func displayName(e untis.ElementRef) string {
	if e.LongName != "" {
		return e.LongName
	}
	return e.Name
}

func nameSet(refs []untis.ElementRef) StringSet {
	s := make(StringSet, len(refs))
	for _, r := range refs {
		s.Add(displayName(r))
	}
	return s
}
