package ics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"untisync/internal/lesson"
)

func brussels(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Europe/Brussels")
	require.NoError(t, err)
	return loc
}

func sampleLesson() *lesson.Lesson {
	return &lesson.Lesson{
		ID:          42,
		Date:        20250915,
		StartTime:   800,
		EndTime:     940,
		SubjectName: "Mathematics",
		Subjects:    lesson.NewStringSet("Mathematics"),
		Teachers:    lesson.NewStringSet("Smith", "Jones"),
		Rooms:       lesson.NewStringSet("A101"),
		Classes:     lesson.NewStringSet("9b"),
	}
}

func TestBuildEvent(t *testing.T) {
	l := sampleLesson()
	cal := Build([]*lesson.Lesson{l}, BuildConfig{Location: brussels(t)})
	out := cal.Serialize()

	assert.Contains(t, out, "UID:42-20250915-800@untisync")
	assert.Contains(t, out, "SUMMARY:Mathematics")
	assert.Contains(t, out, "LOCATION:A101")
	// Teacher names are sorted alphabetically at this boundary.
	assert.Contains(t, out, "Jones / Smith")
	assert.Contains(t, out, "X-WR-CALNAME:WebUntis Timetable")
	assert.Contains(t, out, "X-WR-TIMEZONE:Europe/Brussels")
	// 08:00 Brussels in September is 06:00 UTC.
	assert.Contains(t, out, "20250915T060000Z")
	assert.Contains(t, out, "20250915T074000Z")
}

func TestBuildSummaryVariants(t *testing.T) {
	t.Run("substitution text is appended", func(t *testing.T) {
		l := sampleLesson()
		l.SubstText = "Cover"
		out := Build([]*lesson.Lesson{l}, BuildConfig{Location: brussels(t)}).Serialize()
		assert.Contains(t, out, "Mathematics (Cover)")
	})

	t.Run("no subjects falls back to default", func(t *testing.T) {
		l := sampleLesson()
		l.Subjects = lesson.NewStringSet()
		out := Build([]*lesson.Lesson{l}, BuildConfig{Location: brussels(t)}).Serialize()
		assert.Contains(t, out, "SUMMARY:"+lesson.DefaultSubjectName)
	})
}

func TestBuildEmptyInput(t *testing.T) {
	cal := Build(nil, BuildConfig{Location: brussels(t)})
	out := cal.Serialize()
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.NotContains(t, out, "BEGIN:VEVENT")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs", "calendar.ics")
	cal := Build([]*lesson.Lesson{sampleLesson()}, BuildConfig{Location: brussels(t)})

	require.NoError(t, WriteFile(path, cal))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "BEGIN:VCALENDAR"))
	assert.Contains(t, string(data), "END:VCALENDAR")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriteFileOverwritesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.ics")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	cal := Build(nil, BuildConfig{Location: brussels(t)})
	require.NoError(t, WriteFile(path, cal))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stale")

	// No temp files may be left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
