package ics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"untisync/internal/lesson"
	appLog "untisync/internal/log"
)

const (
	prodID          = "-//untisync//untisync//EN"
	defaultCalName  = "WebUntis Timetable"
	descriptionRule = "--------------------"
)

// BuildConfig controls calendar rendering.
type BuildConfig struct {
	// Name is the X-WR-CALNAME shown by calendar clients. Empty uses a
	// default.
	Name string

	// Location is the zone attached to every event. The consolidation core
	// produces timezone-naive instants; this is the single place a zone is
	// applied. If nil, time.Local is used.
	Location *time.Location
}

// Build renders consolidated lessons into a calendar. Name sets are sorted
// alphabetically here and nowhere else, so field ordering is stable across
// runs regardless of set iteration order.
func Build(lessons []*lesson.Lesson, cfg BuildConfig) *ical.Calendar {
	if cfg.Name == "" {
		cfg.Name = defaultCalName
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetProductId(prodID)
	cal.SetVersion("2.0")
	cal.SetXWRCalName(cfg.Name)
	cal.SetXWRTimezone(cfg.Location.String())

	for _, l := range lessons {
		addEvent(cal, l, cfg.Location)
	}

	appLog.Debug("calendar built", "events", len(lessons), "timezone", cfg.Location.String())
	return cal
}

func addEvent(cal *ical.Calendar, l *lesson.Lesson, loc *time.Location) {
	// Identifier + date + start time form a stable key across syncs.
	uid := fmt.Sprintf("%d-%d-%d@untisync", l.ID, l.Date, l.StartTime)
	ev := cal.AddEvent(uid)

	// Sets may contain an empty placeholder name when upstream supplied a
	// participant without any display name; it is rendered as-is rather
	// than silently dropped (see DESIGN.md).
	subjects := l.Subjects.Sorted()
	teachers := l.Teachers.Sorted()
	rooms := l.Rooms.Sorted()
	classes := l.Classes.Sorted()

	summary := lesson.DefaultSubjectName
	if len(subjects) > 0 {
		summary = strings.Join(subjects, ", ")
	}
	if l.SubstText != "" {
		summary = summary + " (" + l.SubstText + ")"
	}
	ev.SetSummary(summary)

	ev.SetStartAt(localize(l.StartAt(), loc))
	ev.SetEndAt(localize(l.EndAt(), loc))

	var parts []string
	if len(teachers) > 0 {
		parts = append(parts, strings.Join(teachers, " / "))
	}
	if len(classes) > 0 {
		parts = append(parts, strings.Join(classes, " / "))
	}
	if l.LsText != "" || l.Info != "" || l.SubstText != "" {
		parts = append(parts, descriptionRule)
	}
	if l.LsText != "" {
		parts = append(parts, "ℹ️ "+l.LsText)
	}
	if l.Info != "" {
		parts = append(parts, "📝 "+l.Info)
	}
	if l.SubstText != "" {
		parts = append(parts, "🔄 "+l.SubstText)
	}
	if len(parts) > 0 {
		ev.SetDescription(strings.Join(parts, "\n"))
	}

	if len(rooms) > 0 {
		ev.SetLocation(strings.Join(rooms, ", "))
	}
}

// localize re-interprets a naive instant's calendar components in the given
// zone. This is attachment, not conversion: 08:00 stays 08:00.
func localize(naive time.Time, loc *time.Location) time.Time {
	return time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), 0, 0, loc)
}

// WriteFile serializes the calendar and writes it atomically (temp file in
// the target directory, then rename).
func WriteFile(path string, cal *ical.Calendar) error {
	if path == "" {
		return errors.New("ics: output path is empty")
	}
	if cal == nil {
		return errors.New("ics: calendar is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".untisync-*.ics")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(cal.Serialize()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
