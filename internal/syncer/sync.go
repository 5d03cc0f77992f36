package syncer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"untisync/internal/config"
	"untisync/internal/ics"
	"untisync/internal/lesson"
	appLog "untisync/internal/log"
	"untisync/internal/untis"
)

const (
	// defaultSwitchLeadDays is the fallback semester switch horizon when no
	// valid switch date is configured.
	defaultSwitchLeadDays = 28

	switchDateLayout = "2006-01-02"
)

// Client is the upstream surface the syncer needs; *untis.Client satisfies
// it, tests substitute their own.
type Client interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	ResolveElement(ctx context.Context, classID string) (untis.Element, error)
	Timetable(ctx context.Context, el untis.Element, start, end time.Time) ([]untis.Lesson, error)
}

// Syncer runs the full fetch → consolidate → render pipeline.
type Syncer struct {
	cfg    *config.Config
	client Client

	// now is injectable for tests.
	now func() time.Time
}

func New(cfg *config.Config, client Client) *Syncer {
	return &Syncer{
		cfg:    cfg,
		client: client,
		now:    time.Now,
	}
}

// Run performs exactly one sync: it fetches the current and future periods,
// consolidates the combined raw timetable and writes the calendar file.
// Repetition is the caller's concern.
func (s *Syncer) Run(ctx context.Context) error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	loc, err := time.LoadLocation(s.cfg.Timezone)
	if err != nil {
		return fmt.Errorf("syncer: invalid timezone %q: %w", s.cfg.Timezone, err)
	}

	if err := s.client.Login(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.client.Logout(context.WithoutCancel(ctx)); err != nil {
			appLog.Debug("logout failed", "err", err)
		}
	}()

	today := dateOnly(s.now())
	switchDate := s.switchDate(today)

	// Current period: lookback window up to the switch date, always on the
	// base element. Future period: switch date to the horizon, on the
	// future element when one is configured.
	currentStart := today.AddDate(0, 0, -s.cfg.LookbackDays)
	currentEnd := switchDate
	futureStart := switchDate
	futureEnd := today.AddDate(0, 0, s.cfg.HorizonDays)

	element, err := s.client.ResolveElement(ctx, s.cfg.ClassID)
	if err != nil {
		return err
	}

	var raw []untis.Lesson

	if currentStart.Before(currentEnd) {
		appLog.Info("fetching current period",
			"element", element.ID,
			"start", currentStart.Format(switchDateLayout),
			"end", currentEnd.Format(switchDateLayout))
		items, err := s.client.Timetable(ctx, element, currentStart, currentEnd)
		if err != nil {
			return err
		}
		raw = append(raw, items...)
	}

	if futureStart.Before(futureEnd) {
		futureElement := element
		if id := strings.TrimSpace(s.cfg.FutureClassID); id != "" {
			futureElement, err = s.client.ResolveElement(ctx, id)
			if err != nil {
				return err
			}
		}
		appLog.Info("fetching future period",
			"element", futureElement.ID,
			"start", futureStart.Format(switchDateLayout),
			"end", futureEnd.Format(switchDateLayout))
		items, err := s.client.Timetable(ctx, futureElement, futureStart, futureEnd)
		if err != nil {
			return err
		}
		raw = append(raw, items...)
	}

	lessons, stats := lesson.Consolidate(raw)
	appLog.Info("timetable consolidated",
		"raw", stats.Raw,
		"cancelled", stats.Cancelled,
		"malformed", stats.Malformed,
		"events", stats.Output)

	cal := ics.Build(lessons, ics.BuildConfig{Location: loc})
	if err := ics.WriteFile(s.cfg.Output, cal); err != nil {
		return fmt.Errorf("syncer: write calendar: %w", err)
	}

	appLog.Info("calendar synced", "events", len(lessons), "output", s.cfg.Output)
	return nil
}

// switchDate resolves the semester switch date. A missing or malformed
// config value falls back to today + 28 days; malformed values are logged.
func (s *Syncer) switchDate(today time.Time) time.Time {
	if s.cfg.SwitchDate != "" {
		d, err := time.Parse(switchDateLayout, s.cfg.SwitchDate)
		if err == nil {
			return d
		}
		appLog.Error("invalid switch_date, defaulting to +28 days",
			err, "switch_date", s.cfg.SwitchDate)
	}
	return today.AddDate(0, 0, defaultSwitchLeadDays)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
