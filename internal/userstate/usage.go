package userstate

import (
	"context"
	"fmt"
	"time"

	"github.com/tekradar/userstate/internal/preferences"
)

// SetStartDate records when the app was first used. Any time is accepted.
func (s *Store) SetStartDate(ctx context.Context, t time.Time) error {
	if err := preferences.SetValue(ctx, s.prefs, keyStartDate, t.UTC()); err != nil {
		return fmt.Errorf("saving start date: %w", err)
	}
	return nil
}

// GetStartDate returns the recorded start date, or the current time when none
// is recorded. An unset start date therefore reads as zero days of use.
func (s *Store) GetStartDate(ctx context.Context) (time.Time, error) {
	t, err := preferences.GetValue(ctx, s.prefs, keyStartDate, s.clock.Now().UTC())
	if err != nil {
		return time.Time{}, fmt.Errorf("reading start date: %w", err)
	}
	return t, nil
}

// GetDaysOfUse returns the number of whole days since the start date. It is
// negative only if the start date lies in the future.
func (s *Store) GetDaysOfUse(ctx context.Context) (int, error) {
	start, err := s.GetStartDate(ctx)
	if err != nil {
		return 0, err
	}
	return daysBetween(start, s.clock.Now()), nil
}

const secondsPerDay = 24 * 60 * 60

// daysBetween returns floor((to - from) / 24h). It works on whole seconds so
// spans longer than time.Duration can hold stay exact.
func daysBetween(from, to time.Time) int {
	secs := to.Unix() - from.Unix()
	if to.Nanosecond() < from.Nanosecond() {
		secs--
	}
	days := secs / secondsPerDay
	if secs%secondsPerDay < 0 {
		days--
	}
	return int(days)
}

// RemoveStartDate forgets the start date.
func (s *Store) RemoveStartDate(ctx context.Context) error {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	if err := s.prefs.Remove(ctx, keyStartDate); err != nil {
		return fmt.Errorf("removing start date: %w", err)
	}
	return nil
}
