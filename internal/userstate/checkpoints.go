package userstate

import (
	"context"
	"fmt"
	"maps"
	"unicode/utf8"

	"github.com/tekradar/userstate/internal/preferences"
)

// loadCheckpoints reads and decodes the region map. An absent or empty value
// is an empty map; anything undecodable is ErrMalformedData.
func (s *Store) loadCheckpoints(ctx context.Context) (map[string]int64, error) {
	text, err := preferences.GetValue(ctx, s.prefs, keyLastProcessTekTimestamp, "")
	if err != nil {
		return nil, fmt.Errorf("reading region checkpoints: %w", err)
	}
	if text == "" {
		return map[string]int64{}, nil
	}
	m, err := s.codec.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedData, err)
	}
	if m == nil {
		m = map[string]int64{}
	}
	return m, nil
}

// GetLastProcessedTimestamp returns the last processed exposure key timestamp
// for region, or 0 if none is recorded.
func (s *Store) GetLastProcessedTimestamp(ctx context.Context, region string) (int64, error) {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	m, err := s.loadCheckpoints(ctx)
	if err != nil {
		return 0, err
	}
	return m[region], nil
}

// GetLastProcessedTimestamps returns a copy of every recorded region checkpoint.
func (s *Store) GetLastProcessedTimestamps(ctx context.Context) (map[string]int64, error) {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	m, err := s.loadCheckpoints(ctx)
	if err != nil {
		return nil, err
	}
	return maps.Clone(m), nil
}

// SetLastProcessedTimestamp records ts as the last processed timestamp for
// region, keeping every other region's entry.
//
// The whole map is read, modified and written back under one key with no
// lock or compare-and-swap: two concurrent writers can each read the same map
// and the later write drops the earlier one's region. Callers must serialize
// updates, e.g. by giving one goroutine per process ownership of checkpoints.
//
// region must be valid UTF-8; other ids fail with ErrInvalidRegion and
// nothing is written.
func (s *Store) SetLastProcessedTimestamp(ctx context.Context, region string, ts int64) error {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	if !utf8.ValidString(region) {
		return fmt.Errorf("%w: %q", ErrInvalidRegion, region)
	}

	m, err := s.loadCheckpoints(ctx)
	if err != nil {
		return err
	}
	m[region] = ts

	text, err := s.codec.Encode(m)
	if err != nil {
		return fmt.Errorf("encoding region checkpoints: %w", err)
	}
	if err := preferences.SetValue(ctx, s.prefs, keyLastProcessTekTimestamp, text); err != nil {
		return fmt.Errorf("saving region checkpoints: %w", err)
	}
	return nil
}

// RemoveAllProcessedTimestamps discards every region checkpoint.
func (s *Store) RemoveAllProcessedTimestamps(ctx context.Context) error {
	s.tracer.MethodEntered()
	defer s.tracer.MethodExited()

	if err := s.prefs.Remove(ctx, keyLastProcessTekTimestamp); err != nil {
		return fmt.Errorf("removing region checkpoints: %w", err)
	}
	return nil
}
