// Package preferences provides the key-value preference store that user
// state is persisted in, with memory, SQLite, Redis, NATS JetStream and
// PostgreSQL backends.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidValue is returned when a stored value cannot be decoded into the
// type requested by the caller.
var ErrInvalidValue = errors.New("invalid stored value")

// Store is a flat string-keyed, string-valued preference store.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Contains reports whether key is present.
	Contains(ctx context.Context, key string) (bool, error)
	// Close releases any resources held by the store.
	Close() error
}

// Value is the set of types the typed accessors can persist.
type Value interface {
	time.Time | int64 | string
}

// GetValue returns the value under key decoded as T, or def when the key is
// absent. Timestamps are returned in UTC.
func GetValue[T Value](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	v, err := decode[T](raw)
	if err != nil {
		return def, fmt.Errorf("%w: key %s: %v", ErrInvalidValue, key, err)
	}
	return v, nil
}

// SetValue encodes v and stores it under key.
func SetValue[T Value](ctx context.Context, s Store, key string, v T) error {
	return s.Set(ctx, key, encode(v))
}

// Times in years 0 through 9999 are stored as RFC 3339. Others have no
// parseable RFC 3339 form and are stored as "<unix seconds>.<nanoseconds>".
func encode[T Value](v T) string {
	switch x := any(v).(type) {
	case time.Time:
		x = x.UTC()
		if y := x.Year(); y >= 0 && y <= 9999 {
			return x.Format(time.RFC3339Nano)
		}
		return fmt.Sprintf("%d.%09d", x.Unix(), x.Nanosecond())
	case int64:
		return strconv.FormatInt(x, 10)
	case string:
		return x
	}
	panic(fmt.Sprintf("preferences: unsupported value type %T", v))
}

func decode[T Value](raw string) (T, error) {
	var out T
	switch p := any(&out).(type) {
	case *time.Time:
		t, err := decodeTime(raw)
		if err != nil {
			return out, err
		}
		*p = t
	case *int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return out, err
		}
		*p = n
	case *string:
		*p = raw
	}
	return out, nil
}

func decodeTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}

	secText, nsecText, ok := strings.Cut(raw, ".")
	if !ok || len(nsecText) != 9 {
		return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", raw)
	}
	sec, err := strconv.ParseInt(secText, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp: %w", raw, err)
	}
	nsec, err := strconv.ParseInt(nsecText, 10, 64)
	if err != nil || nsec < 0 {
		return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", raw)
	}
	return time.Unix(sec, nsec).UTC(), nil
}
